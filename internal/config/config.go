// Package config loads application configuration from config.yaml and
// ECOMAP_-prefixed environment variables, with defaults for everything.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Webcheck WebcheckConfig `yaml:"webcheck" mapstructure:"webcheck"`
	Verify   VerifyConfig   `yaml:"verify" mapstructure:"verify"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RegistryConfig configures the CVR registry client.
type RegistryConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Country        string  `yaml:"country" mapstructure:"country"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// WebcheckConfig configures the web presence probes.
type WebcheckConfig struct {
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	LinkedInBaseURL string `yaml:"linkedin_base_url" mapstructure:"linkedin_base_url"`
}

// VerifyConfig configures batch scheduling and rate-limit protection.
type VerifyConfig struct {
	Parallel          bool `yaml:"parallel" mapstructure:"parallel"`
	Concurrency       int  `yaml:"concurrency" mapstructure:"concurrency"`
	ItemDelaySecs     int  `yaml:"item_delay_secs" mapstructure:"item_delay_secs"`
	ChunkDelaySecs    int  `yaml:"chunk_delay_secs" mapstructure:"chunk_delay_secs"`
	FailureThreshold  int  `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs      int  `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
	AlertIntervalSecs int  `yaml:"alert_interval_secs" mapstructure:"alert_interval_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ECOMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ecosystem.db")
	v.SetDefault("registry.base_url", "https://cvrapi.dk/api")
	v.SetDefault("registry.country", "dk")
	v.SetDefault("registry.user_agent", "DenmarkEcosystemMap/1.0 (Education Project)")
	v.SetDefault("registry.timeout_secs", 10)
	v.SetDefault("registry.requests_per_sec", 2.0)
	v.SetDefault("webcheck.timeout_secs", 10)
	v.SetDefault("webcheck.linkedin_base_url", "https://www.linkedin.com")
	v.SetDefault("verify.concurrency", 3)
	v.SetDefault("verify.item_delay_secs", 2)
	v.SetDefault("verify.chunk_delay_secs", 2)
	v.SetDefault("verify.failure_threshold", 3)
	v.SetDefault("verify.cooldown_secs", 300)
	v.SetDefault("verify.alert_interval_secs", 600)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
