// Package webcheck probes a company's independent web footprint: its own
// website, its professional-network profile and any pluggable social signals.
package webcheck

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

const (
	reachablePoints = 40
	httpsPoints     = 10
	profilePoints   = 30
	signalPoints    = 5
	signalCap       = 20
	maxScore        = 100
)

// SignalSource enumerates social signals for a company. Implementations are
// best-effort; errors are logged and treated as zero signals.
type SignalSource interface {
	Name() string
	Signals(ctx context.Context, company model.CompanyRecord) (int, error)
}

// Options configures the Checker.
type Options struct {
	Timeout         time.Duration
	UserAgent       string
	LinkedInBaseURL string
	Signals         []SignalSource
}

// Checker runs the three presence probes concurrently.
type Checker struct {
	client       *http.Client
	userAgent    string
	linkedinBase string
	signals      []SignalSource
}

// New creates a Checker with the given options.
func New(opts Options) *Checker {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "DenmarkEcosystemMap/1.0 (verification)"
	}
	if opts.LinkedInBaseURL == "" {
		opts.LinkedInBaseURL = "https://www.linkedin.com"
	}
	return &Checker{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgent:    opts.UserAgent,
		linkedinBase: strings.TrimRight(opts.LinkedInBaseURL, "/"),
		signals:      opts.Signals,
	}
}

// Check runs the website, profile and signal probes concurrently and waits
// for all of them; no probe failure aborts the others.
func (c *Checker) Check(ctx context.Context, company model.CompanyRecord) *model.WebPresenceResult {
	result := &model.WebPresenceResult{}
	log := zap.L().With(zap.String("company", company.ID))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if company.Website == nil || *company.Website == "" {
			return nil
		}
		reachable, https, err := c.probeWebsite(gctx, *company.Website)
		if err != nil {
			log.Debug("website probe failed", zap.String("website", *company.Website), zap.Error(err))
			return nil
		}
		result.WebsiteReachable = reachable
		result.HTTPS = https
		return nil
	})

	g.Go(func() error {
		found, err := c.probeProfile(gctx, company.Name)
		if err != nil {
			log.Debug("profile probe failed", zap.Error(err))
			return nil
		}
		result.ProfessionalProfileFound = found
		if found {
			result.ProfileConfidence = "heuristic"
		}
		return nil
	})

	g.Go(func() error {
		total := 0
		for _, src := range c.signals {
			n, err := src.Signals(gctx, company)
			if err != nil {
				log.Debug("signal source failed", zap.String("source", src.Name()), zap.Error(err))
				continue
			}
			total += n
		}
		result.SocialSignalCount = total
		return nil
	})

	_ = g.Wait() // probes never return errors

	result.PresenceScore = scorePresence(result)
	return result
}

// probeWebsite checks reachability with a bounded GET. A 405 counts as
// reachable: the host answered, it just rejects the method.
func (c *Checker) probeWebsite(ctx context.Context, website string) (reachable, https bool, err error) {
	u := website
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, false, err
	}
	defer resp.Body.Close() //nolint:errcheck

	https = strings.HasPrefix(u, "https://")
	if resp.StatusCode < 400 || resp.StatusCode == http.StatusMethodNotAllowed {
		return true, https, nil
	}
	return false, false, nil
}

// probeProfile checks for a LinkedIn company page under the slug derived
// from the company name. URL-pattern matching only: a positive here is a
// heuristic, never an authoritative identity claim.
func (c *Checker) probeProfile(ctx context.Context, name string) (bool, error) {
	slug := Slugify(name)
	if slug == "" {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.linkedinBase+"/company/"+slug, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close() //nolint:errcheck

	return resp.StatusCode >= 200 && resp.StatusCode < 400, nil
}

// scorePresence applies the presence formula: 40 points for a reachable
// website plus 10 for HTTPS, 30 for a professional profile, 5 per social
// signal capped at 20, all capped at 100.
func scorePresence(r *model.WebPresenceResult) int {
	score := 0
	if r.WebsiteReachable {
		score += reachablePoints
		if r.HTTPS {
			score += httpsPoints
		}
	}
	if r.ProfessionalProfileFound {
		score += profilePoints
	}
	signals := r.SocialSignalCount * signalPoints
	if signals > signalCap {
		signals = signalCap
	}
	score += signals
	if score > maxScore {
		score = maxScore
	}
	return score
}

// Slugify converts a company name to a lowercase hyphenated slug, the way
// professional networks form company page URLs.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == 'æ':
			b.WriteString("ae")
			lastHyphen = false
		case r == 'ø':
			b.WriteString("o")
			lastHyphen = false
		case r == 'å':
			b.WriteString("a")
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
