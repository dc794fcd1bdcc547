package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the store. pgxmock satisfies
// it too, which keeps the Postgres driver unit-testable without a server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements RecordStore using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	registry_id  TEXT,
	website      TEXT,
	founded_year INTEGER,
	location     TEXT,
	verified     BOOLEAN NOT NULL DEFAULT FALSE,
	needs_review BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verification_outcomes (
	company_id   TEXT PRIMARY KEY REFERENCES companies(id),
	outcome      JSONB NOT NULL,
	confidence   INTEGER NOT NULL,
	needs_review BOOLEAN NOT NULL,
	verified_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_companies_verified ON companies(verified);
CREATE INDEX IF NOT EXISTS idx_companies_needs_review ON companies(needs_review);
CREATE INDEX IF NOT EXISTS idx_outcomes_confidence ON verification_outcomes(confidence);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const selectCompanyColumns = `SELECT id, name, registry_id, website, founded_year, location, verified, needs_review, created_at, updated_at FROM companies`

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.CompanyRecord, error) {
	row := s.pool.QueryRow(ctx, selectCompanyColumns+` WHERE id = $1`, id)

	var c model.CompanyRecord
	err := row.Scan(&c.ID, &c.Name, &c.RegistryID, &c.Website, &c.FoundedYear,
		&c.Location, &c.Verified, &c.NeedsReview, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	return &c, nil
}

func (s *PostgresStore) ListUnverifiedCompanies(ctx context.Context, limit int) ([]model.CompanyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		selectCompanyColumns+` WHERE verified = FALSE ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unverified")
	}
	defer rows.Close()

	var companies []model.CompanyRecord
	for rows.Next() {
		var c model.CompanyRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.RegistryID, &c.Website, &c.FoundedYear,
			&c.Location, &c.Verified, &c.NeedsReview, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list unverified iterate")
}

func (s *PostgresStore) CountCompanies(ctx context.Context, filter model.CountFilter) (int, error) {
	query := `SELECT count(*) FROM companies`
	switch filter {
	case model.CountVerified:
		query += ` WHERE verified = TRUE`
	case model.CountUnverified:
		query += ` WHERE verified = FALSE`
	case model.CountNeedsReview:
		query += ` WHERE needs_review = TRUE`
	}

	var n int
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "postgres: count companies (%s)", filter)
	}
	return n, nil
}

func (s *PostgresStore) UpdateCompanyFlags(ctx context.Context, id string, verified, needsReview bool, registryID *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET verified = $1, needs_review = $2,
		 registry_id = COALESCE($3, registry_id), updated_at = $4 WHERE id = $5`,
		verified, needsReview, registryID, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company flags %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ImportCompanies(ctx context.Context, companies []model.CompanyRecord) (int, error) {
	now := time.Now().UTC()
	imported := 0
	for _, c := range companies {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO companies (id, name, registry_id, website, founded_year, location, verified, needs_review, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   registry_id = COALESCE(EXCLUDED.registry_id, companies.registry_id),
			   website = COALESCE(EXCLUDED.website, companies.website),
			   founded_year = COALESCE(EXCLUDED.founded_year, companies.founded_year),
			   location = EXCLUDED.location,
			   updated_at = EXCLUDED.updated_at`,
			c.ID, c.Name, c.RegistryID, c.Website, c.FoundedYear, c.Location,
			c.Verified, c.NeedsReview, now, now)
		if err != nil {
			return imported, eris.Wrapf(err, "postgres: import company %s", c.ID)
		}
		imported++
	}
	return imported, nil
}

func (s *PostgresStore) UpsertVerificationOutcome(ctx context.Context, outcome *model.VerificationOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO verification_outcomes (company_id, outcome, confidence, needs_review, verified_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (company_id) DO UPDATE SET
		   outcome = EXCLUDED.outcome,
		   confidence = EXCLUDED.confidence,
		   needs_review = EXCLUDED.needs_review,
		   verified_at = EXCLUDED.verified_at`,
		outcome.CompanyID, outcomeJSON, outcome.Breakdown.Confidence,
		outcome.Breakdown.NeedsReview, outcome.VerifiedAt)
	return eris.Wrapf(err, "postgres: upsert outcome %s", outcome.CompanyID)
}

func (s *PostgresStore) GetVerificationOutcome(ctx context.Context, companyID string) (*model.VerificationOutcome, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT outcome FROM verification_outcomes WHERE company_id = $1`, companyID)

	var outcomeJSON []byte
	err := row.Scan(&outcomeJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get outcome %s", companyID)
	}

	var outcome model.VerificationOutcome
	if err := json.Unmarshal(outcomeJSON, &outcome); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal outcome")
	}
	return &outcome, nil
}
