package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// SQLiteStore implements RecordStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	registry_id  TEXT,
	website      TEXT,
	founded_year INTEGER,
	location     TEXT,
	verified     INTEGER NOT NULL DEFAULT 0,
	needs_review INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS verification_outcomes (
	company_id   TEXT PRIMARY KEY REFERENCES companies(id),
	outcome      TEXT NOT NULL,
	confidence   INTEGER NOT NULL,
	needs_review INTEGER NOT NULL,
	verified_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_companies_verified ON companies(verified);
CREATE INDEX IF NOT EXISTS idx_companies_needs_review ON companies(needs_review);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteCompanyColumns = `SELECT id, name, registry_id, website, founded_year, location, verified, needs_review, created_at, updated_at FROM companies`

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx, sqliteCompanyColumns+` WHERE id = ?`, id)

	var c model.CompanyRecord
	err := row.Scan(&c.ID, &c.Name, &c.RegistryID, &c.Website, &c.FoundedYear,
		&c.Location, &c.Verified, &c.NeedsReview, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", id)
	}
	return &c, nil
}

func (s *SQLiteStore) ListUnverifiedCompanies(ctx context.Context, limit int) ([]model.CompanyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		sqliteCompanyColumns+` WHERE verified = 0 ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unverified")
	}
	defer rows.Close()

	var companies []model.CompanyRecord
	for rows.Next() {
		var c model.CompanyRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.RegistryID, &c.Website, &c.FoundedYear,
			&c.Location, &c.Verified, &c.NeedsReview, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list unverified iterate")
}

func (s *SQLiteStore) CountCompanies(ctx context.Context, filter model.CountFilter) (int, error) {
	query := `SELECT count(*) FROM companies`
	switch filter {
	case model.CountVerified:
		query += ` WHERE verified = 1`
	case model.CountUnverified:
		query += ` WHERE verified = 0`
	case model.CountNeedsReview:
		query += ` WHERE needs_review = 1`
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count companies (%s)", filter)
	}
	return n, nil
}

func (s *SQLiteStore) UpdateCompanyFlags(ctx context.Context, id string, verified, needsReview bool, registryID *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET verified = ?, needs_review = ?,
		 registry_id = COALESCE(?, registry_id), updated_at = ? WHERE id = ?`,
		verified, needsReview, registryID, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company flags %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ImportCompanies(ctx context.Context, companies []model.CompanyRecord) (int, error) {
	now := time.Now().UTC()
	imported := 0
	for _, c := range companies {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO companies (id, name, registry_id, website, founded_year, location, verified, needs_review, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			   name = excluded.name,
			   registry_id = COALESCE(excluded.registry_id, companies.registry_id),
			   website = COALESCE(excluded.website, companies.website),
			   founded_year = COALESCE(excluded.founded_year, companies.founded_year),
			   location = excluded.location,
			   updated_at = excluded.updated_at`,
			c.ID, c.Name, c.RegistryID, c.Website, c.FoundedYear, c.Location,
			c.Verified, c.NeedsReview, now, now)
		if err != nil {
			return imported, eris.Wrapf(err, "sqlite: import company %s", c.ID)
		}
		imported++
	}
	return imported, nil
}

func (s *SQLiteStore) UpsertVerificationOutcome(ctx context.Context, outcome *model.VerificationOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verification_outcomes (company_id, outcome, confidence, needs_review, verified_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (company_id) DO UPDATE SET
		   outcome = excluded.outcome,
		   confidence = excluded.confidence,
		   needs_review = excluded.needs_review,
		   verified_at = excluded.verified_at`,
		outcome.CompanyID, string(outcomeJSON), outcome.Breakdown.Confidence,
		outcome.Breakdown.NeedsReview, outcome.VerifiedAt)
	return eris.Wrapf(err, "sqlite: upsert outcome %s", outcome.CompanyID)
}

func (s *SQLiteStore) GetVerificationOutcome(ctx context.Context, companyID string) (*model.VerificationOutcome, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT outcome FROM verification_outcomes WHERE company_id = ?`, companyID)

	var outcomeJSON string
	err := row.Scan(&outcomeJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get outcome %s", companyID)
	}

	var outcome model.VerificationOutcome
	if err := json.Unmarshal([]byte(outcomeJSON), &outcome); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
	}
	return &outcome, nil
}
