package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCompany(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, name, registry_id, website, founded_year, location, verified, needs_review, created_at, updated_at FROM companies WHERE id = \$1`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "registry_id", "website", "founded_year",
			"location", "verified", "needs_review", "created_at", "updated_at",
		}).AddRow("acme", "Acme ApS", strPtr("12345678"), (*string)(nil), intPtr(2019),
			"Odense", true, false, now, now))

	c, err := s.GetCompany(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme ApS", c.Name)
	require.NotNil(t, c.RegistryID)
	assert.Equal(t, "12345678", *c.RegistryID)
	assert.Nil(t, c.Website)
	assert.True(t, c.Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM companies WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCompany(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompanyFlags_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE companies SET verified = \$1`).
		WithArgs(true, false, (*string)(nil), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCompanyFlags(context.Background(), "missing", true, false, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountCompanies_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM companies WHERE verified = FALSE`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountCompanies(context.Background(), model.CountUnverified)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertOutcome(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	outcome := &model.VerificationOutcome{
		CompanyID:  "acme",
		Breakdown:  model.ScoreBreakdown{Confidence: 82, NeedsReview: false},
		VerifiedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO verification_outcomes .* ON CONFLICT \(company_id\) DO UPDATE`).
		WithArgs("acme", pgxmock.AnyArg(), 82, false, outcome.VerifiedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertVerificationOutcome(context.Background(), outcome))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOutcome(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	outcome := model.VerificationOutcome{
		CompanyID: "acme",
		Breakdown: model.ScoreBreakdown{Confidence: 67, NeedsReview: true},
	}
	raw, err := json.Marshal(outcome)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT outcome FROM verification_outcomes WHERE company_id = \$1`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"outcome"}).AddRow(raw))

	got, err := s.GetVerificationOutcome(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 67, got.Breakdown.Confidence)
	assert.True(t, got.Breakdown.NeedsReview)
	assert.NoError(t, mock.ExpectationsWereMet())
}
