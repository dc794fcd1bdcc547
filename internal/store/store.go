// Package store persists company records and verification outcomes.
// Two drivers are provided: PostgreSQL via pgxpool for deployments and
// SQLite via modernc.org/sqlite for local single-binary use.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// ErrNotFound is returned when a requested company or outcome does not exist.
var ErrNotFound = eris.New("store: not found")

// RecordStore defines the persistence interface for the verification engine.
type RecordStore interface {
	// Companies
	GetCompany(ctx context.Context, id string) (*model.CompanyRecord, error)
	ListUnverifiedCompanies(ctx context.Context, limit int) ([]model.CompanyRecord, error)
	CountCompanies(ctx context.Context, filter model.CountFilter) (int, error)
	UpdateCompanyFlags(ctx context.Context, id string, verified, needsReview bool, registryID *string) error
	ImportCompanies(ctx context.Context, companies []model.CompanyRecord) (int, error)

	// Outcomes
	UpsertVerificationOutcome(ctx context.Context, outcome *model.VerificationOutcome) error
	GetVerificationOutcome(ctx context.Context, companyID string) (*model.VerificationOutcome, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
