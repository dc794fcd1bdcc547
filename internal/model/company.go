// Package model holds the shared data types for the verification engine.
package model

import "time"

// CompanyRecord is a directory entry as held by the record store. The
// verification engine reads it and writes back the registry id (when newly
// discovered) and the verification flags.
type CompanyRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	RegistryID  *string `json:"cvr,omitempty"`
	Website     *string `json:"website,omitempty"`
	FoundedYear *int    `json:"founded_year,omitempty"`
	Location    string  `json:"location,omitempty"`

	// Verified means "a verification run completed for this company",
	// independent of the score it produced. Companies with Verified=false
	// are what ListUnverifiedCompanies returns.
	Verified    bool `json:"verified"`
	NeedsReview bool `json:"needs_review"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Classification is the verdict assigned to a company.
type Classification string

const (
	ClassStartup      Classification = "startup"
	ClassHolding      Classification = "holding"
	ClassLocalService Classification = "local_service"
	ClassUnknown      Classification = "unknown"
)

// CountFilter selects which companies CountCompanies counts.
type CountFilter string

const (
	CountAll         CountFilter = "all"
	CountUnverified  CountFilter = "unverified"
	CountVerified    CountFilter = "verified"
	CountNeedsReview CountFilter = "needs_review"
)
