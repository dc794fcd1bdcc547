package model

import "time"

// LookupErrorKind distinguishes a clean registry miss from a failed search.
// The distinction drives the rate-limit guard: a miss is a legitimate result,
// a failed search is a potential blocking signal.
type LookupErrorKind string

const (
	LookupOK       LookupErrorKind = ""
	LookupNotFound LookupErrorKind = "not_found"
	LookupFailed   LookupErrorKind = "search_failed"
)

// RegistryLookupResult is the outcome of one registry search. Exactly one of
// three shapes: Found=true with registry data, a clean not-found, or a
// search-level failure described by Err/ErrDetail.
type RegistryLookupResult struct {
	Found               bool   `json:"found"`
	RegistryID          string `json:"registry_id,omitempty"`
	OfficialName        string `json:"official_name,omitempty"`
	Status              string `json:"status,omitempty"`
	IndustryCode        string `json:"industry_code,omitempty"`
	IndustryDescription string `json:"industry_description,omitempty"`
	LegalForm           string `json:"legal_form,omitempty"`
	Purpose             string `json:"purpose,omitempty"`
	StartDate           string `json:"start_date,omitempty"`

	Err       LookupErrorKind `json:"err,omitempty"`
	ErrDetail string          `json:"err_detail,omitempty"`
}

// Miss reports whether the registry was searched cleanly but had no match.
func (r *RegistryLookupResult) Miss() bool {
	return r != nil && !r.Found && r.Err == LookupNotFound
}

// Failed reports whether the search itself failed (timeout, block, error).
func (r *RegistryLookupResult) Failed() bool {
	return r != nil && r.Err == LookupFailed
}

// WebPresenceResult aggregates the independent web-presence probes.
type WebPresenceResult struct {
	WebsiteReachable bool `json:"website_reachable"`
	HTTPS            bool `json:"https"`

	// ProfessionalProfileFound is a URL-pattern heuristic, not an
	// authoritative signal; ProfileConfidence tags it as such.
	ProfessionalProfileFound bool   `json:"professional_profile_found"`
	ProfileConfidence        string `json:"profile_confidence,omitempty"`

	SocialSignalCount int `json:"social_signal_count"`
	PresenceScore     int `json:"presence_score"`
}

// ScoreBreakdown holds the five weighted sub-scores and the combined verdict.
type ScoreBreakdown struct {
	StatusScore    int `json:"status_score"`
	IndustryScore  int `json:"industry_score"`
	AgeScore       int `json:"age_score"`
	PresenceScore  int `json:"presence_score"`
	NameMatchScore int `json:"name_match_score"`

	StatusWeight    float64 `json:"status_weight"`
	IndustryWeight  float64 `json:"industry_weight"`
	AgeWeight       float64 `json:"age_weight"`
	PresenceWeight  float64 `json:"presence_weight"`
	NameMatchWeight float64 `json:"name_match_weight"`

	Confidence     int            `json:"confidence"`
	Classification Classification `json:"classification"`
	NeedsReview    bool           `json:"needs_review"`
	Justification  string         `json:"justification"`
}

// VerificationOutcome is the persisted result of one verification run.
// At most one outcome exists per company; re-verifying overwrites.
type VerificationOutcome struct {
	CompanyID  string               `json:"company_id"`
	Breakdown  ScoreBreakdown       `json:"breakdown"`
	Lookup     RegistryLookupResult `json:"lookup"`
	Presence   WebPresenceResult    `json:"presence"`
	DurationMS int64                `json:"duration_ms"`
	VerifiedAt time.Time            `json:"verified_at"`
}

// BatchSummary is the tally reported by a batch run.
type BatchSummary struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Pauses     int           `json:"pauses"`
	Duration   time.Duration `json:"duration_ns"`

	// AvgPerCompany is only populated by the parallel scheduler.
	AvgPerCompany time.Duration `json:"avg_per_company_ns,omitempty"`
}
