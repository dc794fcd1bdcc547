// Package scorer combines registry, industry, age, web-presence and
// name-match signals into a single weighted confidence score.
package scorer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/agext/levenshtein"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/classify"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// Sub-score weights. Sum = 1.0.
const (
	StatusWeight    = 0.30
	IndustryWeight  = 0.25
	AgeWeight       = 0.15
	PresenceWeight  = 0.20
	NameMatchWeight = 0.10
)

// neutral is the sub-score assigned when an input is missing or unparsable.
// Web presence is the exception: absence of presence is itself a signal.
const neutral = 50

// Input carries everything the scorer needs for one company.
type Input struct {
	Company  model.CompanyRecord
	Lookup   *model.RegistryLookupResult
	Industry classify.Result
	Presence *model.WebPresenceResult

	// FoundedYear is the resolved founding year (stored value or parsed
	// from the registry start date); nil when neither was available.
	FoundedYear *int

	// Now anchors the age calculation; zero means time.Now.
	Now time.Time
}

// Scorer computes weighted confidence breakdowns.
type Scorer struct{}

// New creates a Scorer.
func New() *Scorer {
	return &Scorer{}
}

// Score computes the five sub-scores, the weighted total, the classification
// and the justification for one company.
func (s *Scorer) Score(in Input) model.ScoreBreakdown {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	status := statusScore(lookupStatus(in.Lookup))
	industry := in.Industry.Score
	age := ageScore(in.FoundedYear, now.Year())
	presence := presenceScore(in.Presence)
	name := nameMatchScore(in.Company.Name, lookupName(in.Lookup))

	total := int(math.Round(
		StatusWeight*float64(status) +
			IndustryWeight*float64(industry) +
			AgeWeight*float64(age) +
			PresenceWeight*float64(presence) +
			NameMatchWeight*float64(name),
	))

	bd := model.ScoreBreakdown{
		StatusScore:     status,
		IndustryScore:   industry,
		AgeScore:        age,
		PresenceScore:   presence,
		NameMatchScore:  name,
		StatusWeight:    StatusWeight,
		IndustryWeight:  IndustryWeight,
		AgeWeight:       AgeWeight,
		PresenceWeight:  PresenceWeight,
		NameMatchWeight: NameMatchWeight,
		Confidence:      total,
		Classification:  resolveClassification(total, in.Industry.Type),
		NeedsReview:     total >= 40 && total < 70,
	}
	bd.Justification = justification(bd, in)
	return bd
}

// resolveClassification applies the resolution order: holding and
// local-service industry matches are authoritative overrides; startup
// requires both the industry match and a total of at least 70; very low
// totals degrade to unknown.
func resolveClassification(total int, industry model.Classification) model.Classification {
	switch industry {
	case model.ClassHolding, model.ClassLocalService:
		return industry
	}
	if total >= 70 && industry == model.ClassStartup {
		return model.ClassStartup
	}
	if total < 40 {
		return model.ClassUnknown
	}
	return industry
}

// statusRule maps a CVR legal-status substring to a sub-score. Rules are
// checked in order so that "under konkurs" resolves before "konkurs".
type statusRule struct {
	substr string
	score  int
}

var statusRules = []statusRule{
	{"under konkurs", 10},
	{"under tvangsopløsning", 20},
	{"under frivillig likvidation", 30},
	{"likvidation", 30},
	{"under rekonstruktion", 30},
	{"tvangsopløst", 0},
	{"opløst", 0},
	{"konkurs", 0},
	{"ophørt", 0},
	{"slettet", 0},
	{"normal", 100},
	{"aktiv", 100},
}

func statusScore(status string) int {
	st := strings.ToLower(strings.TrimSpace(status))
	if st == "" {
		return neutral
	}
	for _, r := range statusRules {
		if st == r.substr || strings.Contains(st, r.substr) {
			return r.score
		}
	}
	return neutral
}

func ageScore(foundedYear *int, currentYear int) int {
	if foundedYear == nil {
		return neutral
	}
	age := currentYear - *foundedYear
	switch {
	case age < 0:
		return 0
	case age < 1:
		return 70
	case age <= 5:
		return 100
	case age <= 10:
		return 85
	case age <= 15:
		return 60
	case age <= 25:
		return 40
	default:
		return 20
	}
}

func presenceScore(p *model.WebPresenceResult) int {
	if p == nil {
		return 0
	}
	return p.PresenceScore
}

// nameMatchScore compares the directory name against the registry's official
// name: exact match 100, substring containment 90, otherwise a normalized
// edit-distance similarity scaled to 0-100. Legal-form suffixes are stripped
// before comparison so "Lunar" matches "Lunar A/S".
func nameMatchScore(recordName, officialName string) int {
	if officialName == "" {
		return neutral
	}
	a := normalizeName(recordName)
	b := normalizeName(officialName)
	if a == "" || b == "" {
		return neutral
	}
	if a == b {
		return 100
	}
	if strings.Contains(b, a) || strings.Contains(a, b) {
		return 90
	}
	sim := levenshtein.Similarity(a, b, nil)
	return int(math.Round(sim * 100))
}

var legalSuffixes = []string{
	" aps", " a/s", " as", " ivs", " p/s", " i/s", " k/s", " a.m.b.a.", " amba",
}

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.Join(strings.Fields(n), " ")
	for _, suf := range legalSuffixes {
		if strings.HasSuffix(n, suf) {
			n = strings.TrimSpace(strings.TrimSuffix(n, suf))
			break
		}
	}
	return n
}

// justification assembles threshold-triggered sentence fragments in a fixed
// order: verdict, status, industry, age, presence, name mismatch. Fragments
// whose trigger is false are omitted.
func justification(bd model.ScoreBreakdown, in Input) string {
	var parts []string

	switch {
	case bd.Confidence >= 70:
		parts = append(parts, fmt.Sprintf("High confidence (%d/100): classified as %s.", bd.Confidence, bd.Classification))
	case bd.Confidence >= 40:
		parts = append(parts, fmt.Sprintf("Moderate confidence (%d/100): classified as %s, flagged for review.", bd.Confidence, bd.Classification))
	default:
		parts = append(parts, fmt.Sprintf("Low confidence (%d/100): classification uncertain.", bd.Confidence))
	}

	status := lookupStatus(in.Lookup)
	switch {
	case in.Lookup != nil && in.Lookup.Miss():
		parts = append(parts, "No registry match was found for this company.")
	case in.Lookup != nil && in.Lookup.Failed():
		parts = append(parts, "The registry search failed; status signals are unavailable.")
	case bd.StatusScore == 0 && status != "":
		parts = append(parts, fmt.Sprintf("Registry status %q indicates the company is dissolved or bankrupt.", status))
	case bd.StatusScore > 0 && bd.StatusScore <= 30 && status != "":
		parts = append(parts, fmt.Sprintf("Registry status %q indicates liquidation in progress.", status))
	}

	switch in.Industry.Type {
	case model.ClassHolding:
		parts = append(parts, fmt.Sprintf("Industry code %s marks a %s.", in.Industry.MatchedCode, in.Industry.Label))
	case model.ClassLocalService:
		parts = append(parts, fmt.Sprintf("Industry code %s marks a local service business (%s).", in.Industry.MatchedCode, in.Industry.Label))
	case model.ClassUnknown:
		if in.Lookup != nil && in.Lookup.IndustryCode != "" {
			parts = append(parts, fmt.Sprintf("Industry code %s is not a recognized startup sector.", in.Lookup.IndustryCode))
		}
	}

	if in.FoundedYear != nil {
		switch {
		case bd.AgeScore == 0:
			parts = append(parts, fmt.Sprintf("Founding year %d is in the future.", *in.FoundedYear))
		case bd.AgeScore <= 40:
			parts = append(parts, fmt.Sprintf("Company age (founded %d) is atypical for a startup.", *in.FoundedYear))
		}
	}

	switch {
	case bd.PresenceScore == 0:
		parts = append(parts, "No web presence could be confirmed.")
	case bd.PresenceScore < 40:
		parts = append(parts, "Web presence is weak.")
	}

	if in.Lookup != nil && in.Lookup.Found && bd.NameMatchScore < 70 {
		parts = append(parts, fmt.Sprintf("Registry name %q differs from directory name %q.", in.Lookup.OfficialName, in.Company.Name))
	}

	return strings.Join(parts, " ")
}

func lookupStatus(l *model.RegistryLookupResult) string {
	if l == nil || !l.Found {
		return ""
	}
	return l.Status
}

func lookupName(l *model.RegistryLookupResult) string {
	if l == nil || !l.Found {
		return ""
	}
	return l.OfficialName
}
