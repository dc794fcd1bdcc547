// Package registry looks companies up in the Danish Business Register (CVR).
//
// The lookup contract is three-way: success with data, a clean "not found",
// or a search-level failure (timeout, block, server error). Callers must not
// collapse the last two — the rate-limit guard keys off the distinction.
package registry

import (
	"context"
	"regexp"
	"strconv"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// Client is the registry lookup contract consumed by the verification
// orchestrator. The error return is reserved for context cancellation;
// registry-level outcomes are always encoded in the result. Implementations
// that own a stateful lookup session may serialize calls internally.
type Client interface {
	Lookup(ctx context.Context, name string, registryID string) (*model.RegistryLookupResult, error)
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// YearFromStartDate extracts a four-digit year from a registry start-date
// string such as "01/06 - 2015" or "2015-06-01".
func YearFromStartDate(s string) (int, bool) {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}
