// Package classify maps Danish DB07 branch codes to a company classification.
package classify

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

//go:embed codes.yaml
var codesYAML []byte

// neutralScore is returned when no table matches the code.
const neutralScore = 50

// Result is the classifier's verdict for one industry code.
type Result struct {
	Type        model.Classification `json:"type"`
	Score       int                  `json:"score"`
	Label       string               `json:"label,omitempty"`
	MatchedCode string               `json:"matched_code,omitempty"`
}

type tableEntry struct {
	Code  string `yaml:"code"`
	Score int    `yaml:"score"`
	Label string `yaml:"label"`
}

type codeTables struct {
	Holding      []tableEntry `yaml:"holding"`
	LocalService []tableEntry `yaml:"local_service"`
	Startup      []tableEntry `yaml:"startup"`
}

type table struct {
	typ     model.Classification
	entries map[string]tableEntry
}

// Classifier resolves industry codes against the holding, local-service and
// startup code tables, in that priority order.
type Classifier struct {
	tables []table
}

// New builds a Classifier from the embedded DB07 code tables.
func New() (*Classifier, error) {
	return NewFromYAML(codesYAML)
}

// NewFromYAML builds a Classifier from a YAML table document.
func NewFromYAML(raw []byte) (*Classifier, error) {
	var ct codeTables
	if err := yaml.Unmarshal(raw, &ct); err != nil {
		return nil, eris.Wrap(err, "classify: parse code tables")
	}

	build := func(typ model.Classification, entries []tableEntry) (table, error) {
		m := make(map[string]tableEntry, len(entries))
		for _, e := range entries {
			code := normalizeCode(e.Code)
			if len(code) < 2 {
				return table{}, eris.Errorf("classify: table entry %q too short", e.Code)
			}
			if e.Score < 0 || e.Score > 100 {
				return table{}, eris.Errorf("classify: table entry %q score out of range", e.Code)
			}
			m[code] = e
		}
		return table{typ: typ, entries: m}, nil
	}

	var tables []table
	for _, spec := range []struct {
		typ     model.Classification
		entries []tableEntry
	}{
		{model.ClassHolding, ct.Holding},
		{model.ClassLocalService, ct.LocalService},
		{model.ClassStartup, ct.Startup},
	} {
		t, err := build(spec.typ, spec.entries)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	return &Classifier{tables: tables}, nil
}

// Classify resolves a free-form industry code string. Matching tries
// decreasing-length prefixes of the normalized code, full length down to two
// digits; at each length the holding table is probed first, then
// local-service, then startup. The first hit wins, so a holding prefix always
// beats a startup prefix of the same or shorter length. No match at any
// length yields the neutral unknown result.
func (c *Classifier) Classify(code string) Result {
	norm := normalizeCode(code)
	if len(norm) < 2 {
		return Result{Type: model.ClassUnknown, Score: neutralScore}
	}

	for length := len(norm); length >= 2; length-- {
		prefix := norm[:length]
		for _, t := range c.tables {
			if e, ok := t.entries[prefix]; ok {
				return Result{
					Type:        t.typ,
					Score:       e.Score,
					Label:       e.Label,
					MatchedCode: prefix,
				}
			}
		}
	}

	return Result{Type: model.ClassUnknown, Score: neutralScore}
}

// normalizeCode strips whitespace and leading zeros so that "071100" and
// "71100" resolve identically.
func normalizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		switch r {
		case ' ', '\t', '.', '-':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}
