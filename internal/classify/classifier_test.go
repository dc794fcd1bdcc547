package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

func TestClassify_EmbeddedTables(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	tests := []struct {
		code string
		want model.Classification
	}{
		{"620100", model.ClassStartup},
		{"6201", model.ClassStartup},
		{"642020", model.ClassHolding},
		{"6420", model.ClassHolding},
		{"561010", model.ClassLocalService},
		{"960210", model.ClassLocalService},
		{"999999", model.ClassUnknown},
		{"", model.ClassUnknown},
		{"5", model.ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := c.Classify(tt.code)
			assert.Equal(t, tt.want, got.Type)
		})
	}
}

func TestClassify_LeadingZerosIgnored(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	for _, code := range []string{"620100", "6201", "642020", "471100", "999999"} {
		plain := c.Classify(code)
		padded := c.Classify("00" + code)
		assert.Equal(t, plain, padded, "code %s should classify identically with leading zeros", code)
	}
}

func TestClassify_LongestPrefixWins(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// 620100 matches the full six-digit startup entry, not just "62".
	got := c.Classify("620100")
	assert.Equal(t, "620100", got.MatchedCode)
	assert.Equal(t, 95, got.Score)

	// 629900 has no specific entry but falls back to the "62" sector prefix.
	got = c.Classify("629900")
	assert.Equal(t, "62", got.MatchedCode)
	assert.Equal(t, model.ClassStartup, got.Type)
}

func TestClassify_HoldingBeatsStartupAtSameLength(t *testing.T) {
	// A code present in both the holding and startup tables at the same
	// prefix length must resolve to holding.
	tables := []byte(`
holding:
  - { code: "6201", score: 20, label: "conflict holding" }
startup:
  - { code: "6201", score: 95, label: "conflict startup" }
`)
	c, err := NewFromYAML(tables)
	require.NoError(t, err)

	got := c.Classify("620100")
	assert.Equal(t, model.ClassHolding, got.Type)
	assert.Equal(t, 20, got.Score)
}

func TestClassify_LongerStartupPrefixBeatsShorterHolding(t *testing.T) {
	// Prefix length dominates table priority: a six-digit startup entry
	// outranks a four-digit holding entry covering the same code space.
	tables := []byte(`
holding:
  - { code: "6201", score: 20, label: "generic holding" }
startup:
  - { code: "620110", score: 95, label: "specific startup" }
`)
	c, err := NewFromYAML(tables)
	require.NoError(t, err)

	got := c.Classify("620110")
	assert.Equal(t, model.ClassStartup, got.Type)

	got = c.Classify("620190")
	assert.Equal(t, model.ClassHolding, got.Type)
}

func TestClassify_UnknownIsNeutral(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	got := c.Classify("123456")
	assert.Equal(t, model.ClassUnknown, got.Type)
	assert.Equal(t, 50, got.Score)
	assert.Empty(t, got.MatchedCode)
}

func TestNewFromYAML_RejectsBadEntries(t *testing.T) {
	_, err := NewFromYAML([]byte(`holding: [{ code: "0", score: 20 }]`))
	assert.Error(t, err)

	_, err = NewFromYAML([]byte(`startup: [{ code: "6201", score: 150 }]`))
	assert.Error(t, err)

	_, err = NewFromYAML([]byte(`{ not yaml`))
	assert.Error(t, err)
}

func TestEmbeddedTableIntegrity(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	for _, tb := range c.tables {
		assert.NotEmpty(t, tb.entries)
		for code, e := range tb.entries {
			assert.GreaterOrEqual(t, len(code), 2)
			assert.NotEmpty(t, e.Label, "entry %s should carry a label", code)
		}
	}
}
