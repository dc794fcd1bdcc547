package webcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

type fakeSignals struct {
	n   int
	err error
}

func (f fakeSignals) Name() string { return "fake" }
func (f fakeSignals) Signals(context.Context, model.CompanyRecord) (int, error) {
	return f.n, f.err
}

func strPtr(s string) *string { return &s }

func noProfileServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestCheck_ReachableWebsite(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer site.Close()

	c := New(Options{Timeout: 2 * time.Second, LinkedInBaseURL: noProfileServer(t).URL})
	result := c.Check(context.Background(), model.CompanyRecord{
		ID:      "c1",
		Name:    "Test Co",
		Website: strPtr(site.URL),
	})

	assert.True(t, result.WebsiteReachable)
	assert.False(t, result.HTTPS, "httptest server is plain http")
	assert.Equal(t, 40, result.PresenceScore)
}

func TestCheck_MethodNotAllowedIsReachable(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer site.Close()

	c := New(Options{LinkedInBaseURL: noProfileServer(t).URL})
	result := c.Check(context.Background(), model.CompanyRecord{
		ID:      "c2",
		Name:    "Picky Server Co",
		Website: strPtr(site.URL),
	})

	assert.True(t, result.WebsiteReachable)
}

func TestCheck_UnreachableWebsite(t *testing.T) {
	c := New(Options{Timeout: time.Second, LinkedInBaseURL: noProfileServer(t).URL})
	result := c.Check(context.Background(), model.CompanyRecord{
		ID:      "c3",
		Name:    "Gone Co",
		Website: strPtr("http://192.0.2.1:1"), // RFC 5737 TEST-NET
	})

	assert.False(t, result.WebsiteReachable)
	assert.Equal(t, 0, result.PresenceScore)
}

func TestCheck_ServerErrorIsUnreachable(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer site.Close()

	c := New(Options{LinkedInBaseURL: noProfileServer(t).URL})
	result := c.Check(context.Background(), model.CompanyRecord{
		ID:      "c4",
		Name:    "Flaky Co",
		Website: strPtr(site.URL),
	})

	assert.False(t, result.WebsiteReachable)
}

func TestCheck_ProfileFound(t *testing.T) {
	var gotPath string
	profiles := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer profiles.Close()

	c := New(Options{LinkedInBaseURL: profiles.URL})
	result := c.Check(context.Background(), model.CompanyRecord{ID: "c5", Name: "Køge Data ApS"})

	assert.True(t, result.ProfessionalProfileFound)
	assert.Equal(t, "heuristic", result.ProfileConfidence)
	assert.Equal(t, "/company/koge-data-aps", gotPath)
	assert.Equal(t, 30, result.PresenceScore)
}

func TestCheck_SignalsCappedAndFailuresIgnored(t *testing.T) {
	c := New(Options{
		LinkedInBaseURL: noProfileServer(t).URL,
		Signals: []SignalSource{
			fakeSignals{n: 3},
			fakeSignals{n: 4},
			fakeSignals{err: errors.New("unavailable")},
		},
	})
	result := c.Check(context.Background(), model.CompanyRecord{ID: "c6", Name: "Signal Co"})

	assert.Equal(t, 7, result.SocialSignalCount)
	// 7 signals * 5 points = 35, capped at 20.
	assert.Equal(t, 20, result.PresenceScore)
}

func TestScorePresence_FullHouse(t *testing.T) {
	score := scorePresence(&model.WebPresenceResult{
		WebsiteReachable:         true,
		HTTPS:                    true,
		ProfessionalProfileFound: true,
		SocialSignalCount:        4,
	})
	assert.Equal(t, 100, score)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lunar", "lunar"},
		{"Køge Data ApS", "koge-data-aps"},
		{"Ærø & Co.", "aero-co"},
		{"  spaced   out  ", "spaced-out"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "slug of %q", tt.in)
	}
}
