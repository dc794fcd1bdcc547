package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *CVRClient {
	return NewCVRClient(CVROptions{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		RequestsPerSec: 1000,
		Burst:          10,
	})
}

func TestLookup_Found(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lunar", r.URL.Query().Get("search"))
		assert.Equal(t, "dk", r.URL.Query().Get("country"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"vat": 39697696,
			"name": "Lunar A/S",
			"status": "Normal",
			"industrycode": 620100,
			"industrydesc": "Computerprogrammering",
			"companydesc": "Aktieselskab",
			"startdate": "01/06 - 2015"
		}`)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Lookup(context.Background(), "Lunar", "")
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.Equal(t, "39697696", result.RegistryID)
	assert.Equal(t, "Lunar A/S", result.OfficialName)
	assert.Equal(t, "Normal", result.Status)
	assert.Equal(t, "620100", result.IndustryCode)
	assert.Equal(t, "Aktieselskab", result.LegalForm)
	assert.False(t, result.Miss())
	assert.False(t, result.Failed())
}

func TestLookup_ByRegistryID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "39697696", r.URL.Query().Get("vat"))
		assert.Empty(t, r.URL.Query().Get("search"))
		fmt.Fprint(w, `{"vat": 39697696, "name": "Lunar A/S"}`)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Lookup(context.Background(), "Lunar", "39697696")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "Normal", result.Status, "missing status defaults to Normal")
}

func TestLookup_NotFoundIsCleanMiss(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Lookup(context.Background(), "Nonexistent ApS", "")
	require.NoError(t, err)
	assert.True(t, result.Miss())
	assert.False(t, result.Failed())
}

func TestLookup_ServerErrorIsSearchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Lookup(context.Background(), "Anyone", "")
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.False(t, result.Miss())
}

func TestLookup_NetworkErrorIsSearchFailure(t *testing.T) {
	result, err := newTestClient("http://192.0.2.1:1").Lookup(context.Background(), "Anyone", "")
	require.NoError(t, err)
	assert.True(t, result.Failed())
}

func TestLookup_RateLimitResponseIsSearchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Lookup(context.Background(), "Anyone", "")
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrDetail, "blocked")
}

func TestLookup_ChallengePageIsSearchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<html><body>Checking your browser before accessing...</body></html>`)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Lookup(context.Background(), "Anyone", "")
	require.NoError(t, err)
	assert.True(t, result.Failed())
}

func TestLookup_EmptyEnvelopeIsMiss(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error": "NOT_FOUND"}`)
	}))
	defer ts.Close()

	result, err := newTestClient(ts.URL).Lookup(context.Background(), "Anyone", "")
	require.NoError(t, err)
	assert.True(t, result.Miss())
}

func TestLookup_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient("http://127.0.0.1:0").Lookup(ctx, "Anyone", "")
	assert.Error(t, err)
}

func TestDetectBlock(t *testing.T) {
	mkResp := func(status int, headers map[string]string) *http.Response {
		h := http.Header{}
		for k, v := range headers {
			h.Set(k, v)
		}
		return &http.Response{StatusCode: status, Header: h}
	}

	assert.Equal(t, BlockNone, detectBlock(nil, nil))
	assert.Equal(t, BlockRateLimit, detectBlock(mkResp(429, nil), nil))
	assert.Equal(t, BlockChallenge, detectBlock(mkResp(403, map[string]string{"cf-ray": "abc"}), nil))
	assert.Equal(t, BlockCaptcha, detectBlock(mkResp(200, nil), []byte("please solve this CAPTCHA")))
	assert.Equal(t, BlockChallenge, detectBlock(mkResp(200, nil), []byte("Just a moment...")))
	assert.Equal(t, BlockNone, detectBlock(mkResp(200, nil), []byte(`{"name":"ok"}`)))
}

func TestYearFromStartDate(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"01/06 - 2015", 2015, true},
		{"2020-01-15", 2020, true},
		{"1998", 1998, true},
		{"", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		year, ok := YearFromStartDate(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, year)
		}
	}
}
