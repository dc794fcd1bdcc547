package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// maxResponseBytes bounds how much of a registry response is read.
const maxResponseBytes = 256 * 1024

// CVROptions configures the cvrapi.dk adapter.
type CVROptions struct {
	BaseURL   string
	Country   string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSec paces outbound searches. cvrapi.dk is a free service;
	// the default stays well under its tolerance.
	RequestsPerSec float64
	Burst          int
}

// CVRClient implements Client against the cvrapi.dk JSON API.
type CVRClient struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	country   string
	userAgent string
}

// NewCVRClient creates a CVR lookup client.
func NewCVRClient(opts CVROptions) *CVRClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://cvrapi.dk/api"
	}
	if opts.Country == "" {
		opts.Country = "dk"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "DenmarkEcosystemMap/1.0 (Education Project)"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &CVRClient{
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.Burst),
		baseURL:   opts.BaseURL,
		country:   opts.Country,
		userAgent: opts.UserAgent,
	}
}

// cvrResponse mirrors the cvrapi.dk payload fields the engine consumes.
type cvrResponse struct {
	VAT          int    `json:"vat"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	IndustryCode int    `json:"industrycode"`
	IndustryDesc string `json:"industrydesc"`
	CompanyDesc  string `json:"companydesc"`
	Purpose      string `json:"objective"`
	StartDate    string `json:"startdate"`
	EndDate      string `json:"enddate"`
}

// Lookup searches the register by CVR number when one is known, otherwise by
// company name. A 404 is a clean miss; anything else that prevents a parsed
// answer is a search failure.
func (c *CVRClient) Lookup(ctx context.Context, name string, registryID string) (*model.RegistryLookupResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "cvr: limiter wait")
	}

	q := url.Values{}
	if registryID != "" {
		q.Set("vat", registryID)
	} else {
		q.Set("search", name)
	}
	q.Set("country", c.country)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "cvr: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return searchFailed("request failed: %v", err), nil
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return searchFailed("read response: %v", err), nil
	}

	if bt := detectBlock(resp, body); bt != BlockNone {
		zap.L().Warn("cvr: registry blocked the search",
			zap.String("block_type", string(bt)),
			zap.Int("status", resp.StatusCode),
		)
		return searchFailed("registry blocked request (%s)", bt), nil
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &model.RegistryLookupResult{Err: model.LookupNotFound}, nil
	case resp.StatusCode != http.StatusOK:
		return searchFailed("unexpected status %d", resp.StatusCode), nil
	}

	var cr cvrResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return searchFailed("parse response: %v", err), nil
	}
	if cr.Name == "" {
		// The API answered 200 with an error envelope or empty match.
		return &model.RegistryLookupResult{Err: model.LookupNotFound}, nil
	}

	status := cr.Status
	if status == "" {
		// cvrapi omits the status for companies in normal operation.
		status = "Normal"
	}

	result := &model.RegistryLookupResult{
		Found:               true,
		RegistryID:          strconv.Itoa(cr.VAT),
		OfficialName:        cr.Name,
		Status:              status,
		IndustryDescription: cr.IndustryDesc,
		LegalForm:           cr.CompanyDesc,
		Purpose:             cr.Purpose,
		StartDate:           cr.StartDate,
	}
	if cr.IndustryCode > 0 {
		result.IndustryCode = strconv.Itoa(cr.IndustryCode)
	}
	return result, nil
}

func searchFailed(format string, args ...any) *model.RegistryLookupResult {
	return &model.RegistryLookupResult{
		Err:       model.LookupFailed,
		ErrDetail: fmt.Sprintf(format, args...),
	}
}
