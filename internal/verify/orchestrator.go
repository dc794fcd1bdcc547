// Package verify runs the per-company verification pipeline and schedules
// it over batches with rate-limit protection.
package verify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/classify"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/registry"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/scorer"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/store"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/webcheck"
)

// Stage names the pipeline step a company is in. A company moves strictly
// forward through the stages; Failed is terminal and reachable from any step.
type Stage string

const (
	StageFetched    Stage = "fetched"
	StageLookedUp   Stage = "looked_up"
	StageWebChecked Stage = "web_checked"
	StageScored     Stage = "scored"
	StagePersisted  Stage = "persisted"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Result is the outcome of one Verify call. Warnings carry non-fatal
// persistence errors; the outcome is valid even when Warnings is non-empty.
type Result struct {
	Outcome  *model.VerificationOutcome
	Lookup   *model.RegistryLookupResult
	Stage    Stage
	Warnings []string
}

// Orchestrator drives one company at a time through fetch, registry lookup,
// web presence check, scoring and persistence.
type Orchestrator struct {
	store      store.RecordStore
	registry   registry.Client
	checker    *webcheck.Checker
	classifier *classify.Classifier
	scorer     *scorer.Scorer
	log        *zap.Logger

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(st store.RecordStore, reg registry.Client, checker *webcheck.Checker, classifier *classify.Classifier) *Orchestrator {
	return &Orchestrator{
		store:      st,
		registry:   reg,
		checker:    checker,
		classifier: classifier,
		scorer:     scorer.New(),
		log:        zap.L().With(zap.String("component", "orchestrator")),
		nowFunc:    time.Now,
	}
}

// Verify runs the full pipeline for one company id. The only terminal
// failures are an unknown company id and context cancellation; lookup misses
// and search failures degrade into the scored outcome, and persistence
// errors are reported as warnings.
func (o *Orchestrator) Verify(ctx context.Context, companyID string) (*Result, error) {
	start := o.nowFunc()
	res := &Result{Stage: StageFailed}

	company, err := o.store.GetCompany(ctx, companyID)
	if err != nil {
		return res, eris.Wrapf(err, "verify: fetch company %s", companyID)
	}
	res.Stage = StageFetched

	// The lookup and the web probes have no data dependency, so they run
	// concurrently. The lookup's error return is reserved for context
	// cancellation; every registry outcome lands in the result struct.
	var (
		lookup   *model.RegistryLookupResult
		presence *model.WebPresenceResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lookup, err = o.registry.Lookup(gctx, company.Name, derefString(company.RegistryID))
		return err
	})
	g.Go(func() error {
		presence = o.checker.Check(gctx, *company)
		return nil
	})
	if err := g.Wait(); err != nil {
		return res, eris.Wrapf(err, "verify: lookup %s", companyID)
	}
	res.Lookup = lookup
	res.Stage = StageWebChecked

	if lookup.Failed() {
		o.log.Warn("registry search failed, scoring without registry data",
			zap.String("company_id", companyID),
			zap.String("detail", lookup.ErrDetail))
	}

	industry := o.classifier.Classify(lookup.IndustryCode)
	foundedYear := company.FoundedYear
	if foundedYear == nil {
		if year, ok := registry.YearFromStartDate(lookup.StartDate); ok {
			foundedYear = &year
		}
	}

	breakdown := o.scorer.Score(scorer.Input{
		Company:     *company,
		Lookup:      lookup,
		Industry:    industry,
		Presence:    presence,
		FoundedYear: foundedYear,
		Now:         o.nowFunc(),
	})
	res.Stage = StageScored

	outcome := &model.VerificationOutcome{
		CompanyID:  companyID,
		Breakdown:  breakdown,
		Lookup:     *lookup,
		Presence:   *presence,
		DurationMS: o.nowFunc().Sub(start).Milliseconds(),
		VerifiedAt: o.nowFunc().UTC(),
	}
	res.Outcome = outcome

	if err := o.store.UpsertVerificationOutcome(ctx, outcome); err != nil {
		o.warn(res, companyID, "persist outcome", err)
	}
	res.Stage = StagePersisted

	// The verified flag records that processing completed, independent of
	// the score; review-worthiness lives in needsReview. A registry id we
	// learned during lookup is written back for cheaper future lookups.
	var registryID *string
	if lookup.Found && lookup.RegistryID != "" && company.RegistryID == nil {
		registryID = &lookup.RegistryID
	}
	if err := o.store.UpdateCompanyFlags(ctx, companyID, true, breakdown.NeedsReview, registryID); err != nil {
		o.warn(res, companyID, "update company flags", err)
	}
	res.Stage = StageDone

	o.log.Info("company verified",
		zap.String("company_id", companyID),
		zap.Int("confidence", breakdown.Confidence),
		zap.String("classification", string(breakdown.Classification)),
		zap.Bool("needs_review", breakdown.NeedsReview),
		zap.Int64("duration_ms", outcome.DurationMS))
	return res, nil
}

func (o *Orchestrator) warn(res *Result, companyID, op string, err error) {
	o.log.Warn("persistence failed, outcome still returned",
		zap.String("company_id", companyID),
		zap.String("op", op),
		zap.Error(err))
	res.Warnings = append(res.Warnings, op+": "+err.Error())
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
