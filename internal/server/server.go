// Package server exposes the verification engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/store"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/verify"
)

const defaultBatchSize = 10

// Verifier runs one company through the pipeline.
type Verifier interface {
	Verify(ctx context.Context, companyID string) (*verify.Result, error)
}

// BatchRunner schedules the pipeline over many ids.
type BatchRunner interface {
	Run(ctx context.Context, ids []string) (*model.BatchSummary, error)
}

// Server wires the verification components to HTTP handlers.
type Server struct {
	store    store.RecordStore
	verifier Verifier
	batch    BatchRunner
	jobs     *verify.JobTracker
	log      *zap.Logger
}

// New creates a Server.
func New(st store.RecordStore, verifier Verifier, batch BatchRunner) *Server {
	return &Server{
		store:    st,
		verifier: verifier,
		batch:    batch,
		jobs:     verify.NewJobTracker(),
		log:      zap.L().With(zap.String("component", "server")),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)

	r.Route("/verify", func(r chi.Router) {
		r.Post("/batch", s.handleBatch)
		r.Get("/queue", s.handleQueue)
		r.Get("/pending", s.handlePending)
		r.Get("/jobs/{jobID}", s.handleJob)
		r.Post("/{id}", s.handleVerify)
		r.Get("/{id}/result", s.handleResult)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVerify runs one synchronous verification.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")

	res, err := s.verifier.Verify(r.Context(), companyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "company not found")
			return
		}
		s.log.Error("verification failed", zap.String("company_id", companyID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"outcome":  res.Outcome,
		"warnings": res.Warnings,
	})
}

type batchRequest struct {
	CompanyIDs []string `json:"company_ids"`
	Limit      int      `json:"limit"`
}

// handleBatch accepts explicit ids or falls back to the next unverified
// companies, then runs the batch in the background as a tracked job.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ids := req.CompanyIDs
	if len(ids) == 0 {
		limit := req.Limit
		if limit <= 0 {
			limit = defaultBatchSize
		}
		companies, err := s.store.ListUnverifiedCompanies(r.Context(), limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, c := range companies {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		respondError(w, http.StatusBadRequest, "no companies to verify")
		return
	}

	job := s.jobs.Start(ids)
	go func() {
		// Detached from the request context: the batch outlives the caller.
		summary, err := s.batch.Run(context.Background(), ids)
		if err != nil {
			s.jobs.Fail(job.ID, err.Error())
			return
		}
		s.jobs.Complete(job.ID, summary)
	}()

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"company_ids": ids,
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts := map[string]int{}
	for _, filter := range []model.CountFilter{
		model.CountUnverified, model.CountVerified, model.CountNeedsReview,
	} {
		n, err := s.store.CountCompanies(ctx, filter)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		counts[string(filter)] = n
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"pending":      counts[string(model.CountUnverified)],
		"completed":    counts[string(model.CountVerified)],
		"needs_review": counts[string(model.CountNeedsReview)],
		"jobs":         s.jobs.List(),
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	limit := defaultBatchSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	companies, err := s.store.ListUnverifiedCompanies(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if companies == nil {
		companies = []model.CompanyRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")

	outcome, err := s.store.GetVerificationOutcome(r.Context(), companyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no verification outcome for company")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "jobID"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
