package verify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// JobStatus is the lifecycle state of a background batch job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a snapshot of one background batch run. Batches launched over HTTP
// are tracked as jobs instead of fire-and-forget goroutines so callers can
// poll for completion.
type Job struct {
	ID         string              `json:"id"`
	Status     JobStatus           `json:"status"`
	CompanyIDs []string            `json:"company_ids"`
	Summary    *model.BatchSummary `json:"summary,omitempty"`
	Error      string              `json:"error,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// JobTracker keeps job snapshots in memory. Safe for concurrent use.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewJobTracker creates an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs:    make(map[string]*Job),
		nowFunc: time.Now,
	}
}

// Start registers a new running job for the given ids and returns it.
func (t *JobTracker) Start(companyIDs []string) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := &Job{
		ID:         uuid.New().String(),
		Status:     JobRunning,
		CompanyIDs: companyIDs,
		StartedAt:  t.nowFunc().UTC(),
	}
	t.jobs[job.ID] = job
	return job
}

// Complete marks a job finished with its summary.
func (t *JobTracker) Complete(jobID string, summary *model.BatchSummary) {
	t.finish(jobID, JobCompleted, summary, "")
}

// Fail marks a job failed with the given error message.
func (t *JobTracker) Fail(jobID string, errMsg string) {
	t.finish(jobID, JobFailed, nil, errMsg)
}

func (t *JobTracker) finish(jobID string, status JobStatus, summary *model.BatchSummary, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return
	}
	now := t.nowFunc().UTC()
	job.Status = status
	job.Summary = summary
	job.Error = errMsg
	job.FinishedAt = &now
}

// Get returns a copy of the job, or nil if unknown.
func (t *JobTracker) Get(jobID string) *Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}

// List returns copies of all jobs, newest first.
func (t *JobTracker) List() []*Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	jobs := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}
