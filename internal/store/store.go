// Package store persists jobs and per-row results in Redis.
package store

import (
	"context"
	"errors"
	"time"
)

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job tracks one batch submission. A job starts running and moves
// one-way to completed or failed.
type Job struct {
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
	Status    JobStatus `json:"status"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
}

// Result is the outcome of one row of a job, keyed by (JobID, RowIndex).
// Either Error is set or both status fields are, possibly with the
// not-found sentinel. StatusCapturedAt is the instant the statuses were
// read off the portal page, distinct from CreatedAt which records when
// the row was stored.
type Result struct {
	JobID            string     `json:"job_id"`
	RowIndex         int        `json:"row_index"`
	Address          string     `json:"address"`
	Unit             string     `json:"unit,omitempty"`
	MeterStatus      string     `json:"meter_status,omitempty"`
	PropertyStatus   string     `json:"property_status,omitempty"`
	StatusCapturedAt *time.Time `json:"status_captured_at,omitempty"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ErrNotFound is returned for lookups of unknown job IDs.
var ErrNotFound = errors.New("job not found")

// Store is the persistence contract the scheduler and the API share.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	UpdateJobProgress(ctx context.Context, jobID string, processed int) error
	CompleteJob(ctx context.Context, jobID string, status JobStatus) error
	UpsertResult(ctx context.Context, result *Result) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	ListResults(ctx context.Context, jobID string) ([]*Result, error)
}
