// Package jobs runs batch lookups against the portal and tracks their
// progress in the store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cdubvdub/fpl-power-meter-api/internal/portal"
	"github.com/cdubvdub/fpl-power-meter-api/internal/progress"
	"github.com/cdubvdub/fpl-power-meter-api/internal/rows"
	"github.com/cdubvdub/fpl-power-meter-api/internal/store"
)

// Runner drives one address through the portal flow. The live
// implementation wraps a browser session; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, mode portal.EntryMode, address, unit string) (*portal.LookupResult, error)
}

// SessionParams are the per-request inputs a browser session needs.
type SessionParams struct {
	Creds         portal.Credentials
	TaxID         string
	RequestorName string
}

// RunnerFactory opens a fresh browser session. The returned func
// releases it and must be called exactly once.
type RunnerFactory func(params SessionParams) (Runner, func(), error)

// Config bounds batch intake and pacing.
type Config struct {
	MaxBatchRows int
	RowDelay     time.Duration
}

const defaultMaxBatchRows = 100

var (
	ErrNoRows        = errors.New("batch contains no rows")
	ErrBatchTooLarge = errors.New("batch exceeds the row limit")
)

// Scheduler owns batch execution: one browser session per batch, rows
// strictly sequential, no cancellation once accepted.
type Scheduler struct {
	store   store.Store
	hub     *progress.Hub
	factory RunnerFactory
	cfg     Config
	log     portal.Logger
}

// New builds a scheduler. A zero MaxBatchRows selects the default limit.
func New(st store.Store, hub *progress.Hub, factory RunnerFactory, cfg Config, log portal.Logger) *Scheduler {
	if cfg.MaxBatchRows <= 0 {
		cfg.MaxBatchRows = defaultMaxBatchRows
	}
	if log == nil {
		log = &portal.SimpleLogger{}
	}
	return &Scheduler{store: st, hub: hub, factory: factory, cfg: cfg, log: log}
}

// Submit validates the batch, persists a running job and starts
// processing in the background. The returned job is the caller's
// tracking handle; the batch itself runs to completion unsupervised.
func (s *Scheduler) Submit(ctx context.Context, params SessionParams, batch []rows.NormalizedRow) (*store.Job, error) {
	if len(batch) == 0 {
		return nil, ErrNoRows
	}
	if len(batch) > s.cfg.MaxBatchRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrBatchTooLarge, len(batch), s.cfg.MaxBatchRows)
	}

	job := &store.Job{
		JobID:     uuid.NewString(),
		CreatedAt: time.Now(),
		Status:    store.JobRunning,
		Total:     len(batch),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %v", err)
	}

	s.log.Printf("🚀 job %s accepted with %d rows", job.JobID, job.Total)
	go s.process(job, params, batch)
	return job, nil
}

// process runs the whole batch on one browser session. Submitted jobs
// are never cancelled, so the loop runs on a background context.
func (s *Scheduler) process(job *store.Job, params SessionParams, batch []rows.NormalizedRow) {
	ctx := context.Background()
	processed := 0

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("job %s panicked after %d rows: %v", job.JobID, processed, r)
		}
		s.finalize(ctx, job, processed)
	}()

	s.hub.Notify(progress.Event{
		Type: progress.EventJobStarted, JobID: job.JobID, Total: job.Total,
	})

	runner, release, err := s.factory(params)
	if err != nil {
		s.log.Errorf("job %s: failed to open session: %v", job.JobID, err)
		return
	}
	defer release()

	mode := portal.ColdEntry
	for i, row := range batch {
		if i > 0 && s.cfg.RowDelay > 0 {
			time.Sleep(s.cfg.RowDelay)
		}

		res, err := runner.Run(ctx, mode, row.Address, row.Unit)
		event := s.recordRow(ctx, job, i, row, res, err)
		processed = i + 1

		if err := s.store.UpdateJobProgress(ctx, job.JobID, processed); err != nil {
			s.log.Errorf("job %s: progress update: %v", job.JobID, err)
		}
		event.Processed = processed
		event.Total = job.Total
		s.hub.Notify(event)

		// The next row enters warm only when this one left the session
		// parked on a real result page.
		if err == nil && res.Definitive() {
			mode = portal.WarmEntry
		} else {
			mode = portal.ColdEntry
		}
	}
}

// recordRow classifies one row outcome, stores its result and shapes
// the progress event.
func (s *Scheduler) recordRow(ctx context.Context, job *store.Job, index int, row rows.NormalizedRow, res *portal.LookupResult, runErr error) progress.Event {
	result := &store.Result{
		JobID:     job.JobID,
		RowIndex:  index,
		Address:   row.Address,
		Unit:      row.Unit,
		CreatedAt: time.Now(),
	}

	rowIndex := index
	event := progress.Event{JobID: job.JobID, RowIndex: &rowIndex}

	// A result carries either an error or both status fields, never a
	// mix.
	switch {
	case runErr != nil:
		result.Error = runErr.Error()
		event.Type = progress.EventAddressError
		event.Message = runErr.Error()
		s.log.Errorf("job %s row %d: %v", job.JobID, index, runErr)
	case res.Definitive():
		result.MeterStatus = res.MeterStatus
		result.PropertyStatus = res.PropertyStatus
		result.StatusCapturedAt = res.StatusCapturedAt
		event.Type = progress.EventAddressCompleted
		event.Message = fmt.Sprintf("meter=%s property=%s", res.MeterStatus, res.PropertyStatus)
		s.log.Printf("✅ job %s row %d: %s", job.JobID, index, event.Message)
	default:
		result.MeterStatus = portal.NotFoundSentinel
		result.PropertyStatus = portal.NotFoundSentinel
		event.Type = progress.EventAddressFailed
		event.Message = "no status found"
		s.log.Printf("⚠️ job %s row %d: no status found for %s", job.JobID, index, row.Address)
	}

	if err := s.store.UpsertResult(ctx, result); err != nil {
		s.log.Errorf("job %s row %d: store result: %v", job.JobID, index, err)
	}
	return event
}

// finalize moves the job to its terminal status: completed when any
// row was processed, failed when the batch never got off the ground.
func (s *Scheduler) finalize(ctx context.Context, job *store.Job, processed int) {
	status := store.JobCompleted
	eventType := progress.EventJobCompleted
	if processed == 0 {
		status = store.JobFailed
		eventType = progress.EventJobFailed
	}

	if err := s.store.CompleteJob(ctx, job.JobID, status); err != nil {
		s.log.Errorf("job %s: completion: %v", job.JobID, err)
	}
	s.hub.Notify(progress.Event{
		Type: eventType, JobID: job.JobID, Processed: processed, Total: job.Total,
	})
	s.log.Printf("🏁 job %s %s (%d/%d rows)", job.JobID, status, processed, job.Total)
}
