package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 0)
}

func newTestJob(id string, total int) *Job {
	return &Job{
		JobID:     id,
		CreatedAt: time.Now(),
		Status:    JobRunning,
		Total:     total,
	}
}

func TestCreateAndGetJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateJob(ctx, newTestJob("job-1", 3)); err != nil {
		t.Fatal(err)
	}

	job, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != JobRunning || job.Total != 3 || job.Processed != 0 {
		t.Errorf("job = %+v", job)
	}
}

func TestGetJobUnknown(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetJob(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateJobProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateJob(ctx, newTestJob("job-1", 3))

	if err := s.UpdateJobProgress(ctx, "job-1", 1); err != nil {
		t.Fatal(err)
	}
	job, _ := s.GetJob(ctx, "job-1")
	if job.Processed != 1 || job.Status != JobRunning {
		t.Errorf("job = %+v, want processed=1 running", job)
	}

	// Progress is monotonic: a stale lower value is ignored.
	if err := s.UpdateJobProgress(ctx, "job-1", 0); err != nil {
		t.Fatal(err)
	}
	job, _ = s.GetJob(ctx, "job-1")
	if job.Processed != 1 {
		t.Errorf("processed = %d, want 1 after stale update", job.Processed)
	}
}

func TestCompleteJobIsOneWay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateJob(ctx, newTestJob("job-1", 2))
	s.UpdateJobProgress(ctx, "job-1", 2)

	if err := s.CompleteJob(ctx, "job-1", JobCompleted); err != nil {
		t.Fatal(err)
	}
	if err := s.CompleteJob(ctx, "job-1", JobFailed); err != nil {
		t.Fatal(err)
	}
	job, _ := s.GetJob(ctx, "job-1")
	if job.Status != JobCompleted {
		t.Errorf("status = %s, terminal status must not flip", job.Status)
	}

	if err := s.UpdateJobProgress(ctx, "job-1", 3); err == nil {
		t.Error("progress update on a terminal job must fail")
	}
}

func TestCompleteJobRejectsNonTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateJob(ctx, newTestJob("job-1", 1))

	if err := s.CompleteJob(ctx, "job-1", JobRunning); err == nil {
		t.Error("CompleteJob must reject a non-terminal status")
	}
}

func TestUpsertAndListResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateJob(ctx, newTestJob("job-1", 3))

	captured := time.Now().Round(time.Second)
	rows := []*Result{
		{JobID: "job-1", RowIndex: 2, Address: "C ST", MeterStatus: "Not found", PropertyStatus: "Not found", Error: "portal timeout"},
		{JobID: "job-1", RowIndex: 0, Address: "A ST", MeterStatus: "ON", PropertyStatus: "Active", StatusCapturedAt: &captured},
		{JobID: "job-1", RowIndex: 1, Address: "B ST", Unit: "2114", MeterStatus: "OFF", PropertyStatus: "Vacant", StatusCapturedAt: &captured},
	}
	for _, r := range rows {
		if err := s.UpsertResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListResults(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("results = %d, want 3", len(got))
	}
	for i, r := range got {
		if r.RowIndex != i {
			t.Errorf("result %d has row index %d, want ascending order", i, r.RowIndex)
		}
		if r.CreatedAt.IsZero() {
			t.Errorf("result %d missing CreatedAt", i)
		}
	}
	if got[0].StatusCapturedAt == nil || !got[0].StatusCapturedAt.Equal(captured) {
		t.Errorf("StatusCapturedAt = %v, want %v", got[0].StatusCapturedAt, captured)
	}
	if got[2].Error != "portal timeout" {
		t.Errorf("error row = %+v", got[2])
	}
}

func TestUpsertResultOverwritesRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateJob(ctx, newTestJob("job-1", 1))

	s.UpsertResult(ctx, &Result{JobID: "job-1", RowIndex: 0, MeterStatus: "Not found", PropertyStatus: "Not found"})
	s.UpsertResult(ctx, &Result{JobID: "job-1", RowIndex: 0, MeterStatus: "ON", PropertyStatus: "Active"})

	got, err := s.ListResults(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].MeterStatus != "ON" {
		t.Errorf("results = %+v, want single overwritten row", got)
	}
}

func TestListResultsUnknownJob(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ListResults(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
