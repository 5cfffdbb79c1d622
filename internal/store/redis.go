package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each job as a JSON document and its results in a
// hash keyed by row index. A single scheduler goroutine owns all writes
// for a given job, so updates are plain read-modify-write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const defaultJobTTL = 7 * 24 * time.Hour

// NewRedisStore wraps a connected client. ttl <= 0 selects the default
// seven-day retention.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func jobKey(jobID string) string     { return "meterjob:" + jobID }
func resultsKey(jobID string) string { return "meterjob:" + jobID + ":results" }

func (s *RedisStore) CreateJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %v", err)
	}
	if err := s.client.Set(ctx, jobKey(job.JobID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job %s: %v", job.JobID, err)
	}
	return nil
}

// UpdateJobProgress raises the processed counter and marks the job
// running. Progress never moves backwards.
func (s *RedisStore) UpdateJobProgress(ctx context.Context, jobID string, processed int) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s already %s", jobID, job.Status)
	}
	if processed < job.Processed {
		return nil
	}
	job.Processed = processed
	job.Status = JobRunning
	return s.writeJob(ctx, job)
}

// CompleteJob moves the job to a terminal status. A job already
// terminal stays as it is.
func (s *RedisStore) CompleteJob(ctx context.Context, jobID string, status JobStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = status
	return s.writeJob(ctx, job)
}

func (s *RedisStore) UpsertResult(ctx context.Context, result *Result) error {
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %v", err)
	}
	key := resultsKey(result.JobID)
	field := strconv.Itoa(result.RowIndex)
	if err := s.client.HSet(ctx, key, field, data).Err(); err != nil {
		return fmt.Errorf("failed to store result %s/%d: %v", result.JobID, result.RowIndex, err)
	}
	s.client.Expire(ctx, key, s.ttl)
	return nil
}

func (s *RedisStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %v", jobID, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %v", jobID, err)
	}
	return &job, nil
}

// ListResults returns the job's results ordered by row index. Missing
// rows (not yet processed) simply do not appear.
func (s *RedisStore) ListResults(ctx context.Context, jobID string) ([]*Result, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	fields, err := s.client.HGetAll(ctx, resultsKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load results for %s: %v", jobID, err)
	}
	results := make([]*Result, 0, len(fields))
	for _, raw := range fields {
		var r Result
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("failed to decode result for %s: %v", jobID, err)
		}
		results = append(results, &r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].RowIndex < results[j].RowIndex
	})
	return results, nil
}

func (s *RedisStore) writeJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %v", err)
	}
	if err := s.client.Set(ctx, jobKey(job.JobID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to update job %s: %v", job.JobID, err)
	}
	return nil
}
