package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Job is one row of the background job queue.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      []byte
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	ErrorMessage sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EnqueueJobParams describes a job to enqueue.
type EnqueueJobParams struct {
	JobType     string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts,
	scheduled_at, started_at, completed_at, error_message, created_at, updated_at`

const enqueueJob = `
INSERT INTO jobs (job_type, payload, priority, max_attempts, scheduled_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + jobColumns

func (q *Queries) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, enqueueJob,
		params.JobType,
		params.Payload,
		params.Priority,
		params.MaxAttempts,
		params.ScheduledAt,
	)
	return scanJob(row)
}

const dequeueJob = `
SELECT ` + jobColumns + `
FROM jobs
WHERE status = 'pending' AND scheduled_at <= now()
ORDER BY priority DESC, scheduled_at ASC
LIMIT 1
FOR UPDATE SKIP LOCKED
`

// DequeueJob picks the next runnable job. Call inside a transaction so the
// row lock holds until UpdateJobStarted commits; SKIP LOCKED keeps
// concurrent workers from blocking on each other.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRowContext(ctx, dequeueJob)
	return scanJob(row)
}

const updateJobStarted = `
UPDATE jobs SET
	status = 'running',
	attempts = attempts + 1,
	started_at = now(),
	updated_at = now()
WHERE id = $1
`

func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobStarted, id)
	return err
}

const updateJobCompleted = `
UPDATE jobs SET
	status = 'completed',
	completed_at = now(),
	updated_at = now()
WHERE id = $1
`

func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobCompleted, id)
	return err
}

// UpdateJobFailedParams records a failed attempt.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

const updateJobFailed = `
UPDATE jobs SET
	status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
	scheduled_at = now() + (interval '30 seconds' * power(2, attempts)),
	error_message = $2,
	updated_at = now()
WHERE id = $1
`

// UpdateJobFailed marks a failed attempt: the job is rescheduled with
// exponential backoff until it runs out of attempts, then parked as failed.
func (q *Queries) UpdateJobFailed(ctx context.Context, params UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, updateJobFailed, params.ID, params.ErrorMessage)
	return err
}

const recoverStaleJobs = `
UPDATE jobs SET
	status = 'pending',
	started_at = NULL,
	updated_at = now()
WHERE status = 'running' AND started_at < now() - make_interval(secs => $1)
`

// RecoverStaleJobs requeues jobs stuck in 'running' longer than the
// threshold, which happens when a worker dies mid-job.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := q.db.ExecContext(ctx, recoverStaleJobs, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanJob(row *sql.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID,
		&j.JobType,
		&j.Payload,
		&j.Status,
		&j.Priority,
		&j.Attempts,
		&j.MaxAttempts,
		&j.ScheduledAt,
		&j.StartedAt,
		&j.CompletedAt,
		&j.ErrorMessage,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	return j, err
}
