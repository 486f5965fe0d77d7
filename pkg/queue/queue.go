package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueIngestPoll is the Redis list of ingest status poll jobs ready to run.
	QueueIngestPoll = "viostream:ingest:poll"
	// QueueDelayed is the sorted set of jobs waiting for their run time (score = unix seconds).
	QueueDelayed = "viostream:ingest:delayed"
	// QueueDLQ is the dead-letter list for jobs that kept failing.
	QueueDLQ = "viostream:ingest:dlq"
	// MaxRetries is the number of failed attempts before a job moves to the DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay before a failed job runs again.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

// JobTypeIngestPoll asks the worker to fetch the provider status of one ingest.
const JobTypeIngestPoll JobType = "ingest_poll"

// IngestPollPayload is the payload for ingest poll jobs.
type IngestPollPayload struct {
	IngestRowID uuid.UUID `json:"ingest_row_id"`
	IngestID    string    `json:"ingest_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// IngestPoll decodes the payload of an ingest poll job.
func (j *Job) IngestPoll() (IngestPollPayload, error) {
	var p IngestPollPayload
	if j.Type != JobTypeIngestPoll {
		return p, fmt.Errorf("job %s: unexpected type %q", j.ID, j.Type)
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, fmt.Errorf("job %s: decode payload: %w", j.ID, err)
	}
	return p, nil
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger, now: time.Now}
}

// EnqueueIngestPoll schedules a status poll after delay; delay <= 0 makes it ready immediately.
func (q *Queue) EnqueueIngestPoll(ctx context.Context, payload IngestPollPayload, delay time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      JobTypeIngestPoll,
		Payload:   body,
		CreatedAt: q.now(),
	}
	if err := q.schedule(ctx, job, delay); err != nil {
		return err
	}
	q.logger.Debug("enqueued ingest poll job",
		zap.String("job_id", job.ID),
		zap.String("ingest_id", payload.IngestID),
		zap.Duration("delay", delay),
	)
	return nil
}

// Requeue puts a job back after delay without counting it as a failure.
func (q *Queue) Requeue(ctx context.Context, job *Job, delay time.Duration) error {
	return q.schedule(ctx, job, delay)
}

func (q *Queue) schedule(ctx context.Context, job *Job, delay time.Duration) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if delay <= 0 {
		if err := q.client.RPush(ctx, QueueIngestPoll, raw).Err(); err != nil {
			return fmt.Errorf("rpush: %w", err)
		}
		return nil
	}
	at := q.now().Add(delay).Unix()
	if err := q.client.ZAdd(ctx, QueueDelayed, redis.Z{Score: float64(at), Member: raw}).Err(); err != nil {
		return fmt.Errorf("zadd: %w", err)
	}
	return nil
}

// PromoteDue moves delayed jobs whose time has come onto the ready list and
// returns how many moved. Safe to run from several workers: a job is only pushed
// by the worker whose ZREM removed it.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, QueueDelayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore: %w", err)
	}
	moved := 0
	for _, raw := range due {
		removed, err := q.client.ZRem(ctx, QueueDelayed, raw).Result()
		if err != nil {
			return moved, fmt.Errorf("zrem: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.RPush(ctx, QueueIngestPoll, raw).Err(); err != nil {
			return moved, fmt.Errorf("rpush: %w", err)
		}
		moved++
	}
	return moved, nil
}

// Dequeue waits up to timeout for a ready job. It returns nil, nil on timeout and
// drops (with a warning) entries that do not decode.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueIngestPoll).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-schedules a failed job with an incremented attempt. Once attempts reach
// MaxRetries the job goes to the DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		raw, err := json.Marshal(job)
		if err != nil {
			return err
		}
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.schedule(ctx, job, RetryBackoff); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
