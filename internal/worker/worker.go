// Package worker runs background jobs pulled from the Redis queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/ingest"
	"github.com/aura-webinar/viostream/pkg/queue"
)

// DequeueTimeout bounds each blocking pop so delayed jobs get promoted regularly.
const DequeueTimeout = 5 * time.Second

// IngestRefresher refreshes tracked ingests. *ingest.Service satisfies it.
type IngestRefresher interface {
	Refresh(ctx context.Context, id uuid.UUID) (*ingest.Ingest, error)
	Abandon(ctx context.Context, id uuid.UUID) error
}

// JobQueue is the queue surface the poller needs. *queue.Queue satisfies it.
type JobQueue interface {
	PromoteDue(ctx context.Context) (int, error)
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Requeue(ctx context.Context, job *queue.Job, delay time.Duration) error
	Retry(ctx context.Context, job *queue.Job) error
}

// IngestPoller follows submitted ingests until the provider reports a final
// status, giving up after maxPolls refreshes.
type IngestPoller struct {
	ingests  IngestRefresher
	queue    JobQueue
	interval time.Duration
	maxPolls int
	logger   *zap.Logger
}

// NewIngestPoller creates an ingest status poller.
func NewIngestPoller(ingests IngestRefresher, q JobQueue, interval time.Duration, maxPolls int, logger *zap.Logger) *IngestPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestPoller{ingests: ingests, queue: q, interval: interval, maxPolls: maxPolls, logger: logger}
}

// Process executes one ingest poll job.
func (p *IngestPoller) Process(ctx context.Context, job *queue.Job) error {
	payload, err := job.IngestPoll()
	if err != nil {
		return err
	}
	ing, err := p.ingests.Refresh(ctx, payload.IngestRowID)
	if errors.Is(err, ingest.ErrNotFound) {
		p.logger.Warn("ingest row gone, dropping poll job", zap.String("job_id", job.ID), zap.String("id", payload.IngestRowID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh ingest %s: %w", payload.IngestID, err)
	}
	if ing.Terminal() {
		return nil
	}
	if ing.Polls >= p.maxPolls {
		return p.ingests.Abandon(ctx, ing.ID)
	}
	if err := p.queue.Requeue(ctx, job, p.interval); err != nil {
		return fmt.Errorf("requeue poll: %w", err)
	}
	p.logger.Debug("ingest still running",
		zap.String("ingest_id", ing.IngestID),
		zap.String("status", ing.Status),
		zap.Int("polls", ing.Polls),
	)
	return nil
}

// Run starts the worker loop: promote due jobs, dequeue, process, retry on error.
func (p *IngestPoller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("ingest poller stopping")
			return
		}

		if _, err := p.queue.PromoteDue(ctx); err != nil {
			p.logger.Warn("promote delayed jobs failed", zap.Error(err))
		}
		job, err := p.queue.Dequeue(ctx, DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
