package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/billing"
	"github.com/vantage-crm/backend/pkg/queue"
)

// DemoPurgeProcessor processes demo purge jobs: after an organization
// upgrades to a paid subscription, its demo-tagged rows (imported samples or
// legacy data; signup seeds none) are deleted. The delete is idempotent, so
// redelivered jobs are harmless.
type DemoPurgeProcessor struct {
	billing *billing.Repository
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewDemoPurgeProcessor creates a demo purge processor.
func NewDemoPurgeProcessor(billingRepo *billing.Repository, q *queue.Queue, logger *zap.Logger) *DemoPurgeProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemoPurgeProcessor{billing: billingRepo, queue: q, logger: logger}
}

// Process executes one demo purge job.
func (p *DemoPurgeProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeDemoPurge {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.DemoPurgePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := p.billing.PurgeDemoData(ctx, payload.OrganizationID); err != nil {
		return fmt.Errorf("purge demo data: %w", err)
	}

	p.logger.Info("demo data purged", zap.String("organization_id", payload.OrganizationID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *DemoPurgeProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("billing worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
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
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
