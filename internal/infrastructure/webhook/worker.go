package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/marketplace/backend/internal/domain/partner"
	"github.com/marketplace/backend/internal/domain/webhook"
	"go.uber.org/zap"
)

// WorkerConfig holds configuration for the webhook delivery worker
type WorkerConfig struct {
	Workers          int
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Workers:          4,
		BatchSize:        50,
		PollInterval:     time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 30 * 24 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
}

// Worker drains the durable delivery queue in the background. Each poll
// claims a batch of due jobs and fans them out to a fixed pool of senders;
// claiming uses SKIP LOCKED so multiple instances never fight over a job.
type Worker struct {
	jobs       webhook.DeliveryJobRepository
	configRepo partner.WebhookConfigRepository
	sender     Sender
	config     WorkerConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a new webhook delivery worker
func NewWorker(
	jobs webhook.DeliveryJobRepository,
	configRepo partner.WebhookConfigRepository,
	sender Sender,
	config WorkerConfig,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		jobs:       jobs,
		configRepo: configRepo,
		sender:     sender,
		config:     config,
		logger:     logger,
	}
}

// Start starts the background delivery loops
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.deliverLoop(ctx)

	if w.config.CleanupEnabled {
		w.wg.Add(1)
		go w.cleanupLoop(ctx)
	}

	w.logger.Info("webhook delivery worker started",
		zap.Int("workers", w.config.Workers),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Duration("poll_interval", w.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("webhook delivery worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliverLoop is the main polling loop
func (w *Worker) deliverLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.deliverBatch(ctx)
		}
	}
}

// deliverBatch claims due jobs and fans them out to the sender pool
func (w *Worker) deliverBatch(ctx context.Context) {
	jobs, err := w.jobs.ClaimDue(ctx, time.Now(), w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to claim delivery jobs", zap.Error(err))
		return
	}
	if len(jobs) == 0 {
		return
	}

	jobCh := make(chan *webhook.DeliveryJob)

	var pool sync.WaitGroup
	for i := 0; i < w.config.Workers; i++ {
		pool.Add(1)
		go func() {
			defer pool.Done()
			for job := range jobCh {
				w.deliver(ctx, job)
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	pool.Wait()
}

// deliver attempts a single delivery and records the outcome
func (w *Worker) deliver(ctx context.Context, job *webhook.DeliveryJob) {
	if err := w.sender.Send(ctx, job); err != nil {
		job.MarkFailed(err.Error())

		if job.IsDead() {
			w.logger.Warn("webhook delivery moved to dead letter queue",
				zap.String("job_id", job.ID.String()),
				zap.String("partner_id", job.PartnerID.String()),
				zap.String("event", job.Event),
				zap.Int("attempts", job.Attempts),
				zap.String("last_error", job.LastError),
			)
		} else {
			w.logger.Debug("webhook delivery failed, will retry",
				zap.String("job_id", job.ID.String()),
				zap.String("event", job.Event),
				zap.Int("attempts", job.Attempts),
				zap.Error(err),
			)
		}

		if updateErr := w.jobs.Update(ctx, job); updateErr != nil {
			w.logger.Error("failed to update delivery job", zap.Error(updateErr))
		}
		return
	}

	job.MarkDelivered()
	if err := w.jobs.Update(ctx, job); err != nil {
		w.logger.Error("failed to update delivery job", zap.Error(err))
		return
	}

	if err := w.configRepo.UpdateLastDeliveredAt(ctx, job.PartnerID, *job.DeliveredAt); err != nil {
		// Delivery already succeeded; the timestamp is best-effort
		w.logger.Warn("failed to record last delivery time",
			zap.String("partner_id", job.PartnerID.String()),
			zap.Error(err),
		)
	}

	w.logger.Info("webhook delivered",
		zap.String("job_id", job.ID.String()),
		zap.String("partner_id", job.PartnerID.String()),
		zap.String("event", job.Event),
		zap.Int("attempts", job.Attempts),
	)
}

// cleanupLoop periodically prunes delivered and dead jobs outside retention
func (w *Worker) cleanupLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := time.Now().Add(-w.config.CleanupRetention)
			deleted, err := w.jobs.DeleteOlderThan(ctx, before)
			if err != nil {
				w.logger.Error("failed to clean up delivery jobs", zap.Error(err))
				continue
			}
			if deleted > 0 {
				w.logger.Info("cleaned up old delivery jobs", zap.Int64("deleted", deleted))
			}
		}
	}
}
