package worker

import (
	"context"
	"time"

	"github.com/nairatrade/deposits/internal/observability"
	"github.com/nairatrade/deposits/internal/service"
	"go.uber.org/zap"
)

// ExpiryWorker sweeps stale gateway deposits in the background. Each sweep
// queries the provider for the live status before deciding; a sweep and a
// late webhook racing each other is resolved by the conditional update, so
// running several instances is safe.
type ExpiryWorker struct {
	expirySvc    *service.ExpiryService
	pollInterval time.Duration
	batchSize    int32
	stopCh       chan struct{}
}

func NewExpiryWorker(expirySvc *service.ExpiryService) *ExpiryWorker {
	return &ExpiryWorker{
		expirySvc:    expirySvc,
		pollInterval: time.Minute,
		batchSize:    50,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *ExpiryWorker) WithPollInterval(interval time.Duration) *ExpiryWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// WithBatchSize sets the batch size for the worker.
func (w *ExpiryWorker) WithBatchSize(size int32) *ExpiryWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start runs the sweep loop until Stop is called or the context is canceled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	zap.L().Info("expiry worker starting",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int32("batch_size", w.batchSize),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("expiry worker stopping: context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("expiry worker stopping: stop signal")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *ExpiryWorker) Stop() {
	close(w.stopCh)
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	if err := w.expirySvc.Run(ctx, w.batchSize); err != nil {
		zap.L().Error("expiry sweep failed", zap.Error(err))
		observability.IncrementWorkerRun("expiry", "error")
		return
	}
	observability.IncrementWorkerRun("expiry", "ok")
}

// SweepOnce runs a single sweep immediately. Useful for tests and manual
// triggering.
func (w *ExpiryWorker) SweepOnce(ctx context.Context) error {
	return w.expirySvc.Run(ctx, w.batchSize)
}

// Run starts the worker in a goroutine and returns its stop function.
func (w *ExpiryWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}
