package worker

import (
	"context"
	"time"

	"github.com/nairatrade/deposits/internal/observability"
	"github.com/nairatrade/deposits/internal/service"
	"go.uber.org/zap"
)

// IntegrityWorker periodically cross-checks account balances against the
// wallet transaction audit trail and raises an alarm on drift.
type IntegrityWorker struct {
	integritySvc *service.IntegrityService
	pollInterval time.Duration
	stopCh       chan struct{}
}

func NewIntegrityWorker(integritySvc *service.IntegrityService) *IntegrityWorker {
	return &IntegrityWorker{
		integritySvc: integritySvc,
		pollInterval: time.Hour,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *IntegrityWorker) WithPollInterval(interval time.Duration) *IntegrityWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// Start runs the check loop until Stop is called or the context is canceled.
func (w *IntegrityWorker) Start(ctx context.Context) {
	zap.L().Info("integrity worker starting", zap.Duration("poll_interval", w.pollInterval))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("integrity worker stopping: context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("integrity worker stopping: stop signal")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *IntegrityWorker) Stop() {
	close(w.stopCh)
}

func (w *IntegrityWorker) check(ctx context.Context) {
	if err := w.integritySvc.Run(ctx); err != nil {
		zap.L().Error("integrity check failed", zap.Error(err))
		observability.IncrementWorkerRun("integrity", "error")
		return
	}
	observability.IncrementWorkerRun("integrity", "ok")
}

// CheckOnce runs a single integrity pass immediately.
func (w *IntegrityWorker) CheckOnce(ctx context.Context) error {
	return w.integritySvc.Run(ctx)
}

// Run starts the worker in a goroutine and returns its stop function.
func (w *IntegrityWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}
