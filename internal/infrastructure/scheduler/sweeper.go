package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"go.uber.org/zap"
)

// SweeperConfig holds configuration for the provisioning gap sweep
type SweeperConfig struct {
	// Interval is how often approved applications are checked
	Interval time.Duration
	// MinAge skips approvals younger than this, leaving room for the
	// synchronous provisioning that follows an approval
	MinAge    time.Duration
	BatchSize int
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:  time.Minute,
		MinAge:    30 * time.Second,
		BatchSize: 50,
	}
}

// Sweeper periodically finds approved applications without a student id
// and hands them to the scheduler
type Sweeper struct {
	config    SweeperConfig
	scheduler *Scheduler
	finder    enrollment.ProvisioningGapFinder
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweeper creates a new sweeper
func NewSweeper(config SweeperConfig, scheduler *Scheduler, finder enrollment.ProvisioningGapFinder, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		config:    config,
		scheduler: scheduler,
		finder:    finder,
		logger:    logger,
	}
}

// Start starts the sweep loop. The first sweep runs immediately.
func (w *Sweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.runLoop(ctx)

	w.logger.Info("Provisioning sweeper started",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("min_age", w.config.MinAge),
		zap.Int("batch_size", w.config.BatchSize),
	)
	return nil
}

// Stop stops the sweep loop
func (w *Sweeper) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

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
		w.logger.Info("Provisioning sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Sweeper) runLoop(ctx context.Context) {
	defer w.wg.Done()

	w.Sweep(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many jobs were queued
func (w *Sweeper) Sweep(ctx context.Context) int {
	ids, err := w.finder.FindProvisioningGaps(ctx, time.Now().Add(-w.config.MinAge), w.config.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Failed to find provisioning gaps", zap.Error(err))
		}
		return 0
	}

	queued := 0
	for _, id := range ids {
		err := w.scheduler.ScheduleProvisioning(id)
		switch {
		case err == nil:
			queued++
		case errors.Is(err, ErrJobInFlight):
		case errors.Is(err, ErrJobQueueFull), errors.Is(err, ErrSchedulerNotRunning):
			w.logger.Warn("Provisioning sweep stopped early",
				zap.Int("queued", queued),
				zap.Int("found", len(ids)),
				zap.Error(err),
			)
			return queued
		default:
			w.logger.Error("Failed to queue provisioning job",
				zap.String("application_id", id.String()),
				zap.Error(err),
			)
		}
	}

	if len(ids) > 0 {
		w.logger.Info("Provisioning gaps queued",
			zap.Int("found", len(ids)),
			zap.Int("queued", queued),
		)
	}
	return queued
}
