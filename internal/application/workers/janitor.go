package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/pkg/ports"
)

// RetentionPolicy bounds how many notifications are kept. Zero disables a
// limit.
type RetentionPolicy struct {
	MaxEvents int
	MaxAge    time.Duration
	Interval  time.Duration
}

// Enabled reports whether any limit is set
func (p RetentionPolicy) Enabled() bool {
	return p.MaxEvents > 0 || p.MaxAge > 0
}

// Janitor periodically prunes old notifications
type Janitor struct {
	store   ports.NotificationStore
	metrics ports.MetricsCollector
	policy  RetentionPolicy
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewJanitor creates a new retention janitor
func NewJanitor(store ports.NotificationStore, metrics ports.MetricsCollector, policy RetentionPolicy, logger *zap.Logger) *Janitor {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Janitor{
		store:   store,
		metrics: metrics,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start runs a first pruning pass and starts the periodic loop. It does
// nothing when the policy has no limits.
func (j *Janitor) Start() error {
	if !j.policy.Enabled() {
		j.logger.Info("retention disabled")
		return nil
	}
	if j.policy.Interval <= 0 {
		return fmt.Errorf("retention interval must be positive")
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return nil
	}
	j.started = true

	j.logger.Info("starting retention janitor",
		zap.Int("max_events", j.policy.MaxEvents),
		zap.Duration("max_age", j.policy.MaxAge),
		zap.Duration("interval", j.policy.Interval))

	j.wg.Add(1)
	go j.run()

	return nil
}

// Shutdown stops the janitor, waiting for a running pass up to ctx's deadline
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.logger.Info("shutting down retention janitor")

	j.cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("retention janitor shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// run is the main janitor loop
func (j *Janitor) run() {
	defer j.wg.Done()

	j.prune()

	ticker := time.NewTicker(j.policy.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.prune()
		}
	}
}

func (j *Janitor) prune() {
	if _, err := j.RunOnce(j.ctx); err != nil && j.ctx.Err() == nil {
		j.logger.Error("retention pass failed", zap.Error(err))
	}
}

// RunOnce applies the retention policy once and returns the number of
// notifications removed
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	removed := 0

	if j.policy.MaxAge > 0 {
		cutoff := j.now().UTC().Add(-j.policy.MaxAge)
		n, err := j.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			j.metrics.RecordStorageError("delete_before")
			return removed, fmt.Errorf("failed to delete old notifications: %w", err)
		}
		removed += n
	}

	if j.policy.MaxEvents > 0 {
		n, err := j.store.Trim(ctx, j.policy.MaxEvents)
		if err != nil {
			j.metrics.RecordStorageError("trim")
			return removed, fmt.Errorf("failed to trim notifications: %w", err)
		}
		removed += n
	}

	j.metrics.RecordPruned(removed)
	if removed > 0 {
		j.logger.Info("pruned notifications", zap.Int("count", removed))
	}

	return removed, nil
}
