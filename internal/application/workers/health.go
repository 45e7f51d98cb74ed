package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/pkg/ports"
)

// StatusListener is called with the result of every health check
type StatusListener func(healthy bool)

// HealthMonitor monitors storage health
type HealthMonitor struct {
	store    ports.NotificationStore
	metrics  ports.MetricsCollector
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	running   bool
	stopCh    chan struct{}
	done      chan struct{}
	listeners []StatusListener
	last      *HealthStatus
}

// HealthStatus represents the health status of the storage backend
type HealthStatus struct {
	Healthy   bool
	Stored    int
	Error     string
	Timestamp time.Time
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(store ports.NotificationStore, metrics ports.MetricsCollector, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &HealthMonitor{
		store:    store,
		metrics:  metrics,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// AddListener registers a listener for health check results
func (h *HealthMonitor) AddListener(l StatusListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// Start runs a first check and then starts the periodic loop
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.stopCh = make(chan struct{})
	h.done = make(chan struct{})
	stopCh, done := h.stopCh, h.done
	h.mu.Unlock()

	h.checkHealth()
	go h.run(stopCh, done)
}

// Stop stops the health monitor and waits for the loop to exit
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	stopCh, done := h.stopCh, h.done
	h.mu.Unlock()

	close(stopCh)
	<-done
}

// run is the main health monitoring loop
func (h *HealthMonitor) run(stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			h.checkHealth()
		}
	}
}

// checkHealth checks storage health, records metrics and notifies listeners
func (h *HealthMonitor) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	status := h.Check(ctx)

	h.logger.Debug("storage health check",
		zap.Bool("healthy", status.Healthy),
		zap.Int("stored", status.Stored))
}

// Check runs a single health check and records its result
func (h *HealthMonitor) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Timestamp: time.Now()}

	if err := h.store.Ping(ctx); err != nil {
		status.Error = err.Error()
	} else if count, err := h.store.Count(ctx); err != nil {
		status.Error = err.Error()
	} else {
		status.Healthy = true
		status.Stored = count
	}

	h.metrics.SetStorageHealthy(status.Healthy)
	if status.Healthy {
		h.metrics.SetStoredNotifications(status.Stored)
	}

	h.mu.Lock()
	previous := h.last
	h.last = &status
	listeners := append([]StatusListener(nil), h.listeners...)
	h.mu.Unlock()

	// Log transitions only
	switch {
	case !status.Healthy && (previous == nil || previous.Healthy):
		h.logger.Warn("storage is unhealthy", zap.String("error", status.Error))
	case status.Healthy && previous != nil && !previous.Healthy:
		h.logger.Info("storage recovered", zap.Int("stored", status.Stored))
	}

	for _, l := range listeners {
		l(status.Healthy)
	}

	return status
}

// GetStatus returns the result of the last health check, or nil before the
// first one
func (h *HealthMonitor) GetStatus() *HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.last == nil {
		return nil
	}
	status := *h.last
	return &status
}

// IsHealthy returns true if the last health check succeeded
func (h *HealthMonitor) IsHealthy() bool {
	status := h.GetStatus()
	return status != nil && status.Healthy
}
