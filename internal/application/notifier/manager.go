package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/diun2homer/pkg/domain"
	"github.com/aescanero/diun2homer/pkg/ports"
)

// ErrNoMessages is returned by Latest when nothing has been received yet.
var ErrNoMessages = errors.New("no messages")

// HealthStatus is the result of a storage health check
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Stored  int    `json:"stored"`
}

// Manager receives Diun notifications and serves them to Homer
type Manager struct {
	store     ports.NotificationStore
	eventBus  ports.EventBus
	metrics   ports.MetricsCollector
	validator *Validator
	logger    *zap.Logger

	now func() time.Time
}

// NewManager creates a new notifier manager. eventBus may be nil.
func NewManager(
	store ports.NotificationStore,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	validator *Validator,
	logger *zap.Logger,
) *Manager {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if validator == nil {
		validator = NewValidator()
	}
	return &Manager{
		store:     store,
		eventBus:  eventBus,
		metrics:   metrics,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Receive validates and stores a Diun payload. source names the transport
// it arrived on and is only used for logging.
func (m *Manager) Receive(ctx context.Context, p domain.Payload, source string) (*domain.Notification, error) {
	if ce := m.logger.Check(zapcore.DebugLevel, "received diun payload"); ce != nil {
		ce.Write(zap.String("source", source), zap.Any("payload", p))
	}

	if err := m.validator.Validate(p); err != nil {
		m.logger.Warn("invalid diun payload",
			zap.String("source", source),
			zap.Error(err))
		m.metrics.RecordNotificationRejected(reason(err))
		return nil, err
	}

	n := domain.NewNotification(p, m.now())
	if err := m.store.Save(ctx, n); err != nil {
		m.logger.Error("failed to store notification",
			zap.String("image", p.Image),
			zap.Error(err))
		m.metrics.RecordStorageError("save")
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	m.metrics.RecordNotificationReceived(n.StatusLabel())
	m.logger.Info("notification stored",
		zap.Int64("id", n.ID),
		zap.String("image", n.Image),
		zap.String("status", n.Status),
		zap.String("source", source))

	m.publish(ctx, n)

	return n, nil
}

// Messages returns stored notifications as Homer messages, newest first.
// A limit <= 0 returns everything.
func (m *Manager) Messages(ctx context.Context, limit int) ([]domain.HomerMessage, error) {
	notifications, err := m.list(ctx, limit)
	if err != nil {
		return nil, err
	}

	messages := domain.ToHomerMessages(notifications)
	m.metrics.RecordMessagesServed(len(messages))

	m.logger.Info("serving homer messages", zap.Int("count", len(messages)))
	if ce := m.logger.Check(zapcore.DebugLevel, "homer messages"); ce != nil {
		ce.Write(zap.Any("messages", messages))
	}

	return messages, nil
}

// Latest returns the newest Homer message
func (m *Manager) Latest(ctx context.Context) (*domain.HomerMessage, error) {
	notifications, err := m.list(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(notifications) == 0 {
		return nil, ErrNoMessages
	}

	msg := domain.ToHomerMessage(notifications[0])
	m.metrics.RecordMessagesServed(1)
	return &msg, nil
}

// Notifications returns the raw stored notifications, newest first
func (m *Manager) Notifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	notifications, err := m.list(ctx, limit)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return notifications, nil
}

// Health pings the store and counts stored notifications
func (m *Manager) Health(ctx context.Context) HealthStatus {
	if err := m.store.Ping(ctx); err != nil {
		m.logger.Error("health check failed", zap.Error(err))
		return HealthStatus{Healthy: false, Error: err.Error()}
	}

	count, err := m.store.Count(ctx)
	if err != nil {
		m.logger.Error("health check failed", zap.Error(err))
		return HealthStatus{Healthy: false, Error: err.Error()}
	}

	return HealthStatus{Healthy: true, Stored: count}
}

// Shutdown gracefully shuts down the manager
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("notifier manager shut down complete")
	return nil
}

func (m *Manager) list(ctx context.Context, limit int) ([]domain.Notification, error) {
	notifications, err := m.store.List(ctx, limit)
	if err != nil {
		m.logger.Error("failed to list notifications", zap.Error(err))
		m.metrics.RecordStorageError("list")
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// publish announces a stored notification. Failures are logged only; the
// notification is already persisted.
func (m *Manager) publish(ctx context.Context, n *domain.Notification) {
	if m.eventBus == nil {
		return
	}

	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      domain.EventTypeNotificationReceived,
		Timestamp: m.now().UTC(),
		Data: map[string]any{
			"id":      n.ID,
			"image":   n.Image,
			"status":  n.Status,
			"message": domain.ToHomerMessage(*n),
		},
	}

	if err := m.eventBus.Publish(ctx, domain.TopicNotifications, event); err != nil {
		m.logger.Error("failed to publish notification event",
			zap.Int64("id", n.ID),
			zap.Error(err))
	}
}
