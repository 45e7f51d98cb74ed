package ports

import (
	"context"
	"time"

	"github.com/aescanero/diun2homer/pkg/domain"
)

// NotificationStore persists Diun notifications.
type NotificationStore interface {
	// Save persists a notification and assigns its ID.
	Save(ctx context.Context, n *domain.Notification) error

	// List returns notifications newest first (ReceivedAt desc, then ID
	// desc). A limit <= 0 returns everything.
	List(ctx context.Context, limit int) ([]domain.Notification, error)

	// Count returns the number of stored notifications.
	Count(ctx context.Context) (int, error)

	// DeleteBefore removes notifications received strictly before t.
	DeleteBefore(ctx context.Context, t time.Time) (int, error)

	// Trim keeps only the newest keep notifications.
	Trim(ctx context.Context, keep int) (int, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
