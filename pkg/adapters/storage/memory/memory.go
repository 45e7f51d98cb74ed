package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/aescanero/diun2homer/pkg/domain"
)

// InMemoryNotificationStore implements NotificationStore using an in-memory slice
type InMemoryNotificationStore struct {
	notifications []domain.Notification
	nextID        int64
	closed        bool
	mu            sync.RWMutex
}

// NewInMemoryNotificationStore creates a new in-memory notification store
func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{nextID: 1}
}

// Save persists a notification and assigns its ID
func (s *InMemoryNotificationStore) Save(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	n.ID = s.nextID
	s.nextID++

	// Copy so later mutations by the caller don't leak in
	stored := *n
	stored.Extra = maps.Clone(n.Extra)
	s.notifications = append(s.notifications, stored)
	return nil
}

// List returns notifications newest first
func (s *InMemoryNotificationStore) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	out := make([]domain.Notification, len(s.notifications))
	copy(out, s.notifications)
	sortNewestFirst(out)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored notifications
func (s *InMemoryNotificationStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}
	return len(s.notifications), nil
}

// DeleteBefore removes notifications received strictly before t
func (s *InMemoryNotificationStore) DeleteBefore(ctx context.Context, t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	kept := s.notifications[:0]
	removed := 0
	for _, n := range s.notifications {
		if n.ReceivedAt.Before(t) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	return removed, nil
}

// Trim keeps only the newest keep notifications
func (s *InMemoryNotificationStore) Trim(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}
	if keep < 0 {
		keep = 0
	}
	if len(s.notifications) <= keep {
		return 0, nil
	}

	sortNewestFirst(s.notifications)
	removed := len(s.notifications) - keep
	s.notifications = s.notifications[:keep]
	return removed, nil
}

// Ping reports whether the store is usable
func (s *InMemoryNotificationStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Close marks the store closed; further calls fail
func (s *InMemoryNotificationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func sortNewestFirst(ns []domain.Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		if !ns[i].ReceivedAt.Equal(ns[j].ReceivedAt) {
			return ns[i].ReceivedAt.After(ns[j].ReceivedAt)
		}
		return ns[i].ID > ns[j].ID
	})
}
