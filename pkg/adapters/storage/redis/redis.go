package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/pkg/domain"
)

// NotificationStore implements NotificationStore using Redis.
//
// Layout, under the configured prefix:
//
//	<prefix>:events:seq    counter used to allocate IDs
//	<prefix>:events:data   hash of id -> JSON notification
//	<prefix>:events:index  sorted set, score = unix receive time, member = zero-padded id
//
// Members share a fixed width so ZREVRANGE orders ties by ID.
type NotificationStore struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

// NewNotificationStore creates a new Redis notification store. The client is
// owned by the caller.
func NewNotificationStore(client *redis.Client, prefix string, logger *zap.Logger) *NotificationStore {
	return &NotificationStore{
		client: client,
		logger: logger,
		prefix: prefix,
	}
}

// Save persists a notification and assigns its ID
func (s *NotificationStore) Save(ctx context.Context, n *domain.Notification) error {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate id: %w", err)
	}
	n.ID = id

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	member := memberFor(id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.dataKey(), member, data)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(n.ReceivedAt.Unix()),
			Member: member,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	s.logger.Debug("notification saved",
		zap.Int64("id", id),
		zap.String("image", n.Image))

	return nil
}

// List returns notifications newest first
func (s *NotificationStore) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	members, err := s.client.ZRevRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.dataKey(), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}

	out := make([]domain.Notification, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without data; skip rather than fail the listing
			s.logger.Warn("notification data missing",
				zap.String("member", members[i]))
			continue
		}

		var n domain.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification %s: %w", members[i], err)
		}
		n.ReceivedAt = n.ReceivedAt.UTC()
		out = append(out, n)
	}

	return out, nil
}

// Count returns the number of stored notifications
func (s *NotificationStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return int(n), nil
}

// DeleteBefore removes notifications received strictly before t. Scores are
// whole seconds, so the cutoff is rounded up.
func (s *NotificationStore) DeleteBefore(ctx context.Context, t time.Time) (int, error) {
	members, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(domain.CeilSecond(t).Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan index: %w", err)
	}
	return s.remove(ctx, members)
}

// Trim keeps only the newest keep notifications
func (s *NotificationStore) Trim(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	total, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	excess := total - int64(keep)
	if excess <= 0 {
		return 0, nil
	}

	// Ascending order: the oldest entries come first
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, excess-1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan index: %w", err)
	}
	return s.remove(ctx, members)
}

// Ping checks the Redis connection
func (s *NotificationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is closed by its owner
func (s *NotificationStore) Close() error {
	return nil
}

func (s *NotificationStore) remove(ctx context.Context, members []string) (int, error) {
	if len(members) == 0 {
		return 0, nil
	}

	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.indexKey(), args...)
		pipe.HDel(ctx, s.dataKey(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}

	s.logger.Debug("notifications deleted", zap.Int("count", len(members)))
	return len(members), nil
}

func (s *NotificationStore) seqKey() string {
	return fmt.Sprintf("%s:events:seq", s.prefix)
}

func (s *NotificationStore) dataKey() string {
	return fmt.Sprintf("%s:events:data", s.prefix)
}

func (s *NotificationStore) indexKey() string {
	return fmt.Sprintf("%s:events:index", s.prefix)
}

// memberFor returns the sorted set member for an ID
func memberFor(id int64) string {
	return fmt.Sprintf("%020d", id)
}
