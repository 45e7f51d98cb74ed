package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/pkg/adapters/storage/storagetest"
	"github.com/aescanero/diun2homer/pkg/domain"
	"github.com/aescanero/diun2homer/pkg/ports"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNotificationStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) ports.NotificationStore {
		_, client := newTestClient(t)
		return NewNotificationStore(client, "test", zap.NewNop())
	})
}

func TestNotificationStore_KeyLayout(t *testing.T) {
	t.Parallel()

	mr, client := newTestClient(t)
	s := NewNotificationStore(client, "d2h", zap.NewNop())

	n := domain.NewNotification(domain.Payload{Image: "nginx", Status: "new", Message: "m"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(context.Background(), n))

	seq, err := mr.Get("d2h:events:seq")
	require.NoError(t, err)
	assert.Equal(t, "1", seq)
	assert.True(t, mr.Exists("d2h:events:data"))

	members, err := mr.ZMembers("d2h:events:index")
	require.NoError(t, err)
	assert.Equal(t, []string{memberFor(1)}, members)

	score, err := mr.ZScore("d2h:events:index", memberFor(1))
	require.NoError(t, err)
	assert.Equal(t, float64(n.ReceivedAt.Unix()), score)
}

func TestNotificationStore_PrefixesIsolate(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	a := NewNotificationStore(client, "a", zap.NewNop())
	b := NewNotificationStore(client, "b", zap.NewNop())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, domain.NewNotification(domain.Payload{Image: "x"}, time.Now())))

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationStore_SkipsMissingData(t *testing.T) {
	t.Parallel()

	mr, client := newTestClient(t)
	s := NewNotificationStore(client, "p", zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.NewNotification(domain.Payload{Image: "a"}, time.Now())))
	require.NoError(t, s.Save(ctx, domain.NewNotification(domain.Payload{Image: "b"}, time.Now())))
	mr.HDel("p:events:data", memberFor(1))

	got, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Image)
}

func TestNotificationStore_PingFailsWhenServerDown(t *testing.T) {
	t.Parallel()

	mr, client := newTestClient(t)
	s := NewNotificationStore(client, "p", zap.NewNop())
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestMemberFor_SortsLexically(t *testing.T) {
	t.Parallel()

	assert.Less(t, memberFor(9), memberFor(10))
	assert.Len(t, memberFor(1), 20)
}
