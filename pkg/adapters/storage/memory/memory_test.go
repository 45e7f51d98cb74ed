package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/diun2homer/pkg/adapters/storage/storagetest"
	"github.com/aescanero/diun2homer/pkg/domain"
	"github.com/aescanero/diun2homer/pkg/ports"
)

func TestInMemoryNotificationStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) ports.NotificationStore {
		return NewInMemoryNotificationStore()
	})
}

func TestInMemoryNotificationStore_ClosedFails(t *testing.T) {
	t.Parallel()

	s := NewInMemoryNotificationStore()
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.Error(t, s.Ping(ctx))
	assert.Error(t, s.Save(ctx, domain.NewNotification(domain.Payload{}, time.Now())))
	_, err := s.List(ctx, 0)
	assert.Error(t, err)
}

func TestInMemoryNotificationStore_CopiesOnSave(t *testing.T) {
	t.Parallel()

	s := NewInMemoryNotificationStore()
	n := domain.NewNotification(domain.Payload{Image: "a", Extra: map[string]any{"k": "v"}}, time.Now())
	require.NoError(t, s.Save(context.Background(), n))

	n.Image = "mutated"
	n.Extra["k"] = "mutated"

	got, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "a", got[0].Image)
	assert.Equal(t, "v", got[0].Extra["k"])
}
