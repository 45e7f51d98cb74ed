package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/pkg/domain"
)

func TestInMemoryEventBus_DeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryEventBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 2)
	for i := 0; i < 2; i++ {
		require.NoError(t, bus.Subscribe(ctx, "topic", func(_ context.Context, e domain.Event) error {
			got <- e.ID
			return nil
		}))
	}

	require.NoError(t, bus.Publish(context.Background(), "topic", domain.Event{ID: "evt-1"}))

	for i := 0; i < 2; i++ {
		select {
		case id := <-got:
			assert.Equal(t, "evt-1", id)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestInMemoryEventBus_TopicsAreIsolated(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryEventBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan domain.Event, 1)
	require.NoError(t, bus.Subscribe(ctx, "a", func(_ context.Context, e domain.Event) error {
		got <- e
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), "b", domain.Event{ID: "x"}))

	select {
	case <-got:
		t.Fatal("received event from another topic")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInMemoryEventBus_UnsubscribesOnCancel(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryEventBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, bus.Subscribe(ctx, "topic", func(context.Context, domain.Event) error { return nil }))
	assert.Equal(t, 1, bus.SubscriberCount("topic"))

	cancel()
	assert.Eventually(t, func() bool { return bus.SubscriberCount("topic") == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestInMemoryEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryEventBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx, "topic", func(context.Context, domain.Event) error {
		return errors.New("boom")
	}))
	assert.NoError(t, bus.Publish(context.Background(), "topic", domain.Event{ID: "x"}))
}

func TestInMemoryEventBus_Close(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Subscribe(context.Background(), "topic", func(context.Context, domain.Event) error { return nil }))
	require.NoError(t, bus.Close())
	assert.Zero(t, bus.SubscriberCount("topic"))
}
