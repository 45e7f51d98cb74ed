// Package storagetest holds behaviour shared by every NotificationStore
// implementation. Adapter tests call Run with a factory.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/diun2homer/pkg/domain"
	"github.com/aescanero/diun2homer/pkg/ports"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) ports.NotificationStore

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func notification(image, status string, at time.Time) *domain.Notification {
	return domain.NewNotification(domain.Payload{
		Image:   image,
		Status:  status,
		Message: image + " " + status,
	}, at)
}

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("SaveAssignsIncreasingIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a := notification("a", "new", base)
		b := notification("b", "new", base)
		require.NoError(t, s.Save(ctx, a))
		require.NoError(t, s.Save(ctx, b))

		assert.Positive(t, a.ID)
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, notification("old", "new", base)))
		require.NoError(t, s.Save(ctx, notification("newest", "update", base.Add(2*time.Minute))))
		require.NoError(t, s.Save(ctx, notification("middle", "error", base.Add(time.Minute))))
		// Same second as "newest" but saved later, so the ID breaks the tie
		require.NoError(t, s.Save(ctx, notification("tie", "new", base.Add(2*time.Minute))))

		got, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 4)

		titles := []string{got[0].Image, got[1].Image, got[2].Image, got[3].Image}
		assert.Equal(t, []string{"tie", "newest", "middle", "old"}, titles)
		assert.True(t, got[1].ReceivedAt.Equal(base.Add(2*time.Minute)))
	})

	t.Run("ListLimit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			require.NoError(t, s.Save(ctx, notification("img", "new", base.Add(time.Duration(i)*time.Second))))
		}

		got, err := s.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].ReceivedAt.Equal(base.Add(4*time.Second)))

		all, err := s.List(ctx, -1)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := newStore(t)

		got, err := s.List(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("RoundTripsFields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n := domain.NewNotification(domain.Payload{
			Status:   "update",
			Image:    "docker.io/crazymax/diun:latest",
			Platform: "linux/amd64",
			Tag:      "latest",
			Message:  "diun updated",
			Extra: map[string]any{
				"hostname": "docker-host",
				"metadata": map[string]any{"ctn_names": "diun"},
			},
		}, base)
		require.NoError(t, s.Save(ctx, n))

		got, err := s.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)

		assert.Equal(t, n.ID, got[0].ID)
		assert.Equal(t, "update", got[0].Status)
		assert.Equal(t, "docker.io/crazymax/diun:latest", got[0].Image)
		assert.Equal(t, "linux/amd64", got[0].Platform)
		assert.Equal(t, "latest", got[0].Tag)
		assert.Equal(t, "diun updated", got[0].Message)
		assert.Equal(t, "docker-host", got[0].Extra["hostname"])
		assert.Equal(t, map[string]any{"ctn_names": "diun"}, got[0].Extra["metadata"])
		assert.Equal(t, "2024-06-01 12:00:00", got[0].Timestamp())
	})

	t.Run("OptionalFieldsEmpty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, notification("alpine", "new", base)))

		got, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Empty(t, got[0].Platform)
		assert.Empty(t, got[0].Tag)
		assert.Empty(t, got[0].Extra)
	})

	t.Run("Count", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		require.NoError(t, s.Save(ctx, notification("a", "new", base)))
		require.NoError(t, s.Save(ctx, notification("b", "new", base)))

		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("DeleteBeforeIsStrict", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, notification("old", "new", base.Add(-time.Hour))))
		require.NoError(t, s.Save(ctx, notification("edge", "new", base)))
		require.NoError(t, s.Save(ctx, notification("fresh", "new", base.Add(time.Hour))))

		removed, err := s.DeleteBefore(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		got, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "fresh", got[0].Image)
		assert.Equal(t, "edge", got[1].Image)
	})

	t.Run("DeleteBeforeFractionalCutoff", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, notification("same-second", "new", base)))
		require.NoError(t, s.Save(ctx, notification("next-second", "new", base.Add(time.Second))))

		removed, err := s.DeleteBefore(ctx, base.Add(500*time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		got, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "next-second", got[0].Image)
	})

	t.Run("TrimKeepsNewest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			require.NoError(t, s.Save(ctx, notification("img", "new", base.Add(time.Duration(i)*time.Minute))))
		}

		removed, err := s.Trim(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, removed)

		got, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].ReceivedAt.Equal(base.Add(4*time.Minute)))
		assert.True(t, got[1].ReceivedAt.Equal(base.Add(3*time.Minute)))

		removed, err = s.Trim(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("IDsNotReusedAfterDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := notification("a", "new", base)
		require.NoError(t, s.Save(ctx, first))
		_, err := s.Trim(ctx, 0)
		require.NoError(t, err)

		second := notification("b", "new", base)
		require.NoError(t, s.Save(ctx, second))
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(context.Background()))
	})
}
