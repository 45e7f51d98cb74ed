package prometheus

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/diun2homer/pkg/ports"
)

var _ ports.MetricsCollector = (*Collector)(nil)

func TestCollector_Counters(t *testing.T) {
	t.Parallel()

	c := NewCollector(prometheus.NewRegistry())

	c.RecordNotificationReceived("NEW")
	c.RecordNotificationReceived("new")
	c.RecordNotificationReceived("update")
	c.RecordNotificationRejected("invalid_payload")
	c.RecordStorageError("save")
	c.RecordMessagesServed(3)
	c.RecordMessagesServed(0)
	c.RecordPruned(2)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.notificationsReceived.WithLabelValues("new")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.notificationsReceived.WithLabelValues("update")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.notificationsRejected.WithLabelValues("invalid_payload")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.storageErrors.WithLabelValues("save")))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.messagesServed))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.notificationsPruned))
}

func TestCollector_UnknownStatusesBucketed(t *testing.T) {
	t.Parallel()

	c := NewCollector(prometheus.NewRegistry())

	c.RecordNotificationReceived("Error")
	for _, status := range []string{"unchanged", "junk-1", "junk-2", "", strings.Repeat("x", 4096)} {
		c.RecordNotificationReceived(status)
	}

	assert.Equal(t, 2, testutil.CollectAndCount(c.notificationsReceived))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.notificationsReceived.WithLabelValues("error")))
	assert.Equal(t, float64(5), testutil.ToFloat64(c.notificationsReceived.WithLabelValues("other")))
}

func TestCollector_Gauges(t *testing.T) {
	t.Parallel()

	c := NewCollector(prometheus.NewRegistry())

	c.SetStoredNotifications(12)
	c.SetStorageHealthy(true)
	assert.Equal(t, float64(12), testutil.ToFloat64(c.storedNotifications))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.storageHealthy))

	c.SetStorageHealthy(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(c.storageHealthy))
}

func TestCollector_HTTPHistogram(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveHTTPRequest("GET", "/homer", 200, 15*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(c.httpRequestDuration))

	expected := `
# HELP diun2homer_stored_notifications Number of notifications currently stored
# TYPE diun2homer_stored_notifications gauge
diun2homer_stored_notifications 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "diun2homer_stored_notifications"))
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
}
