package domain

import "time"

// TimestampLayout is the layout used when rendering receive times. It
// matches SQLite's CURRENT_TIMESTAMP so rows written by older releases read
// back identically.
const TimestampLayout = "2006-01-02 15:04:05"

// Notification is a persisted Diun notification.
type Notification struct {
	ID         int64          `json:"id"`
	Image      string         `json:"image"`
	Status     string         `json:"status"`
	Platform   string         `json:"platform,omitempty"`
	Tag        string         `json:"tag,omitempty"`
	Message    string         `json:"message"`
	Extra      map[string]any `json:"extra,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
}

// NewNotification creates a notification from a payload received at the
// given time. The receive time is normalised to UTC whole seconds.
func NewNotification(p Payload, receivedAt time.Time) *Notification {
	return &Notification{
		Image:      p.Image,
		Status:     p.Status,
		Platform:   p.Platform,
		Tag:        p.Tag,
		Message:    p.Message,
		Extra:      p.Extra,
		ReceivedAt: receivedAt.UTC().Truncate(time.Second),
	}
}

// StatusLabel returns the bucketed status, used as a metric label.
func (n Notification) StatusLabel() string {
	return StatusLabel(n.Status)
}

// Timestamp renders ReceivedAt in TimestampLayout.
func (n Notification) Timestamp() string {
	return n.ReceivedAt.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp written by any of the storage backends.
func ParseTimestamp(s string) (time.Time, error) {
	layouts := []string{TimestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05"}
	var err error
	for _, layout := range layouts {
		var t time.Time
		t, err = time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// CeilSecond rounds t up to the next whole second. Backends that store
// second-resolution receive times use it so that "before t" keeps the same
// meaning when t has a fractional part.
func CeilSecond(t time.Time) time.Time {
	ts := t.Truncate(time.Second)
	if ts.Before(t) {
		ts = ts.Add(time.Second)
	}
	return ts
}
