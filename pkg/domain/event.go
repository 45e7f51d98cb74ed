package domain

import "time"

// EventType identifies the kind of event published on the bus.
type EventType string

// EventTypeNotificationReceived is published after a notification is stored.
const EventTypeNotificationReceived EventType = "notification.received"

// TopicNotifications carries notification lifecycle events.
const TopicNotifications = "notifications"

// Event is a message carried by the event bus.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// HomerMessageFromEvent extracts the Homer message carried by a
// notification.received event. Events that went through a JSON round trip
// hold plain maps, so both shapes are handled.
func HomerMessageFromEvent(e Event) (HomerMessage, bool) {
	raw, ok := e.Data["message"]
	if !ok {
		return HomerMessage{}, false
	}
	switch m := raw.(type) {
	case HomerMessage:
		return m, true
	case map[string]any:
		style, _ := m["style"].(string)
		title, _ := m["title"].(string)
		content, _ := m["content"].(string)
		return HomerMessage{Style: style, Title: title, Content: content}, true
	default:
		return HomerMessage{}, false
	}
}
