package domain

import (
	"fmt"
	"strings"
)

// Homer message styles (Bulma classes).
const (
	StyleInfo    = "is-info"
	StyleSuccess = "is-success"
	StyleDanger  = "is-danger"
	StyleWarning = "is-warning"
)

// Diun notification statuses with a dedicated style.
const (
	StatusNew    = "new"
	StatusUpdate = "update"
	StatusError  = "error"

	// StatusOther labels every status outside the known set.
	StatusOther = "other"
)

var statusStyles = map[string]string{
	StatusNew:    StyleInfo,
	StatusUpdate: StyleSuccess,
	StatusError:  StyleDanger,
}

// HomerMessage is the object Homer's message block renders.
type HomerMessage struct {
	Style   string `json:"style"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// StyleFor maps a Diun status to a Homer style. Unknown statuses get the
// warning style.
func StyleFor(status string) string {
	if style, ok := statusStyles[strings.ToLower(status)]; ok {
		return style
	}
	return StyleWarning
}

// StatusLabel buckets a status for use as a metric label. Statuses are
// sender-controlled, so anything outside the known set is StatusOther.
func StatusLabel(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if _, ok := statusStyles[s]; ok {
		return s
	}
	return StatusOther
}

// ToHomerMessage renders a stored notification for Homer.
func ToHomerMessage(n Notification) HomerMessage {
	return HomerMessage{
		Style:   StyleFor(n.Status),
		Title:   n.Image,
		Content: fmt.Sprintf("%s (%s)", n.Message, n.Timestamp()),
	}
}

// ToHomerMessages renders a list of notifications, preserving order.
func ToHomerMessages(ns []Notification) []HomerMessage {
	out := make([]HomerMessage, 0, len(ns))
	for _, n := range ns {
		out = append(out, ToHomerMessage(n))
	}
	return out
}
