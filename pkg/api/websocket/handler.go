package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/pkg/domain"
	"github.com/aescanero/diun2homer/pkg/ports"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = pingInterval + 10*time.Second
	bufferSize   = 16
)

// Handler handles WebSocket connections
type Handler struct {
	eventBus ports.EventBus
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler. allowedOrigin restricts the
// Origin header; empty or "*" accepts any origin.
func NewHandler(eventBus ports.EventBus, allowedOrigin string, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus: eventBus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigin),
		},
		logger: logger,
	}
}

func checkOrigin(allowed string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// HandleHomerStream streams newly received notifications as Homer messages
func (h *Handler) HandleHomerStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	messages := make(chan domain.HomerMessage, bufferSize)
	if err := h.eventBus.Subscribe(ctx, domain.TopicNotifications, h.forward(messages)); err != nil {
		h.logger.Error("failed to subscribe to notifications", zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}

	// The reader only exists to process control frames and notice the
	// client going away
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket connection closed",
				zap.String("client", c.ClientIP()))
			return

		case msg := <-messages:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("failed to write ping", zap.Error(err))
				return
			}
		}
	}
}

// forward returns an event handler that queues Homer messages without
// blocking the bus
func (h *Handler) forward(ch chan<- domain.HomerMessage) ports.EventHandler {
	return func(ctx context.Context, event domain.Event) error {
		if event.Type != domain.EventTypeNotificationReceived {
			return nil
		}
		msg, ok := domain.HomerMessageFromEvent(event)
		if !ok {
			h.logger.Warn("event without homer message",
				zap.String("event_id", event.ID))
			return nil
		}

		select {
		case ch <- msg:
		default:
			h.logger.Warn("message channel full, dropping event",
				zap.String("event_id", event.ID))
		}
		return nil
	}
}
