package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/diun2homer/internal/application/notifier"
	"github.com/aescanero/diun2homer/pkg/domain"
)

// maxBodyBytes bounds webhook request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WebhookResponse is returned when a notification is accepted
type WebhookResponse struct {
	Status string `json:"status"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := s.manager.Health(c.Request.Context())
	if !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"checks": gin.H{
				"storage": "error",
			},
			"error": status.Error,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"checks": gin.H{
			"storage": "ok",
		},
		"stored": status.Stored,
	})
}

// handleDiunQuery handles webhook notifications sent as query parameters
func (s *Server) handleDiunQuery(c *gin.Context) {
	values := c.Request.URL.Query()
	if s.webhookToken != "" {
		values.Del(tokenQueryParam)
	}

	if ce := s.logger.Check(zapcore.DebugLevel, "diun webhook request"); ce != nil {
		ce.Write(
			zap.Any("headers", redactHeaders(c.Request.Header)),
			zap.Any("query", values))
	}

	s.receive(c, domain.PayloadFromValues(values), "get")
}

// handleDiunJSON handles webhook notifications sent as a JSON body
func (s *Server) handleDiunJSON(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		s.logger.Warn("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Failed to read request body",
				Details: err.Error(),
			},
		})
		return
	}

	if ce := s.logger.Check(zapcore.DebugLevel, "diun webhook request"); ce != nil {
		ce.Write(
			zap.Any("headers", redactHeaders(c.Request.Header)),
			zap.ByteString("body", body))
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		msg := "Request body must be a JSON object"
		if err != nil {
			msg = err.Error()
		}
		s.logger.Warn("invalid webhook JSON", zap.String("error", msg))
		s.metrics.RecordNotificationRejected("invalid_json")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_JSON",
				Message: "Request body must be a JSON object",
				Details: msg,
			},
		})
		return
	}

	payload, err := domain.PayloadFromMap(raw)
	if err != nil {
		s.logger.Warn("invalid diun payload", zap.String("source", "post"), zap.Error(err))
		s.metrics.RecordNotificationRejected(notifier.ReasonInvalidPayload)
		s.writeReceiveError(c, err)
		return
	}

	s.receive(c, payload, "post")
}

// receive hands a payload to the manager and writes the response
func (s *Server) receive(c *gin.Context, payload domain.Payload, source string) {
	if _, err := s.manager.Receive(c.Request.Context(), payload, source); err != nil {
		s.writeReceiveError(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Status: "success"})
}

func (s *Server) writeReceiveError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvalidPayload) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_PAYLOAD",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:    "STORAGE_ERROR",
			Message: "Failed to store notification",
			Details: err.Error(),
		},
	})
}

// handleHomer returns stored notifications as Homer messages
func (s *Server) handleHomer(c *gin.Context) {
	limit, ok := s.parseLimit(c, s.homerLimit)
	if !ok {
		return
	}

	messages, err := s.manager.Messages(c.Request.Context(), limit)
	if err != nil {
		s.writeStorageError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// handleHomerLatest returns the newest Homer message
func (s *Server) handleHomerLatest(c *gin.Context) {
	msg, err := s.manager.Latest(c.Request.Context())
	if errors.Is(err, notifier.ErrNoMessages) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "No notifications received yet",
			},
		})
		return
	}
	if err != nil {
		s.writeStorageError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

// handleListNotifications returns the raw stored notifications
func (s *Server) handleListNotifications(c *gin.Context) {
	limit, ok := s.parseLimit(c, 0)
	if !ok {
		return
	}

	notifications, err := s.manager.Notifications(c.Request.Context(), limit)
	if err != nil {
		s.writeStorageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  notifications,
		"count": len(notifications),
	})
}

// parseLimit reads ?limit, writing a 400 response when it is invalid
func (s *Server) parseLimit(c *gin.Context, fallback int) (int, bool) {
	raw, ok := c.GetQuery("limit")
	if !ok {
		return fallback, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_LIMIT",
				Message: "limit must be a non-negative integer",
				Details: raw,
			},
		})
		return 0, false
	}
	return limit, true
}

func (s *Server) writeStorageError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:    "STORAGE_ERROR",
			Message: "Failed to read notifications",
			Details: err.Error(),
		},
	})
}

// redactHeaders copies headers for logging with credentials removed
func redactHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out.Get("Authorization") != "" {
		out.Set("Authorization", "REDACTED")
	}
	return out
}
