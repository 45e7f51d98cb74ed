package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/internal/application/notifier"
	promcollector "github.com/aescanero/diun2homer/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/diun2homer/pkg/adapters/storage/memory"
	"github.com/aescanero/diun2homer/pkg/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	server *Server
	store  *memory.InMemoryNotificationStore
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	store := memory.NewInMemoryNotificationStore()
	reg := prometheus.NewRegistry()
	metrics := promcollector.NewCollector(reg)
	logger := zap.NewNop()

	cfg := &Config{
		Port:            0,
		Manager:         notifier.NewManager(store, nil, metrics, nil, logger),
		Logger:          logger,
		Metrics:         metrics,
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowOrigin: "*",
	}
	if mutate != nil {
		mutate(cfg)
	}

	return &testServer{server: NewServer(cfg), store: store}
}

func (ts *testServer) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestDiun_PostJSON(t *testing.T) {
	ts := newTestServer(t, nil)

	body := `{"status":"new","image":"docker.io/library/nginx:latest","message":"New image","platform":"linux/amd64","hostname":"docker01"}`
	rec := ts.do(t, http.MethodPost, "/diun", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	stored, err := ts.store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "linux/amd64", stored[0].Platform)
	assert.Equal(t, "docker01", stored[0].Extra["hostname"])
}

func TestDiun_GetQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	q := url.Values{}
	q.Set("status", "update")
	q.Set("image", "redis:7")
	q.Set("message", "Updated image")
	rec := ts.do(t, http.MethodGet, "/diun?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	count, err := ts.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDiun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "malformed json", method: http.MethodPost, target: "/diun", body: `{"status":`, wantCode: http.StatusBadRequest, wantErr: "INVALID_JSON"},
		{name: "json array", method: http.MethodPost, target: "/diun", body: `[1,2]`, wantCode: http.StatusBadRequest, wantErr: "INVALID_JSON"},
		{name: "json null", method: http.MethodPost, target: "/diun", body: `null`, wantCode: http.StatusBadRequest, wantErr: "INVALID_JSON"},
		{name: "missing fields", method: http.MethodPost, target: "/diun", body: `{"image":"nginx"}`, wantCode: http.StatusUnprocessableEntity, wantErr: "INVALID_PAYLOAD"},
		{name: "wrong type", method: http.MethodPost, target: "/diun", body: `{"status":1,"image":"nginx","message":"m"}`, wantCode: http.StatusUnprocessableEntity, wantErr: "INVALID_PAYLOAD"},
		{name: "empty query", method: http.MethodGet, target: "/diun", wantCode: http.StatusUnprocessableEntity, wantErr: "INVALID_PAYLOAD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			rec := ts.do(t, tt.method, tt.target, tt.body, nil)
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)

			count, err := ts.store.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestDiun_StorageError(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.store.Close())

	rec := ts.do(t, http.MethodPost, "/diun", `{"status":"new","image":"nginx","message":"m"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "STORAGE_ERROR", decodeError(t, rec).Code)
}

func TestDiun_WebhookToken(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) { cfg.WebhookToken = "s3cret" })
	body := `{"status":"new","image":"nginx","message":"m"}`

	rec := ts.do(t, http.MethodPost, "/diun", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)

	rec = ts.do(t, http.MethodPost, "/diun", body, map[string]string{"Authorization": "Bearer wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/diun", body, map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/diun?token=s3cret&status=new&image=redis&message=m", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := ts.store.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotContains(t, stored[0].Extra, "token")

	// Homer endpoints stay open
	rec = ts.do(t, http.MethodGet, "/homer", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHomer_Messages(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/homer", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, status := range []string{"new", "update", "error", "unknown"} {
		body := `{"status":"` + status + `","image":"img-` + status + `","message":"msg"}`
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/diun", body, nil).Code)
	}

	rec = ts.do(t, http.MethodGet, "/homer", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []domain.HomerMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 4)

	styles := map[string]string{}
	for _, m := range msgs {
		styles[m.Title] = m.Style
		assert.Regexp(t, `^msg \(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\)$`, m.Content)
	}
	assert.Equal(t, map[string]string{
		"img-new":     domain.StyleInfo,
		"img-update":  domain.StyleSuccess,
		"img-error":   domain.StyleDanger,
		"img-unknown": domain.StyleWarning,
	}, styles)

	// Same-second notifications are ordered by ID, newest first
	assert.Equal(t, "img-unknown", msgs[0].Title)
	assert.Equal(t, "img-new", msgs[3].Title)
}

func TestHomer_Limit(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) { cfg.HomerLimit = 2 })
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/diun", `{"status":"new","image":"nginx","message":"m"}`, nil).Code)
	}

	var msgs []domain.HomerMessage
	rec := ts.do(t, http.MethodGet, "/homer", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)

	rec = ts.do(t, http.MethodGet, "/homer?limit=1", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 1)

	rec = ts.do(t, http.MethodGet, "/homer?limit=0", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 3)

	rec = ts.do(t, http.MethodGet, "/homer?limit=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_LIMIT", decodeError(t, rec).Code)

	rec = ts.do(t, http.MethodGet, "/homer?limit=-1", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHomer_Latest(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/homer/latest", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/diun", `{"status":"new","image":"first","message":"m"}`, nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/diun", `{"status":"error","image":"second","message":"m"}`, nil).Code)

	rec = ts.do(t, http.MethodGet, "/homer/latest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msg domain.HomerMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "second", msg.Title)
	assert.Equal(t, domain.StyleDanger, msg.Style)
}

func TestListNotifications(t *testing.T) {
	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/diun", `{"status":"new","image":"nginx","message":"m","tag":"1.25"}`, nil).Code)

	rec := ts.do(t, http.MethodGet, "/api/v1/notifications", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data  []domain.Notification `json:"data"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "1.25", resp.Data[0].Tag)
	assert.Equal(t, int64(1), resp.Data[0].ID)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","checks":{"storage":"ok"},"stored":0}`, rec.Body.String())

	require.NoError(t, ts.store.Close())
	rec = ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.NotEmpty(t, body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/diun", `{"status":"NEW","image":"nginx","message":"m"}`, nil).Code)

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `diun2homer_notifications_received_total{status="new"} 1`)
	assert.Contains(t, rec.Body.String(), `diun2homer_http_request_duration_seconds_count{code="200",method="POST",route="/diun"} 1`)
}

func TestMetricsEndpoint_UnknownStatusesShareSeries(t *testing.T) {
	ts := newTestServer(t, nil)

	for i := 0; i < 20; i++ {
		body := fmt.Sprintf(`{"status":"junk-%d-%s","image":"nginx","message":"m"}`, i, strings.Repeat("a", 1000))
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/diun", body, nil).Code)
	}

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	series := 0
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "diun2homer_notifications_received_total{") {
			series++
		}
	}
	assert.Equal(t, 1, series)
	assert.Contains(t, rec.Body.String(), `diun2homer_notifications_received_total{status="other"} 20`)
	assert.NotContains(t, rec.Body.String(), "junk-")
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodOptions, "/homer", "", map[string]string{"Origin": "http://homer.local"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = ts.do(t, http.MethodGet, "/homer", "", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Disabled(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) { cfg.CORSAllowOrigin = "" })

	rec := ts.do(t, http.MethodGet, "/homer", "", nil)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer s3cret")
	h.Set("Content-Type", "application/json")

	out := redactHeaders(h)
	assert.Equal(t, "REDACTED", out.Get("Authorization"))
	assert.Equal(t, "application/json", out.Get("Content-Type"))
	assert.Equal(t, "Bearer s3cret", h.Get("Authorization"))
}
