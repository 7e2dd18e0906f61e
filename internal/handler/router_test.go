package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	"github.com/noah-isme/moodle-engagement-api/internal/engagement"
	"github.com/noah-isme/moodle-engagement-api/internal/models"
	"github.com/noah-isme/moodle-engagement-api/internal/repository"
	"github.com/noah-isme/moodle-engagement-api/internal/service"
	"github.com/noah-isme/moodle-engagement-api/pkg/mailer"
)

type failingPinger struct{}

func (failingPinger) Ping(_ context.Context) error { return errors.New("connection refused") }

// recentLog builds a Moodle export relative to the current day so the live
// clock inside the service sees Ana as at risk and Carla as active.
func recentLog(now time.Time) string {
	row := func(daysAgo int, name, event string) string {
		ts := now.AddDate(0, 0, -daysAgo).Format("2/1/06, 15:04")
		return fmt.Sprintf("%q,%s,-,Course: Biology,System,%s,,web,10.0.0.1\n", ts, name, event)
	}
	var b strings.Builder
	b.WriteString("Time,User full name,Affected user,Event context,Component,Event name,Description,Origin,IP address\n")
	b.WriteString(row(20, "Ana Lima", "Course viewed"))
	b.WriteString(row(1, "Carla Dias", "Course viewed"))
	b.WriteString(row(2, "Carla Dias", "Page viewed"))
	b.WriteString(row(3, "Carla Dias", "Quiz attempted"))
	b.WriteString(row(4, "Carla Dias", "Page viewed"))
	return b.String()
}

func newTestRouter(t *testing.T) (*gin.Engine, *mailer.ConsoleSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemorySessionStore(time.Hour)
	metrics := service.NewMetricsService()
	engagementSvc := service.NewEngagementService(store, nil, metrics, zap.NewNop(), service.EngagementConfig{Location: time.UTC})
	sender := mailer.NewConsoleSender(zap.NewNop())
	alertSvc := service.NewAlertService(engagementSvc, store, sender, nil, metrics, zap.NewNop(), "alerts@example.edu")

	return NewRouter(RouterConfig{
		APIPrefix:  "/api/v1",
		Logger:     zap.NewNop(),
		Metrics:    metrics,
		Engagement: NewEngagementHandler(engagementSvc, 1<<20),
		Alerts:     NewAlertHandler(alertSvc),
		Probes:     NewMetricsHandler(metrics, store),
	}), sender
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterEndToEnd(t *testing.T) {
	r, sender := newTestRouter(t)

	body, contentType := multipartBody(t, "file", "logs.csv", []byte(recentLog(time.Now().UTC())))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
	req.Header.Set("Content-Type", contentType)
	w := serve(r, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var info models.SessionInfo
	decodeEnvelope(t, w, &info)
	require.NotEmpty(t, info.ID)
	assert.Equal(t, 5, info.Rows)
	base := "/api/v1/sessions/" + info.ID

	w = serve(r, httptest.NewRequest(http.MethodGet, base+"/summary", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary dto.SummaryResponse
	decodeEnvelope(t, w, &summary)
	assert.Equal(t, 2, summary.KPIs.Students)
	assert.Equal(t, 1, summary.KPIs.AtRisk)
	require.Len(t, summary.AtRisk, 1)
	assert.Equal(t, "Ana Lima", summary.AtRisk[0].UserFullName)

	w = serve(r, httptest.NewRequest(http.MethodGet, base+"/summary.csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "User full name,last_access"))

	w = serve(r, httptest.NewRequest(http.MethodGet, base+"/report.pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = serve(r, httptest.NewRequest(http.MethodGet, base+"/charts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var charts engagement.Charts
	decodeEnvelope(t, w, &charts)
	assert.NotEmpty(t, charts.EventsPerDay)

	w = serve(r, httptest.NewRequest(http.MethodGet, base+"/students/Carla%20Dias", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	payload, _ := json.Marshal(dto.AlertRequest{CoordinatorEmail: "coord@example.edu"})
	req = httptest.NewRequest(http.MethodPost, base+"/alerts", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var alert dto.AlertResponse
	decodeEnvelope(t, w, &alert)
	assert.True(t, alert.Sent)
	assert.Equal(t, 1, alert.Students)
	require.Len(t, sender.Sent(), 1)
	assert.Contains(t, sender.Sent()[0].Body, "Ana Lima — Inactive 20 days")

	w = serve(r, httptest.NewRequest(http.MethodGet, base+"/alerts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var log dto.NotificationLogResponse
	decodeEnvelope(t, w, &log)
	assert.Len(t, log.Entries, 1)

	w = serve(r, httptest.NewRequest(http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = serve(r, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterProbes(t *testing.T) {
	r, _ := newTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestReadyReportsUnavailableStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(nil, failingPinger{})

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
