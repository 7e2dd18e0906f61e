package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

type alertServiceMock struct {
	lastID  string
	lastReq dto.AlertRequest
	resp    *dto.AlertResponse
	log     *dto.NotificationLogResponse
	err     error
}

func (m *alertServiceMock) Send(_ context.Context, id string, req dto.AlertRequest) (*dto.AlertResponse, error) {
	m.lastID, m.lastReq = id, req
	return m.resp, m.err
}

func (m *alertServiceMock) Log(_ context.Context, id string) (*dto.NotificationLogResponse, error) {
	m.lastID = id
	return m.log, m.err
}

func TestAlertHandlerSend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &alertServiceMock{resp: &dto.AlertResponse{Sent: true, Students: 2}}
	handler := NewAlertHandler(mockSvc)

	payload, _ := json.Marshal(dto.AlertRequest{
		CoordinatorEmail: "coord@example.edu",
		Filters:          dto.SummaryQuery{Course: "Course: Biology", Events: []string{"Page viewed"}},
	})
	c, w := newGinContext(http.MethodPost, "/sessions/sess-1/alerts", payload)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Send(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-1", mockSvc.lastID)
	assert.Equal(t, "coord@example.edu", mockSvc.lastReq.CoordinatorEmail)
	assert.Equal(t, []string{"Page viewed"}, mockSvc.lastReq.Filters.Events)

	var resp dto.AlertResponse
	decodeEnvelope(t, w, &resp)
	assert.True(t, resp.Sent)
	assert.Equal(t, 2, resp.Students)
}

func TestAlertHandlerRejectsMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAlertHandler(&alertServiceMock{})

	c, w := newGinContext(http.MethodPost, "/sessions/sess-1/alerts", []byte("{"))
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Send(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertHandlerTransportFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAlertHandler(&alertServiceMock{err: appErrors.Clone(appErrors.ErrTransportAuth, "")})

	payload, _ := json.Marshal(dto.AlertRequest{CoordinatorEmail: "coord@example.edu"})
	c, w := newGinContext(http.MethodPost, "/sessions/sess-1/alerts", payload)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Send(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
	env := decodeEnvelope(t, w, nil)
	assert.Equal(t, appErrors.ErrTransportAuth.Code, env.Error.Code)
}

func TestAlertHandlerLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &alertServiceMock{log: &dto.NotificationLogResponse{SessionID: "sess-1", Lines: []string{"09:30 – mail sent (2 students)"}}}
	handler := NewAlertHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/sessions/sess-1/alerts", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Log(c)
	require.Equal(t, http.StatusOK, w.Code)

	var log dto.NotificationLogResponse
	decodeEnvelope(t, w, &log)
	assert.Equal(t, []string{"09:30 – mail sent (2 students)"}, log.Lines)
}
