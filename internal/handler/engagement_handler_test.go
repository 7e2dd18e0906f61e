package handler

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	"github.com/noah-isme/moodle-engagement-api/internal/engagement"
	"github.com/noah-isme/moodle-engagement-api/internal/models"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

type engagementServiceMock struct {
	uploadName string
	uploadBody string
	info       *models.SessionInfo
	summary    *dto.SummaryResponse
	charts     *engagement.Charts
	detail     *engagement.StudentDetail
	lastQuery  dto.SummaryQuery
	lastName   string
	deleted    string
	export     []byte
	err        error
}

func (m *engagementServiceMock) Upload(_ context.Context, fileName string, r io.Reader) (*models.SessionInfo, error) {
	body, _ := io.ReadAll(r)
	m.uploadName, m.uploadBody = fileName, string(body)
	return m.info, m.err
}

func (m *engagementServiceMock) Session(context.Context, string) (*models.SessionInfo, error) {
	return m.info, m.err
}

func (m *engagementServiceMock) DeleteSession(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

func (m *engagementServiceMock) Summary(_ context.Context, _ string, q dto.SummaryQuery) (*dto.SummaryResponse, error) {
	m.lastQuery = q
	return m.summary, m.err
}

func (m *engagementServiceMock) Charts(_ context.Context, _ string, q dto.SummaryQuery) (*engagement.Charts, error) {
	m.lastQuery = q
	return m.charts, m.err
}

func (m *engagementServiceMock) StudentDetail(_ context.Context, _ string, name string, q dto.SummaryQuery) (*engagement.StudentDetail, error) {
	m.lastQuery, m.lastName = q, name
	return m.detail, m.err
}

func (m *engagementServiceMock) ExportCSV(_ context.Context, _ string, q dto.SummaryQuery) ([]byte, string, error) {
	m.lastQuery = q
	return m.export, "engagement_summary_20240321_1200.csv", m.err
}

func (m *engagementServiceMock) ExportPDF(_ context.Context, _ string, q dto.SummaryQuery) ([]byte, string, error) {
	m.lastQuery = q
	return m.export, "engagement_summary_20240321_1200.pdf", m.err
}

func TestEngagementHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &engagementServiceMock{info: &models.SessionInfo{ID: "sess-1", Rows: 8}}
	handler := NewEngagementHandler(mockSvc, 1<<20)

	body, contentType := multipartBody(t, "file", "logs.csv", []byte("Time,User full name\n"))
	c, w := newGinContext(http.MethodPost, "/sessions", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)

	handler.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "logs.csv", mockSvc.uploadName)
	assert.Equal(t, "Time,User full name\n", mockSvc.uploadBody)

	var info models.SessionInfo
	decodeEnvelope(t, w, &info)
	assert.Equal(t, "sess-1", info.ID)
	assert.Equal(t, 8, info.Rows)
}

func TestEngagementHandlerUploadRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEngagementHandler(&engagementServiceMock{}, 1<<20)

	body, contentType := multipartBody(t, "attachment", "logs.csv", []byte("x"))
	c, w := newGinContext(http.MethodPost, "/sessions", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestEngagementHandlerUploadSchemaError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &engagementServiceMock{err: appErrors.Clone(appErrors.ErrSchema, "missing columns: Origin")}
	handler := NewEngagementHandler(mockSvc, 0)

	body, contentType := multipartBody(t, "file", "logs.csv", []byte("Time\n"))
	c, w := newGinContext(http.MethodPost, "/sessions", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)

	handler.Upload(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeEnvelope(t, w, nil)
	assert.Equal(t, "missing columns: Origin", env.Error.Message)
}

func TestEngagementHandlerSummaryBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &engagementServiceMock{summary: &dto.SummaryResponse{KPIs: engagement.KPIs{Students: 3}}}
	handler := NewEngagementHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodGet,
		"/sessions/sess-1/summary?course=Course:+Biology&events=Page+viewed&events=Quiz+attempted&from=2024-03-01&lookback_days=5&risk_days=21&search=ana", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.SummaryQuery{
		Course:       "Course: Biology",
		Events:       []string{"Page viewed", "Quiz attempted"},
		From:         "2024-03-01",
		LookbackDays: 5,
		RiskDays:     21,
		Search:       "ana",
	}, mockSvc.lastQuery)

	var summary dto.SummaryResponse
	decodeEnvelope(t, w, &summary)
	assert.Equal(t, 3, summary.KPIs.Students)
}

func TestEngagementHandlerSummaryRejectsMalformedQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEngagementHandler(&engagementServiceMock{}, 0)

	c, w := newGinContext(http.MethodGet, "/sessions/sess-1/summary?lookback_days=seven", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Summary(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEngagementHandlerEmptyResult(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEngagementHandler(&engagementServiceMock{err: appErrors.ErrEmptyResult}, 0)

	c, w := newGinContext(http.MethodGet, "/sessions/sess-1/charts", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Charts(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeEnvelope(t, w, nil)
	assert.Equal(t, appErrors.ErrEmptyResult.Message, env.Error.Message)
}

func TestEngagementHandlerStudentDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &engagementServiceMock{detail: &engagement.StudentDetail{LookbackDays: 7}}
	handler := NewEngagementHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodGet, "/sessions/sess-1/students/Carla%20Dias", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}, {Key: "name", Value: "Carla Dias"}}

	handler.StudentDetail(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Carla Dias", mockSvc.lastName)
}

func TestEngagementHandlerExports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &engagementServiceMock{export: []byte("User full name\nAna Lima\n")}
	handler := NewEngagementHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodGet, "/sessions/sess-1/summary.csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	handler.ExportCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="engagement_summary_20240321_1200.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "User full name\nAna Lima\n", w.Body.String())

	c, w = newGinContext(http.MethodGet, "/sessions/sess-1/report.pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	handler.ExportPDF(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestEngagementHandlerSessionLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &engagementServiceMock{info: &models.SessionInfo{ID: "sess-1"}}
	handler := NewEngagementHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodGet, "/sessions/sess-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	handler.Session(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodDelete, "/sessions/sess-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	handler.DeleteSession(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "sess-1", mockSvc.deleted)

	mockSvc.err = appErrors.Clone(appErrors.ErrNotFound, "session sess-1 not found or expired")
	c, w = newGinContext(http.MethodGet, "/sessions/sess-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	handler.Session(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
