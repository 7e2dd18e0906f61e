package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	"github.com/noah-isme/moodle-engagement-api/internal/engagement"
	"github.com/noah-isme/moodle-engagement-api/internal/models"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
	"github.com/noah-isme/moodle-engagement-api/pkg/response"
)

// multipartSlack covers boundaries and part headers around the uploaded file.
const multipartSlack = 1 << 20

type engagementService interface {
	Upload(ctx context.Context, fileName string, r io.Reader) (*models.SessionInfo, error)
	Session(ctx context.Context, id string) (*models.SessionInfo, error)
	DeleteSession(ctx context.Context, id string) error
	Summary(ctx context.Context, id string, q dto.SummaryQuery) (*dto.SummaryResponse, error)
	Charts(ctx context.Context, id string, q dto.SummaryQuery) (*engagement.Charts, error)
	StudentDetail(ctx context.Context, id, name string, q dto.SummaryQuery) (*engagement.StudentDetail, error)
	ExportCSV(ctx context.Context, id string, q dto.SummaryQuery) ([]byte, string, error)
	ExportPDF(ctx context.Context, id string, q dto.SummaryQuery) ([]byte, string, error)
}

// EngagementHandler exposes upload, dashboard and export endpoints.
type EngagementHandler struct {
	engagement     engagementService
	maxUploadBytes int64
}

// NewEngagementHandler constructs handler.
func NewEngagementHandler(svc engagementService, maxUploadBytes int64) *EngagementHandler {
	return &EngagementHandler{engagement: svc, maxUploadBytes: maxUploadBytes}
}

// Upload godoc
// @Summary Upload a Moodle activity log
// @Tags Sessions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Moodle log export (CSV)"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions [post]
func (h *EngagementHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartSlack)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			response.Error(c, appErrors.Clone(appErrors.ErrTooLarge, "uploaded file is too large"))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart field \"file\" is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to open uploaded file"))
		return
	}
	defer file.Close()

	info, err := h.engagement.Upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, info)
}

// Session godoc
// @Summary Session info and filter options
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *EngagementHandler) Session(c *gin.Context) {
	info, err := h.engagement.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info)
}

// DeleteSession godoc
// @Summary Discard an uploaded log
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *EngagementHandler) DeleteSession(c *gin.Context) {
	if err := h.engagement.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Engagement table, KPIs and at-risk cards
// @Tags Engagement
// @Produce json
// @Param id path string true "Session ID"
// @Param course query string false "Course context or (All)"
// @Param origin query string false "Origin or (All)"
// @Param events query []string false "Event names, repeated or comma separated"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param lookback_days query int false "Active-days window (3-30)"
// @Param risk_days query int false "At-risk inactivity threshold (7-60)"
// @Param search query string false "Case-insensitive name filter"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id}/summary [get]
func (h *EngagementHandler) Summary(c *gin.Context) {
	q, ok := bindSummaryQuery(c)
	if !ok {
		return
	}
	summary, err := h.engagement.Summary(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Charts godoc
// @Summary Dashboard chart series
// @Tags Engagement
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/charts [get]
func (h *EngagementHandler) Charts(c *gin.Context) {
	q, ok := bindSummaryQuery(c)
	if !ok {
		return
	}
	charts, err := h.engagement.Charts(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, charts)
}

// StudentDetail godoc
// @Summary Drill-down for one student
// @Tags Engagement
// @Produce json
// @Param id path string true "Session ID"
// @Param name path string true "User full name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/students/{name} [get]
func (h *EngagementHandler) StudentDetail(c *gin.Context) {
	q, ok := bindSummaryQuery(c)
	if !ok {
		return
	}
	detail, err := h.engagement.StudentDetail(c.Request.Context(), c.Param("id"), c.Param("name"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// ExportCSV godoc
// @Summary Download the summary table as CSV
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Session ID"
// @Success 200 {file} file
// @Router /sessions/{id}/summary.csv [get]
func (h *EngagementHandler) ExportCSV(c *gin.Context) {
	q, ok := bindSummaryQuery(c)
	if !ok {
		return
	}
	body, name, err := h.engagement.ExportCSV(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "text/csv; charset=utf-8", name, body)
}

// ExportPDF godoc
// @Summary Download the summary report as PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Success 200 {file} file
// @Router /sessions/{id}/report.pdf [get]
func (h *EngagementHandler) ExportPDF(c *gin.Context) {
	q, ok := bindSummaryQuery(c)
	if !ok {
		return
	}
	body, name, err := h.engagement.ExportPDF(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "application/pdf", name, body)
}

func bindSummaryQuery(c *gin.Context) (dto.SummaryQuery, bool) {
	var q dto.SummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return q, false
	}
	return q, true
}
