package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
	"github.com/noah-isme/moodle-engagement-api/pkg/response"
)

type alertService interface {
	Send(ctx context.Context, id string, req dto.AlertRequest) (*dto.AlertResponse, error)
	Log(ctx context.Context, id string) (*dto.NotificationLogResponse, error)
}

// AlertHandler exposes coordinator notification endpoints.
type AlertHandler struct {
	alerts alertService
}

// NewAlertHandler constructs handler.
func NewAlertHandler(alerts alertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Send godoc
// @Summary E-mail the at-risk list to a coordinator
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.AlertRequest true "Recipient and filters"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sessions/{id}/alerts [post]
func (h *AlertHandler) Send(c *gin.Context) {
	var req dto.AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alert payload"))
		return
	}
	resp, err := h.alerts.Send(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Log godoc
// @Summary Notification log of a session
// @Tags Alerts
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/alerts [get]
func (h *AlertHandler) Log(c *gin.Context) {
	log, err := h.alerts.Log(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log)
}
