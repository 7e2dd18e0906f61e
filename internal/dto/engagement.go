package dto

import (
	"time"

	"github.com/noah-isme/moodle-engagement-api/internal/engagement"
	"github.com/noah-isme/moodle-engagement-api/internal/models"
)

// SummaryQuery carries the dashboard controls. Zero values fall back to the
// session defaults.
type SummaryQuery struct {
	Course       string   `form:"course" json:"course"`
	Origin       string   `form:"origin" json:"origin"`
	Events       []string `form:"events" json:"events"`
	From         string   `form:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To           string   `form:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	LookbackDays int      `form:"lookback_days" json:"lookback_days" validate:"omitempty,min=3,max=30"`
	RiskDays     int      `form:"risk_days" json:"risk_days" validate:"omitempty,min=7,max=60"`
	Search       string   `form:"search" json:"search" validate:"max=200"`
}

// SummaryResponse is the engagement table tab.
type SummaryResponse struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	Params      engagement.Params           `json:"params"`
	KPIs        engagement.KPIs             `json:"kpis"`
	Students    []engagement.StudentSummary `json:"students"`
	AtRisk      []engagement.AtRiskCard     `json:"at_risk"`
}

// AlertRequest triggers a coordinator notification for the current filters.
type AlertRequest struct {
	CoordinatorEmail string       `json:"coordinator_email"`
	Filters          SummaryQuery `json:"filters"`
}

// AlertResponse reports the outcome of an alert request.
type AlertResponse struct {
	Sent               bool     `json:"sent"`
	Recipient          string   `json:"recipient,omitempty"`
	Students           int      `json:"students"`
	Subject            string   `json:"subject,omitempty"`
	Message            string   `json:"message"`
	CredentialsWarning string   `json:"credentials_warning,omitempty"`
	Log                []string `json:"log"`
}

// NotificationLogResponse lists the alerts sent from a session.
type NotificationLogResponse struct {
	SessionID string                     `json:"session_id"`
	Entries   []models.NotificationEntry `json:"entries"`
	Lines     []string                   `json:"lines"`
}
