package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	"github.com/noah-isme/moodle-engagement-api/internal/engagement"
	"github.com/noah-isme/moodle-engagement-api/internal/models"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
	"github.com/noah-isme/moodle-engagement-api/pkg/mailer"
)

const credentialsWarning = "Non-ASCII characters were removed from SMTP credentials before sending."

type engagementEvaluator interface {
	Evaluate(ctx context.Context, id string, q dto.SummaryQuery) (*models.Session, *engagement.Result, error)
}

// AlertService e-mails the AT_RISK students of a pass to a coordinator.
type AlertService struct {
	evaluator engagementEvaluator
	sessions  sessionStore
	sender    mailer.Sender
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	from      string

	// logMu serialises the read-append-save of notification logs.
	logMu sync.Mutex
}

// NewAlertService constructs the service. from may be empty, in which case the
// coordinator address is used as sender.
func NewAlertService(evaluator engagementEvaluator, sessions sessionStore, sender mailer.Sender, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, from string) *AlertService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{
		evaluator: evaluator,
		sessions:  sessions,
		sender:    sender,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		from:      from,
	}
}

// Send composes and delivers one alert. Nothing-to-send is reported in the
// response rather than as an error; transport failures are returned as-is and
// leave the notification log untouched.
func (s *AlertService) Send(ctx context.Context, id string, req dto.AlertRequest) (*dto.AlertResponse, error) {
	session, result, err := s.evaluator.Evaluate(ctx, id, req.Filters)
	if err != nil {
		return nil, err
	}

	atRisk := engagement.AtRisk(result.Summaries)
	msg, err := engagement.ComposeAlert(atRisk, req.CoordinatorEmail, s.from, result.Now)
	if err != nil {
		if errors.Is(err, appErrors.ErrNothingToSend) {
			s.metrics.ObserveAlert("nothing_to_send")
			return &dto.AlertResponse{
				Sent:    false,
				Message: appErrors.ErrNothingToSend.Message,
				Log:     session.NotificationLines(),
			}, nil
		}
		s.metrics.ObserveAlert("invalid")
		return nil, err
	}
	if err := s.validator.Var(msg.To, "email"); err != nil {
		s.metrics.ObserveAlert("invalid")
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%q is not a valid e-mail address", msg.To))
	}
	if s.sender == nil {
		s.metrics.ObserveAlert("unconfigured")
		return nil, appErrors.Clone(appErrors.ErrUnsupportedConfig, "no mail transport configured")
	}

	warning := ""
	if reporter, ok := s.sender.(mailer.CredentialReporter); ok && reporter.CredentialsAltered() {
		warning = credentialsWarning
		s.logger.Warn(credentialsWarning, zap.String("session_id", id))
	}

	err = s.sender.Send(ctx, mailer.Message{From: msg.From, To: msg.To, Subject: msg.Subject, Body: msg.Body})
	if err != nil {
		appErr := appErrors.FromError(err)
		s.metrics.ObserveAlert(appErr.Code)
		s.logger.Warn("alert delivery failed",
			zap.String("session_id", id),
			zap.String("recipient", msg.To),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.ObserveAlert("sent")

	entry := models.NotificationEntry{SentAt: result.Now, Recipient: msg.To, Students: msg.Students}
	log, err := s.record(ctx, id, entry)
	if err != nil {
		s.logger.Error("alert sent but notification log not saved", zap.String("session_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "mail sent but the notification log could not be saved")
	}
	s.logger.Info("alert sent",
		zap.String("session_id", id),
		zap.String("recipient", msg.To),
		zap.Int("students", msg.Students),
	)

	lines := make([]string, 0, len(log))
	for _, e := range log {
		lines = append(lines, e.String())
	}
	return &dto.AlertResponse{
		Sent:               true,
		Recipient:          msg.To,
		Students:           msg.Students,
		Subject:            msg.Subject,
		Message:            fmt.Sprintf("Mail sent to %s", msg.To),
		CredentialsWarning: warning,
		Log:                lines,
	}, nil
}

// Log returns the notification log of a session.
func (s *AlertService) Log(ctx context.Context, id string) (*dto.NotificationLogResponse, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries := session.NotificationLog
	if entries == nil {
		entries = []models.NotificationEntry{}
	}
	return &dto.NotificationLogResponse{SessionID: id, Entries: entries, Lines: session.NotificationLines()}, nil
}

// record reloads the session so concurrent sends do not overwrite each other.
func (s *AlertService) record(ctx context.Context, id string, entry models.NotificationEntry) ([]models.NotificationEntry, error) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	session.NotificationLog = AppendNotification(session.NotificationLog, entry)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session.NotificationLog, nil
}

// AppendNotification returns a new log with entry added; log itself is not modified.
func AppendNotification(log []models.NotificationEntry, entry models.NotificationEntry) []models.NotificationEntry {
	out := make([]models.NotificationEntry, 0, len(log)+1)
	out = append(out, log...)
	return append(out, entry)
}
