package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	"github.com/noah-isme/moodle-engagement-api/internal/engagement"
	"github.com/noah-isme/moodle-engagement-api/internal/models"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
	"github.com/noah-isme/moodle-engagement-api/pkg/export"
)

type sessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// EngagementConfig carries the pipeline defaults.
type EngagementConfig struct {
	Location         *time.Location
	LookbackDays     int
	RiskInactiveDays int
	ExcludedOrigins  []string
	MaxUploadBytes   int64
}

// EngagementService runs one full pipeline pass per request over a stored session.
type EngagementService struct {
	sessions  sessionStore
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       EngagementConfig
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	now       func() time.Time
}

// NewEngagementService constructs the service.
func NewEngagementService(sessions sessionStore, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg EngagementConfig) *EngagementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = engagement.DefaultLookbackDays
	}
	if cfg.RiskInactiveDays <= 0 {
		cfg.RiskInactiveDays = engagement.DefaultRiskInactiveDays
	}
	if cfg.ExcludedOrigins == nil {
		cfg.ExcludedOrigins = engagement.DefaultExcludedOrigins
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	return &EngagementService{
		sessions:  sessions,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		now:       time.Now,
	}
}

// Upload normalizes a Moodle log export and opens a session for it.
func (s *EngagementService) Upload(ctx context.Context, fileName string, r io.Reader) (*models.SessionInfo, error) {
	raw, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		s.metrics.ObserveUpload("error", 0)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read uploaded file")
	}
	if int64(len(raw)) > s.cfg.MaxUploadBytes {
		s.metrics.ObserveUpload("too_large", 0)
		return nil, appErrors.Clone(appErrors.ErrTooLarge, fmt.Sprintf("uploaded file exceeds %d bytes", s.cfg.MaxUploadBytes))
	}

	table, err := engagement.Normalize(bytes.NewReader(raw), s.cfg.Location)
	if err != nil {
		s.metrics.ObserveUpload("schema_error", 0)
		s.logger.Warn("rejected activity log", zap.String("file", fileName), zap.Error(err))
		return nil, err
	}
	if table.Len() == 0 {
		s.metrics.ObserveUpload("empty", table.Dropped)
		return nil, appErrors.Clone(appErrors.ErrEmptyResult, "The uploaded log has no rows with a readable Time value.")
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		CreatedAt: s.now().In(s.cfg.Location),
		Table:     table,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.metrics.ObserveUpload("error", table.Dropped)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}
	s.metrics.ObserveUpload("ok", table.Dropped)
	s.logger.Info("activity log uploaded",
		zap.String("session_id", session.ID),
		zap.String("file", fileName),
		zap.Int("rows", table.Len()),
		zap.Int("dropped_rows", table.Dropped),
	)
	info := session.Info()
	return &info, nil
}

// Session returns session metadata and filter options.
func (s *EngagementService) Session(ctx context.Context, id string) (*models.SessionInfo, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	info := session.Info()
	return &info, nil
}

// DeleteSession discards an uploaded log.
func (s *EngagementService) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

// Evaluate loads the session and runs one pass with q applied over its defaults.
func (s *EngagementService) Evaluate(ctx context.Context, id string, q dto.SummaryQuery) (*models.Session, *engagement.Result, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	params, err := s.params(session, q)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().In(s.cfg.Location)
	start := time.Now()
	result, err := engagement.Run(session.Table, params, now)
	if err != nil {
		outcome := "error"
		if errors.Is(err, appErrors.ErrEmptyResult) {
			outcome = "empty"
		}
		s.metrics.ObservePipeline(outcome, time.Since(start), nil)
		return nil, nil, err
	}
	s.metrics.ObservePipeline("ok", time.Since(start), result.Summaries)
	s.logger.Debug("pipeline pass",
		zap.String("session_id", id),
		zap.Int("events", result.Filtered.Len()),
		zap.Int("students", len(result.Summaries)),
		zap.Duration("duration", time.Since(start)),
	)
	return session, result, nil
}

// Summary computes the engagement table tab.
func (s *EngagementService) Summary(ctx context.Context, id string, q dto.SummaryQuery) (*dto.SummaryResponse, error) {
	_, result, err := s.Evaluate(ctx, id, q)
	if err != nil {
		return nil, err
	}
	return &dto.SummaryResponse{
		GeneratedAt: result.Now,
		Params:      result.Params,
		KPIs:        engagement.BuildKPIs(result),
		Students:    result.Summaries,
		AtRisk:      engagement.BuildAtRiskCards(result),
	}, nil
}

// Charts computes the visualisation tab.
func (s *EngagementService) Charts(ctx context.Context, id string, q dto.SummaryQuery) (*engagement.Charts, error) {
	_, result, err := s.Evaluate(ctx, id, q)
	if err != nil {
		return nil, err
	}
	charts := engagement.BuildCharts(result)
	return &charts, nil
}

// StudentDetail computes the drill-down for one student.
func (s *EngagementService) StudentDetail(ctx context.Context, id, name string, q dto.SummaryQuery) (*engagement.StudentDetail, error) {
	_, result, err := s.Evaluate(ctx, id, q)
	if err != nil {
		return nil, err
	}
	detail, ok := engagement.BuildStudentDetail(result, name)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %q is not part of the current selection", name))
	}
	return detail, nil
}

// ExportCSV renders the summary table as CSV.
func (s *EngagementService) ExportCSV(ctx context.Context, id string, q dto.SummaryQuery) ([]byte, string, error) {
	_, result, err := s.Evaluate(ctx, id, q)
	if err != nil {
		return nil, "", err
	}
	out, err := s.csv.Render(engagement.SummaryDataset(result.Summaries, s.cfg.Location))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return out, exportName(result.Now, "csv"), nil
}

// ExportPDF renders the summary table as a PDF report.
func (s *EngagementService) ExportPDF(ctx context.Context, id string, q dto.SummaryQuery) ([]byte, string, error) {
	session, result, err := s.Evaluate(ctx, id, q)
	if err != nil {
		return nil, "", err
	}
	kpis := engagement.BuildKPIs(result)
	doc := export.Document{
		Title: "Moodle engagement summary",
		Lines: []string{
			fmt.Sprintf("Source: %s", session.FileName),
			fmt.Sprintf("Generated: %s", result.Now.Format("2006-01-02 15:04")),
			fmt.Sprintf("Lookback: %d days, risk threshold: %d days", result.Params.LookbackDays, result.Params.RiskInactiveDays),
			fmt.Sprintf("Students: %d  At risk: %d  Warning: %d  Active: %d", kpis.Students, kpis.AtRisk, kpis.Warning, kpis.Active),
		},
		Data:    engagement.SummaryDataset(result.Summaries, s.cfg.Location),
		Weights: []float64{3.2, 2.2, 1, 1, 1.1, 1.1, 1.1, 1.1, 1},
	}
	out, err := s.pdf.Render(doc)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return out, exportName(result.Now, "pdf"), nil
}

func (s *EngagementService) load(ctx context.Context, id string) (*models.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// params layers q over the session defaults.
func (s *EngagementService) params(session *models.Session, q dto.SummaryQuery) (engagement.Params, error) {
	if err := s.validator.Struct(q); err != nil {
		return engagement.Params{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}

	opts := engagement.BuildOptions(session.Table)
	params := opts.DefaultParams()
	params.LookbackDays = s.cfg.LookbackDays
	params.RiskInactiveDays = s.cfg.RiskInactiveDays
	params.ExcludedOrigins = s.cfg.ExcludedOrigins

	if v := strings.TrimSpace(q.Course); v != "" {
		params.Course = v
	}
	if v := strings.TrimSpace(q.Origin); v != "" {
		params.Origin = v
	}
	if events := cleanList(q.Events); len(events) > 0 {
		params.Events = events
		for _, e := range events {
			if e == engagement.AllSentinel {
				params.Events = nil
				break
			}
		}
	}
	if q.From != "" {
		from, err := engagement.ParseDate(q.From)
		if err != nil {
			return engagement.Params{}, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		params.From = from
	}
	if q.To != "" {
		to, err := engagement.ParseDate(q.To)
		if err != nil {
			return engagement.Params{}, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		params.To = to
	}
	if !params.From.IsZero() && !params.To.IsZero() && params.To.Before(params.From) {
		return engagement.Params{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if q.LookbackDays > 0 {
		params.LookbackDays = q.LookbackDays
	}
	if q.RiskDays > 0 {
		params.RiskInactiveDays = q.RiskDays
	}
	params.Search = strings.TrimSpace(q.Search)
	return params, nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return appErrors.ErrValidation.Message
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return "invalid parameters: " + strings.Join(fields, ", ")
}

func exportName(now time.Time, ext string) string {
	return fmt.Sprintf("engagement_summary_%s.%s", now.Format("20060102_1504"), ext)
}
