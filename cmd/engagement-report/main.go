package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/moodle-engagement-api/internal/dto"
	"github.com/noah-isme/moodle-engagement-api/internal/repository"
	"github.com/noah-isme/moodle-engagement-api/internal/service"
	"github.com/noah-isme/moodle-engagement-api/pkg/config"
	"github.com/noah-isme/moodle-engagement-api/pkg/logger"
	"github.com/noah-isme/moodle-engagement-api/pkg/mailer"
	"github.com/noah-isme/moodle-engagement-api/pkg/storage"
)

func main() {
	var (
		input   string
		outDir  string
		formats string
		alertTo string
		prune   time.Duration
		q       dto.SummaryQuery
		events  string
	)

	flag.StringVar(&input, "file", "", "Moodle activity log export (CSV)")
	flag.StringVar(&outDir, "out", ".", "Directory for generated reports")
	flag.StringVar(&formats, "formats", "csv,pdf", "Comma separated report formats (csv, pdf)")
	flag.DurationVar(&prune, "prune", 0, "Remove reports in -out older than this age (0 keeps all)")
	flag.StringVar(&alertTo, "alert", "", "Coordinator e-mail to notify about at-risk students")
	flag.StringVar(&q.Course, "course", "", "Event context filter, or (All)")
	flag.StringVar(&q.Origin, "origin", "", "Origin filter, or (All)")
	flag.StringVar(&events, "events", "", "Comma separated event names, or (All)")
	flag.StringVar(&q.From, "from", "", "Start date (YYYY-MM-DD)")
	flag.StringVar(&q.To, "to", "", "End date (YYYY-MM-DD)")
	flag.IntVar(&q.LookbackDays, "lookback", 0, "Active-days window in days")
	flag.IntVar(&q.RiskDays, "risk", 0, "Inactivity threshold for At Risk in days")
	flag.StringVar(&q.Search, "search", "", "Case-insensitive name filter")
	flag.Parse()

	if input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if events != "" {
		q.Events = []string{events}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	sessions := repository.NewMemorySessionStore(0)
	validate := validator.New()
	svc := service.NewEngagementService(sessions, validate, nil, logr, service.EngagementConfig{
		Location:         cfg.Location(),
		LookbackDays:     cfg.Engagement.LookbackDays,
		RiskInactiveDays: cfg.Engagement.RiskInactiveDays,
		ExcludedOrigins:  cfg.Engagement.ExcludedOrigins,
		MaxUploadBytes:   cfg.Upload.MaxBytes,
	})

	f, err := os.Open(input)
	if err != nil {
		log.Fatalf("open %s: %v", input, err)
	}
	info, err := svc.Upload(ctx, filepath.Base(input), f)
	f.Close()
	if err != nil {
		log.Fatalf("read %s: %v", input, err)
	}

	summary, err := svc.Summary(ctx, info.ID, q)
	if err != nil {
		log.Fatalf("summary: %v", err)
	}

	fmt.Printf("%s: %d rows (%d dropped), generated %s\n",
		info.FileName, info.Rows, info.DroppedRows, summary.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Students %d  Events %d  At risk %d  Warning %d  Active %d\n\n",
		summary.KPIs.Students, summary.KPIs.Events, summary.KPIs.AtRisk, summary.KPIs.Warning, summary.KPIs.Active)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tSTATUS\tINACTIVE\tACTIVE\tEVENTS")
	for _, s := range summary.Students {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", s.UserFullName, s.Status.Label(), s.InactiveDays, s.ActiveDays, s.TotalEvents)
	}
	tw.Flush()

	reports, err := storage.NewReportDir(outDir)
	if err != nil {
		log.Fatalf("reports directory: %v", err)
	}
	if prune > 0 {
		removed, err := reports.Prune(prune)
		if err != nil {
			log.Fatalf("prune reports: %v", err)
		}
		for _, name := range removed {
			fmt.Printf("removed %s\n", name)
		}
	}

	for _, format := range strings.Split(formats, ",") {
		var (
			body []byte
			name string
		)
		switch strings.ToLower(strings.TrimSpace(format)) {
		case "":
			continue
		case "csv":
			body, name, err = svc.ExportCSV(ctx, info.ID, q)
		case "pdf":
			body, name, err = svc.ExportPDF(ctx, info.ID, q)
		default:
			log.Fatalf("unknown report format %q", format)
		}
		if err != nil {
			log.Fatalf("render %s: %v", format, err)
		}
		path, err := reports.Save(name, body)
		if err != nil {
			log.Fatalf("write %s: %v", name, err)
		}
		fmt.Printf("wrote %s\n", path)
	}

	if alertTo == "" {
		return
	}
	sender, err := mailer.New(cfg.Mail, logr)
	if err != nil {
		log.Fatalf("mail transport: %v", err)
	}
	from := cfg.Mail.From
	if from == "" {
		from = cfg.Mail.SMTPUser
	}
	alerts := service.NewAlertService(svc, sessions, sender, validate, nil, logr, from)
	resp, err := alerts.Send(ctx, info.ID, dto.AlertRequest{CoordinatorEmail: alertTo, Filters: q})
	if err != nil {
		log.Fatalf("alert: %v", err)
	}
	if resp.CredentialsWarning != "" {
		fmt.Println(resp.CredentialsWarning)
	}
	fmt.Println(resp.Message)
}
