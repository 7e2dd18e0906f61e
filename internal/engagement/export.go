package engagement

import (
	"strconv"
	"time"

	"github.com/noah-isme/moodle-engagement-api/pkg/export"
)

// LastAccessLayout formats last_access in exported summaries.
const LastAccessLayout = "2006-01-02 15:04:05"

// SummaryHeaders are the columns of the summary download.
var SummaryHeaders = []string{
	ColumnUser,
	"last_access",
	"total_events",
	"active_days",
	"content_views",
	"course_views",
	"submissions",
	"inactive_days",
	"status",
}

// SummaryDataset renders summaries in table order, timestamps in loc.
func SummaryDataset(summaries []StudentSummary, loc *time.Location) export.Dataset {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]map[string]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, map[string]string{
			ColumnUser:      s.UserFullName,
			"last_access":   s.LastAccess.In(loc).Format(LastAccessLayout),
			"total_events":  strconv.Itoa(s.TotalEvents),
			"active_days":   strconv.Itoa(s.ActiveDays),
			"content_views": strconv.Itoa(s.ContentViews),
			"course_views":  strconv.Itoa(s.CourseViews),
			"submissions":   strconv.Itoa(s.Submissions),
			"inactive_days": strconv.Itoa(s.InactiveDays),
			"status":        s.Status.Label(),
		})
	}
	return export.Dataset{Headers: append([]string{}, SummaryHeaders...), Rows: rows}
}
