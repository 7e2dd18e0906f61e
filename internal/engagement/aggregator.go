package engagement

import (
	"sort"
	"time"
)

// Lookback window bounds in days.
const (
	DefaultLookbackDays = 7
	MinLookbackDays     = 3
	MaxLookbackDays     = 30
)

// CourseViewedEvent is counted on its own as course_views.
const CourseViewedEvent = "Course viewed"

// ContentViewEvents are passive viewing events.
var ContentViewEvents = map[string]struct{}{
	"Section viewed":       {},
	"Page viewed":          {},
	"Resource viewed":      {},
	"URL viewed":           {},
	"File viewed":          {},
	"Course module viewed": {},
}

// SubmissionEvents are active participation events.
var SubmissionEvents = map[string]struct{}{
	"Assignment submitted":      {},
	"Quiz attempted":            {},
	"Quiz submission submitted": {},
	"Post created":              {},
}

// StudentSummary holds the engagement metrics of one student.
type StudentSummary struct {
	UserFullName string    `json:"user_full_name"`
	LastAccess   time.Time `json:"last_access"`
	TotalEvents  int       `json:"total_events"`
	ActiveDays   int       `json:"active_days"`
	ContentViews int       `json:"content_views"`
	CourseViews  int       `json:"course_views"`
	Submissions  int       `json:"submissions"`
	InactiveDays int       `json:"inactive_days"`
	Status       Status    `json:"status"`
}

type studentAccumulator struct {
	summary StudentSummary
	days    map[Date]struct{}
}

// Aggregate groups events by student full name. active_days counts the distinct
// dates after now's date minus lookbackDays. Dates past now are counted as they
// are, so only logs without future timestamps are bounded by lookbackDays.
// inactive_days is the calendar distance from the last access to now's date. Students come back in ascending name order with Status unset.
func Aggregate(events []Event, now time.Time, lookbackDays int) []StudentSummary {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	today := DateOf(now)
	windowStart := today.AddDays(-lookbackDays)

	groups := make(map[string]*studentAccumulator)
	for _, e := range events {
		if e.UserFullName == "" {
			continue
		}
		acc, ok := groups[e.UserFullName]
		if !ok {
			acc = &studentAccumulator{
				summary: StudentSummary{UserFullName: e.UserFullName, LastAccess: e.Time},
				days:    make(map[Date]struct{}),
			}
			groups[e.UserFullName] = acc
		}
		s := &acc.summary
		s.TotalEvents++
		if e.Time.After(s.LastAccess) {
			s.LastAccess = e.Time
		}
		if e.Date.After(windowStart) {
			acc.days[e.Date] = struct{}{}
		}
		if _, ok := ContentViewEvents[e.EventName]; ok {
			s.ContentViews++
		}
		if e.EventName == CourseViewedEvent {
			s.CourseViews++
		}
		if _, ok := SubmissionEvents[e.EventName]; ok {
			s.Submissions++
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]StudentSummary, 0, len(names))
	for _, name := range names {
		acc := groups[name]
		s := acc.summary
		s.ActiveDays = len(acc.days)
		s.InactiveDays = today.DaysSince(DateOf(s.LastAccess.In(now.Location())))
		summaries = append(summaries, s)
	}
	return summaries
}
