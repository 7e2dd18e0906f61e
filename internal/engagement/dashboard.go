package engagement

import (
	"sort"
	"time"
)

// Chart and detail sizes.
const (
	TopInactiveLimit     = 30
	TopEventTypesLimit   = 15
	RecentEventsLimit    = 300
	StudentBreakdownSize = 20
)

// KPIs is the headline row of the dashboard.
type KPIs struct {
	Students int `json:"students"`
	Events   int `json:"events"`
	AtRisk   int `json:"at_risk"`
	Warning  int `json:"warning"`
	Active   int `json:"active"`
}

// BuildKPIs counts students per tier and the surviving events.
func BuildKPIs(r *Result) KPIs {
	k := KPIs{Students: len(r.Summaries), Events: r.Filtered.Len()}
	for _, s := range r.Summaries {
		switch s.Status {
		case StatusAtRisk:
			k.AtRisk++
		case StatusWarning:
			k.Warning++
		case StatusActive:
			k.Active++
		}
	}
	return k
}

// AtRiskCard is the compact view of a student who needs attention.
type AtRiskCard struct {
	UserFullName string    `json:"user_full_name"`
	InactiveDays int       `json:"inactive_days"`
	ActiveDays   int       `json:"active_days"`
	LookbackDays int       `json:"lookback_days"`
	ContentViews int       `json:"content_views"`
	Submissions  int       `json:"submissions"`
	LastAccess   time.Time `json:"last_access"`
}

// BuildAtRiskCards renders one card per AT_RISK student in table order.
func BuildAtRiskCards(r *Result) []AtRiskCard {
	atRisk := AtRisk(r.Summaries)
	cards := make([]AtRiskCard, 0, len(atRisk))
	for _, s := range atRisk {
		cards = append(cards, AtRiskCard{
			UserFullName: s.UserFullName,
			InactiveDays: s.InactiveDays,
			ActiveDays:   s.ActiveDays,
			LookbackDays: r.Params.LookbackDays,
			ContentViews: s.ContentViews,
			Submissions:  s.Submissions,
			LastAccess:   s.LastAccess,
		})
	}
	return cards
}

// DailyCount is one point of the events-over-time series.
type DailyCount struct {
	Date   Date `json:"date"`
	Events int  `json:"events"`
}

// NameCount pairs an event name with its frequency.
type NameCount struct {
	EventName string `json:"event_name"`
	Count     int    `json:"count"`
}

// Charts holds the chart-ready series of the visualisation tab.
type Charts struct {
	TopInactive   []StudentSummary `json:"top_inactive"`
	EventsPerDay  []DailyCount     `json:"events_per_day"`
	TopEventTypes []NameCount      `json:"top_event_types"`
}

// BuildCharts derives every chart series from one pass result.
func BuildCharts(r *Result) Charts {
	return Charts{
		TopInactive:   TopInactive(r.Summaries, TopInactiveLimit),
		EventsPerDay:  EventsPerDay(r.Filtered.tableEvents()),
		TopEventTypes: CountEventNames(r.Filtered.tableEvents(), TopEventTypesLimit),
	}
}

// TopInactive returns up to limit students with the most inactive days.
func TopInactive(summaries []StudentSummary, limit int) []StudentSummary {
	out := append([]StudentSummary{}, summaries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].InactiveDays > out[j].InactiveDays })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// EventsPerDay counts events per calendar date in ascending date order.
func EventsPerDay(events []Event) []DailyCount {
	counts := make(map[Date]int)
	for _, e := range events {
		counts[e.Date]++
	}
	out := make([]DailyCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DailyCount{Date: d, Events: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CountEventNames ranks event names by frequency, ties broken by name.
func CountEventNames(events []Event, limit int) []NameCount {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.EventName]++
	}
	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{EventName: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].EventName < out[j].EventName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StudentDetail is the drill-down view of one student.
type StudentDetail struct {
	Summary      StudentSummary `json:"summary"`
	LookbackDays int            `json:"lookback_days"`
	RecentEvents []Event        `json:"recent_events"`
	Breakdown    []NameCount    `json:"breakdown"`
	HasIPAddress bool           `json:"has_ip_address"`
}

// BuildStudentDetail looks up name in the pass result. The boolean is false when
// the student is not part of the current summary.
func BuildStudentDetail(r *Result, name string) (*StudentDetail, bool) {
	var summary *StudentSummary
	for i := range r.Summaries {
		if r.Summaries[i].UserFullName == name {
			summary = &r.Summaries[i]
			break
		}
	}
	if summary == nil {
		return nil, false
	}

	events := make([]Event, 0)
	for _, e := range r.Filtered.tableEvents() {
		if e.UserFullName == name {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.After(events[j].Time) })

	recent := events
	if len(recent) > RecentEventsLimit {
		recent = recent[:RecentEventsLimit]
	}
	return &StudentDetail{
		Summary:      *summary,
		LookbackDays: r.Params.LookbackDays,
		RecentEvents: recent,
		Breakdown:    CountEventNames(events, StudentBreakdownSize),
		HasIPAddress: r.Filtered.HasColumn(ColumnIPAddress),
	}, true
}
