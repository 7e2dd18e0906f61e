package engagement

import "sort"

// fallbackEventCount is how many event names are preselected when none of the
// curated defaults occur in the log.
const fallbackEventCount = 8

// CuratedEvents is the default engagement selection, in display order.
var CuratedEvents = []string{
	"Course viewed",
	"Section viewed",
	"Page viewed",
	"Resource viewed",
	"URL viewed",
	"File viewed",
	"Assignment viewed",
	"Assignment submitted",
	"Quiz attempted",
	"Quiz submission submitted",
	"Forum discussion viewed",
	"Post created",
	"Course module viewed",
}

// Range describes a bounded integer control.
type Range struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// Options lists the values a client can pick for each filter control.
type Options struct {
	Courses       []string `json:"courses"`
	Origins       []string `json:"origins"`
	DefaultOrigin string   `json:"default_origin"`
	Events        []string `json:"events"`
	DefaultEvents []string `json:"default_events"`
	From          Date     `json:"from"`
	To            Date     `json:"to"`
	LookbackDays  Range    `json:"lookback_days"`
	RiskThreshold Range    `json:"risk_inactive_days"`
}

// BuildOptions derives the filter controls from a normalized table.
func BuildOptions(t *Table) Options {
	courses := map[string]struct{}{}
	origins := map[string]struct{}{}
	events := map[string]struct{}{}
	for _, e := range t.tableEvents() {
		if e.Context != "" {
			courses[e.Context] = struct{}{}
		}
		origins[originLabel(e.Origin)] = struct{}{}
		if e.EventName != "" {
			events[e.EventName] = struct{}{}
		}
	}

	opts := Options{
		Courses:       append([]string{AllSentinel}, sortedKeys(courses)...),
		Origins:       append([]string{AllSentinel}, sortedKeys(origins)...),
		DefaultOrigin: AllSentinel,
		Events:        sortedKeys(events),
		LookbackDays:  Range{Min: MinLookbackDays, Max: MaxLookbackDays, Default: DefaultLookbackDays},
		RiskThreshold: Range{Min: MinRiskInactiveDays, Max: MaxRiskInactiveDays, Default: DefaultRiskInactiveDays},
	}
	if _, ok := origins["web"]; ok {
		opts.DefaultOrigin = "web"
	}
	opts.DefaultEvents = DefaultEvents(opts.Events)
	opts.From, opts.To = t.Span()
	return opts
}

// DefaultEvents intersects the curated list with available, falling back to the
// first few available names when nothing curated is present.
func DefaultEvents(available []string) []string {
	present := toSet(available)
	selected := make([]string, 0, len(CuratedEvents))
	for _, name := range CuratedEvents {
		if _, ok := present[name]; ok {
			selected = append(selected, name)
		}
	}
	if len(selected) > 0 {
		return selected
	}
	n := fallbackEventCount
	if len(available) < n {
		n = len(available)
	}
	return append([]string{}, available[:n]...)
}

// DefaultParams returns the parameters a fresh dashboard starts with.
func (o Options) DefaultParams() Params {
	return Params{
		Criteria: Criteria{
			Course: AllSentinel,
			Origin: o.DefaultOrigin,
			Events: append([]string{}, o.DefaultEvents...),
			From:   o.From,
			To:     o.To,
		},
		LookbackDays:     o.LookbackDays.Default,
		RiskInactiveDays: o.RiskThreshold.Default,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
