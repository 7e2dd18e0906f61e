package engagement

import (
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

// Selector sentinels shared with the filter controls.
const (
	AllSentinel = "(All)"
	BlankOrigin = "(blank)"
)

// DefaultExcludedOrigins lists origins written by batch jobs rather than students.
var DefaultExcludedOrigins = []string{"cli"}

// Criteria scopes the rows that count as engagement. Zero values mean "no restriction".
type Criteria struct {
	Course          string   `json:"course"`
	Origin          string   `json:"origin"`
	Events          []string `json:"events"`
	From            Date     `json:"from"`
	To              Date     `json:"to"`
	ExcludedOrigins []string `json:"excluded_origins"`
}

// Filter returns the events of t matching every criterion, in input order.
// A result with no rows is reported as an empty-result error.
func Filter(t *Table, c Criteria) (*Table, error) {
	eventSet := toSet(c.Events)
	excluded := toSet(c.ExcludedOrigins)

	out := &Table{Columns: t.tableColumns(), Dropped: t.droppedRows()}
	for _, e := range t.tableEvents() {
		if !c.matches(e, eventSet) {
			continue
		}
		if _, skip := excluded[e.Origin]; skip {
			continue
		}
		out.Events = append(out.Events, e)
	}
	if len(out.Events) == 0 {
		return nil, appErrors.ErrEmptyResult
	}
	return out, nil
}

func (c Criteria) matches(e Event, eventSet map[string]struct{}) bool {
	if c.Course != "" && c.Course != AllSentinel && e.Context != c.Course {
		return false
	}
	if c.Origin != "" && c.Origin != AllSentinel && originLabel(e.Origin) != c.Origin {
		return false
	}
	if !c.From.IsZero() && e.Date.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && e.Date.After(c.To) {
		return false
	}
	if len(eventSet) > 0 {
		if _, ok := eventSet[e.EventName]; !ok {
			return false
		}
	}
	return true
}

func originLabel(origin string) string {
	if origin == "" {
		return BlankOrigin
	}
	return origin
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (t *Table) tableColumns() []string {
	if t == nil {
		return nil
	}
	return t.Columns
}

func (t *Table) droppedRows() int {
	if t == nil {
		return 0
	}
	return t.Dropped
}
