// Package engagement turns a Moodle activity log into per-student engagement
// metrics and a risk tier. Every stage is a pure function of its inputs; the
// caller captures "now" once per pass and threads it through.
package engagement

import (
	"fmt"
	"time"
)

// Column names of a Moodle log export after header cleanup.
const (
	ColumnTime        = "Time"
	ColumnUser        = "User full name"
	ColumnContext     = "Event context"
	ColumnComponent   = "Component"
	ColumnEventName   = "Event name"
	ColumnOrigin      = "Origin"
	ColumnIPAddress   = "IP address"
	ColumnDescription = "Description"
)

// RequiredColumns must all be present in an uploaded log.
var RequiredColumns = []string{ColumnTime, ColumnUser, ColumnContext, ColumnComponent, ColumnEventName, ColumnOrigin}

// Event is one parsed log line.
type Event struct {
	Time         time.Time `json:"time"`
	Date         Date      `json:"date"`
	UserFullName string    `json:"user_full_name"`
	Context      string    `json:"event_context"`
	Component    string    `json:"component"`
	EventName    string    `json:"event_name"`
	Origin       string    `json:"origin"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Table is a normalized event log. Stages never mutate a Table; they build new ones.
type Table struct {
	Columns []string `json:"columns"`
	Events  []Event  `json:"events"`
	Dropped int      `json:"dropped"`
}

// Len returns the number of events.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Events)
}

// HasColumn reports whether the cleaned header contains name.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Span returns the first and last calendar dates of the table.
func (t *Table) Span() (Date, Date) {
	var first, last Date
	for i, e := range t.tableEvents() {
		if i == 0 || e.Date.Before(first) {
			first = e.Date
		}
		if i == 0 || e.Date.After(last) {
			last = e.Date
		}
	}
	return first, last
}

func (t *Table) tableEvents() []Event {
	if t == nil {
		return nil
	}
	return t.Events
}

// Date is a calendar day without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return DateOf(t), nil
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.midnightUTC().Before(o.midnightUTC()) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.midnightUTC().After(o.midnightUTC()) }

// AddDays shifts d by n calendar days.
func (d Date) AddDays(n int) Date { return DateOf(d.midnightUTC().AddDate(0, 0, n)) }

// DaysSince returns the whole number of calendar days from o to d.
func (d Date) DaysSince(o Date) int {
	return int(d.midnightUTC().Sub(o.midnightUTC()).Hours() / 24)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.midnightUTC().Format(dateLayout)
}

// MarshalText encodes d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes YYYY-MM-DD; empty input yields the zero Date.
func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
