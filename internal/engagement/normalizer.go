package engagement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

// Moodle writes day-first timestamps; the exact shape depends on site locale.
var timeLayouts = []string{
	"2/1/06, 15:04",
	"2/1/06, 15:04:05",
	"2/1/2006, 15:04",
	"2/1/2006, 15:04:05",
	"2/1/06 15:04",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006 15:04:05",
	"2 January 2006, 3:04 PM",
	"2 January 2006, 15:04",
	"Monday, 2 January 2006, 3:04 PM",
	"2 Jan 2006, 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2/1/2006",
	"2006-01-02",
}

// CleanHeader strips byte-order marks, carriage returns and surrounding whitespace.
func CleanHeader(name string) string {
	name = strings.ReplaceAll(name, "\ufeff", "")
	name = strings.ReplaceAll(name, "\r", "")
	return strings.TrimSpace(name)
}

// ParseTime parses a log timestamp with day-first semantics in loc.
func ParseTime(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), true
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseIn(value, loc, dateparse.PreferMonthFirst(false)); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}

// Normalize reads a Moodle log CSV into a Table. Rows with an unparseable Time
// are dropped and counted; missing required columns yield a schema error.
func Normalize(r io.Reader, loc *time.Location) (*Table, error) {
	if loc == nil {
		loc = time.UTC
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, schemaError(RequiredColumns, nil)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrSchema.Code, appErrors.ErrSchema.Status, "unable to read csv header")
	}

	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, raw := range header {
		name := CleanHeader(raw)
		columns[i] = name
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}

	missing := make([]string, 0)
	for _, required := range RequiredColumns {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, schemaError(missing, columns)
	}

	col := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}
	timeIdx, userIdx, ctxIdx := col(ColumnTime), col(ColumnUser), col(ColumnContext)
	compIdx, nameIdx, originIdx := col(ColumnComponent), col(ColumnEventName), col(ColumnOrigin)
	ipIdx, descIdx := col(ColumnIPAddress), col(ColumnDescription)

	table := &Table{Columns: columns, Events: make([]Event, 0, 256)}
	line := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, appErrors.Wrap(err, appErrors.ErrSchema.Code, appErrors.ErrSchema.Status, fmt.Sprintf("unable to read csv row %d", line+1))
		}
		line++
		if isBlankRecord(record) {
			continue
		}

		ts, ok := ParseTime(cell(record, timeIdx), loc)
		if !ok {
			table.Dropped++
			continue
		}
		table.Events = append(table.Events, Event{
			Time:         ts,
			Date:         DateOf(ts),
			UserFullName: cell(record, userIdx),
			Context:      cell(record, ctxIdx),
			Component:    cell(record, compIdx),
			EventName:    cell(record, nameIdx),
			Origin:       cell(record, originIdx),
			IPAddress:    cell(record, ipIdx),
			Description:  cell(record, descIdx),
		})
	}
	return table, nil
}

func schemaError(missing, found []string) error {
	if found == nil {
		found = []string{}
	}
	msg := fmt.Sprintf("Your CSV is missing columns: %s. Columns found: %s", strings.Join(missing, ", "), strings.Join(found, ", "))
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrSchema, msg), map[string]interface{}{
		"missing": missing,
		"found":   found,
	})
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
