package engagement

import (
	"fmt"
	"sort"
	"strings"
)

// Risk threshold bounds in days.
const (
	DefaultRiskInactiveDays = 14
	MinRiskInactiveDays     = 7
	MaxRiskInactiveDays     = 60

	warningActiveDays = 2
)

// Status is the ordered risk tier; lower values are more urgent.
type Status int

const (
	StatusAtRisk Status = iota
	StatusWarning
	StatusActive
)

// Rank returns the sort rank of s.
func (s Status) Rank() int { return int(s) }

func (s Status) String() string {
	switch s {
	case StatusAtRisk:
		return "AT_RISK"
	case StatusWarning:
		return "WARNING"
	case StatusActive:
		return "ACTIVE"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Label is the human readable tier name.
func (s Status) Label() string {
	switch s {
	case StatusAtRisk:
		return "At Risk"
	case StatusWarning:
		return "Warning"
	case StatusActive:
		return "Active"
	default:
		return s.String()
	}
}

// ParseStatus accepts either the code or the label of a tier.
func ParseStatus(raw string) (Status, error) {
	value := strings.TrimSpace(raw)
	for _, s := range []Status{StatusAtRisk, StatusWarning, StatusActive} {
		if strings.EqualFold(value, s.String()) || strings.EqualFold(value, s.Label()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", raw)
}

// MarshalText encodes s as its code.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a code or label.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Classify maps metrics to a tier. The at-risk check wins over the warning check.
func Classify(inactiveDays, activeDays, riskInactiveDays int) Status {
	if inactiveDays > riskInactiveDays || activeDays == 0 {
		return StatusAtRisk
	}
	if activeDays <= warningActiveDays {
		return StatusWarning
	}
	return StatusActive
}

// ClassifyAll returns a copy of summaries with Status set, ordered most urgent
// first and then by inactive_days descending. Ties keep their input order.
func ClassifyAll(summaries []StudentSummary, riskInactiveDays int) []StudentSummary {
	if riskInactiveDays <= 0 {
		riskInactiveDays = DefaultRiskInactiveDays
	}
	out := make([]StudentSummary, len(summaries))
	for i, s := range summaries {
		s.Status = Classify(s.InactiveDays, s.ActiveDays, riskInactiveDays)
		out[i] = s
	}
	SortByRisk(out)
	return out
}

// SortByRisk stable-sorts summaries by status rank, then inactive_days descending.
func SortByRisk(summaries []StudentSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		return a.InactiveDays > b.InactiveDays
	})
}

// SearchByName keeps the students whose name contains query, ignoring case.
func SearchByName(summaries []StudentSummary, query string) []StudentSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return summaries
	}
	out := make([]StudentSummary, 0, len(summaries))
	for _, s := range summaries {
		if strings.Contains(strings.ToLower(s.UserFullName), q) {
			out = append(out, s)
		}
	}
	return out
}

// AtRisk returns the AT_RISK students, preserving order.
func AtRisk(summaries []StudentSummary) []StudentSummary {
	out := make([]StudentSummary, 0)
	for _, s := range summaries {
		if s.Status == StatusAtRisk {
			out = append(out, s)
		}
	}
	return out
}
