package engagement

import "time"

// Params are the user-tunable inputs of one pipeline pass.
type Params struct {
	Criteria
	LookbackDays     int    `json:"lookback_days"`
	RiskInactiveDays int    `json:"risk_inactive_days"`
	Search           string `json:"search,omitempty"`
}

// Result is the output of one pass. Summaries already carry the name search;
// Filtered still holds every surviving event.
type Result struct {
	Now       time.Time        `json:"now"`
	Params    Params           `json:"params"`
	Filtered  *Table           `json:"-"`
	Summaries []StudentSummary `json:"summaries"`
}

// Run filters, aggregates and classifies t against a single now.
func Run(t *Table, p Params, now time.Time) (*Result, error) {
	if p.LookbackDays <= 0 {
		p.LookbackDays = DefaultLookbackDays
	}
	if p.RiskInactiveDays <= 0 {
		p.RiskInactiveDays = DefaultRiskInactiveDays
	}

	filtered, err := Filter(t, p.Criteria)
	if err != nil {
		return nil, err
	}
	summaries := Aggregate(filtered.Events, now, p.LookbackDays)
	classified := ClassifyAll(summaries, p.RiskInactiveDays)

	return &Result{
		Now:       now,
		Params:    p,
		Filtered:  filtered,
		Summaries: SearchByName(classified, p.Search),
	}, nil
}
