package engagement

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

// AlertMessage is a composed coordinator notification, ready for a transport.
type AlertMessage struct {
	Subject  string `json:"subject"`
	From     string `json:"from"`
	To       string `json:"to"`
	Body     string `json:"body"`
	Students int    `json:"students"`
}

// ComposeAlert renders the notification for the given AT_RISK students.
// An empty set or a blank recipient is a validation failure and nothing is
// composed. A blank from falls back to the recipient.
func ComposeAlert(atRisk []StudentSummary, to, from string, generatedAt time.Time) (*AlertMessage, error) {
	if len(atRisk) == 0 {
		return nil, appErrors.ErrNothingToSend
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Please enter a coordinator e-mail")
	}
	from = strings.TrimSpace(from)
	if from == "" {
		from = to
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Moodle early-alert – %s\n", generatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&body, "Students flagged as At Risk: %d\n", len(atRisk))
	body.WriteString("\n")
	for i, s := range atRisk {
		if i > 0 {
			body.WriteString("\n")
		}
		fmt.Fprintf(&body, "%s — Inactive %d days — Active days: %d", s.UserFullName, s.InactiveDays, s.ActiveDays)
	}

	return &AlertMessage{
		Subject:  fmt.Sprintf("Moodle early-alert – %d students", len(atRisk)),
		From:     from,
		To:       to,
		Body:     body.String(),
		Students: len(atRisk),
	}, nil
}
