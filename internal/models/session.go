package models

import (
	"fmt"
	"time"

	"github.com/noah-isme/moodle-engagement-api/internal/engagement"
)

// Session owns one uploaded log and the alerts sent from it.
type Session struct {
	ID              string              `json:"id"`
	FileName        string              `json:"file_name"`
	CreatedAt       time.Time           `json:"created_at"`
	Table           *engagement.Table   `json:"table"`
	NotificationLog []NotificationEntry `json:"notification_log"`
}

// NotificationEntry records one successful alert delivery.
type NotificationEntry struct {
	SentAt    time.Time `json:"sent_at"`
	Recipient string    `json:"recipient"`
	Students  int       `json:"students"`
}

// String renders the entry as a log line.
func (e NotificationEntry) String() string {
	return fmt.Sprintf("%s – mail sent (%d students)", e.SentAt.Format("15:04"), e.Students)
}

// SessionInfo is the public view of a session, without its events.
type SessionInfo struct {
	ID          string             `json:"id"`
	FileName    string             `json:"file_name"`
	CreatedAt   time.Time          `json:"created_at"`
	Rows        int                `json:"rows"`
	DroppedRows int                `json:"dropped_rows"`
	Columns     []string           `json:"columns"`
	Options     engagement.Options `json:"options"`
}

// Info summarises s together with its filter options.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:          s.ID,
		FileName:    s.FileName,
		CreatedAt:   s.CreatedAt,
		Rows:        s.Table.Len(),
		DroppedRows: droppedRows(s.Table),
		Columns:     columns(s.Table),
		Options:     engagement.BuildOptions(s.Table),
	}
}

// NotificationLines renders the notification log, oldest first.
func (s *Session) NotificationLines() []string {
	lines := make([]string, 0, len(s.NotificationLog))
	for _, e := range s.NotificationLog {
		lines = append(lines, e.String())
	}
	return lines
}

func droppedRows(t *engagement.Table) int {
	if t == nil {
		return 0
	}
	return t.Dropped
}

func columns(t *engagement.Table) []string {
	if t == nil {
		return []string{}
	}
	return t.Columns
}
