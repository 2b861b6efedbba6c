package notification

import (
	"errors"
	"time"
)

// ErrNoRecord is returned by Log lookups when no sent record matches.
var ErrNoRecord = errors.New("no sent record found")

// SentRecord is one entry in the append-only audit log of successful sends.
// The scheduler reads it back for dedup.
type SentRecord struct {
	ID           int64     `json:"id"`
	TemplateName string    `json:"template_name"`
	Recipient    string    `json:"recipient"`
	SentAt       time.Time `json:"sent_at"` // UTC
}

// Log is the Sent Record Log. Append-only; the only read path is the
// dedup lookup.
type Log interface {
	AppendSentRecord(rec SentRecord) (SentRecord, error)
	// LastSentRecord returns the most recent record for (templateName,
	// recipient) with SentAt at or after since, or ErrNoRecord.
	LastSentRecord(templateName, recipient string, since time.Time) (SentRecord, error)
}

// Notification is one send candidate resolved against the dispatcher.
// Data carries copies of whatever the template needs, never live references.
type Notification struct {
	Action        string // boundary request action, e.g. "sendPaymentReminderEmail"
	TemplateName  string
	Recipient     string // email address
	RecipientName string
	Since         time.Time // dedup window start
	Data          map[string]interface{}
}
