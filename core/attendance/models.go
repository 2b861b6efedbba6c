package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core/student"
)

// Session statuses
const (
	StatusPaid     = "paid"
	StatusUnpaid   = "unpaid"
	StatusAbsent   = "absent"
	StatusSkipped  = "skipped"
	StatusPending  = "pending"
	StatusDeducted = "deducted"
)

var AllStatuses = []string{StatusPaid, StatusUnpaid, StatusAbsent, StatusSkipped, StatusPending, StatusDeducted}

// Record is the authoritative per-session status for one student on one date.
// Unique per (StudentID, Date).
type Record struct {
	StudentID   string      `json:"student_id"`
	Date        time.Time   `json:"date"` // midnight UTC of the civil date
	Status      string      `json:"status"`
	Balance     float64     `json:"balance"`
	Message     string      `json:"message"`
	PaymentID   null.String `json:"payment_id"`   // reference to the settling payment event
	ManuallySet bool        `json:"manually_set"` // status was set by hand; the matcher never overrides it
	UpdatedAt   time.Time   `json:"updated_at"`   // UTC
}

// OverdueUnpaid reports whether the record is an unpaid session dated on or
// before today. All such records are reminder-eligible, not only today's.
// today must be a civil date as produced by DateOf.
func (r *Record) OverdueUnpaid(today time.Time) bool {
	return r.Status == StatusUnpaid && !r.Date.After(today)
}

// DateOf truncates t to its civil date in loc, represented as midnight UTC.
// Storing dates this way keeps (StudentID, Date) comparisons exact.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b (both civil dates).
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

type (
	// StudentAttendance pairs a student with all of their ledger records.
	StudentAttendance struct {
		Student student.Student `json:"student"`
		Records []Record        `json:"attendance"`
	}

	// Snapshot is a read-only copy of the calendar state handed to the
	// scheduler and diagnostics. It is rebuilt by an explicit Refresh,
	// never mutated in place.
	Snapshot struct {
		Students []StudentAttendance `json:"students"`
		LoadedAt time.Time           `json:"loaded_at"`
	}
)
