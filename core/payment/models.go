package payment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core"
)

// Event is a raw payment event, entered by hand or derived from a mailbox
// email. Immutable once ingested except for the link fields.
type Event struct {
	ID             string      `json:"id"`
	Amount         float64     `json:"amount"`
	PayerNameRaw   string      `json:"payer_name_raw"` // as it appeared on the payment/email
	PayerName      string      `json:"payer_name"`     // cleaned-up payer name
	StudentName    string      `json:"student_name"`   // operator-entered student name, if any
	Timestamp      time.Time   `json:"timestamp"`      // when the payment was made/received
	Ignored        bool        `json:"ignored"`        // excluded from all matching
	LinkedStudentID null.String `json:"linked_student_id"`
	ManuallyLinked bool        `json:"manually_linked"`
	CreatedAt      time.Time   `json:"created_at"` // UTC
}

// NewEvent contains information needed to record a payment event.
type NewEvent struct {
	Amount       float64   `json:"amount" validate:"gt=0"`
	PayerNameRaw string    `json:"payer_name_raw" validate:"required"`
	StudentName  string    `json:"student_name"`
	Timestamp    time.Time `json:"timestamp"`
}

func (ne *NewEvent) Validate() error {
	ne.PayerNameRaw = core.CleanString(ne.PayerNameRaw)
	ne.StudentName = core.CleanString(ne.StudentName)
	if ne.Timestamp.IsZero() {
		ne.Timestamp = time.Now().UTC()
	}
	return core.Validate.Struct(ne)
}
