package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core/payment"
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

type paymentRow struct {
	ID              string      `db:"id"`
	Amount          float64     `db:"amount"`
	PayerNameRaw    string      `db:"payer_name_raw"`
	PayerName       string      `db:"payer_name"`
	StudentName     string      `db:"student_name"`
	Timestamp       null.Time   `db:"timestamp"`
	Ignored         bool        `db:"ignored"`
	LinkedStudentID null.String `db:"linked_student_id"`
	ManuallyLinked  bool        `db:"manually_linked"`
	CreatedAt       null.Time   `db:"created_at"`
}

func (repo paymentRepository) toRow(evt payment.Event) paymentRow {
	return paymentRow{
		ID:              evt.ID,
		Amount:          evt.Amount,
		PayerNameRaw:    evt.PayerNameRaw,
		PayerName:       evt.PayerName,
		StudentName:     evt.StudentName,
		Timestamp:       null.NewTime(evt.Timestamp.UTC(), !evt.Timestamp.IsZero()),
		Ignored:         evt.Ignored,
		LinkedStudentID: evt.LinkedStudentID,
		ManuallyLinked:  evt.ManuallyLinked,
		CreatedAt:       null.NewTime(evt.CreatedAt.UTC(), !evt.CreatedAt.IsZero()),
	}
}

func (repo paymentRepository) fromRow(row paymentRow) payment.Event {
	return payment.Event{
		ID:              row.ID,
		Amount:          row.Amount,
		PayerNameRaw:    row.PayerNameRaw,
		PayerName:       row.PayerName,
		StudentName:     row.StudentName,
		Timestamp:       row.Timestamp.Time,
		Ignored:         row.Ignored,
		LinkedStudentID: row.LinkedStudentID,
		ManuallyLinked:  row.ManuallyLinked,
		CreatedAt:       row.CreatedAt.Time,
	}
}

func (repo paymentRepository) fromRows(rows []paymentRow) []payment.Event {
	events := make([]payment.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, repo.fromRow(row))
	}
	return events
}

// trapNoRowsErr maps psql "no rows" err to payment.ErrNotFound
func (repo paymentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return payment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo paymentRepository) CreateEvent(evt payment.Event) (payment.Event, error) {
	row := repo.toRow(evt)
	_, err := repo.db.NamedExec(
		`INSERT INTO payment_event (id, amount, payer_name_raw, payer_name, student_name, timestamp, ignored, linked_student_id, manually_linked, created_at)
		 VALUES (:id, :amount, :payer_name_raw, :payer_name, :student_name, :timestamp, :ignored, :linked_student_id, :manually_linked, :created_at)`, row)
	if err != nil {
		return payment.Event{}, errors.Wrap(err, "inserting payment event")
	}
	return evt, nil
}

func (repo paymentRepository) QueryAllEvents() ([]payment.Event, error) {
	var rows []paymentRow
	if err := repo.db.Select(&rows, `SELECT * FROM payment_event ORDER BY timestamp, id`); err != nil {
		return nil, errors.Wrap(err, "querying payment events")
	}
	return repo.fromRows(rows), nil
}

func (repo paymentRepository) GetEventByID(id string) (payment.Event, error) {
	var row paymentRow
	if err := repo.db.Get(&row, `SELECT * FROM payment_event WHERE id = $1`, id); err != nil {
		return payment.Event{}, repo.trapNoRowsErr(err, "finding payment event")
	}
	return repo.fromRow(row), nil
}

func (repo paymentRepository) QueryUnlinked() ([]payment.Event, error) {
	var rows []paymentRow
	err := repo.db.Select(&rows,
		`SELECT * FROM payment_event WHERE NOT ignored AND linked_student_id IS NULL ORDER BY timestamp, id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying unlinked payment events")
	}
	return repo.fromRows(rows), nil
}

func (repo paymentRepository) QueryEventsByStudent(studentID string) ([]payment.Event, error) {
	var rows []paymentRow
	err := repo.db.Select(&rows,
		`SELECT * FROM payment_event WHERE linked_student_id = $1 ORDER BY timestamp, id`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying payment events by student")
	}
	return repo.fromRows(rows), nil
}

func (repo paymentRepository) UpdateEventLink(id string, studentID null.String, manual bool) (payment.Event, error) {
	res, err := repo.db.Exec(
		`UPDATE payment_event SET linked_student_id = $1, manually_linked = $2 WHERE id = $3`,
		studentID, manual, id)
	if err != nil {
		return payment.Event{}, errors.Wrap(err, "linking payment event")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return payment.Event{}, payment.ErrNotFound
	}
	return repo.GetEventByID(id)
}

func (repo paymentRepository) SetEventIgnored(id string, ignored bool) error {
	res, err := repo.db.Exec(`UPDATE payment_event SET ignored = $1 WHERE id = $2`, ignored, id)
	if err != nil {
		return errors.Wrap(err, "updating payment event")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return payment.ErrNotFound
	}
	return nil
}
