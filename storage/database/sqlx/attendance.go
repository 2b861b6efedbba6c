package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

type attendanceRow struct {
	StudentID   string      `db:"student_id"`
	Date        time.Time   `db:"date"`
	Status      string      `db:"status"`
	Balance     float64     `db:"balance"`
	Message     string      `db:"message"`
	PaymentID   null.String `db:"payment_id"`
	ManuallySet bool        `db:"manually_set"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (repo attendanceRepository) toRow(rec attendance.Record) attendanceRow {
	return attendanceRow{
		StudentID:   rec.StudentID,
		Date:        rec.Date,
		Status:      rec.Status,
		Balance:     rec.Balance,
		Message:     rec.Message,
		PaymentID:   rec.PaymentID,
		ManuallySet: rec.ManuallySet,
		UpdatedAt:   null.NewTime(rec.UpdatedAt.UTC(), !rec.UpdatedAt.IsZero()),
	}
}

func (repo attendanceRepository) fromRow(row attendanceRow) attendance.Record {
	return attendance.Record{
		StudentID:   row.StudentID,
		Date:        row.Date.UTC(),
		Status:      row.Status,
		Balance:     row.Balance,
		Message:     row.Message,
		PaymentID:   row.PaymentID,
		ManuallySet: row.ManuallySet,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo attendanceRepository) fromRows(rows []attendanceRow) []attendance.Record {
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, repo.fromRow(row))
	}
	return recs
}

func (repo attendanceRepository) GetRecord(studentID string, date time.Time) (attendance.Record, error) {
	var row attendanceRow
	err := repo.db.Get(&row, `SELECT * FROM attendance_record WHERE student_id = $1 AND date = $2`, studentID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "finding attendance record")
	}
	return repo.fromRow(row), nil
}

func (repo attendanceRepository) UpsertRecord(rec attendance.Record) (attendance.Record, error) {
	row := repo.toRow(rec)
	_, err := repo.db.NamedExec(
		`INSERT INTO attendance_record (student_id, date, status, balance, message, payment_id, manually_set, updated_at)
		 VALUES (:student_id, :date, :status, :balance, :message, :payment_id, :manually_set, :updated_at)
		 ON CONFLICT (student_id, date) DO UPDATE SET
		   status = EXCLUDED.status,
		   balance = EXCLUDED.balance,
		   message = EXCLUDED.message,
		   payment_id = EXCLUDED.payment_id,
		   manually_set = EXCLUDED.manually_set,
		   updated_at = EXCLUDED.updated_at`, row)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	return rec, nil
}

func (repo attendanceRepository) QueryRecordsByStudent(studentID string) ([]attendance.Record, error) {
	var rows []attendanceRow
	err := repo.db.Select(&rows, `SELECT * FROM attendance_record WHERE student_id = $1 ORDER BY date`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	return repo.fromRows(rows), nil
}

func (repo attendanceRepository) QueryOverdueUnpaid(asOf time.Time) ([]attendance.Record, error) {
	var rows []attendanceRow
	err := repo.db.Select(&rows,
		`SELECT * FROM attendance_record WHERE status = $1 AND date <= $2 ORDER BY date, student_id`,
		attendance.StatusUnpaid, asOf)
	if err != nil {
		return nil, errors.Wrap(err, "querying overdue records")
	}
	return repo.fromRows(rows), nil
}
