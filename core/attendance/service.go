package attendance

import (
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("attendance record not found")
)

type (
	Repository interface {
		GetRecord(studentID string, date time.Time) (Record, error)
		UpsertRecord(rec Record) (Record, error)
		QueryRecordsByStudent(studentID string) ([]Record, error)
		// QueryOverdueUnpaid returns every unpaid record dated on or before
		// asOf, across all dates and students.
		QueryOverdueUnpaid(asOf time.Time) ([]Record, error)
	}

	Service struct {
		repo     Repository
		students student.Repository
	}
)

func NewService(repo Repository, students student.Repository) *Service {
	return &Service{repo: repo, students: students}
}

func (svc *Service) Get(studentID string, date time.Time) (Record, error) {
	return svc.repo.GetRecord(studentID, DateOf(date, time.UTC))
}

// StatusFor is the synchronous "status for date" query exposed to the UI layer.
func (svc *Service) StatusFor(studentID string, date time.Time) (string, error) {
	rec, err := svc.Get(studentID, date)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

func (svc *Service) ByStudent(studentID string) ([]Record, error) {
	return svc.repo.QueryRecordsByStudent(studentID)
}

// Upsert records a session status, marking it as a manual edit.
func (svc *Service) Upsert(rec Record) (Record, error) {
	rec.Date = DateOf(rec.Date, time.UTC)
	rec.ManuallySet = true
	rec.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertRecord(rec)
}

// Ensure creates the unpaid record for a computed class session if it does
// not exist yet. Existing records are left untouched.
func (svc *Service) Ensure(studentID string, date time.Time) (Record, error) {
	date = DateOf(date, time.UTC)
	if rec, err := svc.repo.GetRecord(studentID, date); err == nil {
		return rec, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}
	return svc.repo.UpsertRecord(Record{
		StudentID: studentID,
		Date:      date,
		Status:    StatusUnpaid,
		UpdatedAt: time.Now().UTC(),
	})
}

// OverdueUnpaid returns all reminder-eligible records: status unpaid, dated
// on or before the civil date asOf (see DateOf). Scanning only "today"
// silently drops older unpaid sessions, so the full history is always
// consulted.
func (svc *Service) OverdueUnpaid(asOf time.Time) ([]Record, error) {
	return svc.repo.QueryOverdueUnpaid(asOf)
}

// MarkPaid upgrades a record to paid and attaches the settling payment.
// Manually-set statuses and already-paid records are never downgraded or
// overwritten.
func (svc *Service) MarkPaid(studentID string, date time.Time, paymentID string) error {
	rec, err := svc.Get(studentID, date)
	if err != nil {
		return err
	}
	if rec.Status == StatusPaid || rec.ManuallySet {
		return nil
	}
	rec.Status = StatusPaid
	rec.PaymentID = null.StringFrom(paymentID)
	rec.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpsertRecord(rec)
	return err
}

// LoadSnapshot builds a fresh read-only calendar snapshot.
func (svc *Service) LoadSnapshot() (*Snapshot, error) {
	roster, err := svc.students.QueryAllStudents()
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Students: make([]StudentAttendance, 0, len(roster)),
		LoadedAt: time.Now().UTC(),
	}
	for _, stu := range roster {
		recs, err := svc.repo.QueryRecordsByStudent(stu.ID)
		if err != nil {
			return nil, err
		}
		snap.Students = append(snap.Students, StudentAttendance{Student: stu, Records: recs})
	}
	return snap, nil
}
