package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/payment"
	"github.com/richyfesta/arnoma/core/student"
)

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, email, group string,
	aliases []string,
	status string,
) student.Student {
	t.Helper()
	now := time.Now().UTC()
	stu, err := repo.CreateStudent(student.Student{
		ID:        uuid.New().String(),
		Name:      name,
		Aliases:   aliases,
		Email:     email,
		Group:     group,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

func CreateGroup(t *testing.T, repo student.Repository, name, schedule string) student.Group {
	t.Helper()
	grp, err := repo.CreateGroup(student.Group{Name: name, Schedule: schedule})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return grp
}

// Date builds the midnight-UTC civil date used as an attendance record key.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func CreateRecord(
	t *testing.T,
	repo attendance.Repository,
	studentID string,
	date time.Time,
	status string,
	balance float64,
) attendance.Record {
	t.Helper()
	rec, err := repo.UpsertRecord(attendance.Record{
		StudentID: studentID,
		Date:      attendance.DateOf(date, time.UTC),
		Status:    status,
		Balance:   balance,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

func CreatePayment(
	t *testing.T,
	repo payment.Repository,
	payerName string,
	amount float64,
	timestamp time.Time,
) payment.Event {
	t.Helper()
	evt, err := repo.CreateEvent(payment.Event{
		ID:           uuid.New().String(),
		Amount:       amount,
		PayerNameRaw: payerName,
		PayerName:    payerName,
		Timestamp:    timestamp,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return evt
}
