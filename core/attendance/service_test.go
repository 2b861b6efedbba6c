package attendance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/student"
	dummydb "github.com/richyfesta/arnoma/storage/database/dummy"
	"github.com/richyfesta/arnoma/tests"
)

func newService(t *testing.T) (*attendance.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return attendance.NewService(dummydb.NewAttendanceRepository(db), dummydb.NewStudentRepository(db)), db
}

func TestService_OverdueUnpaidScansAllDates(t *testing.T) {
	svc, db := newService(t)
	repo := dummydb.NewAttendanceRepository(db)
	stuRepo := dummydb.NewStudentRepository(db)

	stu := testutil.CreateStudent(t, stuRepo, "Mariam Gevorgyan", "mariam@example.com", "Tue/Thu", nil, student.StatusActive)

	today := testutil.Date(2025, time.November, 20)
	testutil.CreateRecord(t, repo, stu.ID, testutil.Date(2025, time.November, 4), attendance.StatusUnpaid, 50)
	testutil.CreateRecord(t, repo, stu.ID, testutil.Date(2025, time.November, 13), attendance.StatusUnpaid, 50)
	testutil.CreateRecord(t, repo, stu.ID, testutil.Date(2025, time.November, 18), attendance.StatusPaid, 0)
	testutil.CreateRecord(t, repo, stu.ID, today, attendance.StatusUnpaid, 50)
	testutil.CreateRecord(t, repo, stu.ID, testutil.Date(2025, time.November, 25), attendance.StatusUnpaid, 50) // future

	recs, err := svc.OverdueUnpaid(today)
	if err != nil {
		t.Fatalf("OverdueUnpaid() failed: %v", err)
	}

	// every unpaid record up to and including today, not just today's
	wantDates := []time.Time{
		testutil.Date(2025, time.November, 4),
		testutil.Date(2025, time.November, 13),
		today,
	}
	if len(recs) != len(wantDates) {
		t.Fatalf("OverdueUnpaid() returned %d records; want %d", len(recs), len(wantDates))
	}
	for i, want := range wantDates {
		if !recs[i].Date.Equal(want) {
			t.Errorf("record %d date = %v; want %v", i, recs[i].Date, want)
		}
	}
}

func TestService_MarkPaid(t *testing.T) {
	svc, db := newService(t)
	repo := dummydb.NewAttendanceRepository(db)
	stuRepo := dummydb.NewStudentRepository(db)

	stu := testutil.CreateStudent(t, stuRepo, "Anna Petrosyan", "anna@example.com", "Mon/Wed", nil, student.StatusActive)
	date := testutil.Date(2025, time.November, 13)
	testutil.CreateRecord(t, repo, stu.ID, date, attendance.StatusUnpaid, 50)

	if err := svc.MarkPaid(stu.ID, date, "pay-1"); err != nil {
		t.Fatalf("MarkPaid() failed: %v", err)
	}
	rec, err := svc.Get(stu.ID, date)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rec.Status != attendance.StatusPaid {
		t.Errorf("status = %q; want %q", rec.Status, attendance.StatusPaid)
	}
	if !rec.PaymentID.Valid || rec.PaymentID.String != "pay-1" {
		t.Errorf("paymentID = %v; want pay-1", rec.PaymentID)
	}

	// marking again with another payment must not re-link
	if err := svc.MarkPaid(stu.ID, date, "pay-2"); err != nil {
		t.Fatalf("MarkPaid() failed: %v", err)
	}
	rec, _ = svc.Get(stu.ID, date)
	if rec.PaymentID.String != "pay-1" {
		t.Errorf("paymentID = %q; want pay-1 (already settled)", rec.PaymentID.String)
	}
}

func TestService_MarkPaidNeverOverridesManual(t *testing.T) {
	svc, db := newService(t)
	stuRepo := dummydb.NewStudentRepository(db)

	stu := testutil.CreateStudent(t, stuRepo, "Anna Petrosyan", "anna@example.com", "Mon/Wed", nil, student.StatusActive)
	date := testutil.Date(2025, time.November, 13)

	// operator set this session to absent by hand
	if _, err := svc.Upsert(attendance.Record{StudentID: stu.ID, Date: date, Status: attendance.StatusAbsent}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	if err := svc.MarkPaid(stu.ID, date, "pay-1"); err != nil {
		t.Fatalf("MarkPaid() failed: %v", err)
	}
	rec, err := svc.Get(stu.ID, date)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rec.Status != attendance.StatusAbsent {
		t.Errorf("status = %q; want %q (manual statuses are never overridden)", rec.Status, attendance.StatusAbsent)
	}
	if rec.PaymentID.Valid {
		t.Errorf("paymentID = %q; want unset", rec.PaymentID.String)
	}
}

func TestService_Ensure(t *testing.T) {
	svc, db := newService(t)
	stuRepo := dummydb.NewStudentRepository(db)

	stu := testutil.CreateStudent(t, stuRepo, "Anna Petrosyan", "anna@example.com", "Mon/Wed", nil, student.StatusActive)
	date := testutil.Date(2025, time.November, 13)

	rec, err := svc.Ensure(stu.ID, date)
	if err != nil {
		t.Fatalf("Ensure() failed: %v", err)
	}
	if rec.Status != attendance.StatusUnpaid {
		t.Errorf("status = %q; want %q", rec.Status, attendance.StatusUnpaid)
	}

	// a second Ensure must not clobber the settled status
	if err := svc.MarkPaid(stu.ID, date, "pay-1"); err != nil {
		t.Fatalf("MarkPaid() failed: %v", err)
	}
	rec, err = svc.Ensure(stu.ID, date)
	if err != nil {
		t.Fatalf("Ensure() failed: %v", err)
	}
	if rec.Status != attendance.StatusPaid {
		t.Errorf("status = %q; want %q (existing records are left untouched)", rec.Status, attendance.StatusPaid)
	}
}

func TestService_GetMissingRecord(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get("nope", testutil.Date(2025, time.November, 13))
	if !errors.Is(err, attendance.ErrNotFound) {
		t.Errorf("Get() err = %v; want ErrNotFound", err)
	}
}

func TestDateOf(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}

	// 2025-11-14 02:30 UTC is still 2025-11-13 in Los Angeles
	instant := time.Date(2025, time.November, 14, 2, 30, 0, 0, time.UTC)
	got := attendance.DateOf(instant, la)
	want := testutil.Date(2025, time.November, 13)
	if !got.Equal(want) {
		t.Errorf("DateOf() = %v; want %v", got, want)
	}
}
