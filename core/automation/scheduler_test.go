package automation

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/notification"
	"github.com/richyfesta/arnoma/core/student"
)

var testLoc, _ = time.LoadLocation("America/Los_Angeles")

// in-memory fakes; the storage package's repos cannot be imported here

type fakeStudentRepo struct {
	students []student.Student
	groups   []student.Group
}

func (r *fakeStudentRepo) CreateStudent(stu student.Student) (student.Student, error) {
	r.students = append(r.students, stu)
	return stu, nil
}
func (r *fakeStudentRepo) QueryAllStudents() ([]student.Student, error) { return r.students, nil }
func (r *fakeStudentRepo) GetStudentByID(id string) (student.Student, error) {
	for _, stu := range r.students {
		if stu.ID == id {
			return stu, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}
func (r *fakeStudentRepo) QueryStudentsByGroup(group string) ([]student.Student, error) {
	var out []student.Student
	for _, stu := range r.students {
		if stu.Group == group {
			out = append(out, stu)
		}
	}
	return out, nil
}
func (r *fakeStudentRepo) CreateGroup(grp student.Group) (student.Group, error) {
	r.groups = append(r.groups, grp)
	return grp, nil
}
func (r *fakeStudentRepo) QueryAllGroups() ([]student.Group, error) { return r.groups, nil }
func (r *fakeStudentRepo) GetGroupByName(name string) (student.Group, error) {
	for _, grp := range r.groups {
		if grp.Name == name {
			return grp, nil
		}
	}
	return student.Group{}, student.ErrGroupNotFound
}

type fakeAttendanceRepo struct {
	records []attendance.Record
}

func (r *fakeAttendanceRepo) GetRecord(studentID string, date time.Time) (attendance.Record, error) {
	for _, rec := range r.records {
		if rec.StudentID == studentID && rec.Date.Equal(date) {
			return rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrNotFound
}
func (r *fakeAttendanceRepo) UpsertRecord(rec attendance.Record) (attendance.Record, error) {
	r.records = append(r.records, rec)
	return rec, nil
}
func (r *fakeAttendanceRepo) QueryRecordsByStudent(studentID string) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range r.records {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	return out, nil
}
func (r *fakeAttendanceRepo) QueryOverdueUnpaid(asOf time.Time) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range r.records {
		if rec.Status == attendance.StatusUnpaid && !rec.Date.After(asOf) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeRuleRepo struct {
	rules []Rule
}

func (r *fakeRuleRepo) CreateRule(rule Rule) (Rule, error) {
	r.rules = append(r.rules, rule)
	return rule, nil
}
func (r *fakeRuleRepo) QueryAllRules() ([]Rule, error) { return r.rules, nil }
func (r *fakeRuleRepo) QueryActiveRules() ([]Rule, error) {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}
func (r *fakeRuleRepo) GetRuleByName(name string) (Rule, error) {
	for _, rule := range r.rules {
		if rule.Name == name {
			return rule, nil
		}
	}
	return Rule{}, ErrRuleNotFound
}

type fakePauseRegistry struct {
	paused map[string]bool
}

func (r *fakePauseRegistry) IsPaused(studentID string) (bool, error) { return r.paused[studentID], nil }
func (r *fakePauseRegistry) SetPaused(studentID string, paused bool) error {
	r.paused[studentID] = paused
	return nil
}

type fakeDispatcher struct {
	sent []notification.Notification
}

func (d *fakeDispatcher) Send(n notification.Notification) (string, error) {
	d.sent = append(d.sent, n)
	return notification.ResultSent, nil
}

type schedulerFixture struct {
	students   *fakeStudentRepo
	ledger     *fakeAttendanceRepo
	rules      *fakeRuleRepo
	pause      *fakePauseRegistry
	dispatcher *fakeDispatcher
	scheduler  *Scheduler
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		students:   &fakeStudentRepo{},
		ledger:     &fakeAttendanceRepo{},
		rules:      &fakeRuleRepo{},
		pause:      &fakePauseRegistry{paused: make(map[string]bool)},
		dispatcher: &fakeDispatcher{},
	}
	conf := &core.Config{
		BusinessTimezone: testLoc,
		Automation: core.AutomationConfig{
			TickInterval:     time.Minute,
			RefreshInterval:  30 * time.Second,
			ToleranceMinutes: 2,
		},
	}
	f.scheduler = NewScheduler(
		f.rules,
		f.pause,
		student.NewService(f.students),
		attendance.NewService(f.ledger, f.students),
		f.dispatcher,
		core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)),
		conf,
	)
	return f
}

func mockNow(t *testing.T, instant time.Time) {
	t.Helper()
	nowFunc = func() time.Time { return instant }
	t.Cleanup(func() { nowFunc = time.Now })
}

// laTime builds an instant in the business timezone.
func laTime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, testLoc)
}

func TestScheduler_BeforeClassWindow(t *testing.T) {
	// 2025-11-17 is a Monday; class at 6:00 PM, offset 30 min
	tests := []struct {
		name     string
		now      time.Time
		wantSend bool
	}{
		{"32 min before class", laTime(2025, time.November, 17, 17, 28), true},
		{"exactly 30 min before", laTime(2025, time.November, 17, 17, 30), true},
		{"28 min before class", laTime(2025, time.November, 17, 17, 32), true},
		{"35 min before class", laTime(2025, time.November, 17, 17, 25), false},
		{"27 min before class", laTime(2025, time.November, 17, 17, 33), false},
		{"wrong weekday", laTime(2025, time.November, 18, 17, 28), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSchedulerFixture(t)
			mockNow(t, tt.now)

			_, _ = f.students.CreateGroup(student.Group{Name: "Mon/Wed Evening", Schedule: "Mon/Wed 6:00 PM"})
			_, _ = f.students.CreateStudent(student.Student{
				ID: "stu-1", Name: "Anna Petrosyan", Email: "anna@example.com",
				Group: "Mon/Wed Evening", Status: student.StatusActive,
			})
			_, _ = f.rules.CreateRule(Rule{
				Name: "class reminder", Active: true, Frequency: FrequencyBeforeClass,
				OffsetMinutes: 30, SelectedGroups: []string{"Mon/Wed Evening"},
				TemplateName: "class_reminder",
			})

			ran, err := f.scheduler.RunTick()
			if err != nil {
				t.Fatalf("RunTick() failed: %v", err)
			}
			if !ran {
				t.Fatal("RunTick() reported skipped; want ran")
			}

			if got := len(f.dispatcher.sent) > 0; got != tt.wantSend {
				t.Fatalf("sent = %v; want send = %v", f.dispatcher.sent, tt.wantSend)
			}
			if tt.wantSend {
				n := f.dispatcher.sent[0]
				if n.Recipient != "anna@example.com" || n.TemplateName != "class_reminder" {
					t.Errorf("notification = %+v", n)
				}
				if n.Data["classTime"] != "18:00" {
					t.Errorf("classTime = %v; want 18:00", n.Data["classTime"])
				}
			}
		})
	}
}

func TestScheduler_BeforeClassSkipsPausedAndInactive(t *testing.T) {
	f := newSchedulerFixture(t)
	mockNow(t, laTime(2025, time.November, 17, 17, 28))

	_, _ = f.students.CreateGroup(student.Group{Name: "Mon/Wed Evening", Schedule: "Mon/Wed 6:00 PM"})
	_, _ = f.students.CreateStudent(student.Student{
		ID: "stu-1", Name: "Anna", Email: "anna@example.com", Group: "Mon/Wed Evening", Status: student.StatusActive,
	})
	_, _ = f.students.CreateStudent(student.Student{
		ID: "stu-2", Name: "Paused Pete", Email: "pete@example.com", Group: "Mon/Wed Evening", Status: student.StatusActive,
	})
	_, _ = f.students.CreateStudent(student.Student{
		ID: "stu-3", Name: "Gone Garry", Email: "garry@example.com", Group: "Mon/Wed Evening", Status: student.StatusGraduated,
	})
	_, _ = f.students.CreateStudent(student.Student{
		ID: "stu-4", Name: "No Email Ned", Group: "Mon/Wed Evening", Status: student.StatusActive,
	})
	_ = f.pause.SetPaused("stu-2", true)

	_, _ = f.rules.CreateRule(Rule{
		Name: "class reminder", Active: true, Frequency: FrequencyBeforeClass,
		OffsetMinutes: 30, TemplateName: "class_reminder", // no selected groups: all groups
	})

	if _, err := f.scheduler.RunTick(); err != nil {
		t.Fatalf("RunTick() failed: %v", err)
	}
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("sent %d notifications; want 1 (only Anna)", len(f.dispatcher.sent))
	}
	if f.dispatcher.sent[0].Recipient != "anna@example.com" {
		t.Errorf("recipient = %q; want anna@example.com", f.dispatcher.sent[0].Recipient)
	}
}

func TestScheduler_PaymentRemindersCoverAllOverdueDates(t *testing.T) {
	f := newSchedulerFixture(t)
	now := laTime(2025, time.November, 20, 12, 0)
	mockNow(t, now)

	_, _ = f.students.CreateGroup(student.Group{Name: "Tue/Thu", Schedule: "Tue/Thu 5:00 PM"})
	_, _ = f.students.CreateStudent(student.Student{
		ID: "stu-1", Name: "Mariam Gevorgyan", Email: "mariam@example.com", Group: "Tue/Thu", Status: student.StatusActive,
	})

	date := func(d int) time.Time { return time.Date(2025, time.November, d, 0, 0, 0, 0, time.UTC) }
	_, _ = f.ledger.UpsertRecord(attendance.Record{StudentID: "stu-1", Date: date(4), Status: attendance.StatusUnpaid, Balance: 50})
	_, _ = f.ledger.UpsertRecord(attendance.Record{StudentID: "stu-1", Date: date(13), Status: attendance.StatusUnpaid, Balance: 50})
	_, _ = f.ledger.UpsertRecord(attendance.Record{StudentID: "stu-1", Date: date(18), Status: attendance.StatusPaid})
	_, _ = f.ledger.UpsertRecord(attendance.Record{StudentID: "stu-1", Date: date(25), Status: attendance.StatusUnpaid, Balance: 50}) // future

	_, _ = f.rules.CreateRule(Rule{
		Name: "payment reminder", Active: true, Frequency: FrequencyAfterClassUnpaid,
		TemplateName: "payment_reminder",
	})

	if _, err := f.scheduler.RunTick(); err != nil {
		t.Fatalf("RunTick() failed: %v", err)
	}

	// one candidate per overdue date; the old Nov 4 session is not dropped
	if len(f.dispatcher.sent) != 2 {
		t.Fatalf("sent %d notifications; want 2", len(f.dispatcher.sent))
	}
	gotDates := map[string]bool{}
	for _, n := range f.dispatcher.sent {
		gotDates[n.Data["classDate"].(string)] = true
		// the dedup window opens at the record date
		if n.Since.Format("2006-01-02") != n.Data["classDate"] {
			t.Errorf("since = %v; want %v", n.Since, n.Data["classDate"])
		}
	}
	for _, want := range []string{"2025-11-04", "2025-11-13"} {
		if !gotDates[want] {
			t.Errorf("no reminder for %s; got %v", want, gotDates)
		}
	}
}

func TestScheduler_SingleFlight(t *testing.T) {
	f := newSchedulerFixture(t)
	mockNow(t, laTime(2025, time.November, 17, 12, 0))

	f.scheduler.ticking = 1
	ran, err := f.scheduler.RunTick()
	if err != nil {
		t.Fatalf("RunTick() failed: %v", err)
	}
	if ran {
		t.Error("RunTick() ran while a previous tick was in flight")
	}

	f.scheduler.refreshing = 1
	ran, err = f.scheduler.Refresh()
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if ran {
		t.Error("Refresh() ran while a previous refresh was in flight")
	}
}

func TestScheduler_RefreshRebuildsSnapshot(t *testing.T) {
	f := newSchedulerFixture(t)

	_, _ = f.students.CreateStudent(student.Student{
		ID: "stu-1", Name: "Anna", Email: "anna@example.com", Group: "Mon/Wed", Status: student.StatusActive,
	})

	if _, err := f.scheduler.Refresh(); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	snap := f.scheduler.Snapshot()
	if snap == nil || len(snap.Students) != 1 {
		t.Fatalf("snapshot = %+v; want 1 student", snap)
	}

	_, _ = f.students.CreateStudent(student.Student{
		ID: "stu-2", Name: "Mariam", Email: "mariam@example.com", Group: "Tue/Thu", Status: student.StatusActive,
	})

	// the snapshot is immutable until the next refresh
	if got := f.scheduler.Snapshot(); len(got.Students) != 1 {
		t.Fatalf("snapshot grew without a refresh: %d students", len(got.Students))
	}
	if _, err := f.scheduler.Refresh(); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if got := f.scheduler.Snapshot(); len(got.Students) != 2 {
		t.Fatalf("snapshot = %d students; want 2", len(got.Students))
	}
}
