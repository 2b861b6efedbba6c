package dummydb

import (
	"sync"
	"time"

	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/automation"
	"github.com/richyfesta/arnoma/core/notification"
	"github.com/richyfesta/arnoma/core/payment"
	"github.com/richyfesta/arnoma/core/student"
)

// DB is the in-memory database used by tests and local development.
type (
	DB struct {
		students    *studentTable
		groups      *groupTable
		attendance  *attendanceTable
		payments    *paymentTable
		rules       *ruleTable
		pauses      *pauseTable
		sentRecords *sentRecordTable
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}
	groupTable struct {
		sync.RWMutex
		table map[string]*student.Group
	}
	attendanceTable struct {
		sync.RWMutex
		table map[recordKey]*attendance.Record
	}
	paymentTable struct {
		sync.RWMutex
		table map[string]*payment.Event
	}
	ruleTable struct {
		sync.RWMutex
		table map[string]*automation.Rule
	}
	pauseTable struct {
		sync.RWMutex
		table map[string]bool
	}
	sentRecordTable struct {
		sync.RWMutex
		rows []notification.SentRecord
	}

	recordKey struct {
		studentID string
		date      time.Time
	}
)

func Open() (*DB, error) {
	db := &DB{
		students:    &studentTable{table: make(map[string]*student.Student)},
		groups:      &groupTable{table: make(map[string]*student.Group)},
		attendance:  &attendanceTable{table: make(map[recordKey]*attendance.Record)},
		payments:    &paymentTable{table: make(map[string]*payment.Event)},
		rules:       &ruleTable{table: make(map[string]*automation.Rule)},
		pauses:      &pauseTable{table: make(map[string]bool)},
		sentRecords: &sentRecordTable{},
	}
	return db, nil
}
