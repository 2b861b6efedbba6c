package dummydb

import (
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payments}
}

func (repo *paymentRepository) query() []payment.Event {
	events := make([]payment.Event, 0, len(repo.db.table))
	for _, evt := range repo.db.table {
		events = append(events, *evt)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].ID < events[j].ID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

func (repo *paymentRepository) CreateEvent(evt payment.Event) (payment.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[evt.ID] = &evt
	return evt, nil
}

func (repo *paymentRepository) QueryAllEvents() ([]payment.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *paymentRepository) GetEventByID(id string) (payment.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if evt, ok := repo.db.table[id]; ok {
		return *evt, nil
	}
	return payment.Event{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryUnlinked() ([]payment.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []payment.Event
	for _, evt := range repo.query() {
		if !evt.Ignored && !evt.LinkedStudentID.Valid {
			events = append(events, evt)
		}
	}
	return events, nil
}

func (repo *paymentRepository) QueryEventsByStudent(studentID string) ([]payment.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []payment.Event
	for _, evt := range repo.query() {
		if evt.LinkedStudentID.Valid && evt.LinkedStudentID.String == studentID {
			events = append(events, evt)
		}
	}
	return events, nil
}

func (repo *paymentRepository) UpdateEventLink(id string, studentID null.String, manual bool) (payment.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt, ok := repo.db.table[id]
	if !ok {
		return payment.Event{}, payment.ErrNotFound
	}
	evt.LinkedStudentID = studentID
	evt.ManuallyLinked = manual
	return *evt, nil
}

func (repo *paymentRepository) SetEventIgnored(id string, ignored bool) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt, ok := repo.db.table[id]
	if !ok {
		return payment.ErrNotFound
	}
	evt.Ignored = ignored
	return nil
}
