package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core"
)

var (
	// errors
	ErrNotFound = errors.New("payment event not found")
)

type (
	Repository interface {
		CreateEvent(evt Event) (Event, error)
		QueryAllEvents() ([]Event, error)
		GetEventByID(id string) (Event, error)
		// QueryUnlinked returns non-ignored events without a linked student.
		QueryUnlinked() ([]Event, error)
		QueryEventsByStudent(studentID string) ([]Event, error)
		UpdateEventLink(id string, studentID null.String, manual bool) (Event, error)
		SetEventIgnored(id string, ignored bool) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ne NewEvent) (Event, error) {
	evt := Event{
		ID:           uuid.New().String(),
		Amount:       ne.Amount,
		PayerNameRaw: ne.PayerNameRaw,
		PayerName:    core.CleanString(ne.PayerNameRaw),
		StudentName:  ne.StudentName,
		Timestamp:    ne.Timestamp,
		CreatedAt:    time.Now().UTC(),
	}
	return svc.repo.CreateEvent(evt)
}

func (svc *Service) QueryAll() ([]Event, error) {
	return svc.repo.QueryAllEvents()
}

func (svc *Service) GetByID(id string) (Event, error) {
	return svc.repo.GetEventByID(id)
}

func (svc *Service) Unlinked() ([]Event, error) {
	return svc.repo.QueryUnlinked()
}

func (svc *Service) ByStudent(studentID string) ([]Event, error) {
	return svc.repo.QueryEventsByStudent(studentID)
}

// Link attaches an event to a student by hand, overriding the matcher.
func (svc *Service) Link(id, studentID string) (Event, error) {
	return svc.repo.UpdateEventLink(id, null.StringFrom(studentID), true /* manual */)
}

// Ignore flags an event so it is excluded from all matching.
func (svc *Service) Ignore(id string) error {
	return svc.repo.SetEventIgnored(id, true)
}
