package student

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/richyfesta/arnoma/core"
)

var (
	// errors
	ErrNotFound      = errors.New("student not found")
	ErrGroupNotFound = errors.New("group not found")
)

type (
	Repository interface {
		CreateStudent(stu Student) (Student, error)
		QueryAllStudents() ([]Student, error)
		GetStudentByID(id string) (Student, error)
		QueryStudentsByGroup(group string) ([]Student, error)
		CreateGroup(grp Group) (Group, error)
		QueryAllGroups() ([]Group, error)
		GetGroupByName(name string) (Group, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	stu := Student{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Aliases:   ns.Aliases,
		Email:     ns.Email,
		Group:     ns.Group,
		Status:    ns.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateStudent(stu)
}

func (svc *Service) QueryAll() ([]Student, error) {
	return svc.repo.QueryAllStudents()
}

func (svc *Service) GetByID(id string) (Student, error) {
	return svc.repo.GetStudentByID(id)
}

// ActiveByGroup returns the group's students with status "active".
func (svc *Service) ActiveByGroup(group string) ([]Student, error) {
	all, err := svc.repo.QueryStudentsByGroup(group)
	if err != nil {
		return nil, err
	}
	active := make([]Student, 0, len(all))
	for _, stu := range all {
		if stu.IsActive() {
			active = append(active, stu)
		}
	}
	return active, nil
}

func (svc *Service) Groups() ([]Group, error) {
	return svc.repo.QueryAllGroups()
}

func (svc *Service) GroupByName(name string) (Group, error) {
	return svc.repo.GetGroupByName(core.CleanString(name))
}
