package student

import (
	"time"

	"github.com/richyfesta/arnoma/core"
)

// Statuses
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusGraduated = "graduated"
)

var AllStatuses = []string{StatusActive, StatusPaused, StatusGraduated}

type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Aliases   []string  `json:"aliases"`
	Email     string    `json:"email"`
	Group     string    `json:"group"`
	Status    string    `json:"status"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (s *Student) IsActive() bool { return s.Status == StatusActive }

// MatchesName reports whether name equals the student's own name or any of
// its registered aliases, after trimming and lowercasing. No fuzzy matching.
func (s *Student) MatchesName(name string) bool {
	name = core.CleanString(name, true /* lower */)
	if name == "" {
		return false
	}
	if name == core.CleanString(s.Name, true) {
		return true
	}
	for _, alias := range s.Aliases {
		if name == core.CleanString(alias, true) {
			return true
		}
	}
	return false
}

// Group is a class group with a weekly schedule string, e.g. "Mon/Wed 6:00 PM".
type Group struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
}

// Sessions parses the group's schedule string. Malformed sessions are skipped.
func (g *Group) Sessions() []Session {
	return ParseSchedule(g.Schedule)
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Name    string   `json:"name" validate:"required"`
	Aliases []string `json:"aliases"`
	Email   string   `json:"email" validate:"omitempty,email"`
	Group   string   `json:"group" validate:"required"`
	Status  string   `json:"status" validate:"omitempty,oneof=active paused graduated"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Group = core.CleanString(ns.Group)
	for i, alias := range ns.Aliases {
		ns.Aliases[i] = core.CleanString(alias)
	}
	if ns.Status == "" {
		ns.Status = StatusActive
	}
	return core.Validate.Struct(ns)
}
