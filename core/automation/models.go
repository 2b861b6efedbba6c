package automation

import (
	"errors"

	"github.com/richyfesta/arnoma/core"
)

// Trigger frequencies
const (
	FrequencyBeforeClass      = "before_class"
	FrequencyAfterClassUnpaid = "after_class_unpaid"
)

var (
	// errors
	ErrRuleNotFound = errors.New("automation rule not found")
)

// Rule is a user-authored automation trigger. The engine consumes rules
// read-only; authoring happens in the external UI.
type Rule struct {
	Name           string   `json:"name"`
	Active         bool     `json:"active"`
	Frequency      string   `json:"frequency"`
	OffsetMinutes  int      `json:"offset_minutes"`  // before_class: minutes before class time
	SelectedGroups []string `json:"selected_groups"` // empty = all groups
	TemplateName   string   `json:"template_name"`
}

// AppliesToGroup reports whether the rule targets the given group.
// A rule with no selected groups targets every group.
func (r *Rule) AppliesToGroup(name string) bool {
	if len(r.SelectedGroups) == 0 {
		return true
	}
	for _, g := range r.SelectedGroups {
		if core.CleanString(g) == core.CleanString(name) {
			return true
		}
	}
	return false
}

// NewRule contains information needed to author an automation rule.
type NewRule struct {
	Name           string   `json:"name" validate:"required"`
	Active         bool     `json:"active"`
	Frequency      string   `json:"frequency" validate:"required,oneof=before_class after_class_unpaid"`
	OffsetMinutes  int      `json:"offset_minutes" validate:"gte=0,lte=1440"`
	SelectedGroups []string `json:"selected_groups"`
	TemplateName   string   `json:"template_name" validate:"required"`
}

func (nr *NewRule) Validate() error {
	nr.Name = core.CleanString(nr.Name)
	nr.TemplateName = core.CleanString(nr.TemplateName)
	for i, g := range nr.SelectedGroups {
		nr.SelectedGroups[i] = core.CleanString(g)
	}
	return core.Validate.Struct(nr)
}

type Repository interface {
	CreateRule(rule Rule) (Rule, error)
	QueryAllRules() ([]Rule, error)
	QueryActiveRules() ([]Rule, error)
	GetRuleByName(name string) (Rule, error)
}
