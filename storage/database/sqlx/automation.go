package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/richyfesta/arnoma/core/automation"
)

type ruleRepository struct {
	db *sqlx.DB
}

var _ automation.Repository = (*ruleRepository)(nil) // interface compliance check

func NewRuleRepository(db *sqlx.DB) *ruleRepository {
	return &ruleRepository{db: db}
}

type ruleRow struct {
	Name           string         `db:"name"`
	Active         bool           `db:"active"`
	Frequency      string         `db:"frequency"`
	OffsetMinutes  int            `db:"offset_minutes"`
	SelectedGroups pq.StringArray `db:"selected_groups"`
	TemplateName   string         `db:"template_name"`
}

func (repo ruleRepository) fromRow(row ruleRow) automation.Rule {
	return automation.Rule{
		Name:           row.Name,
		Active:         row.Active,
		Frequency:      row.Frequency,
		OffsetMinutes:  row.OffsetMinutes,
		SelectedGroups: row.SelectedGroups,
		TemplateName:   row.TemplateName,
	}
}

func (repo ruleRepository) fromRows(rows []ruleRow) []automation.Rule {
	rules := make([]automation.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, repo.fromRow(row))
	}
	return rules
}

func (repo ruleRepository) CreateRule(rule automation.Rule) (automation.Rule, error) {
	row := ruleRow{
		Name:           rule.Name,
		Active:         rule.Active,
		Frequency:      rule.Frequency,
		OffsetMinutes:  rule.OffsetMinutes,
		SelectedGroups: rule.SelectedGroups,
		TemplateName:   rule.TemplateName,
	}
	_, err := repo.db.NamedExec(
		`INSERT INTO automation_rule (name, active, frequency, offset_minutes, selected_groups, template_name)
		 VALUES (:name, :active, :frequency, :offset_minutes, :selected_groups, :template_name)
		 ON CONFLICT (name) DO UPDATE SET
		   active = EXCLUDED.active,
		   frequency = EXCLUDED.frequency,
		   offset_minutes = EXCLUDED.offset_minutes,
		   selected_groups = EXCLUDED.selected_groups,
		   template_name = EXCLUDED.template_name`, row)
	if err != nil {
		return automation.Rule{}, errors.Wrap(err, "inserting automation rule")
	}
	return rule, nil
}

func (repo ruleRepository) QueryAllRules() ([]automation.Rule, error) {
	var rows []ruleRow
	if err := repo.db.Select(&rows, `SELECT * FROM automation_rule ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying automation rules")
	}
	return repo.fromRows(rows), nil
}

func (repo ruleRepository) QueryActiveRules() ([]automation.Rule, error) {
	var rows []ruleRow
	if err := repo.db.Select(&rows, `SELECT * FROM automation_rule WHERE active ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying active automation rules")
	}
	return repo.fromRows(rows), nil
}

func (repo ruleRepository) GetRuleByName(name string) (automation.Rule, error) {
	var row ruleRow
	if err := repo.db.Get(&row, `SELECT * FROM automation_rule WHERE name = $1`, name); err != nil {
		if err == sql.ErrNoRows {
			return automation.Rule{}, automation.ErrRuleNotFound
		}
		return automation.Rule{}, errors.Wrap(err, "finding automation rule")
	}
	return repo.fromRow(row), nil
}

type pauseRegistry struct {
	db *sqlx.DB
}

var _ automation.PauseRegistry = (*pauseRegistry)(nil) // interface compliance check

func NewPauseRegistry(db *sqlx.DB) *pauseRegistry {
	return &pauseRegistry{db: db}
}

func (reg pauseRegistry) IsPaused(studentID string) (bool, error) {
	var paused bool
	err := reg.db.Get(&paused, `SELECT paused FROM reminder_pause WHERE student_id = $1`, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, errors.Wrap(err, "checking reminder pause")
	}
	return paused, nil
}

func (reg pauseRegistry) SetPaused(studentID string, paused bool) error {
	_, err := reg.db.Exec(
		`INSERT INTO reminder_pause (student_id, paused) VALUES ($1, $2)
		 ON CONFLICT (student_id) DO UPDATE SET paused = EXCLUDED.paused`, studentID, paused)
	if err != nil {
		return errors.Wrap(err, "setting reminder pause")
	}
	return nil
}
