package dummydb

import (
	"sort"

	"github.com/richyfesta/arnoma/core/automation"
)

type ruleRepository struct {
	db *ruleTable
}

var _ automation.Repository = (*ruleRepository)(nil) // interface compliance check

func NewRuleRepository(db *DB) automation.Repository {
	return &ruleRepository{db: db.rules}
}

func (repo *ruleRepository) query() []automation.Rule {
	rules := make([]automation.Rule, 0, len(repo.db.table))
	for _, rule := range repo.db.table {
		rules = append(rules, *rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules
}

func (repo *ruleRepository) CreateRule(rule automation.Rule) (automation.Rule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[rule.Name] = &rule
	return rule, nil
}

func (repo *ruleRepository) QueryAllRules() ([]automation.Rule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *ruleRepository) QueryActiveRules() ([]automation.Rule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var active []automation.Rule
	for _, rule := range repo.query() {
		if rule.Active {
			active = append(active, rule)
		}
	}
	return active, nil
}

func (repo *ruleRepository) GetRuleByName(name string) (automation.Rule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rule, ok := repo.db.table[name]; ok {
		return *rule, nil
	}
	return automation.Rule{}, automation.ErrRuleNotFound
}

type pauseRegistry struct {
	db *pauseTable
}

var _ automation.PauseRegistry = (*pauseRegistry)(nil) // interface compliance check

func NewPauseRegistry(db *DB) automation.PauseRegistry {
	return &pauseRegistry{db: db.pauses}
}

func (reg *pauseRegistry) IsPaused(studentID string) (bool, error) {
	reg.db.RLock()
	defer reg.db.RUnlock()
	return reg.db.table[studentID], nil
}

func (reg *pauseRegistry) SetPaused(studentID string, paused bool) error {
	reg.db.Lock()
	defer reg.db.Unlock()

	reg.db.table[studentID] = paused
	return nil
}
