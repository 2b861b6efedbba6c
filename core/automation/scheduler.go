package automation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/notification"
	"github.com/richyfesta/arnoma/core/student"
)

var nowFunc = time.Now // mockable

// Boundary actions for the reminder templates.
const (
	actionClassReminder   = "sendClassReminderEmail"
	actionPaymentReminder = "sendPaymentReminderEmail"
)

type (
	// Dispatcher is the idempotent send path consumed by the scheduler.
	Dispatcher interface {
		Send(n notification.Notification) (string, error)
	}

	// Scheduler evaluates the automation rules against the clock and the
	// calendar snapshot on a recurring tick, and resolves every firing
	// candidate against the Dispatcher exactly once per run.
	Scheduler struct {
		rules      Repository
		pause      PauseRegistry
		students   *student.Service
		ledger     *attendance.Service
		dispatcher Dispatcher
		log        core.Logger

		loc          *time.Location
		tolerance    int
		tickEvery    time.Duration
		refreshEvery time.Duration

		// single-flight guards, one per periodic job. Overlapping runs are
		// suppressed, not queued.
		ticking    int32
		refreshing int32

		mu       sync.RWMutex
		snapshot *attendance.Snapshot
	}
)

func NewScheduler(
	rules Repository,
	pause PauseRegistry,
	students *student.Service,
	ledger *attendance.Service,
	dispatcher Dispatcher,
	log core.Logger,
	conf *core.Config,
) *Scheduler {
	return &Scheduler{
		rules:        rules,
		pause:        pause,
		students:     students,
		ledger:       ledger,
		dispatcher:   dispatcher,
		log:          log,
		loc:          conf.BusinessTimezone,
		tolerance:    conf.Automation.ToleranceMinutes,
		tickEvery:    conf.Automation.TickInterval,
		refreshEvery: conf.Automation.RefreshInterval,
	}
}

// Start runs the automation tick and the snapshot refresh tick until ctx is
// done. Both run on the host goroutine; their work never overlaps.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		if _, err := s.Refresh(); err != nil {
			s.log.Error("scheduler: initial snapshot load", err)
		}

		tick := time.NewTicker(s.tickEvery)
		refresh := time.NewTicker(s.refreshEvery)
		defer tick.Stop()
		defer refresh.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-refresh.C:
				if _, err := s.Refresh(); err != nil {
					s.log.Error("scheduler: snapshot refresh", err)
				}
			case <-tick.C:
				if _, err := s.RunTick(); err != nil {
					s.log.Error("scheduler: tick", err)
				}
			}
		}
	}()
}

// Refresh rebuilds the read-only calendar snapshot. A refresh attempted
// while one is in flight is skipped.
func (s *Scheduler) Refresh() (bool, error) {
	if !atomic.CompareAndSwapInt32(&s.refreshing, 0, 1) {
		return false, nil
	}
	defer atomic.StoreInt32(&s.refreshing, 0)

	snap, err := s.ledger.LoadSnapshot()
	if err != nil {
		return true, err
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return true, nil
}

// Snapshot returns the current read-only calendar snapshot, or nil before
// the first refresh.
func (s *Scheduler) Snapshot() *attendance.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// RunTick evaluates every active rule once against the current time in the
// business timezone. It returns false when skipped because a prior tick is
// still in flight. Per-candidate send failures are logged and left for the
// next tick; they do not abort the run.
func (s *Scheduler) RunTick() (bool, error) {
	if !atomic.CompareAndSwapInt32(&s.ticking, 0, 1) {
		return false, nil
	}
	defer atomic.StoreInt32(&s.ticking, 0)

	now := nowFunc().In(s.loc)
	rules, err := s.rules.QueryActiveRules()
	if err != nil {
		return true, err
	}

	var candidates []notification.Notification
	for _, rule := range rules {
		switch rule.Frequency {
		case FrequencyBeforeClass:
			cands, err := s.beforeClassCandidates(rule, now)
			if err != nil {
				return true, err
			}
			candidates = append(candidates, cands...)
		case FrequencyAfterClassUnpaid:
			cands, err := s.paymentReminderCandidates(rule, now)
			if err != nil {
				return true, err
			}
			candidates = append(candidates, cands...)
		default:
			s.log.Warn("scheduler: unknown rule frequency", map[string]interface{}{
				"rule": rule.Name, "frequency": rule.Frequency,
			})
		}
	}

	for _, n := range candidates {
		result, err := s.dispatcher.Send(n)
		if err != nil {
			// no sent record was written; the next tick re-attempts
			s.log.Error("scheduler: send failed", err, map[string]interface{}{
				"template": n.TemplateName, "recipient": n.Recipient,
			})
			continue
		}
		s.log.Debug("scheduler: send resolved", map[string]interface{}{
			"template": n.TemplateName, "recipient": n.Recipient, "result": result,
		})
	}
	return true, nil
}

// beforeClassCandidates enumerates (rule, group, session) triples whose class
// occurs today and whose start time is within the trigger window, and fans
// them out to the group's active, unpaused students.
func (s *Scheduler) beforeClassCandidates(rule Rule, now time.Time) ([]notification.Notification, error) {
	nowMinutes := now.Hour()*60 + now.Minute()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	// no selected groups means the rule targets every group
	groups := rule.SelectedGroups
	if len(groups) == 0 {
		all, err := s.students.Groups()
		if err != nil {
			return nil, err
		}
		for _, grp := range all {
			groups = append(groups, grp.Name)
		}
	}

	var candidates []notification.Notification
	for _, groupName := range groups {
		grp, err := s.students.GroupByName(groupName)
		if err != nil {
			if err == student.ErrGroupNotFound {
				s.log.Warn("scheduler: rule targets unknown group", map[string]interface{}{
					"rule": rule.Name, "group": groupName,
				})
				continue
			}
			return nil, err
		}

		for _, session := range grp.Sessions() {
			if session.Weekday != now.Weekday() {
				continue
			}
			minutesUntil := session.MinutesOfDay() - nowMinutes
			if abs(minutesUntil-rule.OffsetMinutes) > s.tolerance {
				continue
			}

			members, err := s.students.ActiveByGroup(grp.Name)
			if err != nil {
				return nil, err
			}
			for _, stu := range members {
				if stu.Email == "" {
					continue
				}
				paused, err := s.pause.IsPaused(stu.ID)
				if err != nil {
					return nil, err
				}
				if paused {
					continue
				}
				candidates = append(candidates, notification.Notification{
					Action:        actionClassReminder,
					TemplateName:  rule.TemplateName,
					Recipient:     stu.Email,
					RecipientName: stu.Name,
					Since:         dayStart,
					Data: map[string]interface{}{
						"studentName": stu.Name,
						"groupName":   grp.Name,
						"classTime":   fmt.Sprintf("%d:%02d", session.Hour, session.Minute),
						"classDate":   now.Format("2006-01-02"),
					},
				})
			}
		}
	}
	return candidates, nil
}

// paymentReminderCandidates scans the snapshot for every overdue-unpaid
// record, not only today's: older unpaid sessions stay eligible until paid.
// Each (student, date) pair is an independent candidate.
func (s *Scheduler) paymentReminderCandidates(rule Rule, now time.Time) ([]notification.Notification, error) {
	snap := s.Snapshot()
	if snap == nil {
		if _, err := s.Refresh(); err != nil {
			return nil, err
		}
		snap = s.Snapshot()
	}

	today := attendance.DateOf(now, s.loc)

	var candidates []notification.Notification
	for _, sa := range snap.Students {
		stu := sa.Student
		if !stu.IsActive() || stu.Email == "" {
			continue
		}
		if !rule.AppliesToGroup(stu.Group) {
			continue
		}
		paused, err := s.pause.IsPaused(stu.ID)
		if err != nil {
			return nil, err
		}
		if paused {
			continue
		}

		for _, rec := range sa.Records {
			if !rec.OverdueUnpaid(today) {
				continue
			}
			candidates = append(candidates, notification.Notification{
				Action:        actionPaymentReminder,
				TemplateName:  rule.TemplateName,
				Recipient:     stu.Email,
				RecipientName: stu.Name,
				Since:         rec.Date,
				Data: map[string]interface{}{
					"studentName": stu.Name,
					"classDate":   rec.Date.Format("2006-01-02"),
					"balance":     rec.Balance,
				},
			})
		}
	}
	return candidates, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
