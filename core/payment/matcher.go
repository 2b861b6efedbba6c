package payment

import (
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/null/v8"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/student"
)

var nowFunc = time.Now // mockable

const (
	// settleWindowDays is how many days after a past class a payment may
	// arrive and still settle it.
	settleWindowDays = 7

	// suggestionRatio is the minimum difflib similarity for a near-miss
	// name suggestion. Suggestions are diagnostics only, never auto-linked.
	suggestionRatio = 0.7
)

type (
	// Matcher assigns payment events to students and settles their
	// attendance records. First exact name match wins; no fuzzy matching.
	Matcher struct {
		payments *Service
		students *student.Service
		ledger   *attendance.Service
		log      core.Logger
		loc      *time.Location
	}

	// Suggestion is a diagnostics-only near-miss roster name for an
	// unlinked payment.
	Suggestion struct {
		Student student.Student `json:"student"`
		Ratio   float64         `json:"ratio"`
	}
)

func NewMatcher(payments *Service, students *student.Service, ledger *attendance.Service, log core.Logger, loc *time.Location) *Matcher {
	return &Matcher{
		payments: payments,
		students: students,
		ledger:   ledger,
		log:      log,
		loc:      loc,
	}
}

// MatchStudent finds the roster student a payment belongs to by exact
// (case/whitespace-insensitive) comparison of the event's names against each
// student's name and aliases. The first match in roster order is accepted;
// ambiguity is not resolved. Ignored events never match.
func (m *Matcher) MatchStudent(evt Event, roster []student.Student) (student.Student, bool) {
	if evt.Ignored {
		return student.Student{}, false
	}
	for _, name := range []string{evt.StudentName, evt.PayerName, evt.PayerNameRaw} {
		if core.CleanString(name) == "" {
			continue
		}
		for _, stu := range roster {
			if stu.MatchesName(name) {
				return stu, true
			}
		}
	}
	return student.Student{}, false
}

// Settles reports whether the payment settles the given attendance record:
// either the payment date equals the record date, or the record is in the
// past and the payment arrived 1-7 days after it.
func (m *Matcher) Settles(evt Event, rec attendance.Record, today time.Time) bool {
	payDate := attendance.DateOf(evt.Timestamp, m.loc)
	recDate := attendance.DateOf(rec.Date, time.UTC)
	today = attendance.DateOf(today, m.loc)

	if payDate.Equal(recDate) {
		return true
	}
	if recDate.Before(today) {
		diff := attendance.DaysBetween(recDate, payDate)
		return diff >= 1 && diff <= settleWindowDays
	}
	return false
}

// Reconcile links every unlinked payment it can and upgrades the matching
// unpaid records to paid. Unmatched payments stay unlinked; that is reported
// via diagnostics, not retried here.
func (m *Matcher) Reconcile() error {
	roster, err := m.students.QueryAll()
	if err != nil {
		return err
	}
	unlinked, err := m.payments.Unlinked()
	if err != nil {
		return err
	}

	today := nowFunc().In(m.loc)
	for _, evt := range unlinked {
		stu, ok := m.MatchStudent(evt, roster)
		if !ok {
			m.log.Debug("matcher: no student for payment", map[string]interface{}{
				"payment": evt.ID, "payer": evt.PayerNameRaw,
			})
			continue
		}
		if _, err := m.payments.repo.UpdateEventLink(evt.ID, null.StringFrom(stu.ID), false); err != nil {
			return err
		}
		if err := m.settleRecords(evt, stu, today); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) settleRecords(evt Event, stu student.Student, today time.Time) error {
	recs, err := m.ledger.ByStudent(stu.ID)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if rec.Status != attendance.StatusUnpaid {
			continue
		}
		if m.Settles(evt, rec, today) {
			if err := m.ledger.MarkPaid(stu.ID, rec.Date, evt.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Suggest lists roster students whose names are close to the payment's payer
// name, for the unlinked-payments diagnostic view.
func (m *Matcher) Suggest(evt Event, roster []student.Student, limit int) []Suggestion {
	payer := core.CleanString(evt.PayerNameRaw, true /* lower */)
	if payer == "" {
		payer = core.CleanString(evt.PayerName, true)
	}
	if payer == "" {
		return nil
	}

	var suggestions []Suggestion
	for _, stu := range roster {
		name := core.CleanString(stu.Name, true)
		ratio := difflib.NewMatcher(strings.Split(payer, ""), strings.Split(name, "")).QuickRatio()
		if ratio >= suggestionRatio {
			suggestions = append(suggestions, Suggestion{Student: stu, Ratio: ratio})
		}
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Ratio > suggestions[j].Ratio })
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
