package student

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/richyfesta/arnoma/core"
)

// Session is one weekly class occurrence parsed from a schedule string.
type Session struct {
	Weekday time.Weekday
	Hour    int // 0-23
	Minute  int
}

// MinutesOfDay returns the session start as minutes past midnight.
func (s Session) MinutesOfDay() int { return s.Hour*60 + s.Minute }

var (
	errBadSession = errors.New("unparseable schedule session")

	// "<Weekday>[/<Weekday>...] <H>:<MM> AM|PM"
	sessionRegex = regexp.MustCompile(`(?i)^([A-Za-z/]+)\s+(\d{1,2}):(\d{2})\s*(AM|PM)$`)

	weekdays = map[string]time.Weekday{
		"sun": time.Sunday,
		"mon": time.Monday,
		"tue": time.Tuesday,
		"wed": time.Wednesday,
		"thu": time.Thursday,
		"fri": time.Friday,
		"sat": time.Saturday,
	}
)

// ParseSchedule parses a comma-separated schedule string such as
// "Mon/Wed 6:00 PM, Sat 10:00 AM". Sessions that do not match the grammar
// are skipped rather than failing the whole schedule.
func ParseSchedule(schedule string) []Session {
	var sessions []Session
	for _, part := range strings.Split(schedule, ",") {
		part = core.CleanString(part)
		if part == "" {
			continue
		}
		parsed, err := ParseSession(part)
		if err != nil {
			continue
		}
		sessions = append(sessions, parsed...)
	}
	return sessions
}

// ParseSession parses a single session expression, one Session per listed day.
func ParseSession(s string) ([]Session, error) {
	m := sessionRegex.FindStringSubmatch(core.CleanString(s))
	if m == nil {
		return nil, errBadSession
	}

	hour, err := strconv.Atoi(m[2])
	if err != nil || hour < 1 || hour > 12 {
		return nil, errBadSession
	}
	minute, err := strconv.Atoi(m[3])
	if err != nil || minute > 59 {
		return nil, errBadSession
	}

	// convert to 24-hour
	meridiem := strings.ToUpper(m[4])
	if meridiem == "PM" && hour != 12 {
		hour += 12
	}
	if meridiem == "AM" && hour == 12 {
		hour = 0
	}

	var sessions []Session
	for _, day := range strings.Split(m[1], "/") {
		day = strings.ToLower(core.CleanString(day))
		if len(day) < 3 {
			return nil, errBadSession
		}
		wd, ok := weekdays[day[:3]]
		if !ok {
			return nil, errBadSession
		}
		sessions = append(sessions, Session{Weekday: wd, Hour: hour, Minute: minute})
	}
	return sessions, nil
}
