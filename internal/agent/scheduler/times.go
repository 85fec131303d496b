package scheduler

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/domain/calendar"
)

// Common date/time phrasing: "3pm", "15:00", "3:30 pm", optionally anchored
// to a weekday name ("Tuesday at 3pm") or a relative day.
var (
	clockRe   = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	hourRe    = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	weekdayRe = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseTimePhrase finds a best-effort candidate interval in free text. A
// clock time is required; a weekday name anchors it to the next occurrence
// of that day. Absence of a parseable time reports ok=false.
func (s *Scheduler) parseTimePhrase(text string, duration time.Duration) (calendar.Interval, bool) {
	hour, minute, ok := matchClock(text)
	if !ok {
		return calendar.Interval{}, false
	}

	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.loc)

	if m := weekdayRe.FindString(text); m != "" {
		target := weekdays[strings.ToLower(m)]
		daysAhead := (int(target) - int(now.Weekday()) + 7) % 7
		if daysAhead == 0 && !start.After(now) {
			daysAhead = 7
		}
		start = start.AddDate(0, 0, daysAhead)
	} else if strings.Contains(strings.ToLower(text), "tomorrow") {
		start = start.AddDate(0, 0, 1)
	} else if !start.After(now) {
		// a bare time in the past rolls to the next day
		start = start.AddDate(0, 0, 1)
	}

	return calendar.Interval{Start: start, End: start.Add(duration)}, true
}

func matchClock(text string) (hour, minute int, ok bool) {
	if m := clockRe.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		hour = applyMeridiem(hour, m[3])
		if hour < 24 && minute < 60 {
			return hour, minute, true
		}
	}
	if m := hourRe.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		hour = applyMeridiem(hour, m[2])
		if hour < 24 {
			return hour, 0, true
		}
	}
	return 0, 0, false
}

func applyMeridiem(hour int, meridiem string) int {
	switch strings.ToLower(meridiem) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}
