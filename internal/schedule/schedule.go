package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError describes a malformed day or clock value in a timetable entry.
// Malformed values are rejected at schedule time; nothing is registered.
type ParseError struct {
	Field string // "day" or "time"
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// dayLabels maps accepted weekday labels to their weekday.
// English names are matched case-insensitively; the Korean labels are the
// ones the timetable UI historically produced.
var dayLabels = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"월요일":       time.Monday,
	"화요일":       time.Tuesday,
	"수요일":       time.Wednesday,
	"목요일":       time.Thursday,
	"금요일":       time.Friday,
}

// ParseDay normalizes a weekday label (Monday..Friday, English or Korean).
// Weekend labels are rejected: classes are weekday-only.
func ParseDay(label string) (time.Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	if d, ok := dayLabels[s]; ok {
		return d, nil
	}
	return 0, &ParseError{Field: "day", Value: label}
}

// ParseClock parses a strict 24h "HH:MM" wall-clock string.
func ParseClock(raw string) (hour, minute int, err error) {
	s := strings.TrimSpace(raw)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, &ParseError{Field: "time", Value: raw}
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, &ParseError{Field: "time", Value: raw}
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, &ParseError{Field: "time", Value: raw}
	}
	return h, m, nil
}

// NextOccurrence returns the next instant strictly after now that falls on
// the given weekday at hour:minute (in now's location).
//
// When now is exactly on the slot, the result is one week later, never the
// same instant. This keeps reminders from ever being armed in the past.
func NextOccurrence(day time.Weekday, hour, minute int, now time.Time) time.Time {
	daysAhead := (int(day) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).
		AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
