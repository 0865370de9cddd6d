package timetable

import (
	"errors"
	"fmt"
	"strings"

	"classbell/internal/schedule"
)

// DefaultLeadMinutes is applied when a stored entry carries no lead time.
const DefaultLeadMinutes = 5

// ClassEvent is one weekly recurring class entry.
//
// Day accepts English weekday names and the localized Korean labels
// (월요일..금요일); both normalize to the same five weekdays.
// StartTime/EndTime are 24h "HH:MM" wall-clock strings.
type ClassEvent struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Day         string `json:"day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Room        string `json:"room"`
	Professor   string `json:"professor"`
	Color       string `json:"color,omitempty"`
	LeadMinutes int    `json:"notify_before"`
}

var (
	ErrNotFound = errors.New("class not found")
)

// Validate checks a ClassEvent before it is stored or scheduled.
// Malformed entries are rejected whole; there is no partial registration.
func Validate(ev ClassEvent) error {
	if strings.TrimSpace(ev.Name) == "" {
		return errors.New("class name is empty")
	}
	if _, err := schedule.ParseDay(ev.Day); err != nil {
		return err
	}
	sh, sm, err := schedule.ParseClock(ev.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	eh, em, err := schedule.ParseClock(ev.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	if sh*60+sm >= eh*60+em {
		return fmt.Errorf("start_time %s is not before end_time %s", ev.StartTime, ev.EndTime)
	}
	if ev.LeadMinutes < 0 {
		return fmt.Errorf("notify_before must be >= 0, got %d", ev.LeadMinutes)
	}
	return nil
}
