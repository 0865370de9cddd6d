// Package notify delivers class reminders to configured sinks through an
// async pipeline (bounded queue, worker pool, rate limit, bounded retry).
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Reminder is the payload a fired alarm pushes to the sinks.
// Fire-and-forget: no sink return value is consulted by the scheduler.
type Reminder struct {
	ClassID   int64
	ClassName string
	Room      string
	StartTime string
	Professor string
	At        time.Time
}

// Text renders the reminder body shared by all text-oriented sinks.
func (r Reminder) Text() string {
	prof := r.Professor
	if prof == "" {
		prof = "-"
	}
	room := r.Room
	if room == "" {
		room = "-"
	}
	return fmt.Sprintf("🔔 Class reminder: %s\n🕐 %s | 🏛 %s | 👤 %s",
		r.ClassName, r.StartTime, room, prof)
}

// Sink displays one reminder. Implementations must be safe for
// concurrent use; delivery is attempted from multiple workers.
type Sink interface {
	Notify(ctx context.Context, r Reminder) error
}

// HistoryItem records a delivered reminder for status display.
type HistoryItem struct {
	At   time.Time
	Text string
}
