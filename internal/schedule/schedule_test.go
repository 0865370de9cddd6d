package schedule

import (
	"errors"
	"testing"
	"time"
)

// 2023-10-02 is a Monday.
func monday(hour, min int) time.Time {
	return time.Date(2023, 10, 2, hour, min, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		day  time.Weekday
		hh   int
		mm   int
		now  time.Time
		want time.Time
	}{
		{
			name: "later same week",
			day:  time.Friday,
			hh:   14, mm: 0,
			now:  time.Date(2023, 10, 4, 8, 0, 0, 0, time.UTC), // Wednesday 08:00
			want: time.Date(2023, 10, 6, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "slot already passed today",
			day:  time.Monday,
			hh:   9, mm: 0,
			now:  monday(9, 10),
			want: time.Date(2023, 10, 9, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "later today",
			day:  time.Monday,
			hh:   15, mm: 30,
			now:  monday(9, 10),
			want: monday(15, 30),
		},
		{
			name: "exactly on the slot rolls a full week",
			day:  time.Monday,
			hh:   9, mm: 0,
			now:  monday(9, 0),
			want: time.Date(2023, 10, 9, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "earlier weekday wraps to next week",
			day:  time.Tuesday,
			hh:   10, mm: 0,
			now:  time.Date(2023, 10, 6, 12, 0, 0, 0, time.UTC), // Friday
			want: time.Date(2023, 10, 10, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.day, tt.hh, tt.mm, tt.now)
			if !got.Equal(tt.want) {
				t.Fatalf("NextOccurrence = %v, want %v", got, tt.want)
			}
			if got.Weekday() != tt.day {
				t.Fatalf("result weekday = %v, want %v", got.Weekday(), tt.day)
			}
		})
	}
}

func TestNextOccurrenceAlwaysStrictlyFuture(t *testing.T) {
	t.Parallel()
	nows := []time.Time{
		monday(0, 0),
		monday(23, 59),
		time.Date(2023, 10, 8, 12, 0, 0, 0, time.UTC), // Sunday
		time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC),
	}
	for _, now := range nows {
		for day := time.Monday; day <= time.Friday; day++ {
			for _, hm := range [][2]int{{0, 0}, {9, 0}, {23, 59}} {
				got := NextOccurrence(day, hm[0], hm[1], now)
				if !got.After(now) {
					t.Fatalf("NextOccurrence(%v %02d:%02d, now=%v) = %v, not strictly future",
						day, hm[0], hm[1], now, got)
				}
				if got.Sub(now) > 7*24*time.Hour {
					t.Fatalf("NextOccurrence(%v %02d:%02d, now=%v) = %v, more than a week out",
						day, hm[0], hm[1], now, got)
				}
			}
		}
	}
}

func TestParseDay(t *testing.T) {
	t.Parallel()
	good := map[string]time.Weekday{
		"Monday":    time.Monday,
		"friday":    time.Friday,
		" Tuesday ": time.Tuesday,
		"수요일":       time.Wednesday,
		"금요일":       time.Friday,
	}
	for label, want := range good {
		got, err := ParseDay(label)
		if err != nil {
			t.Fatalf("ParseDay(%q) error: %v", label, err)
		}
		if got != want {
			t.Fatalf("ParseDay(%q) = %v, want %v", label, got, want)
		}
	}

	for _, label := range []string{"", "Saturday", "Sunday", "Mon", "일요일", "funday"} {
		if _, err := ParseDay(label); err == nil {
			t.Fatalf("ParseDay(%q) expected error", label)
		}
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	h, m, err := ParseClock("09:05")
	if err != nil {
		t.Fatalf("ParseClock error: %v", err)
	}
	if h != 9 || m != 5 {
		t.Fatalf("ParseClock = %d:%d, want 9:5", h, m)
	}

	for _, raw := range []string{"", "9", "24:00", "12:60", "ab:cd", "12:00:00", "-1:30"} {
		_, _, err := ParseClock(raw)
		if err == nil {
			t.Fatalf("ParseClock(%q) expected error", raw)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ParseClock(%q) error type = %T, want *ParseError", raw, err)
		}
	}
}
