package alarm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"classbell/internal/notify"
	"classbell/internal/schedule"
	"classbell/internal/timetable"
	"classbell/pkg/logx"
)

// Config controls the registry.
type Config struct {
	// Policy selects the recurrence mechanism: "self_rearm" (default) or "cron".
	Policy string
	// StatePath is where the active-alarm blob lives. Empty disables persistence.
	StatePath string
	// Timezone is an IANA name; empty means the system local zone.
	Timezone string
}

// Alarm is one active registration: the class, its next start, and the
// instant the reminder fires (start minus lead).
type Alarm struct {
	ClassID     int64                `json:"class_id"`
	ClassAt     time.Time            `json:"class_at"`
	FireAt      time.Time            `json:"fire_at"`
	LeadMinutes int                  `json:"lead_minutes"`
	Event       timetable.ClassEvent `json:"event"`
}

// Registry maps class ids to at most one armed alarm each.
type Registry struct {
	log  logx.Logger
	cfg  Config
	loc  *time.Location
	sink notify.Sink

	policy RecurrencePolicy

	mu      sync.Mutex
	alarms  map[int64]Alarm
	started bool
	runCtx  context.Context

	// nowFn is swapped in tests to pin the clock.
	nowFn func() time.Time
}

func New(cfg Config, sink notify.Sink, log logx.Logger) (*Registry, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	r := &Registry{
		log:    log,
		cfg:    cfg,
		loc:    loc,
		sink:   sink,
		alarms: map[int64]Alarm{},
		nowFn:  time.Now,
	}

	switch cfg.Policy {
	case "", "self_rearm":
		r.policy = newSelfRearmPolicy(r.onFire, r.now)
	case "cron":
		r.policy = newCronPolicy(loc, r.onFire)
	default:
		return nil, fmt.Errorf("unknown recurrence policy %q", cfg.Policy)
	}
	return r, nil
}

func (r *Registry) now() time.Time { return r.nowFn().In(r.loc) }

// Start arms the policy and restores persisted alarms. Entries whose fire
// time is still ahead are re-armed as saved; stale ones are recomputed from
// their class slot so the alarm lands on the next future occurrence.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.runCtx = ctx
	r.mu.Unlock()

	r.policy.Start(ctx)

	saved, err := r.loadState()
	if err != nil {
		r.log.Warn("alarm state unreadable, starting empty", logx.Err(err))
		saved = nil
	}

	now := r.now()
	restored, recomputed := 0, 0
	for _, a := range saved {
		if a.FireAt.After(now) {
			r.mu.Lock()
			armErr := r.policy.Arm(a.ClassID, a.FireAt)
			if armErr == nil {
				r.alarms[a.ClassID] = a
			}
			r.mu.Unlock()
			if armErr != nil {
				r.log.Error("re-arm failed", logx.Int64("class_id", a.ClassID), logx.Err(armErr))
				continue
			}
			restored++
			continue
		}
		if _, err := r.Schedule(a.Event); err != nil {
			r.log.Warn("stale alarm dropped", logx.Int64("class_id", a.ClassID), logx.Err(err))
			continue
		}
		recomputed++
	}

	r.mu.Lock()
	r.persistLocked()
	r.mu.Unlock()

	r.log.Info("alarm registry started",
		logx.String("policy", r.policyName()),
		logx.Int("restored", restored), logx.Int("recomputed", recomputed))
	return nil
}

func (r *Registry) policyName() string {
	if r.cfg.Policy == "" {
		return "self_rearm"
	}
	return r.cfg.Policy
}

// Stop disarms everything and writes a final state snapshot. The records
// stay in memory so the snapshot reflects what was active.
func (r *Registry) Stop(ctx context.Context) {
	_ = ctx
	r.policy.Stop()
	r.mu.Lock()
	r.persistLocked()
	r.started = false
	r.mu.Unlock()
	r.log.Info("alarm registry stopped")
}

// Schedule registers (or replaces) the alarm for ev's class id. The fire
// time is the next future occurrence of the class slot minus the lead; when
// the lead pushes it into the past, the alarm rolls to the following week.
func (r *Registry) Schedule(ev timetable.ClassEvent) (Alarm, error) {
	day, err := schedule.ParseDay(ev.Day)
	if err != nil {
		return Alarm{}, fmt.Errorf("class %d: %w", ev.ID, err)
	}
	hour, minute, err := schedule.ParseClock(ev.StartTime)
	if err != nil {
		return Alarm{}, fmt.Errorf("class %d: %w", ev.ID, err)
	}
	// Zero is a real lead: remind exactly at class start. The absent-field
	// default is applied by the store, where absence is still visible.
	lead := ev.LeadMinutes
	if lead < 0 {
		return Alarm{}, fmt.Errorf("class %d: negative lead %d", ev.ID, lead)
	}

	now := r.now()
	classAt := schedule.NextOccurrence(day, hour, minute, now)
	fireAt := classAt.Add(-time.Duration(lead) * time.Minute)
	if !fireAt.After(now) {
		classAt = classAt.AddDate(0, 0, 7)
		fireAt = classAt.Add(-time.Duration(lead) * time.Minute)
	}

	a := Alarm{
		ClassID:     ev.ID,
		ClassAt:     classAt,
		FireAt:      fireAt,
		LeadMinutes: lead,
		Event:       ev,
	}

	r.mu.Lock()
	if err := r.policy.Arm(ev.ID, fireAt); err != nil {
		r.mu.Unlock()
		return Alarm{}, fmt.Errorf("arm class %d: %w", ev.ID, err)
	}
	r.alarms[ev.ID] = a
	r.persistLocked()
	r.mu.Unlock()

	r.log.Debug("alarm scheduled",
		logx.Int64("class_id", ev.ID), logx.String("name", ev.Name),
		logx.Time("fire_at", fireAt), logx.Int("lead_min", lead))
	return a, nil
}

// Cancel removes the alarm for a class id. Unknown ids are a no-op.
func (r *Registry) Cancel(classID int64) bool {
	r.mu.Lock()
	_, ok := r.alarms[classID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.policy.Disarm(classID)
	delete(r.alarms, classID)
	r.persistLocked()
	r.mu.Unlock()

	r.log.Debug("alarm canceled", logx.Int64("class_id", classID))
	return true
}

// ListActive returns the armed alarms ordered by fire time, then class id.
func (r *Registry) ListActive() []Alarm {
	r.mu.Lock()
	out := make([]Alarm, 0, len(r.alarms))
	for _, a := range r.alarms {
		out = append(out, a)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].ClassID < out[j].ClassID
	})
	return out
}

// ActiveIDs returns the class ids that currently hold an alarm.
func (r *Registry) ActiveIDs() []int64 {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.alarms))
	for id := range r.alarms {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// onFire is the policy callback. Delivery is fire-and-forget; afterwards
// the alarm is scheduled again so it lands on next week's occurrence.
// Under the cron policy the entry already repeats weekly, so the
// re-schedule replaces it with an equivalent one; what matters is that
// the persisted FireAt moves forward on both policies.
func (r *Registry) onFire(classID int64) {
	r.mu.Lock()
	a, ok := r.alarms[classID]
	ctx := r.runCtx
	r.mu.Unlock()
	if !ok {
		// Canceled after the trigger was already in flight.
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if r.sink != nil {
		rem := notify.Reminder{
			ClassID:   a.ClassID,
			ClassName: a.Event.Name,
			Room:      a.Event.Room,
			StartTime: a.Event.StartTime,
			Professor: a.Event.Professor,
			At:        a.FireAt,
		}
		if err := r.sink.Notify(ctx, rem); err != nil {
			r.log.Warn("reminder dispatch failed",
				logx.Int64("class_id", classID), logx.Err(err))
		}
	}

	if _, err := r.Schedule(a.Event); err != nil {
		r.log.Error("weekly re-arm failed", logx.Int64("class_id", classID), logx.Err(err))
	}
}
