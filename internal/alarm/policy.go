package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RecurrencePolicy arms and disarms the underlying trigger for an alarm.
// The registry owns the alarm records; the policy only owns the timers.
type RecurrencePolicy interface {
	Start(ctx context.Context)
	// Arm replaces any existing trigger for classID with one firing at
	// (and, policy-depending, weekly after) the given instant.
	Arm(classID int64, at time.Time) error
	// Disarm cancels the trigger. Returns false when nothing was armed.
	Disarm(classID int64) bool
	Stop()
}

// ---- self_rearm ----

// selfRearmPolicy drives each alarm with a one-shot time.Timer. The
// registry re-schedules after every fire, producing the weekly cycle for
// as long as the process lives.
type selfRearmPolicy struct {
	fire func(classID int64)
	now  func() time.Time

	mu     sync.Mutex
	timers map[int64]*time.Timer
	// ver lets replaced or canceled timers detect that their callback is
	// stale and must not fire.
	ver map[int64]uint64
}

func newSelfRearmPolicy(fire func(classID int64), now func() time.Time) *selfRearmPolicy {
	return &selfRearmPolicy{
		fire:   fire,
		now:    now,
		timers: map[int64]*time.Timer{},
		ver:    map[int64]uint64{},
	}
}

func (p *selfRearmPolicy) Start(ctx context.Context) { _ = ctx }

func (p *selfRearmPolicy) Arm(classID int64, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.timers[classID]; ok {
		_ = t.Stop()
	}
	v := p.ver[classID] + 1
	p.ver[classID] = v

	delay := at.Sub(p.now())
	if delay < 0 {
		delay = 0
	}
	p.timers[classID] = time.AfterFunc(delay, func() {
		p.mu.Lock()
		stale := p.ver[classID] != v
		if !stale {
			delete(p.timers, classID)
		}
		p.mu.Unlock()
		if stale {
			return
		}
		p.fire(classID)
	})
	return nil
}

func (p *selfRearmPolicy) Disarm(classID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.timers[classID]
	if !ok {
		return false
	}
	_ = t.Stop()
	delete(p.timers, classID)
	p.ver[classID]++
	return true
}

func (p *selfRearmPolicy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.timers {
		_ = t.Stop()
		p.ver[id]++
	}
	p.timers = map[int64]*time.Timer{}
}

// ---- cron ----

// cronPolicy registers a weekly repeating cron entry per alarm, delegating
// the 7-day period to the cron scheduler. The entry id recorded at Arm time
// is the only handle that can cancel the trigger.
type cronPolicy struct {
	fire func(classID int64)
	loc  *time.Location

	mu      sync.Mutex
	c       *cron.Cron
	entries map[int64]cron.EntryID
}

func newCronPolicy(loc *time.Location, fire func(classID int64)) *cronPolicy {
	if loc == nil {
		loc = time.Local
	}
	return &cronPolicy{
		fire:    fire,
		loc:     loc,
		c:       cron.New(cron.WithLocation(loc)),
		entries: map[int64]cron.EntryID{},
	}
}

func (p *cronPolicy) Start(ctx context.Context) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.c.Start()
}

func (p *cronPolicy) Arm(classID int64, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if eid, ok := p.entries[classID]; ok {
		p.c.Remove(eid)
		delete(p.entries, classID)
	}

	local := at.In(p.loc)
	spec := fmt.Sprintf("%d %d * * %d", local.Minute(), local.Hour(), int(local.Weekday()))
	eid, err := p.c.AddFunc(spec, func() { p.fire(classID) })
	if err != nil {
		return err
	}
	p.entries[classID] = eid
	return nil
}

func (p *cronPolicy) Disarm(classID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	eid, ok := p.entries[classID]
	if !ok {
		return false
	}
	p.c.Remove(eid)
	delete(p.entries, classID)
	return true
}

func (p *cronPolicy) Stop() {
	p.mu.Lock()
	c := p.c
	p.entries = map[int64]cron.EntryID{}
	p.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
