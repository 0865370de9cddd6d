package app

import (
	"classbell/internal/alarm"
	"classbell/internal/timetable"
)

// registryScheduler narrows the alarm registry to the port the timetable
// sync loop drives.
type registryScheduler struct {
	reg *alarm.Registry
}

func (r registryScheduler) Schedule(ev timetable.ClassEvent) error {
	_, err := r.reg.Schedule(ev)
	return err
}

func (r registryScheduler) Cancel(id int64) bool { return r.reg.Cancel(id) }

func (r registryScheduler) ActiveIDs() []int64 { return r.reg.ActiveIDs() }
