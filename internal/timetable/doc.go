// Package timetable owns the weekly class entries: the ClassEvent model,
// its validation rules, and the persistent class store (file or sqlite
// driver). The alarm registry is synced from this store, never the other
// way around.
package timetable
