// Package alarm keeps one active reminder per class: it turns a weekly
// class slot into the next absolute fire time, arms it through a
// recurrence policy, and pushes a notification when it fires.
//
// Two interchangeable policies cover the repetition:
//
//   - self_rearm: a one-shot timer per alarm; after firing, the registry
//     immediately schedules next week's occurrence. Timers die with the
//     process and are rebuilt on startup from the class store.
//   - cron: a weekly repeating cron entry per alarm; the scheduler refires
//     it every week on its own. Cancellation must present the exact entry
//     identity recorded at registration or it silently misses.
package alarm
