// Package schedule computes the next absolute occurrence of a weekly
// recurring slot (weekday + wall-clock time) and parses the day/clock
// labels a timetable entry carries.
//
// All functions are pure; callers supply the reference instant.
package schedule
