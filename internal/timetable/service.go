package timetable

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"classbell/pkg/logx"
)

// Scheduler is the alarm-registry port the timetable syncs into.
// The registry owns alarms; the timetable owns classes and must report
// every create/update/delete.
type Scheduler interface {
	Schedule(ev ClassEvent) error
	Cancel(id int64) bool
	ActiveIDs() []int64
}

// Service keeps the alarm registry in step with the class store.
type Service struct {
	log   logx.Logger
	cfg   Config
	sched Scheduler

	mu    sync.Mutex
	store Store

	timerMu sync.Mutex
	timer   *time.Timer
}

// Store returns the current class store. The watcher may swap it after an
// external reload, so callers must not cache the result.
func (s *Service) Store() Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

func NewService(cfg Config, store Store, sched Scheduler, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, cfg: cfg, store: store, sched: sched}
}

// Sync schedules an alarm for every stored class and cancels alarms whose
// class no longer exists. Entries that fail validation or scheduling are
// skipped individually; one bad row never blocks the rest.
func (s *Service) Sync(ctx context.Context) error {
	classes, err := s.Store().ListClasses(ctx)
	if err != nil {
		return err
	}

	seen := make(map[int64]bool, len(classes))
	scheduled := 0
	for _, ev := range classes {
		if err := s.sched.Schedule(ev); err != nil {
			s.log.Warn("class not scheduled",
				logx.Int64("class_id", ev.ID), logx.String("name", ev.Name), logx.Err(err))
			continue
		}
		seen[ev.ID] = true
		scheduled++
	}

	canceled := 0
	for _, id := range s.sched.ActiveIDs() {
		if !seen[id] {
			if s.sched.Cancel(id) {
				canceled++
			}
		}
	}

	s.log.Info("timetable synced",
		logx.Int("classes", len(classes)), logx.Int("scheduled", scheduled), logx.Int("canceled", canceled))
	return nil
}

// Watch resyncs after external edits to the timetable file. It is a no-op
// for the sqlite driver. Blocks until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	driver := strings.ToLower(strings.TrimSpace(s.cfg.Driver))
	if driver != "" && driver != "file" {
		return nil
	}

	dir := filepath.Dir(s.cfg.Path)
	file := filepath.Base(s.cfg.Path)

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(dir)
			if err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			s.log.Warn("timetable watch init failed", logx.Err(err), logx.String("dir", dir))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
				continue
			}
		}

		s.log.Debug("timetable watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if strings.EqualFold(filepath.Base(ev.Name), file) {
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
						s.debounceResync(ctx)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err != nil {
					s.log.Warn("timetable watch error", logx.Err(err))
				}
			}
		}

		_ = w.Close()
		s.log.Warn("timetable watcher stopped; restarting", logx.String("dir", dir))
	}
}

// debounceResync coalesces the event bursts editors produce into one
// reload + sync.
func (s *Service) debounceResync(ctx context.Context) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(250*time.Millisecond, func() {
		if ctx.Err() != nil {
			return
		}
		fresh, err := Open(s.cfg, s.log)
		if err != nil {
			s.log.Warn("timetable reload failed", logx.Err(err))
			return
		}
		s.mu.Lock()
		old := s.store
		s.store = fresh
		s.mu.Unlock()
		_ = old.Close()

		if err := s.Sync(ctx); err != nil {
			s.log.Warn("timetable resync failed", logx.Err(err))
		}
	})
}
