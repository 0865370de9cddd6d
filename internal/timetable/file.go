package timetable

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"classbell/pkg/logx"
)

// fileStore keeps the whole timetable in one JSON document:
//
//	{"metadata": {...}, "classes": [...]}
//
// Older exports were a bare class array; loads accept both forms.
// Every mutation rewrites the whole document via temp file + rename.
type fileStore struct {
	log  logx.Logger
	path string

	// defaultLead fills in entries written before lead times existed.
	defaultLead int

	mu      sync.Mutex
	classes map[int64]ClassEvent
}

type fileMetadata struct {
	LastSaved string `json:"last_saved"`
	Version   string `json:"version"`
	Platform  string `json:"platform"`
}

type fileDocument struct {
	Metadata fileMetadata      `json:"metadata"`
	Classes  []json.RawMessage `json:"classes"`
}

// classRecord mirrors ClassEvent on the wire but keeps notify_before
// optional, so entries written before lead times existed default to
// DefaultLeadMinutes instead of zero.
type classRecord struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Day          string `json:"day"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Room         string `json:"room"`
	Professor    string `json:"professor"`
	Color        string `json:"color,omitempty"`
	NotifyBefore *int   `json:"notify_before,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("timetable.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	defaultLead := cfg.DefaultLeadMinutes
	if defaultLead <= 0 {
		defaultLead = DefaultLeadMinutes
	}

	s := &fileStore{log: log, path: path, defaultLead: defaultLead, classes: map[int64]ClassEvent{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		// Missing file means an empty timetable, not an error.
		return nil
	}
	if err != nil {
		return err
	}

	var raws []json.RawMessage
	var doc fileDocument
	if err := json.Unmarshal(b, &doc); err == nil && doc.Classes != nil {
		raws = doc.Classes
	} else if err := json.Unmarshal(b, &raws); err != nil {
		return errors.New("timetable file is neither a document nor a class array")
	}

	for _, raw := range raws {
		var rec classRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.log.Warn("skipping unreadable class entry", logx.Err(err))
			continue
		}
		s.classes[rec.ID] = recordToEvent(rec, s.defaultLead)
	}
	s.log.Info("timetable loaded", logx.Int("classes", len(s.classes)), logx.String("path", s.path))
	return nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) SaveClass(ctx context.Context, ev ClassEvent) error {
	_ = ctx
	if err := Validate(ev); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[ev.ID] = ev
	return s.writeLocked()
}

func (s *fileStore) DeleteClass(ctx context.Context, id int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[id]; !ok {
		return ErrNotFound
	}
	delete(s.classes, id)
	return s.writeLocked()
}

func (s *fileStore) ListClasses(ctx context.Context) ([]ClassEvent, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ClassEvent, 0, len(s.classes))
	for _, ev := range s.classes {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fileStore) Clear(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = map[int64]ClassEvent{}
	return s.writeLocked()
}

// Backup copies the current document to a timestamped sibling file.
func (s *fileStore) Backup() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102_150405")
	dst := filepath.Join(filepath.Dir(s.path), "timetable_backup_"+stamp+".json")
	if err := os.WriteFile(dst, b, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *fileStore) writeLocked() error {
	ids := make([]int64, 0, len(s.classes))
	for id := range s.classes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	raws := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		b, err := json.Marshal(eventToRecord(s.classes[id]))
		if err != nil {
			return err
		}
		raws = append(raws, b)
	}

	doc := fileDocument{
		Metadata: fileMetadata{
			LastSaved: time.Now().Format("2006-01-02 15:04:05"),
			Version:   "1.0",
			Platform:  runtime.GOOS,
		},
		Classes: raws,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func recordToEvent(rec classRecord, defaultLead int) ClassEvent {
	lead := defaultLead
	if rec.NotifyBefore != nil {
		lead = *rec.NotifyBefore
	}
	return ClassEvent{
		ID:          rec.ID,
		Name:        rec.Name,
		Day:         rec.Day,
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		Room:        rec.Room,
		Professor:   rec.Professor,
		Color:       rec.Color,
		LeadMinutes: lead,
	}
}

func eventToRecord(ev ClassEvent) classRecord {
	lead := ev.LeadMinutes
	return classRecord{
		ID:           ev.ID,
		Name:         ev.Name,
		Day:          ev.Day,
		StartTime:    ev.StartTime,
		EndTime:      ev.EndTime,
		Room:         ev.Room,
		Professor:    ev.Professor,
		Color:        ev.Color,
		NotifyBefore: &lead,
	}
}
