package timetable

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"classbell/pkg/logx"
)

func newFileStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timetable.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st, path
}

func sampleClass(id int64) ClassEvent {
	return ClassEvent{
		ID: id, Name: "Algorithms", Day: "Monday",
		StartTime: "09:00", EndTime: "10:15",
		Room: "B101", Professor: "Kim", LeadMinutes: 5,
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, path := newFileStore(t)

	want := []ClassEvent{sampleClass(1), sampleClass(2)}
	want[1].Name = "Databases"
	want[1].Day = "금요일"
	// An explicit zero lead must survive the write/read cycle as zero.
	want[1].LeadMinutes = 0
	for _, ev := range want {
		if err := st.SaveClass(ctx, ev); err != nil {
			t.Fatalf("SaveClass(%d): %v", ev.ID, err)
		}
	}

	// Reopen from disk and compare.
	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := st2.ListClasses(ctx)
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d classes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("class %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	st, _ := newFileStore(t)
	got, err := st.ListClasses(context.Background())
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty store, got %d classes", len(got))
	}
}

func TestFileStoreLegacyArrayForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.json")
	// Pre-document exports were a bare array without notify_before.
	legacy := `[
	  {"id": 1, "name": "Algorithms", "day": "Monday", "start_time": "09:00", "end_time": "10:15", "room": "B101", "professor": "Kim"},
	  {"id": 2, "name": "Databases", "day": "Friday", "start_time": "14:00", "end_time": "15:15", "room": "C202", "professor": "Lee", "notify_before": 10},
	  {"id": 3, "name": "Networks", "day": "Tuesday", "start_time": "11:00", "end_time": "12:15", "room": "D303", "professor": "Park", "notify_before": 0}
	]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := st.ListClasses(context.Background())
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d classes, want 3", len(got))
	}
	if got[0].LeadMinutes != DefaultLeadMinutes {
		t.Fatalf("missing notify_before defaulted to %d, want %d", got[0].LeadMinutes, DefaultLeadMinutes)
	}
	if got[1].LeadMinutes != 10 {
		t.Fatalf("explicit notify_before read as %d, want 10", got[1].LeadMinutes)
	}
	// Explicit zero means "remind at class start", not "use the default".
	if got[2].LeadMinutes != 0 {
		t.Fatalf("explicit zero notify_before read as %d, want 0", got[2].LeadMinutes)
	}
}

func TestFileStoreConfigurableDefaultLead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.json")
	legacy := `[{"id": 1, "name": "Algorithms", "day": "Monday", "start_time": "09:00", "end_time": "10:15"}]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	st, err := Open(Config{Driver: "file", Path: path, DefaultLeadMinutes: 12}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := st.ListClasses(context.Background())
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(got) != 1 || got[0].LeadMinutes != 12 {
		t.Fatalf("absent notify_before with configured default: %+v", got)
	}
}

func TestFileStoreSkipsUnreadableEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.json")
	mixed := `[
	  {"id": 1, "name": "Algorithms", "day": "Monday", "start_time": "09:00", "end_time": "10:15"},
	  {"id": "not-a-number", "name": 12}
	]`
	if err := os.WriteFile(path, []byte(mixed), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := st.ListClasses(context.Background())
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected the one readable class, got %+v", got)
	}
}

func TestDeleteClass(t *testing.T) {
	ctx := context.Background()
	st, _ := newFileStore(t)

	if err := st.DeleteClass(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete unknown id: got %v, want ErrNotFound", err)
	}
	if err := st.SaveClass(ctx, sampleClass(1)); err != nil {
		t.Fatalf("SaveClass: %v", err)
	}
	if err := st.DeleteClass(ctx, 1); err != nil {
		t.Fatalf("DeleteClass: %v", err)
	}
	got, _ := st.ListClasses(ctx)
	if len(got) != 0 {
		t.Fatalf("%d classes left after delete", len(got))
	}
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	st, _ := newFileStore(t)
	if err := st.SaveClass(ctx, sampleClass(1)); err != nil {
		t.Fatalf("SaveClass: %v", err)
	}

	b, ok := st.(Backuper)
	if !ok {
		t.Fatal("file store should implement Backuper")
	}
	dst, err := b.Backup()
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if !strings.Contains(filepath.Base(dst), "timetable_backup_") {
		t.Fatalf("unexpected backup name %q", dst)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("backup file: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ClassEvent)
		ok     bool
	}{
		{"valid", func(*ClassEvent) {}, true},
		{"korean day", func(ev *ClassEvent) { ev.Day = "수요일" }, true},
		{"empty name", func(ev *ClassEvent) { ev.Name = "  " }, false},
		{"weekend", func(ev *ClassEvent) { ev.Day = "Sunday" }, false},
		{"bad start", func(ev *ClassEvent) { ev.StartTime = "9am" }, false},
		{"bad end", func(ev *ClassEvent) { ev.EndTime = "24:00" }, false},
		{"start after end", func(ev *ClassEvent) { ev.StartTime = "11:00"; ev.EndTime = "10:00" }, false},
		{"start equals end", func(ev *ClassEvent) { ev.EndTime = ev.StartTime }, false},
		{"negative lead", func(ev *ClassEvent) { ev.LeadMinutes = -1 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := sampleClass(1)
			tc.mutate(&ev)
			err := Validate(ev)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// fakeScheduler records what Sync drives into the registry port.
type fakeScheduler struct {
	mu     sync.Mutex
	armed  map[int64]ClassEvent
	failID int64
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{armed: map[int64]ClassEvent{}}
}

func (f *fakeScheduler) Schedule(ev ClassEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failID != 0 && ev.ID == f.failID {
		return errors.New("boom")
	}
	f.armed[ev.ID] = ev
	return nil
}

func (f *fakeScheduler) Cancel(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.armed[id]; !ok {
		return false
	}
	delete(f.armed, id)
	return true
}

func (f *fakeScheduler) ActiveIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.armed))
	for id := range f.armed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestSyncSchedulesAndReconciles(t *testing.T) {
	ctx := context.Background()
	st, _ := newFileStore(t)
	sched := newFakeScheduler()
	svc := NewService(Config{Driver: "file"}, st, sched, logx.Nop())

	if err := st.SaveClass(ctx, sampleClass(1)); err != nil {
		t.Fatalf("SaveClass: %v", err)
	}
	if err := st.SaveClass(ctx, sampleClass(2)); err != nil {
		t.Fatalf("SaveClass: %v", err)
	}
	// A stale alarm for a class that no longer exists.
	_ = sched.Schedule(sampleClass(3))

	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	ids := sched.ActiveIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("active ids after sync: %v", ids)
	}
}

func TestSyncSkipsFailingClass(t *testing.T) {
	ctx := context.Background()
	st, _ := newFileStore(t)
	sched := newFakeScheduler()
	sched.failID = 1
	svc := NewService(Config{Driver: "file"}, st, sched, logx.Nop())

	if err := st.SaveClass(ctx, sampleClass(1)); err != nil {
		t.Fatalf("SaveClass: %v", err)
	}
	if err := st.SaveClass(ctx, sampleClass(2)); err != nil {
		t.Fatalf("SaveClass: %v", err)
	}

	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	ids := sched.ActiveIDs()
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("active ids: %v, want [2]", ids)
	}
}
