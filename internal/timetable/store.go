package timetable

import (
	"context"
	"errors"
	"strings"
	"time"

	"classbell/pkg/logx"
)

// Config configures the class store.
//
// Driver values:
//   - "file": single JSON document (default)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	// DefaultLeadMinutes backfills file entries whose notify_before field
	// is absent. 0 falls back to DefaultLeadMinutes (5). An explicit
	// notify_before of 0 in the document is kept as written.
	DefaultLeadMinutes int
}

// Store is the persistence API for class entries.
type Store interface {
	SaveClass(ctx context.Context, ev ClassEvent) error
	DeleteClass(ctx context.Context, id int64) error
	ListClasses(ctx context.Context) ([]ClassEvent, error)
	Clear(ctx context.Context) error
	Close() error
}

// Backuper is implemented by stores that can snapshot themselves to a
// timestamped copy (the file driver).
type Backuper interface {
	Backup() (string, error)
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown timetable driver: " + driver)
	}
}
