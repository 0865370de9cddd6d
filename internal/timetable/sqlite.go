package timetable

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"classbell/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("timetable.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SaveClass(ctx context.Context, ev ClassEvent) error {
	if err := Validate(ev); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO classes(id, name, day, start_time, end_time, room, professor, color, notify_before, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, day=excluded.day,
		   start_time=excluded.start_time, end_time=excluded.end_time,
		   room=excluded.room, professor=excluded.professor,
		   color=excluded.color, notify_before=excluded.notify_before,
		   updated_at=excluded.updated_at`,
		ev.ID, ev.Name, ev.Day, ev.StartTime, ev.EndTime, ev.Room, ev.Professor,
		ev.Color, ev.LeadMinutes, time.Now().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) DeleteClass(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM classes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListClasses(ctx context.Context) ([]ClassEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, day, start_time, end_time, room, professor, color, notify_before
		 FROM classes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClassEvent
	for rows.Next() {
		var ev ClassEvent
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Day, &ev.StartTime, &ev.EndTime,
			&ev.Room, &ev.Professor, &ev.Color, &ev.LeadMinutes); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM classes`)
	return err
}
