package config

// Config is the daemon configuration. YAML and JSON are both accepted;
// YAML is coerced to JSON before the strict decode in Parse().
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Pprof   PprofConfig   `json:"pprof,omitempty"`

	// Timetable locates the class store the alarms are derived from.
	Timetable TimetableConfig `json:"timetable"`

	// Alarms controls the reminder registry.
	Alarms AlarmsConfig `json:"alarms"`

	// Notify controls the delivery pipeline. If the whole section is
	// omitted, reminders go to the log sink only.
	Notify *NotifyConfig `json:"notify,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level"`   // trace|debug|info|warn|error
	Console bool       `json:"console"` // pretty console writer vs JSON
	File    FileConfig `json:"file"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// TimetableConfig selects the class store backend.
//
// Example:
//
//	"timetable": { "driver": "file", "path": "./timetable.json", "watch": true }
type TimetableConfig struct {
	Driver      string `json:"driver"` // "file" (default) or "sqlite"
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)

	// Watch re-syncs alarms when the timetable file changes on disk.
	// Only meaningful for the file driver.
	Watch bool `json:"watch,omitempty"`
}

// AlarmsConfig controls the reminder registry.
type AlarmsConfig struct {
	// Policy is the recurrence mechanism: "self_rearm" (default) or "cron".
	Policy string `json:"policy,omitempty"`

	// StatePath is where active alarms are persisted across restarts.
	StatePath string `json:"state_path,omitempty"`

	// Timezone is an IANA zone name used to resolve class slots.
	// Empty means the system local zone.
	Timezone string `json:"timezone,omitempty"`

	// DefaultLeadMinutes applies to classes without an explicit lead.
	DefaultLeadMinutes int `json:"default_lead_minutes,omitempty"`
}

// NotifyConfig controls the async delivery pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type NotifyConfig struct {
	Enabled       bool   `json:"enabled"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	HistorySize   int    `json:"history_size,omitempty"`

	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

// TelegramConfig configures the optional Telegram reminder channel.
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default: "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token         string `json:"token,omitempty"`  // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0 (disabled)
	// so /profile (which can take 30s+) works reliably.
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}
