package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the parts of the config that must be sane before the
// daemon applies it. Hot-reload rejects configs failing these checks.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch strings.TrimSpace(cfg.Timetable.Driver) {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("timetable.driver: unknown driver %q", cfg.Timetable.Driver)
	}
	if strings.TrimSpace(cfg.Timetable.Path) == "" {
		return fmt.Errorf("timetable.path: required")
	}
	if _, err := ParseDurationField("timetable.busy_timeout", cfg.Timetable.BusyTimeout); err != nil {
		return err
	}

	switch strings.TrimSpace(cfg.Alarms.Policy) {
	case "", "self_rearm", "cron":
	default:
		return fmt.Errorf("alarms.policy: unknown policy %q", cfg.Alarms.Policy)
	}
	if tz := strings.TrimSpace(cfg.Alarms.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("alarms.timezone: %w", err)
		}
	}
	if cfg.Alarms.DefaultLeadMinutes < 0 {
		return fmt.Errorf("alarms.default_lead_minutes: must be >= 0")
	}

	if n := cfg.Notify; n != nil {
		if _, err := ParseDurationField("notify.retry_base", n.RetryBase); err != nil {
			return err
		}
		if _, err := ParseDurationField("notify.retry_max_delay", n.RetryMaxDelay); err != nil {
			return err
		}
		if tg := n.Telegram; tg != nil && tg.Enabled {
			if strings.TrimSpace(tg.Token) == "" {
				return fmt.Errorf("notify.telegram.token: required when enabled")
			}
			if tg.ChatID == 0 {
				return fmt.Errorf("notify.telegram.chat_id: required when enabled")
			}
		}
	}

	if p := cfg.Pprof; p.Enabled {
		for _, f := range []struct{ name, raw string }{
			{"pprof.read_timeout", p.ReadTimeout},
			{"pprof.write_timeout", p.WriteTimeout},
			{"pprof.idle_timeout", p.IdleTimeout},
		} {
			if _, err := ParseDurationField(f.name, f.raw); err != nil {
				return err
			}
		}
	}
	return nil
}
