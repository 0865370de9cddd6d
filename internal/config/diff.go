package config

import (
	"reflect"
	"sort"
	"strings"

	logx "classbell/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus
// safe structured attrs for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)

	// Logging
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Pprof (never log token)
	if oldCfg.Pprof.Enabled != newCfg.Pprof.Enabled ||
		strings.TrimSpace(oldCfg.Pprof.Addr) != strings.TrimSpace(newCfg.Pprof.Addr) ||
		strings.TrimSpace(oldCfg.Pprof.Prefix) != strings.TrimSpace(newCfg.Pprof.Prefix) ||
		oldCfg.Pprof.AllowInsecure != newCfg.Pprof.AllowInsecure ||
		(strings.TrimSpace(oldCfg.Pprof.Token) != "") != (strings.TrimSpace(newCfg.Pprof.Token) != "") {
		changed = append(changed, "pprof")
		attrs = append(attrs,
			logx.Bool("pprof.enabled", newCfg.Pprof.Enabled),
			logx.String("pprof.addr", strings.TrimSpace(newCfg.Pprof.Addr)),
			logx.Bool("pprof.token_set", strings.TrimSpace(newCfg.Pprof.Token) != ""),
		)
	}

	// Timetable
	if !reflect.DeepEqual(oldCfg.Timetable, newCfg.Timetable) {
		changed = append(changed, "timetable")
		attrs = append(attrs,
			logx.String("timetable.driver", strings.TrimSpace(newCfg.Timetable.Driver)),
			logx.Bool("timetable.path_set", strings.TrimSpace(newCfg.Timetable.Path) != ""),
			logx.Bool("timetable.watch", newCfg.Timetable.Watch),
		)
	}

	// Alarms
	if !reflect.DeepEqual(oldCfg.Alarms, newCfg.Alarms) {
		changed = append(changed, "alarms")
		attrs = append(attrs,
			logx.String("alarms.policy", strings.TrimSpace(newCfg.Alarms.Policy)),
			logx.String("alarms.timezone", strings.TrimSpace(newCfg.Alarms.Timezone)),
			logx.Int("alarms.default_lead_minutes", newCfg.Alarms.DefaultLeadMinutes),
		)
	}

	// Notify (never log token). Nil section means log-sink-only defaults.
	oldN, newN := derefNotify(oldCfg.Notify), derefNotify(newCfg.Notify)
	if !reflect.DeepEqual(oldN, newN) {
		changed = append(changed, "notify")
		attrs = append(attrs,
			logx.Bool("notify.enabled", newN.Enabled),
			logx.Int("notify.workers", newN.Workers),
			logx.Int("notify.queue_size", newN.QueueSize),
			logx.Int("notify.rate_per_sec", newN.RatePerSec),
			logx.Bool("notify.telegram_enabled", newN.Telegram != nil && newN.Telegram.Enabled),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefNotify(n *NotifyConfig) NotifyConfig {
	if n == nil {
		return NotifyConfig{}
	}
	out := *n
	if out.Telegram != nil {
		tg := *out.Telegram
		// Token value itself must not feed the diff; only its presence.
		if tg.Token != "" {
			tg.Token = "set"
		}
		out.Telegram = &tg
	}
	return out
}
