package app

import (
	"time"

	"classbell/internal/alarm"
	"classbell/internal/config"
	"classbell/internal/notify"
	"classbell/internal/observability/pprof"
	"classbell/internal/timetable"
	logx "classbell/pkg/logx"
)

// Mapping helpers translate the on-disk config sections into the typed
// configs each component takes. Duration strings are parsed here so a bad
// value fails Load/Validate instead of surfacing mid-flight.

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapTimetableConfig(cfg *config.Config) (timetable.Config, error) {
	busy, err := config.ParseDurationField("timetable.busy_timeout", cfg.Timetable.BusyTimeout)
	if err != nil {
		return timetable.Config{}, err
	}
	return timetable.Config{
		Driver:      cfg.Timetable.Driver,
		Path:        cfg.Timetable.Path,
		BusyTimeout: busy,
		// The default-lead knob sits in the alarms section but applies at
		// store load, where an absent notify_before is still detectable.
		DefaultLeadMinutes: cfg.Alarms.DefaultLeadMinutes,
	}, nil
}

func mapAlarmConfig(cfg *config.Config) alarm.Config {
	return alarm.Config{
		Policy:    cfg.Alarms.Policy,
		StatePath: cfg.Alarms.StatePath,
		Timezone:  cfg.Alarms.Timezone,
	}
}

func mapNotifyConfig(cfg *config.Config) (notify.Config, error) {
	n := cfg.Notify
	if n == nil {
		// Omitted section: reminders still reach the log sink.
		return notify.Config{Enabled: true}, nil
	}
	base, err := config.ParseDurationField("notify.retry_base", n.RetryBase)
	if err != nil {
		return notify.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("notify.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{
		Enabled:       n.Enabled,
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
		HistorySize:   n.HistorySize,
	}, nil
}

func mapPprofConfig(cfg *config.Config) (pprof.Config, error) {
	p := cfg.Pprof
	read, err := config.ParseDurationOrDefault("pprof.read_timeout", p.ReadTimeout, 5*time.Second)
	if err != nil {
		return pprof.Config{}, err
	}
	// WriteTimeout stays 0 unless set: /profile can run 30s+.
	write, err := config.ParseDurationField("pprof.write_timeout", p.WriteTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("pprof.idle_timeout", p.IdleTimeout, 60*time.Second)
	if err != nil {
		return pprof.Config{}, err
	}
	return pprof.Config{
		Enabled:       p.Enabled,
		Addr:          p.Addr,
		Prefix:        p.Prefix,
		Token:         p.Token,
		AllowInsecure: p.AllowInsecure,
		ReadTimeout:   read,
		WriteTimeout:  write,
		IdleTimeout:   idle,
	}, nil
}
