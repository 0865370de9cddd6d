// Package app wires the daemon together: config, logging, the class
// store, the alarm registry, the delivery pipeline, and the optional
// profiling endpoint.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"classbell/internal/alarm"
	"classbell/internal/config"
	"classbell/internal/notify"
	"classbell/internal/observability/pprof"
	"classbell/internal/timetable"
	logx "classbell/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	log  logx.Logger
	logs *logx.Service

	tt       *timetable.Service
	registry *alarm.Registry
	notif    *notify.Service
	pprof    *pprof.Service

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	// Class store.
	ttCfg, err := mapTimetableConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := timetable.Open(ttCfg, log.With(logx.String("comp", "timetable")))
	if err != nil {
		return nil, fmt.Errorf("open timetable: %w", err)
	}

	// Delivery pipeline: always the log sink, plus Telegram when configured.
	sinks := []notify.Sink{notify.NewLogSink(log.With(logx.String("comp", "reminder")))}
	if n := cfg.Notify; n != nil && n.Telegram != nil && n.Telegram.Enabled {
		tg, err := notify.NewTelegramSink(notify.TelegramConfig{
			Token:  n.Telegram.Token,
			ChatID: n.Telegram.ChatID,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		sinks = append(sinks, tg)
		log.Info("telegram reminders enabled", logx.Int64("chat_id", n.Telegram.ChatID))
	}
	nCfg, err := mapNotifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notify.NewService(nCfg, log.With(logx.String("comp", "notify")), sinks...)

	// Alarm registry fed by the timetable.
	registry, err := alarm.New(mapAlarmConfig(cfg), notifSvc, log.With(logx.String("comp", "alarm")))
	if err != nil {
		return nil, err
	}
	ttSvc := timetable.NewService(ttCfg, store, registryScheduler{registry},
		log.With(logx.String("comp", "timetable")))

	pprofCfg, err := mapPprofConfig(cfg)
	if err != nil {
		return nil, err
	}
	pprofSvc := pprof.New(pprofCfg, log.With(logx.String("comp", "pprof")))

	return &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		tt:       ttSvc,
		registry: registry,
		notif:    notifSvc,
		pprof:    pprofSvc,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.runCtx, a.runCancel = context.WithCancel(ctx)

	// transactional config reload: validate before commit/publish
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		// Mapping catches duration errors Validate doesn't reach.
		if _, err := mapNotifyConfig(cfg); err != nil {
			return err
		}
		if _, err := mapPprofConfig(cfg); err != nil {
			return err
		}
		return nil
	})

	if a.notif.Enabled() {
		a.notif.Start(a.runCtx)
	}
	if err := a.registry.Start(a.runCtx); err != nil {
		return err
	}

	// Arm an alarm for every stored class; the restored state above is
	// reconciled against the store (vanished classes lose their alarm).
	if err := a.tt.Sync(a.runCtx); err != nil {
		return fmt.Errorf("initial timetable sync: %w", err)
	}

	cfg := a.cfgm.Get()
	if cfg != nil && cfg.Timetable.Watch {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			_ = a.tt.Watch(a.runCtx)
		}()
	}

	if a.pprof.Enabled() {
		if err := a.pprof.Start(a.runCtx); err != nil {
			a.log.Warn("pprof not started", logx.Err(err))
		}
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(a.runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.reloadLoop(a.runCtx)
	}()

	a.notifySystemd(daemon.SdNotifyReady)
	a.startWatchdog(a.runCtx)

	a.log.Info("classbell started",
		logx.Int("active_alarms", len(a.registry.ActiveIDs())),
		logx.String("config", a.cfgPath))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.notifySystemd(daemon.SdNotifyStopping)

	if a.runCancel != nil {
		a.runCancel()
	}
	a.pprof.Stop(ctx)
	a.registry.Stop(ctx)
	a.notif.Stop(ctx)
	a.wg.Wait()

	if st := a.tt.Store(); st != nil {
		if err := st.Close(); err != nil {
			a.log.Warn("timetable close", logx.Err(err))
		}
	}

	a.log.Info("classbell stopped")
	_ = a.logs.Close()
	return nil
}

// reloadLoop applies hot config changes. Logging, notify, and pprof take
// effect live; timetable and alarm changes need a restart and only warn.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)

	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				lastApplied = newCfg
				continue
			}
			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
			lastApplied = newCfg

			for _, s := range sections {
				switch s {
				case "logging":
					a.logs.Apply(mapLoggingConfig(newCfg))
				case "notify":
					if nCfg, err := mapNotifyConfig(newCfg); err == nil {
						a.notif.Apply(nCfg)
					}
				case "pprof":
					if pCfg, err := mapPprofConfig(newCfg); err == nil {
						a.pprof.Reconfigure(ctx, pCfg)
					}
				case "timetable", "alarms":
					a.log.Warn("section changed; restart required for changes to take effect",
						logx.String("section", s))
				}
			}
		}
	}
}

func (a *App) notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		a.log.Debug("sd_notify", logx.String("state", state))
	}
}

// startWatchdog pings systemd at half the configured WatchdogSec interval.
func (a *App) startWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
	a.log.Info("systemd watchdog enabled", logx.Duration("interval", interval))
}
