package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const sampleYAML = `
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
timetable:
  driver: file
  path: ./timetable.json
  watch: true
alarms:
  policy: self_rearm
  state_path: ./alarms.json
  timezone: Asia/Seoul
  default_lead_minutes: 5
notify:
  enabled: true
  workers: 2
  rate_per_sec: 3
  retry_base: 500ms
  telegram:
    enabled: false
    token: ""
    chat_id: 0
`

func TestParseYAML(t *testing.T) {
	m := NewConfigManager(writeConfig(t, "config.yaml", sampleYAML))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging section: %+v", cfg.Logging)
	}
	if cfg.Timetable.Driver != "file" || !cfg.Timetable.Watch {
		t.Fatalf("timetable section: %+v", cfg.Timetable)
	}
	if cfg.Alarms.Timezone != "Asia/Seoul" || cfg.Alarms.DefaultLeadMinutes != 5 {
		t.Fatalf("alarms section: %+v", cfg.Alarms)
	}
	if cfg.Notify == nil || !cfg.Notify.Enabled || cfg.Notify.RetryBase != "500ms" {
		t.Fatalf("notify section: %+v", cfg.Notify)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	m := NewConfigManager(writeConfig(t, "config.yaml", `
timetable:
  path: ./timetable.json
  flavor: mint
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestParseJSON(t *testing.T) {
	m := NewConfigManager(writeConfig(t, "config.json",
		`{"timetable":{"driver":"sqlite","path":"./classes.db","busy_timeout":"5s"}}`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Timetable.Driver != "sqlite" || cfg.Timetable.BusyTimeout != "5s" {
		t.Fatalf("timetable section: %+v", cfg.Timetable)
	}
}

func TestParseDurationHelpers(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		def  time.Duration
		want time.Duration
		ok   bool
	}{
		{"plain", "500ms", 0, 500 * time.Millisecond, true},
		{"blank is unset", "  ", time.Second, time.Second, true},
		{"zero takes default", "0s", time.Second, time.Second, true},
		{"negative", "-1s", 0, 0, false},
		{"garbage", "soon", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDurationOrDefault("test.field", tc.raw, tc.def)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
			if tc.ok && got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestYAMLNonStringKeys(t *testing.T) {
	// YAML happily produces integer map keys; they must be stringified
	// before the JSON decode or Parse would choke.
	out, err := yamlToJSON([]byte("1: one\n2: two\n"))
	if err != nil {
		t.Fatalf("yamlToJSON: %v", err)
	}
	if string(out) != `{"1":"one","2":"two"}` {
		t.Fatalf("unexpected JSON %s", out)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Timetable: TimetableConfig{Driver: "file", Path: "./t.json"}}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"minimal", func(*Config) {}, true},
		{"missing path", func(c *Config) { c.Timetable.Path = "" }, false},
		{"bad driver", func(c *Config) { c.Timetable.Driver = "redis" }, false},
		{"bad policy", func(c *Config) { c.Alarms.Policy = "carrier-pigeon" }, false},
		{"cron policy", func(c *Config) { c.Alarms.Policy = "cron" }, true},
		{"bad timezone", func(c *Config) { c.Alarms.Timezone = "Mars/Olympus" }, false},
		{"negative lead", func(c *Config) { c.Alarms.DefaultLeadMinutes = -1 }, false},
		{"bad retry duration", func(c *Config) {
			c.Notify = &NotifyConfig{Enabled: true, RetryBase: "soon"}
		}, false},
		{"telegram without token", func(c *Config) {
			c.Notify = &NotifyConfig{Enabled: true, Telegram: &TelegramConfig{Enabled: true, ChatID: 1}}
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadCommitAndGet(t *testing.T) {
	m := NewConfigManager(writeConfig(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestSubscribePublish(t *testing.T) {
	m := NewConfigManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	cfg := &Config{}
	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("subscriber received a different config")
		}
	default:
		t.Fatal("no config delivered to subscriber")
	}
}
