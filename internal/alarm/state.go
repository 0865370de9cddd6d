package alarm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"classbell/pkg/logx"
)

// The state blob is a JSON object keyed by class id, mirroring the
// in-memory map. A missing file simply means no alarms were active.

func (r *Registry) loadState() ([]Alarm, error) {
	if r.cfg.StatePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(r.cfg.StatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var raw map[string]Alarm
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode alarm state: %w", err)
	}

	out := make([]Alarm, 0, len(raw))
	for key, a := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			r.log.Warn("alarm state entry skipped", logx.String("key", key), logx.Err(err))
			continue
		}
		a.ClassID = id
		out = append(out, a)
	}
	return out, nil
}

// persistLocked writes the current map to disk. A failed write only warns:
// the armed timers are authoritative while the process lives, and the next
// successful write repairs the blob.
func (r *Registry) persistLocked() {
	if r.cfg.StatePath == "" {
		return
	}

	raw := make(map[string]Alarm, len(r.alarms))
	for id, a := range r.alarms {
		raw[strconv.FormatInt(id, 10)] = a
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		r.log.Warn("alarm state encode failed", logx.Err(err))
		return
	}

	dir := filepath.Dir(r.cfg.StatePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.log.Warn("alarm state dir", logx.String("dir", dir), logx.Err(err))
		return
	}
	tmp := r.cfg.StatePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		r.log.Warn("alarm state write failed", logx.String("path", tmp), logx.Err(err))
		return
	}
	if err := os.Rename(tmp, r.cfg.StatePath); err != nil {
		r.log.Warn("alarm state rename failed", logx.String("path", r.cfg.StatePath), logx.Err(err))
	}
}
