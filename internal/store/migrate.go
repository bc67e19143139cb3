package store

import (
	"encoding/json"
	"fmt"
	"log"
)

// migrationStep upgrades one user payload in place, expressed on the
// generic decoded form so old snapshots never need the current structs
// to parse.
type migrationStep struct {
	from, to string
	apply    func(u map[string]any)
}

// migrations run in order; each step's from must match the previous
// step's to.
var migrations = []migrationStep{
	{from: "1.0.0", to: "2.0.0", apply: addSettingsAndStats},
	{from: "2.0.0", to: "2.1.0", apply: addCompletionFields},
}

// migrate upgrades raw payloads from the given version to
// SchemaVersion. A record that fails to decode or re-encode is logged
// and kept unchanged rather than failing the whole load.
func migrate(version string, users map[int64]json.RawMessage) (string, error) {
	start := -1
	for i, step := range migrations {
		if step.from == version {
			start = i
			break
		}
	}
	if start == -1 {
		return version, fmt.Errorf("no migration path from snapshot version %s", version)
	}

	for _, step := range migrations[start:] {
		for id, raw := range users {
			var u map[string]any
			if err := json.Unmarshal(raw, &u); err != nil {
				log.Printf("store: skipping user %d in %s migration: %v", id, step.to, err)
				continue
			}
			step.apply(u)
			out, err := json.Marshal(u)
			if err != nil {
				log.Printf("store: skipping user %d in %s migration: %v", id, step.to, err)
				continue
			}
			users[id] = out
		}
		version = step.to
	}
	return version, nil
}

func addSettingsAndStats(u map[string]any) {
	if _, ok := u["settings"].(map[string]any); !ok {
		u["settings"] = map[string]any{
			"timezone":      "UTC",
			"reminder_time": "09:00",
			"language":      "en",
			"notifications": true,
			"weekly_goal":   7,
		}
	}
	if _, ok := u["stats"].(map[string]any); !ok {
		u["stats"] = map[string]any{
			"total_xp":        0,
			"level":           1,
			"tasks_completed": 0,
			"current_streak":  0,
			"longest_streak":  0,
		}
	}
}

func addCompletionFields(u map[string]any) {
	tasks, ok := u["tasks"].(map[string]any)
	if !ok {
		return
	}
	for _, tv := range tasks {
		t, ok := tv.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := t["is_daily"]; !ok {
			t["is_daily"] = true
		}
		completions, ok := t["completions"].([]any)
		if !ok {
			continue
		}
		for _, cv := range completions {
			c, ok := cv.(map[string]any)
			if !ok {
				continue
			}
			if _, ok := c["xp_awarded"]; !ok {
				c["xp_awarded"] = 0
			}
		}
	}
}
