// Package prefs persists user preferences: favorite sets per namespace, the user
// settings record, the chatbot list and the daily-briefing preferences.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"assistant/internal/storage"
)

// readJSON decodes key into v. Missing and unparsable values both report false;
// corruption is logged and otherwise handled exactly like absence.
func readJSON(kv storage.KV, log *slog.Logger, key string, v any) bool {
	data, err := kv.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn("read preference failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn("discarding malformed preference", "key", key, "error", err)
		return false
	}
	return true
}

func writeJSON(kv storage.KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := kv.Set(key, data); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
