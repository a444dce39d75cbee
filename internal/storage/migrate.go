package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"assistant/internal/logging"
)

// ImportLocalStorage 将浏览器 localStorage 导出文件导入 KV
// ImportLocalStorage copies a browser localStorage dump into kv.
//
// The dump is a JSON object mapping each key to its stored string, which is how
// localStorage holds values. Values that are already JSON (not strings) are accepted
// too. Keys already present in kv are kept unless overwrite is set. Entries that
// cannot be imported are logged to log and skipped. The returned slice lists the
// imported keys.
func ImportLocalStorage(path string, kv KV, overwrite bool, log *slog.Logger) ([]string, error) {
	log = logging.OrNop(log)
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("import path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var dump map[string]json.RawMessage
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	keys := make([]string, 0, len(dump))
	for k := range dump {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	imported := []string{}
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			log.Warn("skipping import entry with blank key")
			continue
		}
		if !overwrite {
			if _, err := kv.Get(key); err == nil {
				continue
			} else if !errors.Is(err, ErrNotFound) {
				return imported, err
			}
		}
		value, err := decodeDumpValue(dump[key])
		if err != nil {
			log.Warn("skipping import entry", "key", key, "error", err)
			continue
		}
		if err := kv.Set(key, value); err != nil {
			return imported, fmt.Errorf("import %s: %w", key, err)
		}
		imported = append(imported, key)
	}
	return imported, nil
}

func decodeDumpValue(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s), nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid json value")
	}
	return append([]byte(nil), raw...), nil
}
