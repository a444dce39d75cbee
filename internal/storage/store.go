package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Well-known keys. The first four are shared with the browser build and must stay
// byte-compatible with what it writes to localStorage.
const (
	KeyFavoriteServices    = "favoriteServices"
	KeyWorkItemFavorites   = "workItemFavorites"
	KeyUserSettings        = "userSettings"
	KeyChatbots            = "chatbots"
	KeyChatSessions        = "chatSessions"
	KeyActiveChatSession   = "activeChatSession"
	KeyBriefingPreferences = "briefingPreferences"
)

// ErrNotFound 键不存在
// ErrNotFound is returned by Get when the key has never been written
var ErrNotFound = errors.New("storage: key not found")

// KV 持久化键值接口，支持多后端 (SQLite / JSON 文件 / 内存)
// KV is the durable key-value interface supporting multiple backends
type KV interface {
	// Get 返回原始值；不存在时返回 ErrNotFound
	// Get returns the raw value; ErrNotFound when absent
	Get(key string) ([]byte, error)
	// Set 同步写入 / Set writes synchronously
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)

	// 生命周期 / Lifecycle
	Close() error
}

// Open 根据后端名创建 KV / Open creates a KV for the named backend
func Open(backend, baseDir string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		return NewSQLiteKV(joinPath(baseDir, "assistant.db"))
	case "file", "json":
		return NewFileKV(joinPath(baseDir, "kv"))
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("storage key is empty")
	}
	return nil
}
