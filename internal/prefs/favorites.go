package prefs

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"assistant/internal/logging"
	"assistant/internal/storage"
)

// ErrEmptyID is returned by Toggle for a blank id; nothing is changed.
var ErrEmptyID = errors.New("favorite id is empty")

// Store 按命名空间管理收藏集合，每次修改同步落盘
// Store keeps one favorite set per namespace and persists every change synchronously.
//
// Namespaces are independent: a set is read from storage on first access and, when
// absent or malformed, seeded from the defaults given to Load and written back at once.
type Store struct {
	kv  storage.KV
	log *slog.Logger

	mu       sync.Mutex
	sets     map[string][]string
	defaults map[string][]string
}

func NewStore(kv storage.KV, log *slog.Logger) *Store {
	return &Store{
		kv:       kv,
		log:      logging.OrNop(log),
		sets:     make(map[string][]string),
		defaults: make(map[string][]string),
	}
}

// Load returns the favorite set stored under namespace, seeding it from defaults
// on first use. The returned slice is a copy.
func (s *Store) Load(namespace string, defaults []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[namespace] = append([]string(nil), defaults...)
	return clone(s.loadLocked(namespace))
}

// Toggle flips id in the namespace's set, persists it and returns the new set.
// A namespace never loaded before is seeded from the defaults last passed to Load
// (none if Load was never called). On a storage error the in-memory set still
// reflects the toggle and the error is returned.
func (s *Store) Toggle(namespace, id string) ([]string, error) {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.loadLocked(namespace)
	if id == "" {
		return clone(set), ErrEmptyID
	}

	next := make([]string, 0, len(set)+1)
	removed := false
	for _, v := range set {
		if v == id {
			removed = true
			continue
		}
		next = append(next, v)
	}
	if !removed {
		next = append(next, id)
	}
	s.sets[namespace] = next

	if err := writeJSON(s.kv, namespace, next); err != nil {
		s.log.Error("persist favorites failed", "namespace", namespace, "error", err)
		return clone(next), err
	}
	s.log.Debug("favorite toggled", "namespace", namespace, "id", id, "member", !removed)
	return clone(next), nil
}

// Contains reports whether id is in the namespace's current set.
func (s *Store) Contains(namespace, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return IsMember(s.loadLocked(namespace), id)
}

// Reset drops the stored set so the next access re-seeds from defaults.
func (s *Store) Reset(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, namespace)
	return s.kv.Delete(namespace)
}

func (s *Store) loadLocked(namespace string) []string {
	if set, ok := s.sets[namespace]; ok {
		return set
	}
	var stored []string
	if readJSON(s.kv, s.log, namespace, &stored) && stored != nil {
		s.sets[namespace] = dedupe(stored)
		return s.sets[namespace]
	}

	seed := dedupe(s.defaults[namespace])
	s.sets[namespace] = seed
	if err := writeJSON(s.kv, namespace, seed); err != nil {
		s.log.Error("persist seeded favorites failed", "namespace", namespace, "error", err)
	}
	return seed
}

// IsMember is the pure membership query.
func IsMember(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func clone(in []string) []string {
	return append([]string{}, in...)
}
