package prefs

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"assistant/internal/chat"
	"assistant/internal/logging"
	"assistant/internal/storage"
)

// SettingsStore persists the single userSettings record.
type SettingsStore struct {
	kv  storage.KV
	log *slog.Logger
	mu  sync.Mutex
}

func NewSettingsStore(kv storage.KV, log *slog.Logger) *SettingsStore {
	return &SettingsStore{kv: kv, log: logging.OrNop(log)}
}

// Load returns the stored settings. ok is false when nothing valid is stored, in
// which case the defaults are returned; callers use ok to decide whether to run
// onboarding.
func (s *SettingsStore) Load() (chat.UserSettings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := chat.DefaultUserSettings()
	if !readJSON(s.kv, s.log, storage.KeyUserSettings, &settings) {
		return chat.DefaultUserSettings(), false
	}
	return normalizeSettings(settings), true
}

// Save overwrites the record in full.
func (s *SettingsStore) Save(settings chat.UserSettings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.UserName = strings.TrimSpace(settings.UserName)
	settings.AssistantName = strings.TrimSpace(settings.AssistantName)
	return writeJSON(s.kv, storage.KeyUserSettings, settings)
}

// Reset removes the record so onboarding runs again.
func (s *SettingsStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(storage.KeyUserSettings)
}

// ValidateSettings rejects enum values outside the known sets.
func ValidateSettings(settings chat.UserSettings) error {
	if _, ok := chat.ParseToneStyle(string(settings.ToneStyle)); !ok {
		return fmt.Errorf("invalid tone style %q", settings.ToneStyle)
	}
	if _, ok := chat.ParseAnswerLength(string(settings.AnswerLength)); !ok {
		return fmt.Errorf("invalid answer length %q", settings.AnswerLength)
	}
	return nil
}

func normalizeSettings(s chat.UserSettings) chat.UserSettings {
	def := chat.DefaultUserSettings()
	if _, ok := chat.ParseToneStyle(string(s.ToneStyle)); !ok {
		s.ToneStyle = def.ToneStyle
	}
	if _, ok := chat.ParseAnswerLength(string(s.AnswerLength)); !ok {
		s.AnswerLength = def.AnswerLength
	}
	if strings.TrimSpace(s.AssistantName) == "" {
		s.AssistantName = def.AssistantName
	}
	return s
}

// BriefingStore persists the daily-briefing preferences.
type BriefingStore struct {
	kv  storage.KV
	log *slog.Logger
	mu  sync.Mutex
}

func NewBriefingStore(kv storage.KV, log *slog.Logger) *BriefingStore {
	return &BriefingStore{kv: kv, log: logging.OrNop(log)}
}

// Load returns stored preferences or the defaults.
func (b *BriefingStore) Load() chat.BriefingPreferences {
	b.mu.Lock()
	defer b.mu.Unlock()
	var p chat.BriefingPreferences
	if !readJSON(b.kv, b.log, storage.KeyBriefingPreferences, &p) {
		return chat.DefaultBriefingPreferences()
	}
	return p
}

// Save validates the delivery time (HH:MM) and overwrites the record.
func (b *BriefingStore) Save(p chat.BriefingPreferences) error {
	if !validClock(p.DeliveryTime) {
		return fmt.Errorf("invalid delivery time %q", p.DeliveryTime)
	}
	topics := make([]string, 0, len(p.Topics))
	for _, t := range p.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	p.Topics = topics
	b.mu.Lock()
	defer b.mu.Unlock()
	return writeJSON(b.kv, storage.KeyBriefingPreferences, p)
}

func validClock(s string) bool {
	var h, m int
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return false
	}
	return h >= 0 && h < 24 && m >= 0 && m < 60
}
