package session

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"assistant/internal/chat"
)

// TitleMaxRunes is the length a derived title is cut to.
const TitleMaxRunes = 20

// DeriveTitle returns content unchanged when it has at most TitleMaxRunes
// characters, otherwise its first TitleMaxRunes characters followed by "...".
// Content is NFC-normalised first so composed and decomposed Hangul count the same.
func DeriveTitle(content string) string {
	content = norm.NFC.String(content)
	if utf8.RuneCountInString(content) <= TitleMaxRunes {
		return content
	}
	return string([]rune(content)[:TitleMaxRunes]) + "..."
}

// SortPinnedFirst returns the sessions with pinned ones first, keeping the relative
// order inside each group.
func SortPinnedFirst(sessions []chat.Session) []chat.Session {
	out := make([]chat.Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Pinned {
			out = append(out, sess)
		}
	}
	for _, sess := range sessions {
		if !sess.Pinned {
			out = append(out, sess)
		}
	}
	return out
}

// List is the default history view: archived sessions excluded, pinned first.
func (s *Store) List() []chat.Session {
	return s.filter(func(sess *chat.Session) bool { return !sess.Archived })
}

// Archived is the archive view, in collection order.
func (s *Store) Archived() []chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Session
	for i := range s.sessions {
		if s.sessions[i].Archived {
			out = append(out, s.sessions[i].Clone())
		}
	}
	return out
}

// Search matches query case-insensitively against titles and message content of
// the sessions in the default view.
func (s *Store) Search(query string) []chat.Session {
	q := strings.ToLower(strings.TrimSpace(norm.NFC.String(query)))
	if q == "" {
		return s.List()
	}
	return s.filter(func(sess *chat.Session) bool {
		if sess.Archived {
			return false
		}
		if strings.Contains(strings.ToLower(sess.Title), q) {
			return true
		}
		for _, m := range sess.Messages {
			if strings.Contains(strings.ToLower(m.Content), q) {
				return true
			}
		}
		return false
	})
}

func (s *Store) filter(keep func(*chat.Session) bool) []chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(keep)
}

func (s *Store) filterLocked(keep func(*chat.Session) bool) []chat.Session {
	var out []chat.Session
	for i := range s.sessions {
		if keep(&s.sessions[i]) {
			out = append(out, s.sessions[i].Clone())
		}
	}
	return SortPinnedFirst(out)
}

// Get returns any session by id, archived ones included.
func (s *Store) Get(sessionID string) (chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(sessionID); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return chat.Session{}, false
}

// ActiveID returns the active session id, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Snapshot is everything a renderer needs, copied out of the store.
type Snapshot struct {
	Sessions []chat.Session
	ActiveID string
	// Title and Messages belong to the active session; both are empty when none is active.
	Title    string
	Messages []chat.Message
	Pending  bool
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := s.filterLocked(func(sess *chat.Session) bool { return !sess.Archived })
	snap := Snapshot{Sessions: sessions, ActiveID: s.activeID, Messages: []chat.Message{}}
	if i := s.indexLocked(s.activeID); i >= 0 {
		snap.Title = s.sessions[i].Title
		snap.Messages = chat.CloneMessages(s.sessions[i].Messages)
		snap.Pending = s.pending[s.activeID] > 0
	}
	return snap
}
