package session

import (
	"context"
	"strings"

	"assistant/internal/chat"
)

// CreateFromFirstMessage starts a session whose only message is content. It is only
// valid while no session is active. The session is inserted first and becomes active.
func (s *Store) CreateFromFirstMessage(content string) (chat.Session, error) {
	s.mu.Lock()
	sess, err := s.createLocked(content)
	var persistErr error
	if err == nil {
		persistErr = s.persistLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return chat.Session{}, err
	}
	s.log.Info("session created", "session", sess.ID)
	s.afterChange("", persistErr)
	return sess, nil
}

func (s *Store) createLocked(content string) (chat.Session, error) {
	if strings.TrimSpace(content) == "" {
		return chat.Session{}, ErrEmptyContent
	}
	if s.activeID != "" {
		return chat.Session{}, ErrSessionActive
	}
	sess := chat.Session{
		ID:        chat.NewID(),
		Title:     DeriveTitle(content),
		Messages:  []chat.Message{s.newMessage(chat.RoleUser, content)},
		CreatedAt: s.now(),
	}
	s.sessions = append([]chat.Session{sess}, s.sessions...)
	s.activeID = sess.ID
	return sess.Clone(), nil
}

// AppendMessage appends msg to the session. A blank id or zero timestamp is filled
// in. Unknown sessions are a no-op and report false.
func (s *Store) AppendMessage(sessionID string, msg chat.Message) bool {
	if msg.ID == "" {
		msg.ID = chat.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	return s.update(sessionID, func(sess *chat.Session) (bool, string) {
		sess.Messages = append(sess.Messages, msg)
		return true, ""
	})
}

// RenameSession overwrites the title. Blank titles are rejected with ErrEmptyTitle
// and change nothing.
func (s *Store) RenameSession(sessionID, title string) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, ErrEmptyTitle
	}
	ok := s.update(sessionID, func(sess *chat.Session) (bool, string) {
		if sess.Title == title {
			return false, ""
		}
		sess.Title = title
		return true, "대화 이름을 변경했어요."
	})
	return ok, nil
}

// SetPinned sets the pinned flag, or toggles it when pinned is nil. Pinning only
// changes the sort key.
func (s *Store) SetPinned(sessionID string, pinned *bool) bool {
	return s.update(sessionID, func(sess *chat.Session) (bool, string) {
		next := !sess.Pinned
		if pinned != nil {
			next = *pinned
		}
		if next == sess.Pinned {
			return false, ""
		}
		sess.Pinned = next
		if next {
			return true, "대화를 고정했어요."
		}
		return true, "대화 고정을 해제했어요."
	})
}

// SetArchived hides the session from List without deleting it.
func (s *Store) SetArchived(sessionID string, archived bool) bool {
	return s.update(sessionID, func(sess *chat.Session) (bool, string) {
		if sess.Archived == archived {
			return false, ""
		}
		sess.Archived = archived
		if archived {
			return true, "대화를 보관했어요."
		}
		return true, "대화를 보관함에서 꺼냈어요."
	})
}

// DeleteSession removes the session permanently. Deleting the active session
// clears the active pointer and with it the transcript. A reply still pending for
// the session is dropped when it arrives.
func (s *Store) DeleteSession(sessionID string) bool {
	s.mu.Lock()
	i := s.indexLocked(sessionID)
	if i < 0 {
		s.mu.Unlock()
		s.log.Debug("session not found", "session", sessionID)
		return false
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	if s.activeID == sessionID {
		s.activeID = ""
	}
	err := s.persistLocked()
	s.mu.Unlock()

	s.log.Info("session deleted", "session", sessionID)
	s.afterChange("대화를 삭제했어요.", err)
	return true
}

// SelectSession makes the session active. Unknown ids change nothing.
func (s *Store) SelectSession(sessionID string) bool {
	s.mu.Lock()
	if s.indexLocked(sessionID) < 0 {
		s.mu.Unlock()
		s.log.Debug("session not found", "session", sessionID)
		return false
	}
	changed := s.activeID != sessionID
	s.activeID = sessionID
	var err error
	if changed {
		err = s.persistLocked()
	}
	s.mu.Unlock()
	if changed {
		s.afterChange("", err)
	}
	return true
}

// NewChat clears the active pointer so the next Send starts a new session.
func (s *Store) NewChat() {
	s.mu.Lock()
	if s.activeID == "" {
		s.mu.Unlock()
		return
	}
	s.activeID = ""
	err := s.persistLocked()
	s.mu.Unlock()
	s.afterChange("", err)
}

// Send is the send-message intent. It creates a session from the first message when
// none is active, otherwise appends to the active one, and then requests a reply
// for that session. It returns the id of the session the message went to.
func (s *Store) Send(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}

	s.mu.Lock()
	var (
		sessionID string
		history   []chat.Message
	)
	if s.activeID == "" {
		sess, err := s.createLocked(content)
		if err != nil {
			s.mu.Unlock()
			return "", err
		}
		sessionID = sess.ID
	} else {
		i := s.indexLocked(s.activeID)
		sess := &s.sessions[i]
		history = chat.CloneMessages(sess.Messages)
		sess.Messages = append(sess.Messages, s.newMessage(chat.RoleUser, content))
		sessionID = sess.ID
	}
	err := s.persistLocked()
	s.dispatchLocked(ctx, sessionID, history, content)
	s.mu.Unlock()

	s.afterChange("", err)
	return sessionID, nil
}

// RegenerateLast drops the final assistant message of the active session and asks
// for a new reply to the user message before it. It needs at least two messages
// ending in a user/assistant pair (ErrCannotRegenerate otherwise) and is refused
// with ErrReplyPending while a reply for the session is outstanding. Refusals
// change nothing.
func (s *Store) RegenerateLast(ctx context.Context) error {
	s.mu.Lock()
	i := s.indexLocked(s.activeID)
	if i < 0 {
		s.mu.Unlock()
		return ErrCannotRegenerate
	}
	sess := &s.sessions[i]
	n := len(sess.Messages)
	if n < 2 || sess.Messages[n-1].Role != chat.RoleAssistant || sess.Messages[n-2].Role != chat.RoleUser {
		s.mu.Unlock()
		return ErrCannotRegenerate
	}
	if s.pending[sess.ID] > 0 {
		s.mu.Unlock()
		return ErrReplyPending
	}

	sess.Messages = sess.Messages[:n-1]
	question := sess.Messages[n-2]
	history := chat.CloneMessages(sess.Messages[:n-2])
	err := s.persistLocked()
	s.dispatchLocked(ctx, sess.ID, history, question.Content)
	s.mu.Unlock()

	s.afterChange("", err)
	return nil
}
