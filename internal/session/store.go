// Package session owns the chat sessions and the active-session pointer.
//
// Every mutation runs under one lock and is persisted synchronously before the
// lock is released. Replies are produced on goroutines and applied back strictly
// in the order they were requested within each session, each to the session it
// was requested for.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"assistant/internal/chat"
	"assistant/internal/logging"
	"assistant/internal/notify"
	"assistant/internal/responder"
	"assistant/internal/storage"
)

var (
	ErrEmptyContent = errors.New("message content is empty")
	ErrEmptyTitle   = errors.New("session title is empty")
	// ErrSessionActive is returned by CreateFromFirstMessage when a session is already active.
	ErrSessionActive = errors.New("a session is already active")
	// ErrReplyPending rejects RegenerateLast while the session still waits for a reply.
	ErrReplyPending = errors.New("a reply is still pending for this session")
	// ErrCannotRegenerate means the active transcript does not end in a user/assistant pair.
	ErrCannotRegenerate = errors.New("nothing to regenerate")
)

// DefaultReplyTimeout bounds a single reply request.
const DefaultReplyTimeout = 30 * time.Second

// Options 会话存储的依赖注入
// Options carries the collaborators of a Store. Only KV is required.
type Options struct {
	KV       storage.KV
	Provider responder.Provider
	Notifier notify.Notifier
	Logger   *slog.Logger
	// ReplyTimeout bounds each reply. Zero means DefaultReplyTimeout, negative disables it.
	ReplyTimeout time.Duration
	Now          func() time.Time
}

// Store 会话存储
// Store is the single source of truth for sessions.
type Store struct {
	kv       storage.KV
	provider responder.Provider
	notifier notify.Notifier
	log      *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions []chat.Session // newest first
	activeID string

	queues  map[string]*replyQueue
	pending map[string]int

	hookMu   sync.Mutex
	hookID   int
	onChange map[int]func()
}

// New loads the persisted sessions. Unreadable data is logged and treated as empty.
func New(opts Options) *Store {
	s := &Store{
		kv:       opts.KV,
		provider: opts.Provider,
		notifier: opts.Notifier,
		log:      logging.OrNop(opts.Logger),
		timeout:  opts.ReplyTimeout,
		now:      opts.Now,
		queues:   make(map[string]*replyQueue),
		pending:  make(map[string]int),
		onChange: make(map[int]func()),
	}
	if s.kv == nil {
		s.kv = storage.NewMemoryKV()
	}
	if s.provider == nil {
		s.provider = responder.NewMock(0, nil)
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.timeout == 0 {
		s.timeout = DefaultReplyTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.load()
	return s
}

// Close cancels outstanding replies and waits for their goroutines to finish.
// Cancelled replies are dropped.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

// OnChange registers fn to run after every state change. fn runs outside the
// store lock, possibly on a reply goroutine. The returned func unregisters it.
func (s *Store) OnChange(fn func()) (remove func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hookID++
	id := s.hookID
	s.onChange[id] = fn
	return func() {
		s.hookMu.Lock()
		delete(s.onChange, id)
		s.hookMu.Unlock()
	}
}

func (s *Store) fireChange() {
	s.hookMu.Lock()
	hooks := make([]func(), 0, len(s.onChange))
	for _, fn := range s.onChange {
		hooks = append(hooks, fn)
	}
	s.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// afterChange runs the side effects of a committed mutation. It must be called
// without holding s.mu.
func (s *Store) afterChange(okMsg string, persistErr error) {
	if persistErr != nil {
		s.log.Error("persist sessions failed", "error", persistErr)
		notify.Error(s.notifier, "대화 기록을 저장하지 못했어요.")
	} else if okMsg != "" {
		notify.Info(s.notifier, okMsg)
	}
	s.fireChange()
}

func (s *Store) load() {
	var sessions []chat.Session
	if data, err := s.kv.Get(storage.KeyChatSessions); err == nil {
		if err := json.Unmarshal(data, &sessions); err != nil {
			s.log.Warn("discarding malformed sessions", "error", err)
			sessions = nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("read sessions failed", "error", err)
	}

	seen := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		if sess.ID == "" || seen[sess.ID] {
			continue
		}
		seen[sess.ID] = true
		if sess.Messages == nil {
			sess.Messages = []chat.Message{}
		}
		s.sessions = append(s.sessions, sess)
	}

	if data, err := s.kv.Get(storage.KeyActiveChatSession); err == nil {
		var id string
		if err := json.Unmarshal(data, &id); err == nil && seen[id] {
			s.activeID = id
		}
	}
	s.log.Debug("sessions loaded", "count", len(s.sessions), "active", s.activeID)
}

func (s *Store) persistLocked() error {
	sessions := s.sessions
	if sessions == nil {
		sessions = []chat.Session{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	if err := s.kv.Set(storage.KeyChatSessions, data); err != nil {
		return fmt.Errorf("persist sessions: %w", err)
	}
	if s.activeID == "" {
		if err := s.kv.Delete(storage.KeyActiveChatSession); err != nil {
			return fmt.Errorf("clear active session: %w", err)
		}
		return nil
	}
	active, _ := json.Marshal(s.activeID)
	if err := s.kv.Set(storage.KeyActiveChatSession, active); err != nil {
		return fmt.Errorf("persist active session: %w", err)
	}
	return nil
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// update is the single not-found policy: it looks id up and, when present, runs fn
// on the session under the lock. fn reports whether it changed anything and the
// notification to show for the change. Changes are persisted before the lock is
// released. Unknown ids are a silent no-op and report false.
func (s *Store) update(id string, fn func(sess *chat.Session) (changed bool, msg string)) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.Debug("session not found", "session", id)
		return false
	}
	changed, msg := fn(&s.sessions[i])
	var err error
	if changed {
		err = s.persistLocked()
	}
	s.mu.Unlock()

	if changed {
		s.afterChange(msg, err)
	}
	return true
}

func (s *Store) newMessage(role chat.Role, content string) chat.Message {
	return chat.Message{
		ID:        chat.NewID(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
}
