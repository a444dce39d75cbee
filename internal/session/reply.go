package session

import (
	"context"
	"errors"
	"time"

	"assistant/internal/chat"
	"assistant/internal/notify"
)

// UnavailableText is the placeholder appended when a reply fails or times out.
const UnavailableText = "죄송해요, 지금은 응답을 드릴 수 없어요. 잠시 후 다시 시도해 주세요."

type replyResult struct {
	seq       uint64
	sessionID string
	msg       chat.Message
	err       error
	dropped   bool
}

// replyQueue orders the replies of one session. Sessions do not wait on each other.
type replyQueue struct {
	next  uint64
	apply uint64
	done  map[uint64]replyResult
}

// dispatchLocked issues a reply request for sessionID. The request gets the
// session's next sequence number; complete applies results in that order.
func (s *Store) dispatchLocked(ctx context.Context, sessionID string, history []chat.Message, content string) {
	q, ok := s.queues[sessionID]
	if !ok {
		q = &replyQueue{done: make(map[uint64]replyResult)}
		s.queues[sessionID] = q
	}
	seq := q.next
	q.next++
	s.pending[sessionID]++
	s.wg.Add(1)
	s.log.Debug("reply requested", "session", sessionID, "seq", seq)
	go s.runReply(ctx, seq, sessionID, history, content)
}

func (s *Store) runReply(ctx context.Context, seq uint64, sessionID string, history []chat.Message, content string) {
	defer s.wg.Done()
	if ctx == nil {
		ctx = context.Background()
	}
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()
	if s.timeout > 0 {
		var cancelTimeout context.CancelFunc
		rctx, cancelTimeout = context.WithTimeout(rctx, s.timeout)
		defer cancelTimeout()
	}

	start := time.Now()
	msg, err := s.provider.Reply(rctx, history, content)
	if err == nil && rctx.Err() != nil {
		err = rctx.Err()
	}
	r := replyResult{seq: seq, sessionID: sessionID, msg: msg, err: err}
	// Cancellation from the caller or Close drops the reply. A timeout does not.
	if err != nil && errors.Is(rctx.Err(), context.Canceled) {
		r.dropped = true
	}
	s.log.Debug("reply finished", "session", sessionID, "seq", seq, "elapsed", time.Since(start), "error", err)
	s.complete(r)
}

type appliedReply struct {
	failed  bool
	applied bool
}

// complete buffers r and applies every result of its session that is next in sequence.
func (s *Store) complete(r replyResult) {
	s.mu.Lock()
	q := s.queues[r.sessionID]
	q.done[r.seq] = r
	var (
		outcomes []appliedReply
		changed  bool
	)
	for {
		next, ok := q.done[q.apply]
		if !ok {
			break
		}
		delete(q.done, q.apply)
		q.apply++
		out := s.applyLocked(next)
		changed = changed || out.applied
		outcomes = append(outcomes, out)
	}
	if q.apply == q.next {
		delete(s.queues, r.sessionID)
	}
	var err error
	if changed {
		err = s.persistLocked()
	}
	s.mu.Unlock()

	for _, out := range outcomes {
		if out.failed {
			notify.Error(s.notifier, "응답을 받지 못했어요.")
		}
	}
	if changed {
		s.afterChange("", err)
	}
}

func (s *Store) applyLocked(r replyResult) appliedReply {
	if s.pending[r.sessionID]--; s.pending[r.sessionID] <= 0 {
		delete(s.pending, r.sessionID)
	}
	if r.dropped {
		s.log.Debug("reply cancelled", "session", r.sessionID, "seq", r.seq)
		return appliedReply{}
	}
	i := s.indexLocked(r.sessionID)
	if i < 0 {
		s.log.Debug("dropping reply for deleted session", "session", r.sessionID, "seq", r.seq)
		return appliedReply{}
	}

	msg := r.msg
	failed := r.err != nil
	if failed {
		s.log.Warn("reply unavailable", "session", r.sessionID, "seq", r.seq, "error", r.err)
		msg = s.newMessage(chat.RoleAssistant, UnavailableText)
		msg.Unavailable = true
	} else {
		msg.Role = chat.RoleAssistant
		if msg.ID == "" {
			msg.ID = chat.NewID()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = s.now()
		}
	}
	s.sessions[i].Messages = append(s.sessions[i].Messages, msg)
	return appliedReply{applied: true, failed: failed}
}

// Pending reports whether a reply for sessionID is outstanding.
func (s *Store) Pending(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[sessionID] > 0
}

// Wait blocks until every reply requested so far has been applied or dropped.
func (s *Store) Wait() {
	s.wg.Wait()
}
