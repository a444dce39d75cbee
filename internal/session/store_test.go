package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"assistant/internal/chat"
	"assistant/internal/notify"
	"assistant/internal/responder"
	"assistant/internal/storage"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(level notify.Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, string(level)+":"+msg)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func newTestStore(t *testing.T, kv storage.KV, p responder.Provider) *Store {
	t.Helper()
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	if p == nil {
		p = responder.NewMock(0, nil)
	}
	s := New(Options{KV: kv, Provider: p})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, contents ...string) []string {
	t.Helper()
	var ids []string
	for _, c := range contents {
		s.NewChat()
		sess, err := s.CreateFromFirstMessage(c)
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}
	return ids
}

func titles(sessions []chat.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Title)
	}
	return out
}

func TestDeriveTitle(t *testing.T) {
	cases := []string{"", "안녕", "12345678901234567890", "123456789012345678901", "복지카드 발급 방법 알려줘 자세히 부탁해요"}
	for _, c := range cases {
		got := DeriveTitle(c)
		if r := []rune(c); len(r) <= TitleMaxRunes {
			require.Equal(t, c, got)
		} else {
			require.Equal(t, string(r[:TitleMaxRunes])+"...", got)
		}
	}

	decomposed := strings.Repeat("\u1112\u1161\u11ab", 20) // conjoining jamo
	require.Equal(t, strings.Repeat("한", 20), DeriveTitle(decomposed))
}

func TestCreateFromFirstMessage(t *testing.T) {
	s := newTestStore(t, nil, nil)
	seed(t, s, "이전 대화")
	s.NewChat()

	content := "복지카드 발급 방법 알려줘 자세히 부탁해요"
	sess, err := s.CreateFromFirstMessage(content)
	require.NoError(t, err)
	require.Equal(t, string([]rune(content)[:20])+"...", sess.Title)
	require.Len(t, sess.Messages, 1)
	require.Equal(t, chat.RoleUser, sess.Messages[0].Role)
	require.Equal(t, content, sess.Messages[0].Content)

	snap := s.Snapshot()
	require.Equal(t, sess.ID, snap.ActiveID)
	require.Equal(t, sess.Title, snap.Title)
	require.Equal(t, sess.ID, snap.Sessions[0].ID)
	require.Len(t, snap.Sessions, 2)

	_, err = s.CreateFromFirstMessage("또 다른 대화")
	require.ErrorIs(t, err, ErrSessionActive)
	s.NewChat()
	_, err = s.CreateFromFirstMessage("   ")
	require.ErrorIs(t, err, ErrEmptyContent)
	require.Len(t, s.List(), 2)
}

func TestSortPinnedFirstIsStable(t *testing.T) {
	in := []chat.Session{
		{ID: "a"}, {ID: "b", Pinned: true}, {ID: "c"}, {ID: "d", Pinned: true}, {ID: "e"},
	}
	got := SortPinnedFirst(in)
	var ids []string
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	require.Equal(t, []string{"b", "d", "a", "c", "e"}, ids)
	require.Equal(t, "a", in[0].ID, "input must not be reordered")
}

func TestPinAndList(t *testing.T) {
	s := newTestStore(t, nil, nil)
	ids := seed(t, s, "one", "two", "three") // list order: three, two, one

	require.True(t, s.SetPinned(ids[0], nil))
	require.Equal(t, []string{"one", "three", "two"}, titles(s.List()))

	require.True(t, s.SetPinned(ids[0], nil))
	require.Equal(t, []string{"three", "two", "one"}, titles(s.List()))

	pinned := true
	require.True(t, s.SetPinned(ids[1], &pinned))
	require.True(t, s.SetPinned(ids[1], &pinned))
	got, _ := s.Get(ids[1])
	require.True(t, got.Pinned)
	require.False(t, s.SetPinned("missing", nil))
}

func TestArchiveKeepsSession(t *testing.T) {
	s := newTestStore(t, nil, nil)
	ids := seed(t, s, "keep me", "other")
	require.True(t, s.AppendMessage(ids[0], chat.Message{Role: chat.RoleAssistant, Content: "reply"}))

	require.True(t, s.SetArchived(ids[0], true))
	require.Equal(t, []string{"other"}, titles(s.List()))
	require.Equal(t, []string{"keep me"}, titles(s.Archived()))

	require.True(t, s.SelectSession(ids[0]))
	snap := s.Snapshot()
	require.Equal(t, ids[0], snap.ActiveID)
	require.Len(t, snap.Messages, 2)
	require.Equal(t, "reply", snap.Messages[1].Content)

	require.True(t, s.SetArchived(ids[0], false))
	require.Len(t, s.List(), 2)
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t, nil, nil)
	ids := seed(t, s, "first", "second") // second is active

	require.True(t, s.DeleteSession(ids[0]))
	snap := s.Snapshot()
	require.Equal(t, ids[1], snap.ActiveID)
	require.Len(t, snap.Messages, 1)

	require.True(t, s.DeleteSession(ids[1]))
	snap = s.Snapshot()
	require.Empty(t, snap.ActiveID)
	require.Empty(t, snap.Messages)
	require.Empty(t, snap.Title)

	require.False(t, s.DeleteSession(ids[1]))
	require.False(t, s.SelectSession(ids[1]))
	require.False(t, s.AppendMessage(ids[1], chat.Message{Content: "late"}))
	ok, err := s.RenameSession(ids[1], "x")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, s.List())
}

func TestRenameSession(t *testing.T) {
	rec := &recorder{}
	s := New(Options{KV: storage.NewMemoryKV(), Notifier: rec})
	defer s.Close()
	ids := seed(t, s, "old title")

	_, err := s.RenameSession(ids[0], "  \t")
	require.ErrorIs(t, err, ErrEmptyTitle)
	require.Equal(t, "old title", s.Snapshot().Title)

	ok, err := s.RenameSession(ids[0], " 새 제목 ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "새 제목", s.Snapshot().Title)
	require.Contains(t, rec.all(), "info:대화 이름을 변경했어요.")
}

func TestRegenerateRequiresPair(t *testing.T) {
	s := newTestStore(t, nil, nil)
	require.ErrorIs(t, s.RegenerateLast(context.Background()), ErrCannotRegenerate)

	seed(t, s, "only question")
	require.ErrorIs(t, s.RegenerateLast(context.Background()), ErrCannotRegenerate)
	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
}

func TestRegenerateReplacesLastReply(t *testing.T) {
	var n int
	var mu sync.Mutex
	p := responder.Func(func(ctx context.Context, history []chat.Message, content string) (chat.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return chat.Message{Content: content + " #" + string(rune('0'+n))}, nil
	})
	s := newTestStore(t, nil, p)

	_, err := s.Send(context.Background(), "질문")
	require.NoError(t, err)
	s.Wait()
	require.Equal(t, "질문 #1", s.Snapshot().Messages[1].Content)

	require.NoError(t, s.RegenerateLast(context.Background()))
	s.Wait()
	msgs := s.Snapshot().Messages
	require.Len(t, msgs, 2)
	require.Equal(t, "질문 #2", msgs[1].Content)
	require.Equal(t, chat.RoleAssistant, msgs[1].Role)
}

func TestSendRejectsEmpty(t *testing.T) {
	s := newTestStore(t, nil, nil)
	_, err := s.Send(context.Background(), " \n")
	require.ErrorIs(t, err, ErrEmptyContent)
	require.Empty(t, s.List())
}

func TestSearch(t *testing.T) {
	s := newTestStore(t, nil, nil)
	ids := seed(t, s, "휴가 계획", "Budget Review")
	require.True(t, s.AppendMessage(ids[0], chat.Message{Role: chat.RoleAssistant, Content: "부산 출장과 겹쳐요"}))

	require.Equal(t, []string{"Budget Review"}, titles(s.Search("budget")))
	require.Equal(t, []string{"휴가 계획"}, titles(s.Search("부산")))
	require.Len(t, s.Search(""), 2)

	require.True(t, s.SetArchived(ids[1], true))
	require.Empty(t, s.Search("budget"))
}

func TestPersistence(t *testing.T) {
	kv := storage.NewMemoryKV()
	first := New(Options{KV: kv})
	ids := seed(t, first, "persist me", "active one")
	pinned := true
	first.SetPinned(ids[0], &pinned)
	require.NoError(t, first.Close())

	raw, err := kv.Get(storage.KeyChatSessions)
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 2)
	require.Contains(t, stored[0], "createdAt")

	second := newTestStore(t, kv, nil)
	require.Equal(t, ids[1], second.ActiveID())
	require.Equal(t, []string{"persist me", "active one"}, titles(second.List()))

	second.NewChat()
	third := newTestStore(t, kv, nil)
	require.Empty(t, third.ActiveID())
}

func TestCorruptSessionsTreatedAsEmpty(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(storage.KeyChatSessions, []byte(`[{"id":`)))
	require.NoError(t, kv.Set(storage.KeyActiveChatSession, []byte(`"ghost"`)))

	s := newTestStore(t, kv, nil)
	require.Empty(t, s.List())
	require.Empty(t, s.ActiveID())

	_, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	s.Wait()
	require.Len(t, s.List(), 1)
}

func TestOnChange(t *testing.T) {
	s := newTestStore(t, nil, nil)
	var mu sync.Mutex
	calls := 0
	remove := s.OnChange(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	seed(t, s, "a")
	require.False(t, s.SelectSession("missing"))

	mu.Lock()
	got := calls
	mu.Unlock()
	require.Equal(t, 1, got)

	remove()
	s.NewChat()
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}
