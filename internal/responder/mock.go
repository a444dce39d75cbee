package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assistant/internal/advisory"
	"assistant/internal/chat"
)

// DefaultMockDelay models network latency.
const DefaultMockDelay = 1500 * time.Millisecond

// Mock answers locally: schedule and news questions go to the advisory engine,
// anything else gets an acknowledgement echoing the input.
type Mock struct {
	Delay   time.Duration
	Advisor *advisory.Engine
	// Sources is attached to every reply that does not cite its own. Nil means none.
	Sources []chat.Source
	Now     func() time.Time
}

// NewMock builds a mock with the demo sources.
func NewMock(delay time.Duration, advisor *advisory.Engine) *Mock {
	return &Mock{Delay: delay, Advisor: advisor, Sources: DemoSources(), Now: time.Now}
}

func (m *Mock) Reply(ctx context.Context, history []chat.Message, content string) (chat.Message, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return chat.Message{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}

	now := m.Now
	if now == nil {
		now = time.Now
	}
	sources := append([]chat.Source(nil), m.Sources...)
	if m.Advisor != nil {
		if ans, ok := m.Advisor.Respond(content); ok {
			if len(ans.Sources) > 0 {
				sources = ans.Sources
			}
			return assistantMessage(ans.Text, sources, now), nil
		}
	}
	return assistantMessage(echo(history, content), sources, now), nil
}

func echo(history []chat.Message, content string) string {
	quoted := strings.Join(strings.Fields(content), " ")
	if r := []rune(quoted); len(r) > 40 {
		quoted = string(r[:40]) + "..."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\"%s\"에 대해 말씀해 주셨네요.\n\n", quoted)
	b.WriteString("지금은 데모 모드라 실제 검색 없이 준비된 자료로 답변하고 있어요. ")
	b.WriteString("일정이나 회사 소식이 궁금하시면 \"다가오는 일정 알려줘\" 또는 \"오늘 뉴스 알려줘\"처럼 물어봐 주세요.")
	if turns := countUser(history); turns > 0 {
		fmt.Fprintf(&b, "\n\n(이번 대화에서 %d번째 질문이에요.)", turns+1)
	}
	return b.String()
}

func countUser(history []chat.Message) int {
	n := 0
	for _, m := range history {
		if m.Role == chat.RoleUser {
			n++
		}
	}
	return n
}
