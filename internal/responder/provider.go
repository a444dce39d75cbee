// Package responder produces assistant replies. Mock answers locally after a fixed
// latency; OpenAI calls an OpenAI-compatible endpoint.
package responder

import (
	"context"
	"errors"
	"time"

	"assistant/internal/chat"
)

// ErrEmptyReply is returned when a backend answers with no content.
var ErrEmptyReply = errors.New("empty reply")

// Provider 回复生成接口，会话存储只依赖它
// Provider produces the assistant message answering content.
//
// history is the transcript before content; it does not contain the new user message.
// Implementations must honour ctx cancellation.
type Provider interface {
	Reply(ctx context.Context, history []chat.Message, content string) (chat.Message, error)
}

// Func adapts a function to Provider.
type Func func(ctx context.Context, history []chat.Message, content string) (chat.Message, error)

func (f Func) Reply(ctx context.Context, history []chat.Message, content string) (chat.Message, error) {
	return f(ctx, history, content)
}

// DemoSources is the citation set attached to mock replies.
func DemoSources() []chat.Source {
	return []chat.Source{
		{Title: "사내 포털 공지사항", URL: "https://intranet.example.com/notice", Description: "전사 공지와 업무 안내"},
		{Title: "인사 규정 안내", URL: "https://intranet.example.com/hr/policy", Description: "휴가, 출장, 복지 제도 규정"},
		{Title: "자주 묻는 질문", URL: "https://intranet.example.com/faq", Description: "업무 지원 FAQ"},
	}
}

func assistantMessage(content string, sources []chat.Source, now func() time.Time) chat.Message {
	return chat.Message{
		ID:        chat.NewID(),
		Role:      chat.RoleAssistant,
		Content:   content,
		Timestamp: now(),
		Sources:   sources,
	}
}
