package contextmgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"assistant/internal/chat"
)

func TestEstimate(t *testing.T) {
	require.Equal(t, 0, Estimator().Text(""))
	require.Equal(t, 5, estimate("안녕하세요"))
	require.Equal(t, 4, estimate("日本語"))
	require.Equal(t, 1, estimate("a"))
	require.Equal(t, 3, estimate("hello world!"))

	mixed := estimate("휴가 일정 알려줘")
	require.GreaterOrEqual(t, mixed, 7)
}

func TestMessagesIncludeOverhead(t *testing.T) {
	tok := Estimator()
	msgs := []chat.Message{
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "hi there"},
	}
	require.Greater(t, tok.Messages(msgs), 2*messageOverhead)
	require.Equal(t, tok.Message(msgs[0])+tok.Message(msgs[1]), tok.Messages(msgs))

	withSources := msgs[1]
	withSources.Sources = []chat.Source{{Title: "a long citation title", URL: "https://example.com"}}
	require.Equal(t, tok.Message(msgs[1]), tok.Message(withSources))
}

func TestEncodingFor(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4", "cl100k_base"},
		{"gpt-3.5-turbo", "cl100k_base"},
		{"gpt-4o-mini", "o200k_base"},
		{"GPT-4.1-mini", "o200k_base"},
		{"o1-preview", "o200k_base"},
		{"o3-mini", "o200k_base"},
		{"qwen-plus", "cl100k_base"},
		{"", "cl100k_base"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, encodingFor(tt.model), tt.model)
	}
}

func TestEstimatorIsNotPrecise(t *testing.T) {
	tok := Estimator()
	require.False(t, tok.Precise())
	require.Equal(t, "estimate", tok.Encoding())
}
