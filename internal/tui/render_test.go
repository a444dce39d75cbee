package tui

import (
	"strings"
	"testing"

	"assistant/internal/chat"
)

func TestRenderMarkdown_Basic(t *testing.T) {
	input := "# Hello\n\nThis is **bold** text."
	result := RenderMarkdown(input, 80)
	if result == "" {
		t.Fatal("RenderMarkdown returned empty")
	}
	// Glamour 应该渲染了标题 / Glamour should have rendered the heading
	if !strings.Contains(result, "Hello") {
		t.Fatalf("result should contain 'Hello': %q", result)
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	if RenderMarkdown("", 80) != "" {
		t.Fatal("empty input should return empty")
	}
	if RenderMarkdown("  ", 80) != "" {
		t.Fatal("whitespace input should return empty")
	}
}

func TestRenderMarkdown_List(t *testing.T) {
	input := "- 날짜: 1/20 (월)\n- 기간: 1/20 (월) ~ 1/21 (화)"
	result := RenderMarkdown(input, 80)
	if !strings.Contains(result, "1/21") {
		t.Fatalf("list should keep its text: %q", result)
	}
}

func TestRenderSources(t *testing.T) {
	if RenderSources(nil, PlainTheme()) != "" {
		t.Fatal("no sources should render empty")
	}
	got := RenderSources([]chat.Source{
		{Title: "사내 복지 규정", URL: "https://intranet.example.com/welfare"},
		{Title: "공지"},
	}, PlainTheme())
	if !strings.Contains(got, "[1] 사내 복지 규정 · https://intranet.example.com/welfare") {
		t.Fatalf("unexpected sources: %q", got)
	}
	if !strings.Contains(got, "[2] 공지") || strings.Contains(got, "[2] 공지 ·") {
		t.Fatalf("source without url rendered wrong: %q", got)
	}
}

func TestRenderMessage(t *testing.T) {
	theme := PlainTheme()

	user := RenderMessage(chat.Message{Role: chat.RoleUser, Content: "안녕"}, "비서", 80, true, theme)
	if !strings.HasPrefix(user, "나\n안녕") {
		t.Fatalf("user message: %q", user)
	}

	reply := RenderMessage(chat.Message{
		Role:    chat.RoleAssistant,
		Content: "**답변**",
		Sources: []chat.Source{{Title: "출처1"}},
	}, "", 80, false, theme)
	if !strings.HasPrefix(reply, chat.DefaultUserSettings().AssistantName+"\n**답변**") {
		t.Fatalf("raw reply: %q", reply)
	}
	if !strings.Contains(reply, "출처1") {
		t.Fatalf("reply missing sources: %q", reply)
	}
}
