package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"assistant/internal/chat"
)

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// RenderSources 渲染回复附带的出处列表
// RenderSources renders the citation block under an assistant reply
func RenderSources(sources []chat.Source, theme Theme) string {
	if len(sources) == 0 {
		return ""
	}
	lines := make([]string, 0, len(sources)+1)
	lines = append(lines, theme.MutedStyle.Render("출처"))
	for i, s := range sources {
		line := fmt.Sprintf("  [%d] %s", i+1, s.Title)
		if s.URL != "" {
			line += " · " + s.URL
		}
		lines = append(lines, theme.SourceStyle.Render(line))
	}
	return strings.Join(lines, "\n")
}

// RenderMessage 渲染一条对话消息；markdown 为 false 时输出原文
// RenderMessage renders one transcript entry. Assistant content goes through
// Glamour when markdown is true.
func RenderMessage(msg chat.Message, assistantName string, width int, markdown bool, theme Theme) string {
	var b strings.Builder
	switch msg.Role {
	case chat.RoleUser:
		b.WriteString(theme.UserStyle.Render("나"))
		b.WriteString("\n")
		b.WriteString(msg.Content)
	default:
		if strings.TrimSpace(assistantName) == "" {
			assistantName = chat.DefaultUserSettings().AssistantName
		}
		b.WriteString(theme.AssistantStyle.Render(assistantName))
		b.WriteString("\n")
		body := msg.Content
		if msg.Unavailable {
			body = theme.ErrorStyle.Render(body)
		} else if markdown {
			body = RenderMarkdown(body, width)
		}
		b.WriteString(body)
		if src := RenderSources(msg.Sources, theme); src != "" {
			b.WriteString("\n")
			b.WriteString(src)
		}
	}
	return b.String()
}
