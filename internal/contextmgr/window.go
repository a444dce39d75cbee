// Package contextmgr fits a chat transcript into a provider's token budget.
package contextmgr

import (
	"fmt"
	"strings"

	"assistant/internal/chat"
)

// Window 按 token 预算截取最近的对话
// Window keeps the most recent turns of a transcript within a token budget.
type Window struct {
	Tokenizer *Tokenizer
	// Budget is the token limit for the trimmed history. Zero or less disables trimming.
	Budget int
	// KeepRecent messages are always kept, even over budget.
	KeepRecent int
}

// Trimmed is the result of Window.Fit.
type Trimmed struct {
	Messages []chat.Message
	Dropped  int
	// Summary lists the user questions of dropped turns. Empty when nothing was dropped.
	Summary string
	Tokens  int
}

// Fit drops placeholder replies, then drops the oldest messages until the rest fits
// the budget. The transcript passed in is not modified.
func (w Window) Fit(history []chat.Message) Trimmed {
	tok := w.Tokenizer
	if tok == nil {
		tok = Estimator()
	}
	msgs := make([]chat.Message, 0, len(history))
	for _, m := range history {
		if m.Unavailable || strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, m)
	}

	total := tok.Messages(msgs)
	if w.Budget <= 0 || total <= w.Budget {
		return Trimmed{Messages: msgs, Tokens: total}
	}

	keep := w.KeepRecent
	if keep < 1 {
		keep = 1
	}
	split := 0
	for split < len(msgs)-keep && total > w.Budget {
		total -= tok.Message(msgs[split])
		split++
	}
	// never start on an assistant turn
	for split < len(msgs)-1 && msgs[split].Role == chat.RoleAssistant {
		total -= tok.Message(msgs[split])
		split++
	}

	out := Trimmed{
		Messages: append([]chat.Message(nil), msgs[split:]...),
		Dropped:  split,
		Tokens:   total,
	}
	out.Summary = summarize(msgs[:split])
	return out
}

func summarize(dropped []chat.Message) string {
	var questions []string
	for _, m := range dropped {
		if m.Role == chat.RoleUser {
			questions = append(questions, short(m.Content, 80))
		}
	}
	if len(questions) == 0 {
		return ""
	}
	if len(questions) > 5 {
		questions = questions[len(questions)-5:]
	}
	return fmt.Sprintf("Earlier in this conversation the user asked: %s", strings.Join(questions, " / "))
}

func short(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
