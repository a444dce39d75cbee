package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"

	"assistant/internal/bootstrap"
	"assistant/internal/chat"
	"assistant/internal/tui"
)

// Options tunes presentation only.
type Options struct {
	// Markdown renders assistant replies with Glamour.
	Markdown bool
	// Width is the wrap width for rendered replies. Zero means 80.
	Width int
	Theme tui.Theme
}

// Loop holds REPL state: the built stores, the line input and the last listing
// shown, so that sessions can be referenced by number.
// Loop 持有 REPL 状态：构建结果、行输入与最近一次列表（用于按序号引用会话）。
type Loop struct {
	*bootstrap.BuildResult
	in      LineInput
	out     io.Writer
	toaster *Toaster
	opts    Options

	listed []chat.Session
}

// NewLoop builds a REPL loop. toaster should be the notifier passed to
// bootstrap.Build so that toasts and replies share one output; nil creates one.
func NewLoop(res *bootstrap.BuildResult, in LineInput, toaster *Toaster, opts Options) *Loop {
	if toaster == nil {
		toaster = NewToaster(opts.Theme)
	}
	toaster.SetOutput(in.Stdout())
	if opts.Width <= 0 {
		opts.Width = 80
	}
	return &Loop{
		BuildResult: res,
		in:          in,
		out:         toaster.writer(),
		toaster:     toaster,
		opts:        opts,
	}
}

// Run reads lines until EOF or /quit. Lines starting with "/" are commands,
// anything else is sent to the active session.
func (l *Loop) Run(ctx context.Context) error {
	if l.Sessions == nil {
		return fmt.Errorf("session store is nil")
	}
	l.printBanner()
	for {
		line, err := l.in.ReadLine(l.prompt())
		if err != nil {
			switch {
			case errors.Is(err, readline.ErrInterrupt):
				fmt.Fprintln(l.out)
				continue
			case errors.Is(err, io.EOF):
				return nil
			default:
				return fmt.Errorf("read input: %w", err)
			}
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if exit := l.handleCommand(ctx, input); exit {
				return nil
			}
			continue
		}
		l.send(ctx, input)
		if err := ctx.Err(); err != nil {
			return nil
		}
	}
}

func (l *Loop) printBanner() {
	settings, _ := l.Settings.Load()
	name := settings.AssistantName
	greeting := fmt.Sprintf("%s와 대화를 시작합니다.", name)
	if settings.UserName != "" {
		greeting = fmt.Sprintf("%s님, %s", settings.UserName, greeting)
	}
	fmt.Fprintln(l.out, l.opts.Theme.TitleStyle.Render(greeting))
	fmt.Fprintln(l.out, l.opts.Theme.MutedStyle.Render("/help 로 명령어를 볼 수 있어요."))
}

// prompt shows the active session's title, if any.
func (l *Loop) prompt() string {
	snap := l.Sessions.Snapshot()
	if snap.Title == "" {
		return "> "
	}
	return fmt.Sprintf("[%s] > ", truncateCells(snap.Title, 24))
}

// send appends content to the active session (creating one when none is active)
// and blocks until the reply lands. Ctrl+C while waiting drops the reply.
func (l *Loop) send(ctx context.Context, content string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	id, err := l.Sessions.Send(turnCtx, content)
	if err != nil {
		l.errorf("%v", err)
		return
	}
	l.awaitReply(turnCtx, id)
}

func (l *Loop) regenerate(ctx context.Context) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	id := l.Sessions.ActiveID()
	if err := l.Sessions.RegenerateLast(turnCtx); err != nil {
		l.errorf("%v", err)
		return
	}
	l.awaitReply(turnCtx, id)
}

func (l *Loop) awaitReply(ctx context.Context, sessionID string) {
	changed := make(chan struct{}, 1)
	remove := l.Sessions.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer remove()

	if l.Sessions.Pending(sessionID) {
		fmt.Fprintln(l.out, l.opts.Theme.MutedStyle.Render("답변을 준비하고 있어요..."))
	}
	for l.Sessions.Pending(sessionID) {
		select {
		case <-ctx.Done():
			l.Sessions.Wait()
			fmt.Fprintln(l.out, l.opts.Theme.MutedStyle.Render("응답을 취소했어요."))
			return
		case <-changed:
		}
	}

	s, ok := l.Sessions.Get(sessionID)
	if !ok {
		return
	}
	if last, ok := s.LastMessage(); ok && last.Role == chat.RoleAssistant {
		l.printMessage(last)
	}
}

func (l *Loop) printMessage(msg chat.Message) {
	settings, _ := l.Settings.Load()
	fmt.Fprintln(l.out, tui.RenderMessage(msg, settings.AssistantName, l.opts.Width, l.opts.Markdown, l.opts.Theme))
	fmt.Fprintln(l.out)
}

func (l *Loop) printTranscript() {
	snap := l.Sessions.Snapshot()
	if snap.ActiveID == "" {
		fmt.Fprintln(l.out, l.opts.Theme.MutedStyle.Render("새 대화예요. 메시지를 입력해 보세요."))
		return
	}
	fmt.Fprintln(l.out, l.opts.Theme.TitleStyle.Render(snap.Title))
	for _, m := range snap.Messages {
		l.printMessage(m)
	}
	if snap.Pending {
		fmt.Fprintln(l.out, l.opts.Theme.MutedStyle.Render("답변을 준비하고 있어요..."))
	}
}

func (l *Loop) printMarkdown(text string) {
	if l.opts.Markdown {
		text = tui.RenderMarkdown(text, l.opts.Width)
	}
	fmt.Fprintln(l.out, text)
}

func (l *Loop) errorf(format string, args ...any) {
	fmt.Fprintln(l.out, l.opts.Theme.ErrorStyle.Render("오류: "+fmt.Sprintf(format, args...)))
}

func (l *Loop) infof(format string, args ...any) {
	fmt.Fprintln(l.out, fmt.Sprintf(format, args...))
}

// UseColor reports whether styled output is wanted.
func UseColor() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("ASSISTANT_NO_COLOR")) != "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(os.Getenv("TERM"))) != "dumb"
}
