package repl

import (
	"fmt"
	"io"
	"sync"

	"assistant/internal/notify"
	"assistant/internal/tui"
)

// lockedWriter serializes writes coming from the loop and from notification
// callbacks that may run on reply goroutines.
type lockedWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		return len(p), nil
	}
	return w.out.Write(p)
}

func (w *lockedWriter) setOutput(out io.Writer) {
	w.mu.Lock()
	w.out = out
	w.mu.Unlock()
}

// Toaster prints notifications as one styled line each. Until an output is
// attached it drops them.
type Toaster struct {
	w     lockedWriter
	theme tui.Theme
}

var _ notify.Notifier = (*Toaster)(nil)

func NewToaster(theme tui.Theme) *Toaster {
	return &Toaster{theme: theme}
}

// SetOutput attaches the writer toasts go to.
func (t *Toaster) SetOutput(out io.Writer) {
	t.w.setOutput(out)
}

func (t *Toaster) Notify(level notify.Level, msg string) {
	if level == notify.LevelError {
		fmt.Fprintln(&t.w, t.theme.ErrorStyle.Render("✗ "+msg))
		return
	}
	fmt.Fprintln(&t.w, t.theme.SuccessStyle.Render("✓ "+msg))
}

// writer is shared with the loop so toast lines never interleave mid-line.
func (t *Toaster) writer() io.Writer {
	return &t.w
}
