// Package notify delivers fire-and-forget user notifications (the toast
// equivalent). Implementations must not block the caller for long and must not panic.
package notify

import (
	"log/slog"

	"assistant/internal/logging"
)

// Level separates success toasts from failure toasts.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notifier receives notifications after core state changes.
type Notifier interface {
	Notify(level Level, msg string)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(Level, string) {}

// Func adapts a function to Notifier.
type Func func(level Level, msg string)

func (f Func) Notify(level Level, msg string) {
	if f != nil {
		f(level, msg)
	}
}

// Log writes notifications to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(level Level, msg string) {
	log := logging.OrNop(l.Logger)
	if level == LevelError {
		log.Error("notify", "message", msg)
		return
	}
	log.Info("notify", "message", msg)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(level Level, msg string) {
	for _, n := range m {
		if n != nil {
			n.Notify(level, msg)
		}
	}
}

// Info and Error are shorthands that tolerate a nil notifier.
func Info(n Notifier, msg string) {
	if n != nil {
		n.Notify(LevelInfo, msg)
	}
}

func Error(n Notifier, msg string) {
	if n != nil {
		n.Notify(LevelError, msg)
	}
}
