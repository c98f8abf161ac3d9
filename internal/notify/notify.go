// Package notify delivers transient user-facing messages. The notifier
// is injected into whichever component needs to emit them rather than
// held in shared module state.
package notify

import "log/slog"

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// SlogNotifier writes notifications to a structured logger.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier creates a Notifier backed by the given logger.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Success(msg string) {
	n.logger.Info(msg, "notification", "success")
}

func (n *SlogNotifier) Warning(msg string) {
	n.logger.Warn(msg, "notification", "warning")
}

func (n *SlogNotifier) Error(msg string) {
	n.logger.Error(msg, "notification", "error")
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Warning(string) {}
func (Nop) Error(string)   {}
