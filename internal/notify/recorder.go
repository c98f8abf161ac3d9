package notify

import "sync"

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

// Message is one captured notification.
type Message struct {
	Level string // "success", "warning" or "error"
	Text  string
}

func (r *Recorder) record(level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Level: level, Text: text})
}

func (r *Recorder) Success(msg string) { r.record("success", msg) }
func (r *Recorder) Warning(msg string) { r.record("warning", msg) }
func (r *Recorder) Error(msg string)   { r.record("error", msg) }

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// Count returns the number of captured notifications.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Messages)
}
