package notify

import "sync"

// Recorder is a Notifier that keeps every message. Used by tests and by the
// non-interactive CLI, which prints what was recorded.
type Recorder struct {
	mu      sync.Mutex
	entries []Notification
}

func (r *Recorder) Show(message string, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Notification{
		ID:      uint64(len(r.entries) + 1),
		Message: message,
		IsError: isError,
	})
}

// All returns a copy of every recorded notification.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.entries...)
}

// Errors returns only the error notifications.
func (r *Recorder) Errors() []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.IsError {
			out = append(out, n)
		}
	}
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Notification{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}
