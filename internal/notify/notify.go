// Package notify owns the single active user notification (the toast).
// A new Show replaces the current message and restarts the auto-dismiss
// timer; there is no queue. Changes are published to subscribers tagged
// with a monotonic ID so a UI can ignore out-of-date dismissals.
package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"petshop/internal/logging"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 3 * time.Second

// Notifier is what components raise messages through.
type Notifier interface {
	Show(message string, isError bool)
}

// Notification is one displayed message.
type Notification struct {
	ID      uint64
	Message string
	IsError bool
	ShownAt time.Time
}

// EventKind distinguishes shown from dismissed.
type EventKind int

const (
	EventShown EventKind = iota
	EventDismissed
)

func (k EventKind) String() string {
	if k == EventDismissed {
		return "dismissed"
	}
	return "shown"
}

// Event is published on every change.
type Event struct {
	Kind         EventKind
	Notification Notification
}

// Center holds at most one active notification.
type Center struct {
	mu          sync.Mutex
	current     *Notification
	timer       *time.Timer
	duration    time.Duration
	sequence    atomic.Uint64
	subscribers []chan Event
	closed      bool
}

// NewCenter creates a Center. A non-positive duration uses DefaultDuration.
func NewCenter(duration time.Duration) *Center {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Center{duration: duration}
}

// Show replaces the active notification and resets the dismiss timer.
func (c *Center) Show(message string, isError bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	n := Notification{
		ID:      c.sequence.Add(1),
		Message: message,
		IsError: isError,
		ShownAt: time.Now(),
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.current = &n
	id := n.ID
	c.timer = time.AfterFunc(c.duration, func() { c.expire(id) })
	c.publishLocked(Event{Kind: EventShown, Notification: n})
	c.mu.Unlock()

	logging.NotifyDebug("Show #%d error=%v: %s", n.ID, isError, message)
}

// expire dismisses id if it is still the active notification.
func (c *Center) expire(id uint64) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != id {
		c.mu.Unlock()
		return
	}
	n := *c.current
	c.current = nil
	c.timer = nil
	c.publishLocked(Event{Kind: EventDismissed, Notification: n})
	c.mu.Unlock()

	logging.NotifyDebug("Expired #%d", id)
}

// Dismiss hides the active notification early.
func (c *Center) Dismiss() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	n := *c.current
	c.current = nil
	c.publishLocked(Event{Kind: EventDismissed, Notification: n})
	c.mu.Unlock()
}

// Current returns the active notification, if any.
func (c *Center) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Notification{}, false
	}
	return *c.current, true
}

// Subscribe returns a buffered channel of changes. Events are dropped for a
// subscriber whose buffer is full.
func (c *Center) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	c.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (c *Center) Unsubscribe(ch <-chan Event) {
	if ch == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sub := range c.subscribers {
		if (<-chan Event)(sub) == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close stops the timer and closes every subscriber. Show is a no-op afterwards.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	for _, sub := range c.subscribers {
		close(sub)
	}
	c.subscribers = nil
}

// publishLocked never blocks, so it is safe under c.mu.
func (c *Center) publishLocked(evt Event) {
	for _, ch := range c.subscribers {
		select {
		case ch <- evt:
		default:
			logging.NotifyDebug("Subscriber full, dropped %s #%d", evt.Kind, evt.Notification.ID)
		}
	}
}
