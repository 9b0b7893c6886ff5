package routing

import (
	"sync"
	"time"

	"petshop/internal/logging"
	"petshop/internal/types"
)

// SessionSource supplies the session the guard is evaluated against.
// *session.Manager satisfies it.
type SessionSource interface {
	Get() types.Session
}

// View is what the UI should render after a navigation.
type View struct {
	Location Location
	Decision Decision
	// Requested is the location asked for; differs from Location after a
	// redirect to login.
	Requested Location
}

// Navigator keeps the current location and applies guard decisions.
type Navigator struct {
	mu        sync.Mutex
	sessions  SessionSource
	current   View
	history   []Location
	pending   *time.Timer
	pendingID uint64
	listeners []chan View
}

// NewNavigator starts at Home.
func NewNavigator(sessions SessionSource) *Navigator {
	home := At(Home)
	return &Navigator{
		sessions: sessions,
		current:  View{Location: home, Requested: home, Decision: Allow},
	}
}

// Current returns the active view.
func (n *Navigator) Current() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Go navigates to loc now, cancelling any delayed navigation.
func (n *Navigator) Go(loc Location) View {
	n.mu.Lock()
	n.cancelLocked()
	v := n.applyLocked(loc, true)
	n.mu.Unlock()
	return v
}

// GoAfter navigates to loc once delay has passed. A later Go or GoAfter
// supersedes it.
func (n *Navigator) GoAfter(delay time.Duration, loc Location) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelLocked()
	n.pendingID++
	id := n.pendingID
	logging.RoutingDebug("Scheduled %s in %v", loc, delay)
	n.pending = time.AfterFunc(delay, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.pendingID != id || n.pending == nil {
			return
		}
		n.pending = nil
		n.applyLocked(loc, true)
	})
}

// Pending reports whether a delayed navigation is scheduled.
func (n *Navigator) Pending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending != nil
}

// Cancel drops any delayed navigation.
func (n *Navigator) Cancel() {
	n.mu.Lock()
	n.cancelLocked()
	n.mu.Unlock()
}

// Back returns to the previous location, re-guarded.
func (n *Navigator) Back() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelLocked()
	if len(n.history) == 0 {
		return n.current
	}
	prev := n.history[len(n.history)-1]
	n.history = n.history[:len(n.history)-1]
	return n.applyLocked(prev, false)
}

// Revalidate re-guards the current location, e.g. after the session changed.
func (n *Navigator) Revalidate() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.applyLocked(n.current.Requested, false)
}

// Subscribe receives every applied view. Views are dropped for a full buffer.
func (n *Navigator) Subscribe() <-chan View {
	ch := make(chan View, 8)
	n.mu.Lock()
	n.listeners = append(n.listeners, ch)
	n.mu.Unlock()
	return ch
}

func (n *Navigator) cancelLocked() {
	if n.pending != nil {
		n.pending.Stop()
		n.pending = nil
	}
	n.pendingID++
}

func (n *Navigator) applyLocked(loc Location, record bool) View {
	d := Guard(loc.Route, n.sessions.Get())
	v := View{Location: loc, Requested: loc, Decision: d}
	if d == RedirectLogin {
		v.Location = At(Login)
	}

	if record && n.current.Location != v.Location {
		n.history = append(n.history, n.current.Location)
		if len(n.history) > 50 {
			n.history = n.history[1:]
		}
	}
	n.current = v
	logging.Routing("Navigate %s -> %s (%s)", loc, v.Location, d)

	for _, ch := range n.listeners {
		select {
		case ch <- v:
		default:
		}
	}
	return v
}
