// Package session holds the client's authentication state (token + role).
// The state is persisted through a Backend on every mutation and handed to
// consumers explicitly; nothing reads it from ambient storage.
package session

import (
	"fmt"
	"sync"

	"petshop/internal/logging"
	"petshop/internal/types"
)

// Storage keys, kept compatible with the browser storefront.
const (
	KeyToken = "authToken"
	KeyRole  = "role"
)

// Backend is the persisted key/value storage behind a Manager.
// *store.LocalStore satisfies it.
type Backend interface {
	Get(key string) (string, bool, error)
	SetMany(pairs map[string]string) error
	Delete(keys ...string) error
}

// Manager owns the current Session and keeps it in sync with its Backend.
type Manager struct {
	mu          sync.RWMutex
	backend     Backend
	current     types.Session
	subscribers []chan types.Session
}

// NewManager loads the persisted session from backend.
func NewManager(backend Backend) (*Manager, error) {
	m := &Manager{backend: backend}
	if _, err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns the current session.
func (m *Manager) Get() types.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Token returns the current bearer token ("" when logged out).
func (m *Manager) Token() string {
	return m.Get().Token
}

// Set persists token and role synchronously, then publishes the new session.
func (m *Manager) Set(token string, role types.Role) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := m.backend.SetMany(map[string]string{KeyToken: token, KeyRole: role.String()}); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	logging.Session("Session set: role=%s", role)
	m.apply(types.Session{Token: token, Role: role})
	return nil
}

// Clear removes both token and role.
func (m *Manager) Clear() error {
	if err := m.backend.Delete(KeyToken, KeyRole); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	logging.Session("Session cleared")
	m.apply(types.Session{})
	return nil
}

// Reload re-reads the backend. It reports whether the session changed.
func (m *Manager) Reload() (bool, error) {
	token, _, err := m.backend.Get(KeyToken)
	if err != nil {
		return false, fmt.Errorf("failed to load token: %w", err)
	}
	roleStr, _, err := m.backend.Get(KeyRole)
	if err != nil {
		return false, fmt.Errorf("failed to load role: %w", err)
	}

	next := types.Session{Token: token, Role: types.ParseRole(roleStr)}
	if next.Token == "" {
		// A role without a token grants nothing.
		next.Role = types.RoleNone
	}
	return m.apply(next), nil
}

// apply swaps in next and notifies subscribers if it differs.
func (m *Manager) apply(next types.Session) bool {
	m.mu.Lock()
	changed := m.current != next
	m.current = next
	subs := append([]chan types.Session(nil), m.subscribers...)
	m.mu.Unlock()

	if !changed {
		return false
	}
	logging.SessionDebug("Session changed: authenticated=%v role=%s", next.Authenticated(), next.Role)
	for _, ch := range subs {
		// Keep only the latest value in each subscriber's slot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
	return true
}

// Subscribe returns a channel that receives the session after every change.
// Slow readers only see the most recent value.
func (m *Manager) Subscribe() <-chan types.Session {
	ch := make(chan types.Session, 1)
	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()
	return ch
}

// =============================================================================
// IN-MEMORY BACKEND
// =============================================================================

// MemoryBackend is a map-backed Backend for tests and ephemeral runs.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	// FailWrites makes every write return an error.
	FailWrites bool
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (b *MemoryBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *MemoryBackend) SetMany(pairs map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites {
		return fmt.Errorf("memory backend: writes disabled")
	}
	for k, v := range pairs {
		b.values[k] = v
	}
	return nil
}

func (b *MemoryBackend) Delete(keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites {
		return fmt.Errorf("memory backend: writes disabled")
	}
	for _, k := range keys {
		delete(b.values, k)
	}
	return nil
}
