// Package account handles login, registration, logout and the user profile.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"petshop/internal/api"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/routing"
	"petshop/internal/types"
)

// MinPasswordLength applies to registration only.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Backend is the subset of the API client the account flows need.
type Backend interface {
	Login(ctx context.Context, creds types.Credentials) (types.AuthResponse, error)
	Register(ctx context.Context, reg types.Registration) (types.AuthResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (types.User, error)
	UpdateMe(ctx context.Context, update types.ProfileUpdate) error
}

// Sessions is the session state the service writes. *session.Manager
// satisfies it.
type Sessions interface {
	Get() types.Session
	Set(token string, role types.Role) error
	Clear() error
}

// Navigator moves the UI after login and logout. *routing.Navigator
// satisfies it.
type Navigator interface {
	Go(loc routing.Location) routing.View
	GoAfter(delay time.Duration, loc routing.Location)
}

// Service runs the account flows.
type Service struct {
	backend  Backend
	sessions Sessions
	notifier notify.Notifier
	nav      Navigator
	delay    time.Duration

	mu       sync.Mutex
	onLogout []func()
}

// New creates a Service. redirectDelay is the pause before leaving the login
// or registration screen after success.
func New(backend Backend, sessions Sessions, notifier notify.Notifier, nav Navigator, redirectDelay time.Duration) *Service {
	return &Service{
		backend:  backend,
		sessions: sessions,
		notifier: notifier,
		nav:      nav,
		delay:    redirectDelay,
	}
}

// OnLogout registers fn to run after the session is cleared.
func (s *Service) OnLogout(fn func()) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}

// ValidateEmail checks presence and shape.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &api.ValidationError{Field: "email", Message: "Email is required"}
	}
	if !emailPattern.MatchString(email) {
		return &api.ValidationError{Field: "email", Message: "Invalid email format"}
	}
	return nil
}

// ValidateLogin returns every field problem joined, or nil.
func ValidateLogin(creds types.Credentials) error {
	var errs []error
	if err := ValidateEmail(creds.Email); err != nil {
		errs = append(errs, err)
	}
	if creds.Password == "" {
		errs = append(errs, &api.ValidationError{Field: "password", Message: "Password is required"})
	}
	return errors.Join(errs...)
}

// ValidateRegistration returns every field problem joined, or nil.
func ValidateRegistration(reg types.Registration) error {
	var errs []error
	if strings.TrimSpace(reg.Name) == "" {
		errs = append(errs, &api.ValidationError{Field: "name", Message: "Name is required"})
	}
	if err := ValidateEmail(reg.Email); err != nil {
		errs = append(errs, err)
	}
	switch {
	case reg.Password == "":
		errs = append(errs, &api.ValidationError{Field: "password", Message: "Password is required"})
	case len([]rune(reg.Password)) < MinPasswordLength:
		errs = append(errs, &api.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength),
		})
	}
	return errors.Join(errs...)
}

// FieldErrors flattens a joined validation error into field → message.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range j.Unwrap() {
				walk(inner)
			}
			return
		}
		var ve *api.ValidationError
		if errors.As(e, &ve) {
			out[ve.Field] = ve.Message
		}
	}
	walk(err)
	return out
}

// Login authenticates and stores the session. Validation failures send no
// request.
func (s *Service) Login(ctx context.Context, creds types.Credentials) (types.Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := ValidateLogin(creds); err != nil {
		return types.Session{}, err
	}
	resp, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.audit(logging.AuditLogin, creds.Email, false, err.Error())
		s.notifier.Show(loginMessage(err), true)
		return types.Session{}, fmt.Errorf("login: %w", err)
	}
	return s.establish(resp, creds.Email, logging.AuditLogin, "Logged in")
}

// Register creates an account and logs straight in.
func (s *Service) Register(ctx context.Context, reg types.Registration) (types.Session, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if err := ValidateRegistration(reg); err != nil {
		return types.Session{}, err
	}
	resp, err := s.backend.Register(ctx, reg)
	if err != nil {
		s.audit(logging.AuditLogin, reg.Email, false, "register: "+err.Error())
		s.notifier.Show(registerMessage(err), true)
		return types.Session{}, fmt.Errorf("register: %w", err)
	}
	return s.establish(resp, reg.Email, logging.AuditLogin, "Registration complete")
}

func (s *Service) establish(resp types.AuthResponse, email string, kind logging.AuditEventType, msg string) (types.Session, error) {
	role := types.ParseRole(resp.Role)
	if err := s.sessions.Set(resp.Token, role); err != nil {
		s.notifier.Show("Could not save the session", true)
		return types.Session{}, fmt.Errorf("store session: %w", err)
	}
	s.audit(kind, email, true, role.String())
	logging.Session("Logged in as %s (%s)", email, role)
	s.notifier.Show(msg, false)
	s.nav.GoAfter(s.delay, routing.At(routing.Home))
	return s.sessions.Get(), nil
}

// Logout tells the backend (best effort) and always clears the session.
func (s *Service) Logout(ctx context.Context) error {
	if s.sessions.Get().Authenticated() {
		if err := s.backend.Logout(ctx); err != nil {
			logging.SessionWarn("Logout request failed, clearing session anyway: %v", err)
		}
	}
	if err := s.sessions.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.audit(logging.AuditLogout, "", true, "")

	s.mu.Lock()
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	s.nav.Go(routing.At(routing.Home))
	return nil
}

// Profile loads the current user's profile.
func (s *Service) Profile(ctx context.Context) (types.User, error) {
	if !s.sessions.Get().Authenticated() {
		return types.User{}, api.ErrLoginRequired
	}
	u, err := s.backend.Me(ctx)
	if err != nil {
		return types.User{}, fmt.Errorf("load profile: %w", err)
	}
	return u, nil
}

// UpdateProfile saves the profile form.
func (s *Service) UpdateProfile(ctx context.Context, update types.ProfileUpdate) error {
	if !s.sessions.Get().Authenticated() {
		s.notifier.Show("Please log in first", true)
		return api.ErrLoginRequired
	}
	if update.Email != "" {
		if err := ValidateEmail(update.Email); err != nil {
			s.notifier.Show(api.UserMessage(err), true)
			return err
		}
	}
	if err := s.backend.UpdateMe(ctx, update); err != nil {
		s.notifier.Show(api.UserMessage(err), true)
		return fmt.Errorf("update profile: %w", err)
	}
	s.notifier.Show("Profile updated", false)
	return nil
}

func (s *Service) audit(kind logging.AuditEventType, target string, ok bool, msg string) {
	logging.Audit(logging.AuditEvent{Type: kind, Target: target, Success: ok, Message: msg})
}

// loginMessage maps a login failure by status code, never by body text.
func loginMessage(err error) string {
	var se *api.StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return "Invalid email or password"
	}
	return api.UserMessage(err)
}

func registerMessage(err error) string {
	var se *api.StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return "This email is already registered"
	}
	return api.UserMessage(err)
}
