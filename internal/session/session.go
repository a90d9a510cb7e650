// Package session owns the persisted session record: the bearer token plus
// the cached user profile.
//
// A user record is never trusted without a token next to it, and a token
// whose JWT expiry has passed is treated as absent.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/niloyhakimai/medistore-client/internal/apiclient"
	"github.com/niloyhakimai/medistore-client/internal/bus"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/internal/store"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
)

var (
	ErrInvalidLoginResponse = errors.New("login response is missing token or user")
	ErrMissingCredentials   = errors.New("email and password are required")
)

// Session is an authenticated session read from the store
type Session struct {
	Token string
	User  domain.User
}

// Reader reads the session record. It satisfies apiclient.TokenSource.
type Reader struct {
	store store.Store
	now   func() time.Time
}

// NewReader creates a Reader over s
func NewReader(s store.Store) *Reader {
	return &Reader{store: s, now: time.Now}
}

// Token returns the stored bearer token if the session is still usable
func (r *Reader) Token(ctx context.Context) (string, bool) {
	token, ok, err := r.store.Get(ctx, store.KeyToken)
	if err != nil {
		logger.Get().Warn("Failed to read session token", "error", err)
		return "", false
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" || r.expired(token) {
		return "", false
	}
	return token, true
}

// Current returns the session, or false when there is none
func (r *Reader) Current(ctx context.Context) (Session, bool) {
	token, ok := r.Token(ctx)
	if !ok {
		return Session{}, false
	}
	var user domain.User
	if !store.GetJSON(ctx, r.store, store.KeyUser, &user) || user.ID == "" {
		return Session{}, false
	}
	user.Role = domain.ParseRole(string(user.Role))
	return Session{Token: token, User: user}, true
}

// expired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens never expire client side; the backend is the judge.
func (r *Reader) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !r.now().Before(exp.Time)
}

// Authenticator is the backend side of login and registration
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*dto.LoginResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) error
}

// Manager logs users in and out
type Manager struct {
	*Reader
	bus      *bus.Bus
	auth     Authenticator
	notifier notify.Notifier
	log      *logger.Logger
}

// NewManager creates a Manager
func NewManager(r *Reader, b *bus.Bus, auth Authenticator, n notify.Notifier) *Manager {
	return &Manager{
		Reader:   r,
		bus:      b,
		auth:     auth,
		notifier: n,
		log:      logger.Get(),
	}
}

// Result is the outcome of a session operation
type Result struct {
	Session    Session
	Navigation routing.Navigation
}

// Login authenticates, persists the session and returns the role dashboard
func (m *Manager) Login(ctx context.Context, email, password string) (*Result, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		m.notifier.Error("Please enter email and password")
		return nil, ErrMissingCredentials
	}

	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.notifier.Error(apiclient.Message(err, "Invalid Email or Password"))
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		m.notifier.Error("Invalid Email or Password")
		return nil, ErrInvalidLoginResponse
	}

	user := *resp.User
	user.Role = domain.ParseRole(string(user.Role))

	// user first: a token is only ever visible alongside its user
	if err := store.SetJSON(ctx, m.store, store.KeyUser, user); err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, store.KeyToken, resp.Token); err != nil {
		return nil, fmt.Errorf("failed to store session token: %w", err)
	}
	m.bus.Publish(ctx, store.KeyToken, store.KeyUser)

	m.log.Info("User logged in", "user_id", user.ID, "role", user.Role)
	m.notifier.Success(fmt.Sprintf("Welcome back, %s!", user.Name))

	return &Result{
		Session:    Session{Token: resp.Token, User: user},
		Navigation: routing.To(routing.DashboardRouteFor(user.Role)),
	}, nil
}

// Register creates an account and sends the user to the login view.
// An empty role registers a customer.
func (m *Manager) Register(ctx context.Context, req dto.RegisterRequest) (*Result, error) {
	if req.Role == "" {
		req.Role = domain.RoleCustomer
	}
	if !req.Role.IsValid() {
		m.notifier.Error("Registration Failed")
		return nil, domain.ErrInvalidRole
	}

	if err := m.auth.Register(ctx, req); err != nil {
		m.notifier.Error(apiclient.Message(err, "Registration Failed"))
		return nil, err
	}

	m.notifier.Success("Registration Successful! Please Login.")
	return &Result{Navigation: routing.To(routing.Login)}, nil
}

// Logout deletes the session and the cart
func (m *Manager) Logout(ctx context.Context) (*Result, error) {
	if err := m.store.Delete(ctx, store.KeyToken, store.KeyUser, store.KeyCart); err != nil {
		return nil, fmt.Errorf("failed to clear session: %w", err)
	}
	m.bus.Publish(ctx, store.KeyToken, store.KeyUser, store.KeyCart)

	m.log.Info("User logged out")
	return &Result{Navigation: routing.To(routing.Login)}, nil
}
