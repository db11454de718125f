// Package auth owns the authenticated-identity lifecycle: login, register,
// restore-on-start and logout. It is the only writer of the session's
// semantic state; the credential store and gateway are mechanism underneath.
package auth

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-lms-client/api"
	"github.com/jrsteele09/go-lms-client/credentials"
	"github.com/jrsteele09/go-lms-client/gateway"
	"github.com/jrsteele09/go-lms-client/session"
	"github.com/jrsteele09/go-lms-client/users"
)

// API is the slice of the LMS API the manager needs. Implemented by
// api.Client and by fakes in tests.
type API interface {
	ObtainPair(ctx context.Context, username, password string) (*api.TokenPair, error)
	Register(ctx context.Context, req api.RegisterRequest) error
	Profile(ctx context.Context) (*users.User, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*users.User, error)
}

// Manager drives the session lifecycle over the injected API, credential
// store and session singleton.
type Manager struct {
	api     API
	store   credentials.Store
	session *session.Session
	logger  zerolog.Logger
}

// ManagerOption modifies a Manager at construction time.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager with required dependencies.
func NewManager(lmsAPI API, store credentials.Store, sess *session.Session, options ...ManagerOption) (*Manager, error) {
	if lmsAPI == nil {
		return nil, errors.New("[NewManager] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if sess == nil {
		return nil, errors.New("[NewManager] session is required")
	}

	manager := &Manager{
		api:     lmsAPI,
		store:   store,
		session: sess,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(manager)
	}
	return manager, nil
}

// Restore revives a persisted session at process start. When a refresh token
// survives from a previous run, the stored identity is validated by fetching
// the profile; a dead token drops straight back to anonymous and clears the
// store. Restore is idempotent: only the first call in an anonymous window
// does work, later calls return the current state.
func (m *Manager) Restore(ctx context.Context) (session.Snapshot, error) {
	if !m.session.BeginRestore() {
		return m.session.Snapshot(), nil
	}

	if _, err := m.store.Get(credentials.KindRefresh); err != nil {
		// An access token without a refresh token is an inconsistent
		// leftover; absence of either key means anonymous.
		m.clearCredentials()
		m.session.Reset()
		return m.session.Snapshot(), nil
	}

	user, err := m.api.Profile(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("stored session could not be restored")
		m.clearCredentials()
		m.session.Reset()
		return m.session.Snapshot(), nil
	}

	m.session.Authenticate(user)
	m.logger.Info().Str("username", user.Username).Msg("session restored")
	return m.session.Snapshot(), nil
}

// Login exchanges credentials for a token pair, persists both tokens, and
// fetches the identity. The pair write and the identity fetch are one logical
// unit: if the identity fetch fails the tokens are rolled back, so a session
// never reports authenticated without a user record.
func (m *Manager) Login(ctx context.Context, username, password string) (*users.User, error) {
	pair, err := m.api.ObtainPair(ctx, username, password)
	if err != nil {
		return nil, classify(err, "[Manager.Login] token exchange")
	}

	if err := m.persistPair(pair); err != nil {
		m.clearCredentials()
		return nil, errors.Wrap(err, "[Manager.Login] persist tokens")
	}

	user, err := m.api.Profile(ctx)
	if err != nil {
		m.clearCredentials()
		return nil, classify(err, "[Manager.Login] identity fetch")
	}

	m.session.Authenticate(user)
	m.logger.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("logged in")
	return user, nil
}

// Register creates an account and then performs an ordinary login with the
// same credentials, inheriting Login's partial-failure handling.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) (*users.User, error) {
	if err := m.api.Register(ctx, req); err != nil {
		return nil, classify(err, "[Manager.Register] create account")
	}
	return m.Login(ctx, req.Username, req.Password)
}

// Logout clears both tokens and resets the session to anonymous. It never
// fails: a store error is logged and the in-memory state is torn down anyway.
func (m *Manager) Logout() {
	m.clearCredentials()
	m.session.Reset()
	m.logger.Info().Msg("logged out")
}

// CurrentUser returns the cached identity, or nil when not authenticated.
// Pure read; never touches the network.
func (m *Manager) CurrentUser() *users.User {
	return m.session.Identity()
}

// UpdateProfile applies a partial profile update and replaces the cached
// identity wholesale with the server's response.
func (m *Manager) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*users.User, error) {
	if m.session.Status() != session.StatusAuthenticated {
		return nil, ErrNotAuthenticated
	}

	user, err := m.api.UpdateProfile(ctx, update)
	if err != nil {
		return nil, classify(err, "[Manager.UpdateProfile] patch profile")
	}

	m.session.ReplaceIdentity(user)
	return user, nil
}

func (m *Manager) persistPair(pair *api.TokenPair) error {
	if err := m.store.Set(credentials.KindAccess, pair.Access); err != nil {
		return err
	}
	return m.store.Set(credentials.KindRefresh, pair.Refresh)
}

func (m *Manager) clearCredentials() {
	if err := m.store.ClearAll(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear credential store")
	}
}

// classify maps gateway failures onto the manager's error taxonomy so callers
// can branch with errors.Is while keeping the original detail in the message.
func classify(err error, msg string) error {
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		return errors.Wrap(err, msg)
	}
	switch {
	case gwErr.Kind == gateway.KindNetworkFailure:
		return errors.Wrapf(ErrNetworkFailure, "%s: %v", msg, err)
	case gwErr.Kind == gateway.KindUnauthorized,
		gwErr.Kind == gateway.KindRequestFailed && gwErr.StatusCode == http.StatusBadRequest:
		return errors.Wrapf(ErrInvalidCredentials, "%s: %v", msg, err)
	default:
		return errors.Wrap(err, msg)
	}
}
