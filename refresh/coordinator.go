package refresh

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-lms-client/credentials"
	"github.com/jrsteele09/go-lms-client/session"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrStaleSession   = errors.New("session replaced while refresh was in flight")
)

// Endpoint exchanges a refresh token for a new access token. Implemented by
// api.RefreshEndpoint against POST /token/refresh/ and by fakes in tests.
type Endpoint interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Coordinator serializes access-token refreshes. Any number of gateway calls
// can discover an expired token at the same moment; the coordinator collapses
// them onto one network call and hands every caller the shared outcome. Most
// backends rotate (invalidate) a refresh token on first use, so a second
// concurrent refresh would not merely be wasteful, it would kill the session.
type Coordinator struct {
	endpoint Endpoint
	store    credentials.Store
	session  *session.Session
	group    singleflight.Group
	logger   zerolog.Logger
}

// CoordinatorOption modifies a Coordinator at construction time.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator over the given refresh endpoint,
// credential store and session.
func NewCoordinator(endpoint Endpoint, store credentials.Store, sess *session.Session, options ...CoordinatorOption) (*Coordinator, error) {
	if endpoint == nil {
		return nil, errors.New("[NewCoordinator] endpoint is required")
	}
	if store == nil {
		return nil, errors.New("[NewCoordinator] store is required")
	}
	if sess == nil {
		return nil, errors.New("[NewCoordinator] session is required")
	}

	coordinator := &Coordinator{
		endpoint: endpoint,
		store:    store,
		session:  sess,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(coordinator)
	}
	return coordinator, nil
}

// Refresh returns a fresh access token. Concurrent callers attach to the
// in-flight attempt instead of issuing their own; once the attempt completes
// the gate reopens so a future expiry can trigger a new one. Any non-nil
// error means the refresh failed and the caller owns session teardown; the
// coordinator never clears stored tokens itself.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	token, err, shared := c.group.Do("refresh", func() (interface{}, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug().Msg("joined in-flight token refresh")
	}
	return token.(string), nil
}

func (c *Coordinator) doRefresh(ctx context.Context) (interface{}, error) {
	refreshToken, err := c.store.Get(credentials.KindRefresh)
	if err != nil {
		return nil, ErrNoRefreshToken
	}

	epoch := c.session.Epoch()
	end := c.session.BeginRefresh()

	// A navigation that abandons the triggering call must not abort the
	// refresh: its outcome is global session state, not one caller's result.
	access, err := c.endpoint.Refresh(context.WithoutCancel(ctx), refreshToken)
	if err != nil {
		end(false)
		c.logger.Warn().Err(err).Msg("token refresh failed")
		return nil, errors.Wrap(err, "[Coordinator.Refresh] refresh endpoint")
	}

	if c.session.Epoch() != epoch {
		// Logged out (or re-logged-in) while the refresh ran. The newly
		// minted token belongs to a session that no longer exists.
		end(false)
		c.logger.Debug().Msg("discarding refresh result after session change")
		return nil, ErrStaleSession
	}

	if err := c.store.Set(credentials.KindAccess, access); err != nil {
		end(false)
		return nil, errors.Wrap(err, "[Coordinator.Refresh] persist access token")
	}

	end(true)
	c.logger.Debug().Msg("access token refreshed")
	return access, nil
}
