package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-lms-client/credentials"
	"github.com/jrsteele09/go-lms-client/credentials/storefakes"
	"github.com/jrsteele09/go-lms-client/gateway"
	"github.com/jrsteele09/go-lms-client/refresh"
	"github.com/jrsteele09/go-lms-client/session"
	"github.com/jrsteele09/go-lms-client/users"
)

// stubRefresher lets tests script the coordinator's behaviour.
type stubRefresher struct {
	calls atomic.Int64
	fn    func(ctx context.Context) (string, error)
}

func (s *stubRefresher) Refresh(ctx context.Context) (string, error) {
	s.calls.Add(1)
	return s.fn(ctx)
}

type gatewayFixture struct {
	store     *storefakes.FakeStore
	session   *session.Session
	refresher *stubRefresher
	gw        *gateway.Gateway
}

func setupGateway(t *testing.T, serverURL string, refresher *stubRefresher) *gatewayFixture {
	t.Helper()

	store := storefakes.NewFakeStore()
	sess := session.New()

	gw, err := gateway.New(serverURL, store, sess, refresher)
	require.NoError(t, err)

	return &gatewayFixture{store: store, session: sess, refresher: refresher, gw: gw}
}

func (f *gatewayFixture) authenticate(t *testing.T, access string) {
	t.Helper()
	require.NoError(t, f.store.Set(credentials.KindAccess, access))
	require.NoError(t, f.store.Set(credentials.KindRefresh, "refresh-token"))
	f.session.Authenticate(&users.User{ID: 1, Username: "john", Role: users.RoleStudent})
}

func neverRefresh(t *testing.T) *stubRefresher {
	return &stubRefresher{fn: func(ctx context.Context) (string, error) {
		t.Error("refresh must not be invoked")
		return "", errors.New("unexpected refresh")
	}}
}

func TestAttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	f := setupGateway(t, server.URL, neverRefresh(t))
	f.authenticate(t, "current-access")

	resp, err := f.gw.Get(context.Background(), "/resource/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer current-access", gotAuth)
}

func TestAnonymousCallHasNoAuthHeaderAndNoRefresh(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	f := setupGateway(t, server.URL, neverRefresh(t))

	_, err := f.gw.Get(context.Background(), "/protected/")
	require.True(t, gateway.IsKind(err, gateway.KindUnauthorized))
	require.Empty(t, gotAuth)
}

func TestRetriesOnceAfterSuccessfulRefresh(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	var f *gatewayFixture
	refresher := &stubRefresher{fn: func(ctx context.Context) (string, error) {
		require.NoError(t, f.store.Set(credentials.KindAccess, "fresh-access"))
		return "fresh-access", nil
	}}
	f = setupGateway(t, server.URL, refresher)
	f.authenticate(t, "expired-access")

	resp, err := f.gw.Get(context.Background(), "/resource/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, attempts.Load())
	require.EqualValues(t, 1, refresher.calls.Load())
}

func TestRefreshFailureClearsSessionAndSurfacesExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	refresher := &stubRefresher{fn: func(ctx context.Context) (string, error) {
		return "", errors.New("refresh endpoint down")
	}}
	f := setupGateway(t, server.URL, refresher)
	f.authenticate(t, "expired-access")

	_, err := f.gw.Get(context.Background(), "/resource/")
	require.True(t, gateway.IsSessionExpired(err))

	require.Equal(t, session.StatusAnonymous, f.session.Status())
	_, storeErr := f.store.Get(credentials.KindAccess)
	require.ErrorIs(t, storeErr, credentials.ErrNotFound)
	_, storeErr = f.store.Get(credentials.KindRefresh)
	require.ErrorIs(t, storeErr, credentials.ErrNotFound)
}

func TestSecond401PropagatesWithoutAnotherRefresh(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		// Persistently rejects even freshly refreshed tokens.
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var f *gatewayFixture
	refresher := &stubRefresher{fn: func(ctx context.Context) (string, error) {
		require.NoError(t, f.store.Set(credentials.KindAccess, "fresh-access"))
		return "fresh-access", nil
	}}
	f = setupGateway(t, server.URL, refresher)
	f.authenticate(t, "expired-access")

	_, err := f.gw.Get(context.Background(), "/resource/")
	require.True(t, gateway.IsKind(err, gateway.KindUnauthorized))
	require.EqualValues(t, 2, attempts.Load(), "exactly one replay, never a loop")
	require.EqualValues(t, 1, refresher.calls.Load())
}

func TestForbiddenPassesThroughWithoutRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"You do not have permission to perform this action."}`))
	}))
	defer server.Close()

	f := setupGateway(t, server.URL, neverRefresh(t))
	f.authenticate(t, "valid-but-student")

	_, err := f.gw.Get(context.Background(), "/courses/")
	require.True(t, gateway.IsForbidden(err))

	// A role mismatch is not a session problem.
	require.Equal(t, session.StatusAuthenticated, f.session.Status())
	access, storeErr := f.store.Get(credentials.KindAccess)
	require.NoError(t, storeErr)
	require.Equal(t, "valid-but-student", access)
}

func TestServerErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := setupGateway(t, server.URL, neverRefresh(t))
	f.authenticate(t, "valid-access")

	_, err := f.gw.Get(context.Background(), "/courses/")
	require.True(t, gateway.IsKind(err, gateway.KindServerError))

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusInternalServerError, gwErr.StatusCode)
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	f := setupGateway(t, server.URL, neverRefresh(t))

	_, err := f.gw.Get(context.Background(), "/courses/")
	require.True(t, gateway.IsKind(err, gateway.KindNetworkFailure))
}

// countingEndpoint backs a real coordinator for the wire-level single-flight
// property.
type countingEndpoint struct {
	calls atomic.Int64
	token string
	delay time.Duration
}

func (c *countingEndpoint) Refresh(ctx context.Context, refreshToken string) (string, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	return c.token, nil
}

func TestConcurrent401sCollapseToOneRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	store := storefakes.NewFakeStore()
	sess := session.New()
	require.NoError(t, store.Set(credentials.KindAccess, "expired-access"))
	require.NoError(t, store.Set(credentials.KindRefresh, "refresh-token"))
	sess.Authenticate(&users.User{ID: 1, Username: "john", Role: users.RoleStudent})

	endpoint := &countingEndpoint{token: "fresh-access", delay: 30 * time.Millisecond}
	coordinator, err := refresh.NewCoordinator(endpoint, store, sess)
	require.NoError(t, err)

	gw, err := gateway.New(server.URL, store, sess, coordinator)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gw.Get(context.Background(), "/resource/")
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, endpoint.calls.Load(), "all 401s must share a single refresh")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	require.Equal(t, session.StatusAuthenticated, sess.Status())
}
