package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*************
 * Fakes
 *************/

type fakeTransport struct {
	mu      sync.Mutex
	reqs    []*client.Request
	respond func(req *client.Request) (*client.Response, error)
}

func (f *fakeTransport) Do(_ context.Context, req *client.Request) (*client.Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(req)
}

func (f *fakeTransport) last() *client.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		return nil
	}
	return f.reqs[len(f.reqs)-1]
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func status(code int, body string) func(*client.Request) (*client.Response, error) {
	return func(*client.Request) (*client.Response, error) {
		return &client.Response{StatusCode: code, Header: http.Header{}, Body: []byte(body)}, nil
	}
}

type failingStore struct{ memoryStore }

func (f *failingStore) Save(context.Context, string, []byte) error { return errors.New("disk full") }

func signedIn(t *testing.T, ft *fakeTransport, opts ...Option) *Gatekeeper {
	t.Helper()
	ft.respond = status(http.StatusOK, `{"token":"tok-1","userId":"u-1","username":"alice"}`)
	g := New(ft, opts...)
	_, err := g.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	return g
}

func makeJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

/*************
 * Login / Register / Logout
 *************/

func TestLogin_PersistsSessionAndSkipsAuth(t *testing.T) {
	ft := &fakeTransport{}
	store := &memoryStore{}
	g := signedIn(t, ft, WithStore(store))

	req := ft.last()
	assert.True(t, req.SkipAuth)
	assert.Equal(t, "/auth/login", req.Path)
	assert.Empty(t, req.Header.Get(common.AuthorizationHeaderName))

	s := g.Session()
	assert.True(t, s.Authenticated())
	assert.Equal(t, "alice", s.Username())

	tok, raw, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.JSONEq(t, `{"userId":"u-1","username":"alice"}`, string(raw))
}

func TestLogin_BadCredentials(t *testing.T) {
	ft := &fakeTransport{respond: status(http.StatusUnauthorized, `{"message":"Invalid username or password"}`)}
	navigated := 0
	g := New(ft, WithNavigator(func(context.Context) { navigated++ }))

	_, err := g.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, common.ErrAuth)
	assert.NotErrorIs(t, err, common.ErrSessionExpired)
	assert.Contains(t, err.Error(), "Invalid username or password")
	assert.False(t, g.Authenticated())
	assert.Zero(t, navigated, "a suppressed request never forces a logout")
}

func TestLogin_ValidationMakesNoRequest(t *testing.T) {
	ft := &fakeTransport{respond: status(http.StatusOK, `{}`)}
	g := New(ft)

	_, err := g.Login(context.Background(), "  ", "pw")
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = g.Login(context.Background(), "alice", "")
	require.ErrorIs(t, err, common.ErrValidation)

	assert.Zero(t, ft.count())
}

func TestLogin_StoreFailureEstablishesNoSession(t *testing.T) {
	ft := &fakeTransport{respond: status(http.StatusOK, `{"token":"tok-1","username":"alice"}`)}
	g := New(ft, WithStore(&failingStore{}))

	_, err := g.Login(context.Background(), "alice", "secret")
	require.Error(t, err)
	assert.False(t, g.Authenticated())
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		respond func(*client.Request) (*client.Response, error)
		email   string
		wantErr error
		wantMsg string
	}{
		{"ok", status(http.StatusOK, `{"message":"User registered successfully"}`), "bob@example.com", nil, ""},
		{"duplicate", status(http.StatusBadRequest, `{"message":"Username is already taken!"}`), "bob@example.com", common.ErrValidation, "Username is already taken!"},
		{"server error", status(http.StatusInternalServerError, `oops`), "bob@example.com", common.ErrTransport, "oops"},
		{"bad email", status(http.StatusOK, `{}`), "not-an-email", common.ErrValidation, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{respond: tt.respond}
			g := New(ft)

			err := g.Register(context.Background(), "bob", tt.email, "pw")
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, ft.last().SkipAuth)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.False(t, g.Authenticated(), "registration never signs in")
		})
	}
}

func TestLogout_Idempotent(t *testing.T) {
	ft := &fakeTransport{}
	store := &memoryStore{}
	g := signedIn(t, ft, WithStore(store))

	require.NoError(t, g.Logout(context.Background()))
	require.NoError(t, g.Logout(context.Background()))

	assert.False(t, g.Authenticated())
	tok, raw, _ := store.Load(context.Background())
	assert.Empty(t, tok)
	assert.Nil(t, raw)
}

/*************
 * Authorized requests
 *************/

func TestDo_AttachesBearerToken(t *testing.T) {
	ft := &fakeTransport{}
	g := signedIn(t, ft)
	ft.respond = status(http.StatusOK, `[]`)

	orig := &client.Request{Method: http.MethodGet, Path: "/notes"}
	_, err := g.Do(context.Background(), orig)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", ft.last().Header.Get(common.AuthorizationHeaderName))
	assert.Nil(t, orig.Header, "caller request must not be mutated")
}

func TestDo_NoTokenSendsNoHeader(t *testing.T) {
	ft := &fakeTransport{respond: status(http.StatusOK, `[]`)}
	g := New(ft)

	_, err := g.Do(context.Background(), &client.Request{Method: http.MethodGet, Path: "/notes"})
	require.NoError(t, err)
	assert.Empty(t, ft.last().Header.Get(common.AuthorizationHeaderName))
}

func TestDo_401ForcesLogoutOnce(t *testing.T) {
	ft := &fakeTransport{}
	store := &memoryStore{}
	m := metrics.New(nil)
	navigated := 0
	g := signedIn(t, ft, WithStore(store), WithMetrics(m), WithNavigator(func(context.Context) { navigated++ }))

	ft.respond = status(http.StatusUnauthorized, `{"message":"JWT expired"}`)

	_, err := g.Do(context.Background(), &client.Request{Method: http.MethodGet, Path: "/notes"})
	require.ErrorIs(t, err, common.ErrAuth)
	require.ErrorIs(t, err, common.ErrSessionExpired)

	assert.False(t, g.Authenticated())
	tok, _, _ := store.Load(context.Background())
	assert.Empty(t, tok)
	assert.Equal(t, 1, navigated)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForcedLogoutsTotal))
}

func TestDo_401AfterLogoutIsNoOp(t *testing.T) {
	ft := &fakeTransport{}
	m := metrics.New(nil)
	navigated := 0
	g := signedIn(t, ft, WithMetrics(m), WithNavigator(func(context.Context) { navigated++ }))

	ft.respond = status(http.StatusUnauthorized, `{"message":"JWT expired"}`)

	for _, path := range []string{"/notes", "/files/a1", "/notes", "/notes/7"} {
		_, err := g.Do(context.Background(), &client.Request{Method: http.MethodGet, Path: path})
		require.ErrorIs(t, err, common.ErrSessionExpired, path)
	}

	assert.Equal(t, 1, navigated)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForcedLogoutsTotal))
	assert.False(t, g.Authenticated())
	for _, req := range ft.reqs[2:] {
		assert.Empty(t, req.Header.Get(common.AuthorizationHeaderName))
	}
}

func TestDo_401WithoutSessionDoesNotNavigate(t *testing.T) {
	ft := &fakeTransport{respond: status(http.StatusUnauthorized, "")}
	navigated := 0
	g := New(ft, WithNavigator(func(context.Context) { navigated++ }))

	_, err := g.Do(context.Background(), &client.Request{Method: http.MethodGet, Path: "/notes"})

	require.ErrorIs(t, err, common.ErrSessionExpired)
	assert.Zero(t, navigated)
}

func TestDo_Stale401DoesNotClearNewerSession(t *testing.T) {
	ft := &fakeTransport{}
	navigated := 0
	g := signedIn(t, ft, WithNavigator(func(context.Context) { navigated++ }))

	// Sign in again while a request made with tok-1 is in flight.
	ft.respond = func(req *client.Request) (*client.Response, error) {
		if req.SkipAuth {
			return &client.Response{StatusCode: http.StatusOK, Body: []byte(`{"token":"tok-2","username":"alice"}`)}, nil
		}
		_, err := g.Login(context.Background(), "alice", "secret")
		require.NoError(t, err)
		return &client.Response{StatusCode: http.StatusUnauthorized}, nil
	}

	_, err := g.Do(context.Background(), &client.Request{Method: http.MethodGet, Path: "/notes"})
	require.ErrorIs(t, err, common.ErrSessionExpired)

	assert.True(t, g.Authenticated())
	assert.Equal(t, "tok-2", g.Session().Token)
	assert.Zero(t, navigated)
}

func TestDo_SkipAuth401IsPlainResponse(t *testing.T) {
	ft := &fakeTransport{}
	g := signedIn(t, ft)
	ft.respond = status(http.StatusUnauthorized, ``)

	resp, err := g.Do(context.Background(), &client.Request{Method: http.MethodPost, Path: "/auth/login", SkipAuth: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.True(t, g.Authenticated())
}

func TestDo_TransportErrorPassesThrough(t *testing.T) {
	want := &common.TransportError{Op: "GET /notes", Err: errors.New("refused")}
	ft := &fakeTransport{}
	g := signedIn(t, ft)
	ft.respond = func(*client.Request) (*client.Response, error) { return nil, want }

	_, err := g.Do(context.Background(), &client.Request{Method: http.MethodGet, Path: "/notes"})
	assert.Same(t, want, err)
	assert.True(t, g.Authenticated())
}

func TestDo_Concurrent401sNavigateOnce(t *testing.T) {
	ft := &fakeTransport{}
	var mu sync.Mutex
	navigated := 0
	g := signedIn(t, ft, WithNavigator(func(context.Context) {
		mu.Lock()
		navigated++
		mu.Unlock()
	}))
	const n = 8
	var arrived sync.WaitGroup
	arrived.Add(n)
	ft.respond = func(*client.Request) (*client.Response, error) {
		// every request carries tok-1 before any of them is answered
		arrived.Done()
		arrived.Wait()
		return &client.Response{StatusCode: http.StatusUnauthorized}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Do(context.Background(), &client.Request{Method: http.MethodGet, Path: "/notes"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, navigated)
}

/*************
 * Restore
 *************/

func TestRestore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	live := makeJWT(t, jwt.MapClaims{"sub": "u-9", "exp": now.Add(time.Hour).Unix()})
	dead := makeJWT(t, jwt.MapClaims{"sub": "u-9", "exp": now.Add(-time.Minute).Unix()})

	tests := []struct {
		name      string
		token     string
		user      []byte
		wantAuth  bool
		wantUser  models.UserInfo
		wantClear bool
	}{
		{"nothing stored", "", nil, false, models.UserInfo{}, false},
		{"opaque token", "opaque", []byte(`{"userId":"u-1","username":"alice"}`), true, models.UserInfo{UserID: "u-1", Username: "alice"}, false},
		{"live jwt, id from sub", live, []byte(`{"username":"alice"}`), true, models.UserInfo{UserID: "u-9", Username: "alice"}, false},
		{"expired jwt", dead, []byte(`{"username":"alice"}`), false, models.UserInfo{}, true},
		{"corrupt user", "opaque", []byte(`{not json`), false, models.UserInfo{}, true},
		{"missing user", "opaque", nil, false, models.UserInfo{}, true},
		{"missing token", "", []byte(`{"username":"alice"}`), false, models.UserInfo{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{token: tt.token, user: tt.user}
			g := New(&fakeTransport{}, WithStore(store), WithClock(func() time.Time { return now }))

			s := g.Restore(context.Background())
			assert.Equal(t, tt.wantAuth, s.Authenticated())
			assert.Equal(t, tt.wantAuth, g.Authenticated())
			if tt.wantAuth {
				require.NotNil(t, s.User)
				assert.Equal(t, tt.wantUser, *s.User)
			}

			tok, raw, _ := store.Load(context.Background())
			if tt.wantClear {
				assert.Empty(t, tok)
				assert.Nil(t, raw)
			} else {
				assert.Equal(t, tt.token, tok)
			}
		})
	}
}

func TestSession_ReturnsSnapshot(t *testing.T) {
	g := signedIn(t, &fakeTransport{})

	s := g.Session()
	s.User.Username = "mallory"

	assert.Equal(t, "alice", g.Session().Username())
}
