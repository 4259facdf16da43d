// Package session implements the session gatekeeper: the single owner of the
// authentication state. Every authorized backend request passes through it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/netx"
	"github.com/golang-jwt/jwt/v5"
)

// Navigator moves the user back to the unauthenticated entry point after a
// forced logout. It is called synchronously, at most once per cleared session.
type Navigator func(ctx context.Context)

// Gatekeeper owns the session and implements client.Transport by injecting
// the bearer token into outgoing requests. A 401 on an authorized request
// clears the session and invokes the Navigator.
type Gatekeeper struct {
	mu      sync.RWMutex
	session models.Session

	next     client.Transport
	api      *client.APIClient
	store    Store
	navigate Navigator
	log      logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

var _ client.Transport = (*Gatekeeper)(nil)

// Option configures a Gatekeeper.
type Option func(*Gatekeeper)

// WithStore persists the session across restarts.
func WithStore(s Store) Option { return func(g *Gatekeeper) { g.store = s } }

// WithNavigator sets the forced-logout redirect.
func WithNavigator(n Navigator) Option { return func(g *Gatekeeper) { g.navigate = n } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(g *Gatekeeper) { g.log = l } }

// WithMetrics counts forced logouts.
func WithMetrics(m *metrics.Metrics) Option { return func(g *Gatekeeper) { g.metrics = m } }

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option { return func(g *Gatekeeper) { g.now = now } }

// New returns an unauthenticated Gatekeeper sending requests through next.
func New(next client.Transport, opts ...Option) *Gatekeeper {
	g := &Gatekeeper{
		next:     next,
		store:    &memoryStore{},
		navigate: func(context.Context) {},
		log:      logging.Discard(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	g.api = client.NewAPIClient(g)
	return g
}

// Session returns a snapshot of the current session.
func (g *Gatekeeper) Session() models.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return snapshot(g.session)
}

// Authenticated reports whether a token is held.
func (g *Gatekeeper) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session.Authenticated()
}

func snapshot(s models.Session) models.Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Restore loads a persisted session. A missing token, a missing or corrupt
// user payload, or a JWT whose exp has passed leaves the gatekeeper
// unauthenticated and clears whatever was stored. It never fails.
func (g *Gatekeeper) Restore(ctx context.Context) models.Session {
	token, raw, err := g.store.Load(ctx)
	if err != nil {
		g.log.Warn(ctx, "session restore failed", "error", err)
		return models.Session{}
	}

	var reason string
	var user models.UserInfo
	switch {
	case token == "" && raw == nil:
		return models.Session{}
	case token == "":
		reason = "token missing"
	case len(raw) == 0:
		reason = "user missing"
	case json.Unmarshal(raw, &user) != nil:
		reason = "user corrupt"
	}

	var claims jwt.MapClaims
	if reason == "" {
		claims = parseClaims(token)
		if expired(claims, g.now()) {
			reason = "token expired"
		}
	}

	if reason != "" {
		g.log.Info(ctx, "discarding stored session", "reason", reason)
		if err := g.store.Clear(ctx); err != nil {
			g.log.Warn(ctx, "clear stored session failed", "error", err)
		}
		return models.Session{}
	}

	if user.UserID == "" && claims != nil {
		if sub, err := claims.GetSubject(); err == nil {
			user.UserID = sub
		}
	}

	s := models.Session{Token: token, User: &user}

	g.mu.Lock()
	g.session = s
	g.mu.Unlock()

	g.log.Info(ctx, "session restored", "user", user.Username)
	return snapshot(s)
}

// parseClaims reads JWT claims without verifying the signature; the backend
// is the only verifier. Opaque tokens yield nil.
func parseClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func expired(claims jwt.MapClaims, now time.Time) bool {
	if claims == nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registration struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates against the backend and persists the session. On any
// failure no session is established.
func (g *Gatekeeper) Login(ctx context.Context, username, password string) (models.Session, error) {
	username = strings.TrimSpace(username)
	if err := common.Validate(credentials{Username: username, Password: password}); err != nil {
		return models.Session{}, err
	}

	s, err := g.api.Login(ctx, username, password)
	if err != nil {
		g.log.Info(ctx, "login failed", "user", username, "error", err)
		return models.Session{}, err
	}

	raw, err := json.Marshal(s.User)
	if err != nil {
		return models.Session{}, fmt.Errorf("encode user: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Save(ctx, s.Token, raw); err != nil {
		return models.Session{}, fmt.Errorf("persist session: %w", err)
	}
	g.session = s

	g.log.Info(ctx, "signed in", "user", s.Username())
	return snapshot(s), nil
}

// Register creates an account. It does not sign in.
func (g *Gatekeeper) Register(ctx context.Context, username, email, password string) error {
	in := registration{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := common.Validate(in); err != nil {
		return err
	}

	if err := g.api.Register(ctx, in.Username, in.Email, in.Password); err != nil {
		return err
	}
	g.log.Info(ctx, "registered", "user", in.Username)
	return nil
}

// Logout clears the session in memory and in the store. Calling it without a
// session is a no-op.
func (g *Gatekeeper) Logout(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	was := g.session.Username()
	g.session = models.Session{}
	if err := g.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if was != "" {
		g.log.Info(ctx, "signed out", "user", was)
	}
	return nil
}

// Do implements client.Transport. It attaches the current token unless the
// request has SkipAuth set.
func (g *Gatekeeper) Do(ctx context.Context, req *client.Request) (*client.Response, error) {
	out := req
	var sent string
	if !req.SkipAuth {
		g.mu.RLock()
		sent = g.session.Token
		g.mu.RUnlock()
		if sent != "" {
			out = withBearer(req, sent)
		}
	}

	resp, err := g.next.Do(ctx, out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuth {
		g.forceLogout(ctx, sent)
		return nil, &common.AuthError{
			Status:  resp.StatusCode,
			Message: netx.ErrorMessage(resp.Body),
			Err:     common.ErrSessionExpired,
		}
	}
	return resp, nil
}

func withBearer(req *client.Request, token string) *client.Request {
	c := *req
	c.Header = req.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	c.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return &c
}

// forceLogout clears the session only if sent is still the current token, so
// a 401 for an old token cannot log out a newer session. A request sent
// without a token has nothing to revoke: the session is already clear and
// the user was routed to login when it was cleared.
func (g *Gatekeeper) forceLogout(ctx context.Context, sent string) {
	if sent == "" {
		return
	}

	g.mu.Lock()
	if g.session.Token != sent {
		g.mu.Unlock()
		return
	}
	user := g.session.Username()
	g.session = models.Session{}
	if err := g.store.Clear(ctx); err != nil {
		g.log.Warn(ctx, "clear session after 401 failed", "error", err)
	}
	g.mu.Unlock()

	g.metrics.RecordForcedLogout()
	g.log.Warn(ctx, "session expired, signed out", "user", user)
	g.navigate(ctx)
}
