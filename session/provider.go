package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nojima/dashreq/auth"
	"github.com/nojima/dashreq/exchange"
	"github.com/nojima/dashreq/logging"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotSignedIn    = errors.New("not signed in")
	ErrNoRefreshToken = errors.New("session has no refresh token")
)

// Provider is an auth.Provider backed by a Store. Login and refresh calls go
// through sender without credentials.
type Provider struct {
	store       *Store
	sender      auth.Sender
	loginPath   string
	refreshPath string
	onSignOut   func(resp *exchange.Response)

	mu      sync.RWMutex
	session *Session

	group singleflight.Group
}

var _ auth.Provider = (*Provider)(nil)

type Option func(*Provider)

func WithLoginPath(path string) Option {
	return func(p *Provider) { p.loginPath = path }
}

func WithRefreshPath(path string) Option {
	return func(p *Provider) { p.refreshPath = path }
}

// WithSignOutHook registers f to run after a forced sign-out. resp is the
// rejected response that caused it.
func WithSignOutHook(f func(resp *exchange.Response)) Option {
	return func(p *Provider) { p.onSignOut = f }
}

// NewProvider loads the stored session, if any.
func NewProvider(store *Store, sender auth.Sender, opts ...Option) (*Provider, error) {
	p := &Provider{
		store:       store,
		sender:      sender,
		loginPath:   "/auth/login",
		refreshPath: "/auth/refresh",
	}
	for _, opt := range opts {
		opt(p)
	}
	session, err := store.Load()
	if err != nil {
		return nil, err
	}
	p.session = session
	return p, nil
}

func (p *Provider) current() *Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

func (p *Provider) set(session *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = session
}

// SignedIn reports whether an access token is held.
func (p *Provider) SignedIn() bool {
	return p.current().accessToken() != ""
}

// TokenType returns the stored issuer, falling back to the access token's
// iss claim.
func (p *Provider) TokenType() string {
	session := p.current()
	if session == nil {
		return ""
	}
	if session.Issuer != "" {
		return session.Issuer
	}
	claims := parseClaims(session.accessToken())
	if claims == nil {
		return ""
	}
	issuer, _ := claims.GetIssuer()
	return issuer
}

func (p *Provider) Token() string {
	return p.current().accessToken()
}

// Expiry returns when the access token expires, or the zero time when that
// is unknown.
func (p *Provider) Expiry() time.Time {
	session := p.current()
	if session == nil || session.Token == nil {
		return time.Time{}
	}
	return session.Token.Expiry
}

// Refresh exchanges the refresh token for a new session. Concurrent calls
// share one request, which runs until refreshTimeout even if the caller that
// started it goes away. Each caller stops waiting when its own ctx is done.
func (p *Provider) Refresh(ctx context.Context) error {
	ch := p.group.DoChan("refresh", func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, p.refresh(refreshCtx)
	})
	select {
	case result := <-ch:
		if result.Shared {
			logging.Debugf("joined a refresh already in progress")
		}
		return result.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) refresh(ctx context.Context) error {
	session := p.current()
	if session == nil {
		return ErrNotSignedIn
	}
	refreshToken := session.refreshToken()
	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	resp := p.sender.Send(ctx, &exchange.Request{
		Method: exchange.MethodPost,
		Path:   p.refreshPath,
		Body:   map[string]any{"refresh_token": refreshToken},
		NoAuth: true,
	})
	if err := resp.CheckError(); err != nil {
		return errors.Wrap(err, "refreshing session")
	}
	raw, _ := resp.Bytes()
	next, err := sessionFromBody(raw, session)
	if err != nil {
		return err
	}
	if err := p.store.Save(next); err != nil {
		return err
	}
	p.set(next)
	logging.WithField("expiry", next.Token.Expiry).Infof("session refreshed")
	return nil
}

// Login signs in with username and password and stores the session.
func (p *Provider) Login(ctx context.Context, username, password string) error {
	resp := p.sender.Send(ctx, &exchange.Request{
		Method: exchange.MethodPost,
		Path:   p.loginPath,
		Body:   map[string]any{"username": username, "password": password},
		NoAuth: true,
	})
	if err := resp.CheckError(); err != nil {
		return errors.Wrap(err, "signing in")
	}
	raw, _ := resp.Bytes()
	session, err := sessionFromBody(raw, nil)
	if err != nil {
		return err
	}
	if err := p.store.Save(session); err != nil {
		return err
	}
	p.set(session)
	logging.WithField("user", username).Infof("signed in")
	return nil
}

// Logout forgets the session.
func (p *Provider) Logout() error {
	p.set(nil)
	return p.store.Clear()
}

// OnUnauthorized signs out and runs the sign-out hook.
func (p *Provider) OnUnauthorized(resp *exchange.Response) {
	logging.WithFields(logging.Fields{
		"status": resp.Status,
		"url":    resp.URL(),
	}).Warnf("session rejected; signing out")
	if err := p.Logout(); err != nil {
		logging.WithError(err).Errorf("failed to clear session")
	}
	if p.onSignOut != nil {
		p.onSignOut(resp)
	}
}

// Watch follows changes other processes make to the session file.
func (p *Provider) Watch(ctx context.Context) error {
	return p.store.Watch(ctx, func(session *Session) {
		logging.Debugf("session file changed")
		p.set(session)
	})
}

// sessionFromBody builds a Session from a login or refresh response. Fields
// missing from a refresh response are carried over from previous.
func sessionFromBody(raw []byte, previous *Session) (*Session, error) {
	accessToken := firstString(raw, "access_token", "accessToken", "token")
	if accessToken == "" {
		return nil, errors.New("response has no access token")
	}
	token := &oauth2.Token{
		AccessToken:  accessToken,
		TokenType:    firstString(raw, "token_type", "tokenType"),
		RefreshToken: firstString(raw, "refresh_token", "refreshToken"),
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	issuer := firstString(raw, "issuer", "iss")
	if previous != nil {
		if token.RefreshToken == "" {
			token.RefreshToken = previous.refreshToken()
		}
		if issuer == "" {
			issuer = previous.Issuer
		}
	}

	claims := parseClaims(accessToken)
	if expiresIn := gjson.GetBytes(raw, "expires_in").Int(); expiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	} else if claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			token.Expiry = exp.Time
		}
	}
	return &Session{Issuer: issuer, Token: token}, nil
}

func firstString(raw []byte, paths ...string) string {
	for _, path := range paths {
		if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// parseClaims reads the claims of a JWT without verifying it. It returns nil
// for opaque tokens.
func parseClaims(token string) jwt.MapClaims {
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
