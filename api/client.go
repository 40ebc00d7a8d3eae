// Package api is the entry point callers use to talk to the backend: it
// resolves the base URL, authenticates through the auth coordinator and
// sends through the exchange transport.
package api

import (
	"context"
	"net/http"

	"github.com/nojima/dashreq/auth"
	"github.com/nojima/dashreq/config"
	"github.com/nojima/dashreq/exchange"
	"github.com/nojima/dashreq/session"
)

type Client struct {
	cfg         *config.Config
	resolver    *config.Resolver
	transport   *exchange.Transport
	coordinator *auth.Coordinator
	session     *session.Provider
}

type options struct {
	httpClient   *http.Client
	provider     auth.Provider
	store        *session.Store
	sessionOpts  []session.Option
	authOpts     []auth.Option
	baseOverride string
}

type Option func(*options)

// WithProvider sets the auth provider. It replaces any session set with
// WithSession.
func WithProvider(p auth.Provider) Option {
	return func(o *options) {
		o.provider = p
		o.store = nil
	}
}

// WithSession uses a session.Provider persisted in store as the auth
// provider. Its login and refresh calls go through the client's transport.
func WithSession(store *session.Store, opts ...session.Option) Option {
	return func(o *options) {
		o.provider = nil
		o.store = store
		o.sessionOpts = opts
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithCoordinatorOptions(opts ...auth.Option) Option {
	return func(o *options) { o.authOpts = append(o.authOpts, opts...) }
}

// WithBaseURL sets the runtime base URL override.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseOverride = baseURL }
}

func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var transport *exchange.Transport
	if o.httpClient != nil {
		transport = exchange.NewTransportWithClient(o.httpClient)
	} else {
		var err error
		transport, err = exchange.NewTransport(&exchange.Options{
			Timeout:         cfg.Timeout,
			FollowRedirects: cfg.FollowRedirects,
			SkipVerify:      cfg.SkipVerify,
			ForceHTTP1:      cfg.ForceHTTP1,
			ProxyURL:        cfg.ProxyURL,
		})
		if err != nil {
			return nil, err
		}
	}

	c := &Client{
		cfg:       cfg,
		resolver:  config.NewResolver(cfg.BaseURL),
		transport: transport,
	}
	c.resolver.SetOverride(o.baseOverride)

	provider := o.provider
	if o.store != nil {
		sessionOpts := append([]session.Option{
			session.WithLoginPath(cfg.LoginPath),
			session.WithRefreshPath(cfg.RefreshPath),
		}, o.sessionOpts...)
		sp, err := session.NewProvider(o.store, c.Sender(), sessionOpts...)
		if err != nil {
			return nil, err
		}
		c.session = sp
		provider = sp
	}
	c.coordinator = auth.New(c.Sender(), provider, o.authOpts...)
	return c, nil
}

// Sender sends through the transport without authentication. The base URL
// is resolved again for every attempt.
func (c *Client) Sender() auth.Sender {
	return auth.SenderFunc(func(ctx context.Context, r *exchange.Request) *exchange.Response {
		baseURL, err := c.resolver.Resolve()
		if err != nil {
			return exchange.FailedResponse(r.HTTPMethod(), r.Path, err)
		}
		return c.transport.Do(ctx, baseURL, r)
	})
}

func (c *Client) Resolver() *config.Resolver { return c.resolver }

func (c *Client) Coordinator() *auth.Coordinator { return c.coordinator }

// Session returns the session provider, or nil when the client was not
// built with WithSession.
func (c *Client) Session() *session.Provider { return c.session }

func (c *Client) Config() *config.Config { return c.cfg }

// Request sends r. A missing base URL is reported before anything else
// happens; every other outcome comes from the auth coordinator.
func (c *Client) Request(ctx context.Context, r *exchange.Request) *exchange.Response {
	if _, err := c.resolver.Resolve(); err != nil {
		return exchange.FailedResponse(r.HTTPMethod(), r.Path, err)
	}
	return c.coordinator.Do(ctx, r)
}
