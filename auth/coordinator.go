package auth

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nojima/dashreq/exchange"
	"github.com/nojima/dashreq/logging"
)

const (
	HeaderIssuer        = "jwt-issuer"
	HeaderAuthorization = "Authorization"
)

// Phase is the position of one logical call in the refresh protocol.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseSent
	PhaseAwaitingForeignRefresh
	PhaseOwningRefresh
	PhaseRetriedOnce
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseSent:
		return "sent"
	case PhaseAwaitingForeignRefresh:
		return "awaiting-foreign-refresh"
	case PhaseOwningRefresh:
		return "owning-refresh"
	case PhaseRetriedOnce:
		return "retried-once"
	default:
		return "unknown"
	}
}

// Stats counts protocol events since the Coordinator was created.
type Stats struct {
	Refreshes           int64
	FailedRefreshes     int64
	Retries             int64
	StaleRejections     int64
	UnauthorizedReports int64
}

type Option func(*Coordinator)

// WithRejectionStatus replaces the statuses treated as authentication
// rejections. The default is 401 only.
func WithRejectionStatus(statuses ...int) Option {
	return func(c *Coordinator) {
		c.rejection = make(map[int]bool, len(statuses))
		for _, s := range statuses {
			c.rejection[s] = true
		}
	}
}

// Coordinator decorates a Sender with credential injection and a
// single-flight token refresh. At most one refresh runs at any instant and
// every call is retried at most once.
type Coordinator struct {
	sender    Sender
	provider  Provider
	rejection map[int]bool

	mu     sync.Mutex
	flight *flight

	refreshes           atomic.Int64
	failedRefreshes     atomic.Int64
	retries             atomic.Int64
	staleRejections     atomic.Int64
	unauthorizedReports atomic.Int64
}

// New returns a Coordinator sending through sender. provider may be nil, in
// which case requests pass through untouched.
func New(sender Sender, provider Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		sender:    sender,
		provider:  provider,
		rejection: map[int]bool{http.StatusUnauthorized: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	id    string
	req   *exchange.Request
	phase Phase
}

func (c *call) log() *logging.Entry {
	return logging.WithFields(logging.Fields{
		"call":  c.id,
		"path":  c.req.Path,
		"phase": c.phase.String(),
	})
}

// Do sends r, refreshing credentials and retrying once when the server
// rejects them. It never returns nil.
func (c *Coordinator) Do(ctx context.Context, r *exchange.Request) *exchange.Response {
	if r.NoAuth || c.provider == nil {
		return c.sender.Send(ctx, r)
	}

	prepared, err := r.Prepare()
	if err != nil {
		return exchange.FailedResponse(r.HTTPMethod(), r.Path, err)
	}
	cl := &call{id: uuid.NewString(), req: prepared, phase: PhaseInitial}
	if prepared.SkipTokenUpdate {
		cl.phase = PhaseRetriedOnce
	}

	for {
		if f := c.currentFlight(); f != nil {
			cl.log().Debugf("waiting for the refresh in flight")
			_ = f.wait(ctx)
		}

		resp := c.send(ctx, cl)
		if !c.rejection[resp.Status] {
			return resp
		}

		c.mu.Lock()
		if foreign := c.flight; foreign != nil {
			c.mu.Unlock()
			retried := cl.phase == PhaseRetriedOnce
			cl.phase = PhaseAwaitingForeignRefresh
			c.staleRejections.Add(1)
			cl.log().Debugf("rejected while another call refreshes; returning the rejection")
			_ = foreign.wait(ctx)
			// A rejected retry ends its chain here whatever the foreign refresh did.
			if retried {
				c.reportUnauthorized(cl, resp)
			}
			return resp
		}
		if cl.phase == PhaseRetriedOnce {
			c.mu.Unlock()
			c.reportUnauthorized(cl, resp)
			return resp
		}
		f := newFlight()
		c.flight = f
		c.mu.Unlock()

		cl.phase = PhaseOwningRefresh
		cl.log().Infof("credentials rejected with status %d; refreshing", resp.Status)
		if err := c.refresh(ctx, f); err != nil {
			c.failedRefreshes.Add(1)
			if ctx.Err() != nil {
				cl.log().WithError(err).Debugf("refresh abandoned")
				return resp
			}
			cl.log().WithError(err).Warnf("refresh failed")
			c.reportUnauthorized(cl, resp)
			return resp
		}

		cl.phase = PhaseRetriedOnce
		cl.req.SkipTokenUpdate = true
		c.retries.Add(1)
	}
}

func (c *Coordinator) currentFlight() *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flight
}

// refresh runs the provider's refresh as the owner of f. The flight is
// cleared before waiters are released, whatever the outcome.
func (c *Coordinator) refresh(ctx context.Context, f *flight) (err error) {
	c.refreshes.Add(1)
	defer func() {
		c.mu.Lock()
		if c.flight == f {
			c.flight = nil
		}
		c.mu.Unlock()
		f.settle(err)
	}()
	return c.provider.Refresh(ctx)
}

func (c *Coordinator) send(ctx context.Context, cl *call) *exchange.Response {
	req := *cl.req
	req.Header = cl.req.Header.Clone()
	tokenType, token := c.provider.TokenType(), c.provider.Token()
	if tokenType != "" && token != "" {
		req.Header.Set(HeaderIssuer, tokenType)
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	}
	if cl.phase == PhaseInitial {
		cl.phase = PhaseSent
	}
	return c.sender.Send(ctx, &req)
}

func (c *Coordinator) reportUnauthorized(cl *call, resp *exchange.Response) {
	c.unauthorizedReports.Add(1)
	cl.log().Warnf("authentication cannot be recovered")
	c.provider.OnUnauthorized(resp)
}

// Refreshing reports whether a refresh is in flight.
func (c *Coordinator) Refreshing() bool {
	return c.currentFlight() != nil
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		Refreshes:           c.refreshes.Load(),
		FailedRefreshes:     c.failedRefreshes.Load(),
		Retries:             c.retries.Load(),
		StaleRejections:     c.staleRejections.Load(),
		UnauthorizedReports: c.unauthorizedReports.Load(),
	}
}
