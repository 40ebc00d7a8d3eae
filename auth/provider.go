package auth

import (
	"context"

	"github.com/nojima/dashreq/exchange"
)

// Provider supplies credentials to a Coordinator.
//
// TokenType and Token are read fresh before every attempt; when either is
// empty the attempt is sent without credentials. Refresh must leave the
// provider holding current credentials when it returns nil. OnUnauthorized is
// called when authentication cannot be recovered, with the rejected response.
type Provider interface {
	TokenType() string
	Token() string
	Refresh(ctx context.Context) error
	OnUnauthorized(resp *exchange.Response)
}

// Sender performs a single exchange. It must not return nil.
type Sender interface {
	Send(ctx context.Context, r *exchange.Request) *exchange.Response
}

type SenderFunc func(ctx context.Context, r *exchange.Request) *exchange.Response

func (f SenderFunc) Send(ctx context.Context, r *exchange.Request) *exchange.Response {
	return f(ctx, r)
}
