package session

import (
	"context"
	"time"

	"github.com/nojima/dashreq/logging"
)

const (
	refreshCheckInterval  = time.Minute
	refreshFailureBackoff = 30 * time.Second
	refreshTimeout        = 30 * time.Second
)

// StartAutoRefresh refreshes the session lead before it expires, until ctx
// is done or the returned stop function is called. Sessions without a known
// expiry are only refreshed reactively.
func (p *Provider) StartAutoRefresh(parent context.Context, lead time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		timer := time.NewTimer(p.nextRefreshIn(lead, time.Now()))
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			wait := p.nextRefreshIn(lead, time.Now())
			if wait == 0 {
				if err := p.Refresh(ctx); err != nil {
					logging.WithError(err).Warnf("proactive session refresh failed")
					wait = refreshFailureBackoff
				} else if wait = p.nextRefreshIn(lead, time.Now()); wait == 0 {
					// the new token expires within lead already
					wait = refreshFailureBackoff
				}
			}
			timer.Reset(wait)
		}
	}()
	return cancel
}

// nextRefreshIn returns how long to sleep before the next check. Zero means
// a refresh is due now.
func (p *Provider) nextRefreshIn(lead time.Duration, now time.Time) time.Duration {
	session := p.current()
	if session.refreshToken() == "" {
		return refreshCheckInterval
	}
	expiry := p.Expiry()
	if expiry.IsZero() {
		return refreshCheckInterval
	}
	due := expiry.Add(-lead)
	if !now.Before(due) {
		return 0
	}
	if wait := due.Sub(now); wait < refreshCheckInterval {
		return wait
	}
	return refreshCheckInterval
}
