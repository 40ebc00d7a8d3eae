package config

import (
	"strings"
	"sync"

	"github.com/nojima/dashreq/exchange"
)

// DefaultBaseURL is the build-time fallback origin:
//
//	go build -ldflags "-X github.com/nojima/dashreq/config.DefaultBaseURL=https://api.example.com"
var DefaultBaseURL = ""

// Resolver yields the base URL for each call. A runtime override wins over
// the configured value, which wins over DefaultBaseURL.
type Resolver struct {
	mu         sync.RWMutex
	override   string
	configured string
}

func NewResolver(configured string) *Resolver {
	return &Resolver{configured: configured}
}

// SetOverride replaces the runtime override. An empty string removes it.
func (r *Resolver) SetOverride(baseURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.override = baseURL
}

// Resolve returns the effective base URL without a trailing slash, or
// exchange.ErrBaseURLNotSet.
func (r *Resolver) Resolve() (string, error) {
	r.mu.RLock()
	candidates := []string{r.override, r.configured, DefaultBaseURL}
	r.mu.RUnlock()

	for _, c := range candidates {
		if c = strings.TrimRight(strings.TrimSpace(c), "/"); c != "" {
			return c, nil
		}
	}
	return "", exchange.ErrBaseURLNotSet
}
