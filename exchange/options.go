package exchange

import (
	"net/http"
	"time"
)

type Options struct {
	Timeout         time.Duration
	FollowRedirects bool
	SkipVerify      bool
	ForceHTTP1      bool
	// ProxyURL accepts http, https and socks5 URLs.
	ProxyURL string
	// Transport replaces the default round tripper when set.
	Transport http.RoundTripper
}
