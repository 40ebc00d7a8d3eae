package exchange

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

func BuildHTTPClient(options *Options) (*http.Client, error) {
	if options == nil {
		options = &Options{}
	}

	checkRedirect := func(req *http.Request, via []*http.Request) error {
		// Do not follow redirects
		return http.ErrUseLastResponse
	}
	if options.FollowRedirects {
		checkRedirect = nil
	}

	client := http.Client{
		CheckRedirect: checkRedirect,
		Timeout:       options.Timeout,
	}

	var transp http.RoundTripper
	if options.Transport == nil {
		t, err := buildTransport(options)
		if err != nil {
			return nil, err
		}
		transp = t
	} else {
		transp = options.Transport
	}
	client.Transport = transp

	return &client, nil
}

func buildTransport(options *Options) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     !options.ForceHTTP1,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: options.SkipVerify,
		},
	}

	if proxyURL := strings.TrimSpace(options.ProxyURL); proxyURL != "" {
		if err := applyProxy(t, proxyURL); err != nil {
			return nil, err
		}
	}

	if options.ForceHTTP1 {
		t.TLSClientConfig.NextProtos = []string{"http/1.1", "http/1.0"}
		t.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
		return t, nil
	}

	h2, err := http2.ConfigureTransports(t)
	if err != nil {
		return nil, errors.Wrap(err, "configuring HTTP/2")
	}
	h2.ReadIdleTimeout = 30 * time.Second
	h2.PingTimeout = 15 * time.Second
	return t, nil
}

func applyProxy(t *http.Transport, proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return errors.Wrapf(err, "parsing proxy URL '%s'", proxyURL)
	}

	switch u.Scheme {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return errors.Wrap(err, "creating SOCKS5 dialer")
		}
		t.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			t.DialContext = contextDialer.DialContext
		} else {
			t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return errors.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}
	return nil
}
