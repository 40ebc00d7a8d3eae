package exchange

import (
	"context"
	"net/http"
	"time"

	"github.com/nojima/dashreq/logging"
)

// Transport performs exactly one HTTP exchange per call and normalizes the
// outcome into a Response. It knows nothing about authentication.
type Transport struct {
	client *http.Client
}

func NewTransport(options *Options) (*Transport, error) {
	client, err := BuildHTTPClient(options)
	if err != nil {
		return nil, err
	}
	return &Transport{client: client}, nil
}

func NewTransportWithClient(client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{client: client}
}

// Do sends r to baseURL. It never returns nil and never panics on network
// failures; every outcome is described by the returned Response.
func (t *Transport) Do(ctx context.Context, baseURL string, r *Request) *Response {
	method := r.HTTPMethod()
	if baseURL == "" {
		return FailedResponse(method, r.Path, ErrBaseURLNotSet)
	}

	req, err := BuildHTTPRequest(ctx, baseURL, r)
	if err != nil {
		return FailedResponse(method, baseURL+r.Path, err)
	}
	url := req.URL.String()

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		logging.WithFields(logging.Fields{
			"method":  method,
			"url":     url,
			"elapsed": time.Since(start),
		}).WithError(err).Debugf("request failed")
		return FailedResponse(method, url, &ConnectionError{Method: method, URL: url, Cause: err})
	}

	logging.WithFields(logging.Fields{
		"method":  method,
		"url":     url,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start),
		"headers": logging.MaskHeaders(req.Header),
	}).Debugf("request sent")

	return ReadResponse(method, url, r.ResponseType, resp)
}
