package exchange

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/nojima/dashreq/internal/json"
	"github.com/nojima/dashreq/logging"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// messageFields are looked up in a failed response body, in order.
var messageFields = []string{"reason", "message", "msg"}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

// ReadResponse converts resp into a Response, consuming and closing its body
// unless mode is StreamResponse and the status is a success.
func ReadResponse(method, url string, mode ResponseType, resp *http.Response) *Response {
	r := &Response{
		Status:       resp.StatusCode,
		Proto:        resp.Proto,
		Header:       resp.Header,
		method:       method,
		url:          url,
		responseType: mode,
	}
	if r.Header == nil {
		r.Header = make(http.Header)
	}

	if mode == StreamResponse {
		if isSuccessStatus(resp.StatusCode) {
			r.stream = decodedBody(resp)
			return r
		}
		_ = resp.Body.Close()
		r.fail(resolveMessage(resp, nil))
		return r
	}

	raw := readBody(resp)
	if !isSuccessStatus(resp.StatusCode) {
		r.fail(resolveMessage(resp, raw))
		return r
	}
	r.raw = raw
	r.data = decodeData(mode, raw)
	return r
}

func (r *Response) fail(message string) {
	r.Error = message
	r.failure = &RequestError{
		Method:  r.method,
		URL:     r.url,
		Status:  r.Status,
		Message: message,
	}
}

// readBody reads and closes the response body. A body that cannot be read is
// treated as absent.
func readBody(resp *http.Response) []byte {
	body := decodedBody(resp)
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		logging.WithError(err).Debugf("ignoring unreadable response body")
		return nil
	}
	return data
}

func decodedBody(resp *http.Response) io.ReadCloser {
	encoding := resp.Header.Get("Content-Encoding")
	body, err := decodeContentEncoding(resp.Body, encoding)
	if err != nil {
		logging.WithError(err).Debugf("cannot decode %s response body", encoding)
		return io.NopCloser(strings.NewReader(""))
	}
	return body
}

func decodeContentEncoding(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	if body == nil {
		return io.NopCloser(strings.NewReader("")), nil
	}
	encodings := strings.Split(contentEncoding, ",")
	for _, raw := range encodings {
		switch strings.TrimSpace(strings.ToLower(raw)) {
		case "", "identity":
			continue
		case "gzip":
			gr, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return nil, errors.Wrap(err, "creating gzip reader")
			}
			return &decodingReadCloser{Reader: gr, closers: []func() error{gr.Close, body.Close}}, nil
		case "deflate":
			fr := flate.NewReader(body)
			return &decodingReadCloser{Reader: fr, closers: []func() error{fr.Close, body.Close}}, nil
		case "br":
			return &decodingReadCloser{Reader: brotli.NewReader(body), closers: []func() error{body.Close}}, nil
		case "zstd":
			decoder, err := zstd.NewReader(body)
			if err != nil {
				_ = body.Close()
				return nil, errors.Wrap(err, "creating zstd decoder")
			}
			return &decodingReadCloser{
				Reader: decoder,
				closers: []func() error{
					func() error { decoder.Close(); return nil },
					body.Close,
				},
			}, nil
		}
	}
	return body, nil
}

type decodingReadCloser struct {
	io.Reader
	closers []func() error
}

func (d *decodingReadCloser) Close() error {
	var firstErr error
	for _, closer := range d.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func decodeData(mode ResponseType, raw []byte) any {
	switch mode {
	case TextResponse:
		return string(raw)
	case BlobResponse:
		return raw
	}
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		logging.WithError(err).Debugf("response body is not JSON")
		return nil
	}
	return v
}

// resolveMessage picks the failure message: the first truthy of the body's
// reason, message and msg fields, then the status reason phrase, then a
// generic text with the status code.
func resolveMessage(resp *http.Response, raw []byte) string {
	if len(raw) > 0 && gjson.ValidBytes(raw) {
		for _, field := range messageFields {
			if v := gjson.GetBytes(raw, field); truthy(v) {
				if v.Type == gjson.String {
					return v.Str
				}
				return v.Raw
			}
		}
	}
	if text := statusText(resp); text != "" {
		return text
	}
	return "error status code " + strconv.Itoa(resp.StatusCode)
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	default:
		return false
	}
}

// statusText returns the reason phrase of resp.Status ("Not Found" for
// "404 Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(resp.Status)
	code := strconv.Itoa(resp.StatusCode)
	if strings.HasPrefix(text, code) {
		text = strings.TrimSpace(text[len(code):])
	}
	return text
}
