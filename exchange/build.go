package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/nojima/dashreq/internal/json"
	"github.com/nojima/dashreq/version"
	"github.com/pkg/errors"
)

// BuildHTTPRequest turns r into an *http.Request against baseURL.
func BuildHTTPRequest(ctx context.Context, baseURL string, r *Request) (*http.Request, error) {
	u, err := buildURL(baseURL, r)
	if err != nil {
		return nil, err
	}

	header := buildHTTPHeader(r)

	bodyTuple, err := buildHTTPBody(r)
	if err != nil {
		return nil, err
	}

	// A multipart body is only readable with the boundary it was encoded with.
	_, isForm := r.Body.(*Form)
	if bodyTuple.contentType != "" && (isForm || header.Get("Content-Type") == "") {
		header.Set("Content-Type", bodyTuple.contentType)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", fmt.Sprintf("dashreq/%s", version.Current()))
	}

	req, err := http.NewRequestWithContext(ctx, string(r.method()), u.String(), bodyTuple.body)
	if err != nil {
		return nil, errors.Wrap(err, "creating HTTP request")
	}
	req.Header = header
	if host := header.Get("Host"); host != "" {
		req.Host = host
	}
	return req, nil
}

func buildURL(baseURL string, r *Request) (*url.URL, error) {
	u, err := url.Parse(baseURL + r.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing URL '%s'", baseURL+r.Path)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, errors.Wrap(err, "parsing query string")
	}
	for name, value := range r.Query {
		appendQueryValue(q, name, reflect.ValueOf(value))
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// appendQueryValue adds value under name. Slices and arrays repeat the key
// once per element; nil values and nil pointers add nothing.
func appendQueryValue(q url.Values, name string, value reflect.Value) {
	for value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface {
		if value.IsNil() {
			return
		}
		value = value.Elem()
	}
	if !value.IsValid() {
		return
	}

	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		if value.Kind() == reflect.Slice && value.Type().Elem().Kind() == reflect.Uint8 {
			q.Add(name, string(value.Bytes()))
			return
		}
		for i := 0; i < value.Len(); i++ {
			appendQueryValue(q, name, value.Index(i))
		}
	default:
		q.Add(name, formatQueryScalar(value))
	}
}

func formatQueryScalar(value reflect.Value) string {
	switch v := value.Interface().(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	}
	switch value.Kind() {
	case reflect.String:
		return value.String()
	case reflect.Bool:
		return strconv.FormatBool(value.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(value.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(value.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(value.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(value.Float(), 'f', -1, 64)
	default:
		return fmt.Sprint(value.Interface())
	}
}

func buildHTTPHeader(r *Request) http.Header {
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return header
}

type bodyTuple struct {
	body          io.Reader
	contentLength int64
	contentType   string
}

// buildHTTPBody encodes the request body. The checks run in a fixed order:
// multipart form, caller-supplied Content-Type, raw file, then JSON.
func buildHTTPBody(r *Request) (bodyTuple, error) {
	if form, ok := r.Body.(*Form); ok {
		return buildFormBody(form)
	}
	if r.Header.Get("Content-Type") != "" {
		return buildRawBody(r.Body)
	}
	if file, ok := r.Body.(*File); ok {
		return buildFileBody(file), nil
	}
	if reader, ok := r.Body.(io.Reader); ok {
		return bodyTuple{body: reader, contentLength: -1, contentType: "application/octet-stream"}, nil
	}
	return buildJSONBody(r.Body)
}

func buildFormBody(form *Form) (bodyTuple, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return bodyTuple{}, err
	}
	return bodyTuple{
		body:          bytes.NewReader(body),
		contentLength: int64(len(body)),
		contentType:   contentType,
	}, nil
}

// buildRawBody trusts the caller's Content-Type and sends the body untouched.
func buildRawBody(body any) (bodyTuple, error) {
	switch v := body.(type) {
	case nil:
		return bodyTuple{}, nil
	case []byte:
		return bodyTuple{body: bytes.NewReader(v), contentLength: int64(len(v))}, nil
	case string:
		return bodyTuple{body: strings.NewReader(v), contentLength: int64(len(v))}, nil
	case *File:
		return bodyTuple{body: bytes.NewReader(v.Data), contentLength: int64(len(v.Data))}, nil
	case io.Reader:
		return bodyTuple{body: v, contentLength: -1}, nil
	default:
		tuple, err := buildJSONBody(v)
		tuple.contentType = ""
		return tuple, err
	}
}

func buildFileBody(file *File) bodyTuple {
	return bodyTuple{
		body:          bytes.NewReader(file.Data),
		contentLength: int64(len(file.Data)),
		contentType:   file.ContentType,
	}
}

func buildJSONBody(value any) (bodyTuple, error) {
	if value == nil {
		return bodyTuple{contentType: "application/json"}, nil
	}
	body, err := json.Marshal(value)
	if err != nil {
		return bodyTuple{}, errors.Wrap(err, "marshaling JSON of HTTP body")
	}
	return bodyTuple{
		body:          bytes.NewReader(body),
		contentLength: int64(len(body)),
		contentType:   "application/json",
	}, nil
}
