package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/nojima/dashreq/version"
)

func parseURL(t *testing.T, rawurl string) *url.URL {
	u, err := url.Parse(rawurl)
	if err != nil {
		t.Fatalf("failed to parse URL: %s", err)
	}
	return u
}

func TestBuildHTTPRequest(t *testing.T) {
	// Setup
	r := &Request{
		Method: MethodPost,
		Path:   "/foo",
		Query:  map[string]any{"q": "hello world"},
		Header: http.Header{
			"X-Foo": []string{"fizz buzz"},
			"Host":  []string{"example.com:8080"},
		},
		Body: map[string]any{"hoge": "fuga"},
	}

	// Exercise
	actual, err := BuildHTTPRequest(t.Context(), "https://localhost:4000", r)
	if err != nil {
		t.Fatalf("unexpected error: err=%v", err)
	}

	// Verify
	if actual.Method != "POST" {
		t.Errorf("unexpected method: expected=%v, actual=%v", "POST", actual.Method)
	}
	expectedURL := parseURL(t, "https://localhost:4000/foo?q=hello+world")
	if !reflect.DeepEqual(actual.URL, expectedURL) {
		t.Errorf("unexpected URL: expected=%v, actual=%v", expectedURL, actual.URL)
	}
	expectedHeader := http.Header{
		"X-Foo":        []string{"fizz buzz"},
		"Content-Type": []string{"application/json"},
		"User-Agent":   []string{fmt.Sprintf("dashreq/%s", version.Current())},
		"Host":         []string{"example.com:8080"},
	}
	if !reflect.DeepEqual(expectedHeader, actual.Header) {
		t.Errorf("unexpected header: expected=%v, actual=%v", expectedHeader, actual.Header)
	}
	expectedHost := "example.com:8080"
	if actual.Host != expectedHost {
		t.Errorf("unexpected host: expected=%v, actual=%v", expectedHost, actual.Host)
	}
	expectedBody := `{"hoge": "fuga"}`
	actualBody := readAll(t, actual.Body)
	if !isEquivalentJSON(t, expectedBody, actualBody) {
		t.Errorf("unexpected body: expected=%v, actual=%v", expectedBody, actualBody)
	}
}

func TestBuildHTTPRequest_DefaultMethod(t *testing.T) {
	// Exercise
	actual, err := BuildHTTPRequest(t.Context(), "http://example.com", &Request{Path: "/items", Method: "patch"})
	if err != nil {
		t.Fatalf("unexpected error: err=%v", err)
	}
	if actual.Method != "PATCH" {
		t.Errorf("unexpected method: expected=%v, actual=%v", "PATCH", actual.Method)
	}

	actual, err = BuildHTTPRequest(t.Context(), "http://example.com", &Request{Path: "/items"})
	if err != nil {
		t.Fatalf("unexpected error: err=%v", err)
	}
	if actual.Method != "GET" {
		t.Errorf("unexpected method: expected=%v, actual=%v", "GET", actual.Method)
	}
}

func TestBuildURL(t *testing.T) {
	var nilString *string
	answer := 42
	testCases := []struct {
		title    string
		path     string
		query    map[string]any
		expected string
	}{
		{
			title:    "Typical case",
			path:     "/hello",
			query:    map[string]any{"foo": "bar", "fizz": "buzz"},
			expected: "http://example.com/hello?fizz=buzz&foo=bar",
		},
		{
			title:    "No query",
			path:     "/hello",
			expected: "http://example.com/hello",
		},
		{
			title:    "Both path and query have query string",
			path:     "/hello?hoge=fuga",
			query:    map[string]any{"foo": "bar"},
			expected: "http://example.com/hello?foo=bar&hoge=fuga",
		},
		{
			title:    "Array values repeat the key",
			path:     "/hello",
			query:    map[string]any{"k": []string{"a", "b"}},
			expected: "http://example.com/hello?k=a&k=b",
		},
		{
			title:    "Mixed array",
			path:     "/hello",
			query:    map[string]any{"k": []any{1, "x", true}},
			expected: "http://example.com/hello?k=1&k=x&k=true",
		},
		{
			title:    "Nil values are omitted",
			path:     "/hello",
			query:    map[string]any{"a": nil, "b": nilString, "c": &answer},
			expected: "http://example.com/hello?c=42",
		},
		{
			title:    "Scalars",
			path:     "/hello",
			query:    map[string]any{"f": 1.5, "b": false, "u": uint(7)},
			expected: "http://example.com/hello?b=false&f=1.5&u=7",
		},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			r := &Request{Path: tt.path, Query: tt.query}
			u, err := buildURL("http://example.com", r)
			if err != nil {
				t.Fatalf("unexpected error: err=%v", err)
			}
			if u.String() != tt.expected {
				t.Errorf("unexpected URL: expected=%s, actual=%s", tt.expected, u)
			}
		})
	}
}

func TestBuildHTTPHeader(t *testing.T) {
	// Setup
	r := &Request{
		Header: http.Header{
			"X-Foo":         []string{"foo"},
			"X-Multi-Value": []string{"value 1", "value 2"},
		},
	}

	// Exercise
	httpHeader := buildHTTPHeader(r)
	httpHeader.Set("X-Added", "added")

	// Verify
	expected := http.Header{
		"X-Foo":         []string{"foo"},
		"X-Multi-Value": []string{"value 1", "value 2"},
	}
	if !reflect.DeepEqual(r.Header, expected) {
		t.Errorf("caller header was modified: expected=%v, actual=%v", expected, r.Header)
	}
}

func isEquivalentJSON(t *testing.T, json1, json2 string) bool {
	var obj1, obj2 interface{}
	if err := json.Unmarshal([]byte(json1), &obj1); err != nil {
		t.Fatalf("failed to unmarshal json1: %v", err)
	}
	if err := json.Unmarshal([]byte(json2), &obj2); err != nil {
		t.Fatalf("failed to unmarshal json2: %v", err)
	}
	return reflect.DeepEqual(obj1, obj2)
}

func readAll(t *testing.T, reader io.Reader) string {
	b, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read all: %s", err)
	}
	return string(b)
}

func TestBuildHTTPBody_NilBody(t *testing.T) {
	// Exercise
	actual, err := buildHTTPBody(&Request{})
	if err != nil {
		t.Fatalf("unexpected error: err=%+v", err)
	}

	// Verify
	expected := bodyTuple{contentType: "application/json"}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("unexpected body tuple: expected=%+v, actual=%+v", expected, actual)
	}
}

func TestBuildHTTPBody_JSONBody(t *testing.T) {
	// Setup
	r := &Request{
		Body: map[string]any{
			"foo":     "bar",
			"boolean": true,
			"array":   []any{1, nil, "hello"},
		},
	}

	// Exercise
	bodyTuple, err := buildHTTPBody(r)
	if err != nil {
		t.Fatalf("unexpected error: err=%+v", err)
	}

	// Verify
	expectedBody := `{
		"foo": "bar",
		"boolean": true,
		"array": [1, null, "hello"]
	}`
	actualBody := readAll(t, bodyTuple.body)
	if !isEquivalentJSON(t, expectedBody, actualBody) {
		t.Errorf("unexpected body: expected=%s, actual=%s", expectedBody, actualBody)
	}
	expectedContentType := "application/json"
	if bodyTuple.contentType != expectedContentType {
		t.Errorf("unexpected content type: expected=%s, actual=%s", expectedContentType, bodyTuple.contentType)
	}
	if bodyTuple.contentLength != int64(len(actualBody)) {
		t.Errorf("invalid content length: len(body)=%v, actual=%v", len(actualBody), bodyTuple.contentLength)
	}
}

func TestBuildHTTPBody_CallerContentType(t *testing.T) {
	testCases := []struct {
		title    string
		body     any
		expected string
	}{
		{title: "Raw bytes", body: []byte("Hello, World!!"), expected: "Hello, World!!"},
		{title: "String", body: "a=b&c=d", expected: "a=b&c=d"},
		{title: "Reader", body: bytes.NewBufferString("streamed"), expected: "streamed"},
		{title: "File", body: &File{ContentType: "image/png", Data: []byte("png")}, expected: "png"},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			r := &Request{
				Header: http.Header{"Content-Type": []string{"text/plain"}},
				Body:   tt.body,
			}
			bodyTuple, err := buildHTTPBody(r)
			if err != nil {
				t.Fatalf("unexpected error: err=%+v", err)
			}
			actualBody := readAll(t, bodyTuple.body)
			if actualBody != tt.expected {
				t.Errorf("unexpected body: expected=%s, actual=%s", tt.expected, actualBody)
			}
			if bodyTuple.contentType != "" {
				t.Errorf("content type must be left to the caller: actual=%s", bodyTuple.contentType)
			}
		})
	}
}

func TestBuildHTTPRequest_CallerContentTypeWins(t *testing.T) {
	// Setup
	r := &Request{
		Method: MethodPut,
		Header: http.Header{"Content-Type": []string{"application/merge-patch+json"}},
		Body:   map[string]any{"name": "x"},
	}

	// Exercise
	actual, err := BuildHTTPRequest(t.Context(), "http://example.com", r)
	if err != nil {
		t.Fatalf("unexpected error: err=%v", err)
	}

	// Verify
	if ct := actual.Header.Get("Content-Type"); ct != "application/merge-patch+json" {
		t.Errorf("unexpected content type: expected=%s, actual=%s", "application/merge-patch+json", ct)
	}
	actualBody := readAll(t, actual.Body)
	if !isEquivalentJSON(t, `{"name": "x"}`, actualBody) {
		t.Errorf("unexpected body: actual=%s", actualBody)
	}
}

func TestBuildHTTPBody_FileBody(t *testing.T) {
	// Setup
	r := &Request{Body: &File{Name: "logo.svg", ContentType: "image/svg+xml", Data: []byte("<svg/>")}}

	// Exercise
	bodyTuple, err := buildHTTPBody(r)
	if err != nil {
		t.Fatalf("unexpected error: err=%+v", err)
	}

	// Verify
	actualBody := readAll(t, bodyTuple.body)
	if actualBody != "<svg/>" {
		t.Errorf("unexpected body: expected=%s, actual=%s", "<svg/>", actualBody)
	}
	if bodyTuple.contentType != "image/svg+xml" {
		t.Errorf("unexpected content type: expected=%s, actual=%s", "image/svg+xml", bodyTuple.contentType)
	}
	if bodyTuple.contentLength != 6 {
		t.Errorf("invalid content length: expected=%v, actual=%v", 6, bodyTuple.contentLength)
	}
}

func TestBuildHTTPBody_FormBody_Multipart(t *testing.T) {
	// Setup
	form := &Form{}
	form.AddField("hello", "üç∫ world!")
	form.AddFile("file1", &File{Name: `"quoted".txt`, ContentType: "text/plain", Data: []byte("üç£ & üç∫")})
	form.AddFile("file2", &File{Name: "blob", Data: []byte("From STDIN")})
	r := &Request{
		Method: MethodPost,
		Body:   form,
		// ignored for forms: the boundary must come from the encoder
		Header: http.Header{"Content-Type": []string{"application/json"}},
	}

	// Exercise
	bodyTuple, err := buildHTTPBody(r)
	if err != nil {
		t.Fatalf("unexpected error: err=%+v", err)
	}

	// Verify
	expectedBody := regexp.MustCompile(strings.Join([]string{
		`--[0-9a-z]+`,
		regexp.QuoteMeta(`Content-Disposition: form-data; name="hello"`),
		regexp.QuoteMeta(``),
		regexp.QuoteMeta(`üç∫ world!`),
		`--[0-9a-z]+`,
		regexp.QuoteMeta(`Content-Disposition: form-data; name="file1"; filename="\"quoted\".txt"`),
		regexp.QuoteMeta(`Content-Type: text/plain`),
		regexp.QuoteMeta(``),
		regexp.QuoteMeta(`üç£ & üç∫`),
		`--[0-9a-z]+`,
		regexp.QuoteMeta(`Content-Disposition: form-data; name="file2"; filename="blob"`),
		regexp.QuoteMeta(`Content-Type: application/octet-stream`),
		regexp.QuoteMeta(``),
		regexp.QuoteMeta(`From STDIN`),
		`--[0-9a-z]+--`,
		regexp.QuoteMeta(``),
	}, "\r\n"))

	actualBody := readAll(t, bodyTuple.body)
	if !expectedBody.MatchString(actualBody) {
		t.Errorf("unexpected body: expected='%s', actual='%s'", expectedBody, actualBody)
	}
	expectedContentType := "multipart/form-data; "
	if !strings.HasPrefix(bodyTuple.contentType, expectedContentType) {
		t.Errorf("unexpected content type: expected=%s, actual=%s", expectedContentType, bodyTuple.contentType)
	}
	if bodyTuple.contentLength != int64(len(actualBody)) {
		t.Errorf("invalid content length: len(body)=%v, actual=%v", len(actualBody), bodyTuple.contentLength)
	}
}

func TestRequestPrepare(t *testing.T) {
	// Setup
	header := http.Header{"X-Foo": []string{"foo"}}
	r := &Request{
		Path:   "/upload",
		Header: header,
		Body:   strings.NewReader("payload"),
	}

	// Exercise
	prepared, err := r.Prepare()
	if err != nil {
		t.Fatalf("unexpected error: err=%+v", err)
	}

	// Verify
	prepared.Header.Set("Authorization", "Bearer x")
	if header.Get("Authorization") != "" {
		t.Errorf("Prepare must copy the header")
	}
	if prepared.Method != MethodGet {
		t.Errorf("unexpected method: expected=%v, actual=%v", MethodGet, prepared.Method)
	}
	file, ok := prepared.Body.(*File)
	if !ok {
		t.Fatalf("unexpected body type: %T", prepared.Body)
	}
	if string(file.Data) != "payload" || file.ContentType != "application/octet-stream" {
		t.Errorf("unexpected buffered body: %+v", file)
	}

	// Twice, to make sure the body can be re-sent
	for i := 0; i < 2; i++ {
		req, err := BuildHTTPRequest(t.Context(), "http://example.com", prepared)
		if err != nil {
			t.Fatalf("unexpected error: err=%v", err)
		}
		if body := readAll(t, req.Body); body != "payload" {
			t.Errorf("unexpected body on attempt %d: %s", i, body)
		}
	}
}
