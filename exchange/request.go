package exchange

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// ResponseType selects how a response body is decoded.
type ResponseType int

const (
	JSONResponse ResponseType = iota
	TextResponse
	BlobResponse
	StreamResponse
)

func (t ResponseType) String() string {
	switch t {
	case JSONResponse:
		return "json"
	case TextResponse:
		return "text"
	case BlobResponse:
		return "blob"
	case StreamResponse:
		return "stream"
	default:
		return "unknown"
	}
}

// ParseResponseType is the inverse of ResponseType.String.
func ParseResponseType(s string) (ResponseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSONResponse, nil
	case "text":
		return TextResponse, nil
	case "blob":
		return BlobResponse, nil
	case "stream":
		return StreamResponse, nil
	default:
		return JSONResponse, errors.Errorf("unknown response type: %s", s)
	}
}

// Request describes one call through the pipeline.
//
// Body may be a *Form (sent as multipart/form-data), a *File (sent as-is
// with the file's MIME type), raw bytes, a string or an io.Reader (sent as-is
// when the caller supplies a Content-Type header), or any other value, which
// is serialized as JSON.
type Request struct {
	Path         string
	Method       Method
	Query        map[string]any
	Body         any
	Header       http.Header
	ResponseType ResponseType

	// NoAuth skips credential injection and token refresh.
	NoAuth bool
	// SkipTokenUpdate marks the request as already retried after a refresh.
	SkipTokenUpdate bool
}

// HTTPMethod returns the upper-cased method, GET when unset.
func (r *Request) HTTPMethod() string {
	return string(r.method())
}

func (r *Request) method() Method {
	if r.Method == "" {
		return MethodGet
	}
	return Method(strings.ToUpper(string(r.Method)))
}

// Prepare returns a copy of r that can be sent more than once. The header map
// is copied and streaming bodies are buffered in memory.
func (r *Request) Prepare() (*Request, error) {
	c := *r
	c.Method = r.method()
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	if reader, ok := r.Body.(io.Reader); ok {
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, errors.Wrap(err, "buffering request body")
		}
		if closer, ok := reader.(io.Closer); ok {
			_ = closer.Close()
		}
		c.Body = data
		if c.Header.Get("Content-Type") == "" {
			c.Body = &File{ContentType: "application/octet-stream", Data: data}
		}
	}
	return &c, nil
}

// File is a raw binary payload that carries its own MIME type.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// OpenFile reads path into a File, guessing its MIME type from the extension
// and falling back to content sniffing.
func OpenFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading file '%s'", path)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// Form is a multipart/form-data body.
type Form struct {
	Fields []FormField
	Files  []FormFile
}

type FormField struct {
	Name  string
	Value string
}

type FormFile struct {
	Name string
	File *File
}

func (f *Form) AddField(name, value string) {
	f.Fields = append(f.Fields, FormField{Name: name, Value: value})
}

func (f *Form) AddFile(name string, file *File) {
	f.Files = append(f.Files, FormFile{Name: name, File: file})
}

func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := newMultipartWriter(&buf)
	for _, field := range f.Fields {
		if err := w.writeField(field.Name, field.Value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.Files {
		if err := w.writeFile(file.Name, file.File); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing multipart body")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
