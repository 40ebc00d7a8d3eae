package output

import (
	"io"
	"net/http"
)

// Options controls what a run prints and where the body goes.
type Options struct {
	// Parts of the exchange to print (--print HBhb).
	PrintRequestHeader  bool
	PrintRequestBody    bool
	PrintResponseHeader bool
	PrintResponseBody   bool

	// EnableFormat indents JSON bodies; EnableColor adds ANSI colors on top.
	EnableFormat bool
	EnableColor  bool

	// Download streams the body into OutputFile, or a file named after the
	// URL path, instead of printing it.
	Download   bool
	OutputFile string
	Overwrite  bool
}

type Printer interface {
	PrintStatusLine(proto string, status int) error
	PrintRequestLine(method, url string) error
	PrintHeader(header http.Header) error
	PrintBody(body io.Reader, contentType string) error
}

// NewPrinter returns a PrettyPrinter when formatting is enabled and a
// PlainPrinter otherwise.
func NewPrinter(w io.Writer, options *Options) Printer {
	if options.EnableFormat {
		return NewPrettyPrinter(PrettyPrinterConfig{
			Writer:      w,
			EnableColor: options.EnableColor,
		})
	}
	return NewPlainPrinter(w)
}

func statusLine(proto string, status int) (string, string) {
	if proto == "" {
		proto = "HTTP/1.1"
	}
	if status < 0 {
		return proto, "(no response)"
	}
	text := http.StatusText(status)
	if text == "" {
		return proto, itoa(status)
	}
	return proto, itoa(status) + " " + text
}
