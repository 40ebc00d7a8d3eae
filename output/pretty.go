package output

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

type PrettyPrinter struct {
	writer        io.Writer
	enableColor   bool
	aurora        aurora.Aurora
	headerPalette *HeaderPalette
}

type PrettyPrinterConfig struct {
	Writer      io.Writer
	EnableColor bool
}

type HeaderPalette struct {
	Method         aurora.Color
	URL            aurora.Color
	Proto          aurora.Color
	SuccessStatus  aurora.Color
	FailureStatus  aurora.Color
	FieldName      aurora.Color
	FieldValue     aurora.Color
	FieldSeparator aurora.Color
}

var defaultHeaderPalette = HeaderPalette{
	Method:         aurora.GreenFg | aurora.BoldFm,
	URL:            aurora.CyanFg | aurora.UnderlineFm,
	Proto:          aurora.BlueFg,
	SuccessStatus:  aurora.BrownFg | aurora.BoldFm,
	FailureStatus:  aurora.RedFg | aurora.BoldFm,
	FieldName:      aurora.WhiteFg,
	FieldValue:     aurora.CyanFg,
	FieldSeparator: aurora.WhiteFg,
}

// Keys keep the order the server sent them in.
var jsonOptions = &pretty.Options{
	Indent:   "    ",
	SortKeys: false,
}

func NewPrettyPrinter(config PrettyPrinterConfig) Printer {
	return &PrettyPrinter{
		writer:        config.Writer,
		enableColor:   config.EnableColor,
		aurora:        aurora.NewAurora(config.EnableColor),
		headerPalette: &defaultHeaderPalette,
	}
}

func (p *PrettyPrinter) PrintStatusLine(proto string, status int) error {
	proto, text := statusLine(proto, status)
	color := p.headerPalette.SuccessStatus
	if status < 200 || status >= 300 {
		color = p.headerPalette.FailureStatus
	}
	fmt.Fprintf(p.writer, "%s %s\n",
		p.aurora.Colorize(proto, p.headerPalette.Proto),
		p.aurora.Colorize(text, color))
	return nil
}

func (p *PrettyPrinter) PrintRequestLine(method, url string) error {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.aurora.Colorize(method, p.headerPalette.Method),
		p.aurora.Colorize(url, p.headerPalette.URL))
	return nil
}

func (p *PrettyPrinter) PrintHeader(header http.Header) error {
	for _, name := range sortedNames(header) {
		for _, value := range header[name] {
			fmt.Fprintf(p.writer, "%s%s %s\n",
				p.aurora.Colorize(name, p.headerPalette.FieldName),
				p.aurora.Colorize(":", p.headerPalette.FieldSeparator),
				p.aurora.Colorize(value, p.headerPalette.FieldValue))
		}
	}
	fmt.Fprintln(p.writer)
	return nil
}

func isJSON(contentType string) bool {
	contentType = strings.TrimSpace(contentType)

	semicolon := strings.Index(contentType, ";")
	if semicolon != -1 {
		contentType = strings.TrimSpace(contentType[:semicolon])
	}

	return contentType == "application/json" || strings.HasSuffix(contentType, "+json")
}

// PrintBody indents JSON bodies. Anything that is not valid JSON is written
// as-is.
func (p *PrettyPrinter) PrintBody(body io.Reader, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}

	if !isJSON(contentType) || !gjson.ValidBytes(b) {
		if _, err := p.writer.Write(b); err != nil {
			return errors.Wrap(err, "printing response body")
		}
		return nil
	}

	formatted := pretty.PrettyOptions(b, jsonOptions)
	if p.enableColor {
		formatted = pretty.Color(formatted, nil)
	}
	if _, err := p.writer.Write(formatted); err != nil {
		return errors.Wrap(err, "printing response body")
	}
	return nil
}
