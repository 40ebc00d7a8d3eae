package exchange

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/pkg/errors"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type multipartWriter struct {
	*multipart.Writer
}

func newMultipartWriter(w io.Writer) *multipartWriter {
	return &multipartWriter{Writer: multipart.NewWriter(w)}
}

func (w *multipartWriter) writeField(name, value string) error {
	if err := w.WriteField(name, value); err != nil {
		return errors.Wrapf(err, "writing form field '%s'", name)
	}
	return nil
}

func (w *multipartWriter) writeFile(name string, file *File) error {
	if file == nil {
		return errors.Errorf("form file '%s' is nil", name)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return errors.Wrapf(err, "creating form part '%s'", name)
	}
	if _, err := part.Write(file.Data); err != nil {
		return errors.Wrapf(err, "writing form file '%s'", name)
	}
	return nil
}
