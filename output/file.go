package output

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/pkg/errors"
)

var reIndexSuffix = regexp.MustCompile(`\.(\d+)$`)

// FileWriter saves a streamed response body to disk.
type FileWriter struct {
	fullPath string
	progress io.Writer
}

// NewFileWriter picks the destination for a download. Without --output the
// last segment of urlPath names the file. Progress goes to progress, which
// may be nil.
func NewFileWriter(urlPath string, options *Options, progress io.Writer) *FileWriter {
	var fullPath string

	if options.OutputFile == "" {
		name := path.Base(strings.SplitN(urlPath, "?", 2)[0])
		if name == "/" || name == "." || name == "" {
			name = "index"
		}
		fullPath = "./" + name
	} else {
		fullPath = options.OutputFile
	}

	if !options.Overwrite {
		fullPath = makeNonOverlappingFilename(fullPath)
	}

	return &FileWriter{
		fullPath: fullPath,
		progress: progress,
	}
}

func makeNonOverlappingFilename(name string) string {
	for {
		if _, err := os.Stat(name); err != nil {
			return name
		}
		newName := reIndexSuffix.ReplaceAllStringFunc(name, func(index string) string {
			i, _ := strconv.Atoi(strings.TrimPrefix(index, "."))
			return fmt.Sprintf(".%d", i+1)
		})
		if name == newName {
			newName = fmt.Sprintf("%s.%d", name, 1)
		}
		name = newName
	}
}

// Download copies body into the destination file. contentLength may be
// negative when the server did not announce it.
func (f *FileWriter) Download(body io.Reader, contentLength int64) (int64, error) {
	file, err := os.Create(f.fullPath)
	if err != nil {
		return 0, errors.Wrapf(err, "creating '%s'", f.fullPath)
	}
	defer file.Close()

	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return total, errors.Wrapf(err, "writing '%s'", f.fullPath)
			}
			total += int64(n)
			f.reportProgress(total, contentLength)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, errors.Wrap(readErr, "reading response body")
		}
	}

	if f.progress != nil {
		fmt.Fprintf(f.progress, "\nDone. %s saved to %s\n", bytefmt.ByteSize(uint64(total)), f.Filename())
	}
	return total, nil
}

func (f *FileWriter) reportProgress(total, contentLength int64) {
	if f.progress == nil {
		return
	}
	if contentLength <= 0 {
		fmt.Fprintf(f.progress, "\rDownloading: %s", bytefmt.ByteSize(uint64(total)))
		return
	}
	fmt.Fprintf(f.progress, "\rDownloading: %s / %s (%d%%)",
		bytefmt.ByteSize(uint64(total)),
		bytefmt.ByteSize(uint64(contentLength)),
		total*100/contentLength)
}

func (f *FileWriter) Path() string {
	return f.fullPath
}

func (f *FileWriter) Filename() string {
	return filepath.Base(f.fullPath)
}
