package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// LineHandler renders records as single human-readable lines:
//
//	[2006-01-02 15:04:05] [debug] [send.go:42] message | key=value
type LineHandler struct {
	w         io.Writer
	level     *slog.LevelVar
	addSource bool
	mu        *sync.Mutex
}

func NewLineHandler(w io.Writer, level *slog.LevelVar, addSource bool) *LineHandler {
	return &LineHandler{
		w:         w,
		level:     level,
		addSource: addSource,
		mu:        &sync.Mutex{},
	}
}

func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString("[" + r.Time.Format("2006-01-02 15:04:05") + "] ")
	line.WriteString("[" + strings.ToLower(r.Level.String()) + "] ")

	if h.addSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		line.WriteString(fmt.Sprintf("[%s:%d] ", filepath.Base(f.File), f.Line))
	}
	line.WriteString(r.Message)

	first := true
	r.Attrs(func(a slog.Attr) bool {
		if first {
			line.WriteString(" |")
			first = false
		}
		line.WriteString(" " + a.Key + "=" + fmt.Sprintf("%v", a.Value.Any()))
		return true
	})
	line.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	return h
}
