// Package logging provides the colorized slog.Handler both flatlined and
// flatctl log through, adapted from the pretty-printing handler idiom in
// the retrieval pack (a fatih/color-backed slog.Handler). It trades that
// handler's JSON-rendered attribute groups for a flatter "key=value" tail,
// since neither binary here nests attrs beyond a handful of scalars per
// line.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Options configures a Handler.
type Options struct {
	Level      slog.Leveler
	UseColor   bool
	ShowSource bool
	TimeFormat string
}

// DefaultOptions returns the options flatlined uses outside of
// -d/--debug: info level, color on, no source location.
func DefaultOptions() Options {
	return Options{
		Level:      slog.LevelInfo,
		UseColor:   true,
		TimeFormat: time.Kitchen,
	}
}

// Handler is a single-line-per-record slog.Handler: timestamp, level,
// optional source, message, then "key=value" attrs in emission order.
type Handler struct {
	opts   Options
	writer io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	group  string

	colorTime  func(...any) string
	colorMsg   func(...any) string
	colorAttrs func(...any) string
	levelColor map[slog.Level]func(...any) string
}

// New builds a Handler writing to w.
func New(w io.Writer, opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = time.Kitchen
	}
	h := &Handler{opts: opts, writer: w, mu: &sync.Mutex{}}
	h.initColors()
	return h
}

func (h *Handler) initColors() {
	if !h.opts.UseColor {
		noColor := func(a ...any) string { return fmt.Sprint(a...) }
		h.colorTime, h.colorMsg, h.colorAttrs = noColor, noColor, noColor
		h.levelColor = nil
		return
	}
	h.colorTime = color.New(color.FgHiBlack).SprintFunc()
	h.colorMsg = color.New(color.FgWhite).SprintFunc()
	h.colorAttrs = color.New(color.FgHiBlack).SprintFunc()
	h.levelColor = map[slog.Level]func(...any) string{
		slog.LevelDebug: color.New(color.FgMagenta).SprintFunc(),
		slog.LevelInfo:  color.New(color.FgBlue).SprintFunc(),
		slog.LevelWarn:  color.New(color.FgYellow).SprintFunc(),
		slog.LevelError: color.New(color.FgRed, color.Bold).SprintFunc(),
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(h.colorTime(r.Time.Format(h.opts.TimeFormat)))
	buf.WriteByte(' ')
	buf.WriteString(h.formatLevel(r.Level))
	buf.WriteByte(' ')

	if h.opts.ShowSource && r.PC != 0 {
		if src := h.source(r.PC); src != "" {
			buf.WriteString(h.colorAttrs(src))
			buf.WriteByte(' ')
		}
	}

	buf.WriteString(h.colorMsg(r.Message))

	writeAttr := func(a slog.Attr) bool {
		if a.Key == "" {
			return true
		}
		fmt.Fprintf(&buf, " %s", h.colorAttrs(fmt.Sprintf("%s=%v", h.qualify(a.Key), a.Value.Resolve())))
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(writeAttr)

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *Handler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func (h *Handler) formatLevel(level slog.Level) string {
	s := fmt.Sprintf("%-5s", strings.ToUpper(level.String()))
	if c, ok := h.levelColor[level]; ok {
		return c(s)
	}
	return s
}

func (h *Handler) source(pc uintptr) string {
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.Function == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	if h.group == "" {
		nh.group = name
	} else {
		nh.group = h.group + "." + name
	}
	return &nh
}
