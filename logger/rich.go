package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
)

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Dim     = "\033[2m"
)

type RichLoggerOptions struct {
	Output      io.Writer
	ErrOutput   io.Writer
	TimeFormat  string
	Level       slog.Level
	AddSource   bool
	ShowLevel   bool
	EnableJSON  bool
	CompactJSON bool
	// EnableColors is a request; colour is only emitted to terminals.
	EnableColors bool
}

// DefaultOptions prints bare messages. VerboseOptions adds timestamps, the
// level column and debug records.
func DefaultOptions() *RichLoggerOptions {
	return &RichLoggerOptions{
		Level:        slog.LevelInfo,
		EnableColors: true,
		CompactJSON:  true,
		Output:       os.Stdout,
		ErrOutput:    os.Stderr,
	}
}

func VerboseOptions() *RichLoggerOptions {
	opts := DefaultOptions()
	opts.Level = slog.LevelDebug
	opts.TimeFormat = "2006-01-02 15:04:05.000"
	opts.ShowLevel = true
	return opts
}

type RichHandler struct {
	opts   *RichLoggerOptions
	out    io.Writer
	colors bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// NewRichHandler writes records to out. Handlers that share mu never
// interleave partial lines.
func NewRichHandler(opts *RichLoggerOptions, out io.Writer, mu *sync.Mutex) *RichHandler {
	if opts == nil {
		opts = DefaultOptions()
	}
	if out == nil {
		out = os.Stdout
	}
	if mu == nil {
		mu = &sync.Mutex{}
	}

	return &RichHandler{
		opts:   opts,
		out:    out,
		colors: opts.EnableColors && !opts.EnableJSON && IsTerminal(out),
		mu:     mu,
	}
}

func (h *RichHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

func (h *RichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	h2.attrs = append(h2.attrs, attrs...)
	return h2
}

func (h *RichHandler) WithGroup(name string) slog.Handler {
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *RichHandler) clone() *RichHandler {
	h2 := *h
	h2.attrs = append([]slog.Attr(nil), h.attrs...)
	h2.groups = append([]string(nil), h.groups...)
	return &h2
}

func (h *RichHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.EnableJSON {
		return h.handleJSON(record)
	}

	return h.handleText(record)
}

func (h *RichHandler) attrKey(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

func (h *RichHandler) handleJSON(record slog.Record) error {
	jsonMap := make(map[string]any)

	if !record.Time.IsZero() {
		jsonMap["time"] = record.Time.Format("2006-01-02T15:04:05.000Z07:00")
	}
	jsonMap["level"] = record.Level.String()

	if h.opts.AddSource && record.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := fs.Next()
		jsonMap["source"] = fmt.Sprintf("%s:%d", f.File, f.Line)
	}

	jsonMap["msg"] = record.Message

	for _, a := range h.attrs {
		jsonMap[h.attrKey(a.Key)] = a.Value.Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		jsonMap[h.attrKey(a.Key)] = a.Value.Any()
		return true
	})

	var jsonData []byte
	var err error
	if h.opts.CompactJSON {
		jsonData, err = json.Marshal(jsonMap)
	} else {
		jsonData, err = json.MarshalIndent(jsonMap, "", "  ")
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(h.out, string(jsonData))
	return err
}

func (h *RichHandler) paint(b *strings.Builder, color, s string) {
	if h.colors && color != "" {
		b.WriteString(color)
		b.WriteString(s)
		b.WriteString(Reset)
		return
	}
	b.WriteString(s)
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: Cyan,
	slog.LevelInfo:  Green,
	slog.LevelWarn:  Yellow,
	slog.LevelError: Red,
}

func (h *RichHandler) handleText(record slog.Record) error {
	var builder strings.Builder

	if h.opts.TimeFormat != "" && !record.Time.IsZero() {
		h.paint(&builder, Blue, record.Time.Format(h.opts.TimeFormat))
		builder.WriteString(" ")
	}

	if h.opts.ShowLevel {
		levelStr := fmt.Sprintf("%-5s", strings.ToUpper(record.Level.String()))
		h.paint(&builder, levelColors[record.Level]+Bold, levelStr)
		builder.WriteString(" ")
	}

	if h.opts.AddSource && record.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := fs.Next()
		sourceFile := f.File
		if lastSlash := strings.LastIndex(sourceFile, "/"); lastSlash >= 0 {
			sourceFile = sourceFile[lastSlash+1:]
		}
		h.paint(&builder, Magenta, fmt.Sprintf("%s:%d", sourceFile, f.Line))
		builder.WriteString(" ")
	}

	builder.WriteString(record.Message)

	writeAttr := func(a slog.Attr) bool {
		builder.WriteString(" ")
		h.paint(&builder, Dim, h.attrKey(a.Key)+"=")
		builder.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	record.Attrs(writeAttr)

	_, err := fmt.Fprintln(h.out, builder.String())
	return err
}

// NewRichLoggers returns the stdout and stderr loggers for opts.
func NewRichLoggers(opts *RichLoggerOptions) (*slog.Logger, *slog.Logger) {
	if opts == nil {
		opts = DefaultOptions()
	}
	errOut := opts.ErrOutput
	if errOut == nil {
		errOut = os.Stderr
	}

	var mu sync.Mutex
	out := slog.New(NewRichHandler(opts, opts.Output, &mu))
	errs := slog.New(NewRichHandler(opts, errOut, &mu))
	return out, errs
}
