package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Console struct {
	Logger    *slog.Logger
	ErrLogger *slog.Logger

	out      io.Writer
	errOut   io.Writer
	colorOut bool
	colorErr bool
}

func NewConsole(opts *RichLoggerOptions) *Console {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}

	out, errs := NewRichLoggers(opts)
	colors := opts.EnableColors && !opts.EnableJSON

	return &Console{
		Logger:    out,
		ErrLogger: errs,
		out:       opts.Output,
		errOut:    opts.ErrOutput,
		colorOut:  colors && IsTerminal(opts.Output),
		colorErr:  colors && IsTerminal(opts.ErrOutput),
	}
}

func (c *Console) StartTimer(name string) *Timer {
	return &Timer{
		name:    name,
		start:   time.Now(),
		console: c,
	}
}

func paint(enabled bool, color, msg string) string {
	if !enabled {
		return msg
	}
	return color + msg + Reset
}

func (c *Console) Success(format string, args ...any) {
	c.Logger.Info(paint(c.colorOut, Green, "✓ "+fmt.Sprintf(format, args...)))
}

func (c *Console) Info(format string, args ...any) {
	c.Logger.Info(paint(c.colorOut, Blue+Bold, "ℹ "+fmt.Sprintf(format, args...)))
}

func (c *Console) Log(format string, args ...any) {
	c.Logger.Info(fmt.Sprintf(format, args...))
}

func (c *Console) Debug(msg string, args ...any) {
	c.Logger.Debug(msg, args...)
}

func (c *Console) Warn(format string, args ...any) {
	c.Logger.Warn(paint(c.colorOut, Yellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func (c *Console) Error(format string, args ...any) {
	c.ErrLogger.Error(paint(c.colorErr, Red+Bold, "✖ "+fmt.Sprintf(format, args...)))
}

func (c *Console) NewProgressBar(total int64, label string, visible bool) *ProgressBar {
	return NewProgressBar(total, label, c.errOut, visible && IsTerminal(c.errOut))
}

func (c *Console) NewTable(headers []string) *Table {
	return NewTable(headers, c.errOut)
}

// Box prints content under a rounded title frame on stdout.
func (c *Console) Box(title string, content string) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	for _, line := range splitLines(content) {
		tw.AppendRow(table.Row{line})
	}
	fmt.Fprintln(c.out, tw.Render())
}
