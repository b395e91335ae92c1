package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"webpix/codec"
	"webpix/logger"

	"golang.org/x/sync/errgroup"
)

var (
	errEmptyInput   = errors.New("no files found in the directory")
	errInvalidInput = errors.New("invalid input path: must be a file or directory")
)

// Converter turns one source image into one output file.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

type WorkItem struct {
	Path  string
	Index int
	Total int
	IsDir bool
}

type Processor struct {
	Options      codec.Options
	OutputDir    string
	WorkDir      string
	Console      *logger.Console
	Converter    Converter
	NumWorkers   int
	Timeout      time.Duration
	ShowProgress bool
}

func NewProcessor(cfg *Config, console *logger.Console, conv Converter) *Processor {
	return &Processor{
		Options:      cfg.EncodingOptions(),
		OutputDir:    cfg.OutputDir,
		WorkDir:      cfg.WorkDir,
		Console:      console,
		Converter:    conv,
		NumWorkers:   cfg.Workers,
		Timeout:      cfg.Timeout,
		ShowProgress: cfg.Progress,
	}
}

func (p *Processor) workers() int {
	if p.NumWorkers < 1 {
		return runtime.NumCPU()
	}
	return p.NumWorkers
}

// ProcessPath converts the file or the immediate entries of the directory at
// path. Item failures are recorded in the report; only problems with path
// itself or the output directory are returned as errors. An empty directory
// yields errEmptyInput and no report.
func (p *Processor) ProcessPath(ctx context.Context, path string) (*Report, error) {
	items, err := p.resolveInput(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	report := newReport(path, p)
	timer := p.Console.StartTimer("Batch")

	report.Summary = p.runBatch(ctx, items, report)
	report.DurationMS = timer.End().Milliseconds()

	p.displayResults(report)

	return report, nil
}

func (p *Processor) resolveInput(path string) ([]WorkItem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path validation error: %w", err)
	}

	switch {
	case info.IsDir():
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("error reading directory: %w", err)
		}

		total := len(entries)
		if total == 0 {
			p.Console.Warn("No files found in the directory.")
			return nil, errEmptyInput
		}

		p.Console.Info("Processing folder: %s (%d files)", path, total)

		items := make([]WorkItem, 0, total)
		for i, entry := range entries {
			items = append(items, WorkItem{
				Path:  filepath.Join(path, entry.Name()),
				Index: i + 1,
				Total: total,
				IsDir: entry.IsDir(),
			})
		}
		return items, nil

	case info.Mode().IsRegular():
		p.Console.Info("Processing file: %s", path)
		return []WorkItem{{Path: path, Index: 1, Total: 1}}, nil

	default:
		return nil, errInvalidInput
	}
}

// runBatch converts items with at most p.workers() in flight and returns
// once every item has settled.
func (p *Processor) runBatch(ctx context.Context, items []WorkItem, report *Report) Summary {
	counters := NewRunCounters(len(items))
	bar := p.Console.NewProgressBar(int64(len(items)), "Converting images", p.ShowProgress)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(p.workers())

	for _, item := range items {
		g.Go(func() error {
			res := p.processItem(ctx, item)
			counters.Record(res.Status)

			mu.Lock()
			report.Items = append(report.Items, res)
			mu.Unlock()

			bar.Increment(1)
			return nil
		})
	}

	_ = g.Wait()
	bar.Complete()
	p.Console.Debug("batch settled", "settled", counters.Settled(), "total", len(items))

	report.sortItems()
	return counters.Snapshot()
}

func (p *Processor) processItem(ctx context.Context, item WorkItem) (res ItemResult) {
	start := time.Now()
	res = ItemResult{Index: item.Index, Source: item.Path}
	defer func() {
		res.DurationMS = time.Since(start).Milliseconds()
	}()

	if item.IsDir {
		p.Console.Warn("[%d/%d] Skipped (directory): %s", item.Index, item.Total, item.Path)
		res.Status, res.Reason = StatusSkipped, "directory"
		return res
	}

	if !codec.IsSupported(item.Path) {
		p.Console.Warn("[%d/%d] Skipped (unsupported): %s", item.Index, item.Total, item.Path)
		res.Status, res.Reason = StatusSkipped, "unsupported"
		return res
	}

	dst := p.Options.OutputPath(item.Path, p.OutputDir)

	if err := p.convert(ctx, item.Path, dst); err != nil {
		p.Console.Error("[%d/%d] Failed: %s – %v", item.Index, item.Total, filepath.Base(item.Path), err)
		res.Status, res.Err, res.Error = StatusFailed, err, err.Error()
		return res
	}

	p.Console.Success("[%d/%d] %s → %s", item.Index, item.Total, filepath.Base(item.Path), p.displayPath(dst))
	p.Console.Debug("converted", "source", item.Path, "elapsed", time.Since(start).Round(time.Millisecond))
	res.Status, res.Output = StatusProcessed, dst
	return res
}

// convert runs the converter under the per-item timeout. The call keeps its
// worker slot until it returns; the converter checks ctx between stages and
// before committing dst, so an item that fails on its deadline has no output.
func (p *Processor) convert(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	return p.Converter.Convert(ctx, src, dst)
}

func (p *Processor) displayPath(path string) string {
	if p.WorkDir == "" {
		return path
	}
	rel, err := filepath.Rel(p.WorkDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func (p *Processor) displayResults(report *Report) {
	s := report.Summary

	p.Console.Log("")
	p.Console.Log("📊 Summary:")
	p.Console.Log("   ✓ Processed: %d", s.Processed)
	p.Console.Log("   ⚠ Skipped:   %d", s.Skipped)
	p.Console.Log("   ✖ Failed:    %d", s.Failed)
	p.Console.Log("   📦 Output:    %s", report.OutputDir)

	failures := report.Failures()
	if len(failures) == 0 {
		return
	}

	table := p.Console.NewTable([]string{"#", "File", "Error"}).AlignRight(0)
	for _, f := range failures {
		table.AddRow(fmt.Sprintf("%d", f.Index), filepath.Base(f.Source), f.Error)
	}
	table.Print()
}
