package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"webpix/codec"

	"github.com/google/uuid"
)

type ItemResult struct {
	Index      int        `json:"index"`
	Source     string     `json:"source"`
	Output     string     `json:"output,omitempty"`
	Status     ItemStatus `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	Error      string     `json:"error,omitempty"`
	DurationMS int64      `json:"duration_ms"`

	Err error `json:"-"`
}

// Report is the structured outcome of one run.
type Report struct {
	RunID      string       `json:"run_id"`
	Input      string       `json:"input"`
	OutputDir  string       `json:"output_dir"`
	Format     codec.Format `json:"format"`
	Quality    int          `json:"quality"`
	MaxWidth   int          `json:"max_width"`
	Workers    int          `json:"workers"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMS int64        `json:"duration_ms"`
	Summary    Summary      `json:"summary"`
	Items      []ItemResult `json:"items"`
}

func newReport(input string, p *Processor) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Input:     input,
		OutputDir: p.OutputDir,
		Format:    p.Options.Format,
		Quality:   p.Options.Quality,
		MaxWidth:  p.Options.MaxWidth,
		Workers:   p.workers(),
		StartedAt: time.Now(),
	}
}

func (r *Report) sortItems() {
	sort.Slice(r.Items, func(i, j int) bool {
		return r.Items[i].Index < r.Items[j].Index
	})
}

func (r *Report) Failures() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			out = append(out, it)
		}
	}
	return out
}

func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}
