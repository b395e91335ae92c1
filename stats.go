package main

import "sync/atomic"

type ItemStatus string

const (
	StatusProcessed ItemStatus = "processed"
	StatusSkipped   ItemStatus = "skipped"
	StatusFailed    ItemStatus = "failed"
)

// RunCounters tracks how many items of one batch have settled. Every
// dispatched item records exactly one status, so once the batch has been
// joined Processed+Skipped+Failed equals Total.
type RunCounters struct {
	total     atomic.Int64
	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func NewRunCounters(total int) *RunCounters {
	c := &RunCounters{}
	c.total.Store(int64(total))
	return c
}

func (c *RunCounters) Record(status ItemStatus) {
	switch status {
	case StatusProcessed:
		c.processed.Add(1)
	case StatusSkipped:
		c.skipped.Add(1)
	default:
		c.failed.Add(1)
	}
}

func (c *RunCounters) Settled() int64 {
	return c.processed.Load() + c.skipped.Load() + c.failed.Load()
}

type Summary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (c *RunCounters) Snapshot() Summary {
	return Summary{
		Total:     int(c.total.Load()),
		Processed: int(c.processed.Load()),
		Skipped:   int(c.skipped.Load()),
		Failed:    int(c.failed.Load()),
	}
}
