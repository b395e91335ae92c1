package logger

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar renders batch progress on a terminal. A hidden bar accepts
// every call and draws nothing.
type ProgressBar struct {
	bar     *progressbar.ProgressBar
	visible bool
}

func NewProgressBar(total int64, label string, out io.Writer, visible bool) *ProgressBar {
	if !visible || total <= 0 {
		return &ProgressBar{}
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	return &ProgressBar{bar: bar, visible: true}
}

func (p *ProgressBar) Increment(amount int) {
	if p == nil || !p.visible {
		return
	}
	_ = p.bar.Add(amount)
}

func (p *ProgressBar) Complete() {
	if p == nil || !p.visible {
		return
	}
	_ = p.bar.Finish()
}
