package logger

import "time"

// Timer measures one named phase and reports it through its console.
type Timer struct {
	name    string
	start   time.Time
	console *Console
}

// End logs the elapsed time at debug level and returns it.
func (t *Timer) End() time.Duration {
	elapsed := time.Since(t.start)
	t.console.Debug(t.name+" completed", "elapsed", elapsed.Round(time.Millisecond))
	return elapsed
}
