package config

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/algorand/go-deadlock"
)

// DefaultDeadlockThreshold is the default lock wait, in seconds, before a
// potential deadlock is reported.
const DefaultDeadlockThreshold = 30

// ConfigureDeadlock applies the deadlock settings to the process-wide
// go-deadlock options. Reports are logged at error level through logger and
// the process keeps running; the library default would exit.
func (c *Config) ConfigureDeadlock(logger *slog.Logger) {
	switch {
	case c.DeadlockDetection > 0:
		deadlock.Opts.Disable = false
	case c.DeadlockDetection < 0:
		deadlock.Opts.Disable = true
	}
	if !deadlock.Opts.Disable {
		deadlock.Opts.DeadlockTimeout = time.Second * time.Duration(c.DeadlockThreshold)
	}

	r := &deadlockReporter{logger: logger}
	deadlock.Opts.LogBuf = r
	deadlock.Opts.OnPotentialDeadlock = r.report
}

// deadlockReporter buffers the detector's report, which arrives as many
// writes, and logs it as one record.
type deadlockReporter struct {
	logger *slog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

func (r *deadlockReporter) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *deadlockReporter) report() {
	r.mu.Lock()
	text := strings.TrimSpace(r.buf.String())
	r.buf.Reset()
	r.mu.Unlock()

	r.logger.Error("potential deadlock",
		"threshold", deadlock.Opts.DeadlockTimeout,
		"report", text)
}
