package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreDeadlockOpts puts the process-wide detector options back after the test.
func restoreDeadlockOpts(t *testing.T) {
	t.Helper()
	saved := deadlock.Opts
	t.Cleanup(func() { deadlock.Opts = saved })
}

func TestConfigureDeadlock_Modes(t *testing.T) {
	tests := []struct {
		name        string
		detection   int
		threshold   int
		wantDisable bool
		wantTimeout time.Duration
	}{
		{"default keeps detection on", 0, 45, false, 45 * time.Second},
		{"enabled", 1, 120, false, 120 * time.Second},
		{"disabled", -1, 0, true, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreDeadlockOpts(t)
			deadlock.Opts.Disable = false
			deadlock.Opts.DeadlockTimeout = time.Minute

			cfg := Default()
			cfg.DeadlockDetection = tt.detection
			cfg.DeadlockThreshold = tt.threshold
			require.NoError(t, cfg.Validate())

			cfg.ConfigureDeadlock(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
			assert.Equal(t, tt.wantDisable, deadlock.Opts.Disable)
			assert.Equal(t, tt.wantTimeout, deadlock.Opts.DeadlockTimeout)
		})
	}
}

func TestConfigureDeadlock_ReportsToLogger(t *testing.T) {
	restoreDeadlockOpts(t)

	var logs bytes.Buffer
	Default().ConfigureDeadlock(slog.New(slog.NewTextHandler(&logs, nil)))

	fmt.Fprintln(deadlock.Opts.LogBuf, "POTENTIAL DEADLOCK:")
	fmt.Fprintln(deadlock.Opts.LogBuf, "goroutine 7 lock 0xc000010000")
	deadlock.Opts.OnPotentialDeadlock()

	out := logs.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "msg=\"potential deadlock\"")
	assert.Contains(t, out, "goroutine 7 lock 0xc000010000")
	assert.Contains(t, out, "threshold=30s")

	// The buffer is drained after each report.
	logs.Reset()
	deadlock.Opts.OnPotentialDeadlock()
	assert.Contains(t, logs.String(), "msg=\"potential deadlock\"")
	assert.NotContains(t, logs.String(), "goroutine 7")
}

func TestValidate_DeadlockThreshold(t *testing.T) {
	cfg := Default()
	cfg.DeadlockThreshold = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlockThreshold")

	cfg.DeadlockDetection = -1
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DeadlockSettings(t *testing.T) {
	chdir(t)
	t.Setenv("LEASEHOLD_DEADLOCK_DETECTION", "-1")
	t.Setenv("LEASEHOLD_DEADLOCK_THRESHOLD", "90")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.DeadlockDetection)
	assert.Equal(t, 90, cfg.DeadlockThreshold)
}
