package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "golden-rent-cycle.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_OmitsVolatileFields(t *testing.T) {
	s := rentScenario()
	s.Steps[2].Caller = "carol"

	result, err := Run(s)
	require.NoError(t, err)

	snap, err := Snapshot(s.Name, result)
	require.NoError(t, err)

	out := string(snap)
	assert.Contains(t, out, `"outcome": "UNAUTHORIZED"`)
	assert.NotContains(t, out, "hash")
	assert.NotContains(t, out, result.Trace[2].Error)
	assert.Contains(t, out, `"scenario_name": "rent"`)
}

func TestSnapshot_Stable(t *testing.T) {
	first, err := Run(rentScenario())
	require.NoError(t, err)
	second, err := Run(rentScenario())
	require.NoError(t, err)

	a, err := Snapshot("rent", first)
	require.NoError(t, err)
	b, err := Snapshot("rent", second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
