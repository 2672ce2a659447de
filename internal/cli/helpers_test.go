package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leasehold/internal/harness"
)

const scenarioDir = "../harness/testdata/scenarios"

// writeJournal runs the two-properties scenario into a fresh journal and
// returns its path. The journal holds seven entries: two registrations,
// two agreements, two payments and one termination.
func writeJournal(t *testing.T) string {
	t.Helper()

	scenario, err := harness.LoadScenario(filepath.Join(scenarioDir, "two-properties.yaml"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "leasehold.db")
	result, err := harness.Run(scenario, harness.WithJournalPath(path))
	require.NoError(t, err)
	require.True(t, result.Pass, "fixture scenario failed: %v", result.Errors)
	return path
}

// copyScenario copies a scenario from the harness testdata into dir.
func copyScenario(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(scenarioDir, name+".yaml"))
	require.NoError(t, err)
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
