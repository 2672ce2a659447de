package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
}

// VerifyResult summarizes a verified journal.
type VerifyResult struct {
	Database   string         `json:"database"`
	Version    string         `json:"version"`
	Entries    int64          `json:"entries"`
	LastSeq    int64          `json:"last_seq"`
	Head       string         `json:"head"`
	Heights    [2]ir.Height   `json:"heights"`
	Ops        map[string]int `json:"ops"`
	Properties int            `json:"properties"`
	Agreements int            `json:"agreements"`
	Active     int            `json:"active_agreements"`
	Verified   bool           `json:"verified"`
	BrokenAt   int64          `json:"broken_at,omitempty"`
	Divergence string         `json:"divergence,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the journal hash chain and replay it",
		Long: `Verify the journal and replay it from the first entry.

The hash chain is checked first, then every entry is re-executed under the
configured policy and must reproduce its recorded hash.

Exit codes:
  0 - Journal verified and replayed
  1 - Chain broken or replay diverged
  2 - Command error (database not found, etc.)

Examples:
  leasehold verify --db ./leasehold.db
  leasehold verify --db ./leasehold.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (default from config)")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(opts.RootOptions, cmd)

	path := opts.Database
	if path == "" {
		path = opts.config().JournalPath
	}

	st, err := openJournal(path)
	if err != nil {
		return err
	}
	defer st.Close()

	l, state, err := loadLedger(ctx, opts.RootOptions, st)
	result := VerifyResult{
		Database: path,
		Version:  state.Version,
		Entries:  state.Entries,
		LastSeq:  state.LastSeq,
		Head:     state.Head,
		Heights:  state.Heights,
		Ops:      state.Ops,
		BrokenAt: state.BrokenAt,
	}

	if err != nil {
		var de *ledger.DivergenceError
		if errors.As(err, &de) {
			result.Divergence = de.Error()
		}
		if GetExitCode(err) != ExitFailure {
			return err
		}
		return reportVerifyFailure(out, result, err)
	}

	result.Verified = true
	result.Properties = len(l.Properties())
	for _, a := range l.Agreements() {
		result.Agreements++
		if a.State == ir.StateActive {
			result.Active++
		}
	}

	if opts.Format == "json" {
		return out.Result("ok", result, nil)
	}
	return outputVerifyText(out, result)
}

func reportVerifyFailure(out *OutputFormatter, result VerifyResult, err error) error {
	code := ErrCodeChainBroken
	if result.Divergence != "" {
		code = ErrCodeDivergence
	}

	if out.Format == "json" {
		if encErr := out.Result("error", result, &CLIError{Code: code, Message: err.Error()}); encErr != nil {
			return encErr
		}
		return err
	}

	fmt.Fprintf(out.Writer, "Journal: %s\n", result.Database)
	fmt.Fprintf(out.Writer, "Entries: %d\n", result.Entries)
	fmt.Fprintf(out.Writer, "✗ %v\n", err)
	return err
}

func outputVerifyText(out *OutputFormatter, result VerifyResult) error {
	w := out.Writer

	fmt.Fprintf(w, "Journal: %s (format %s)\n", result.Database, result.Version)
	fmt.Fprintf(w, "Entries: %d, last seq %d\n", result.Entries, result.LastSeq)
	if result.Entries > 0 {
		fmt.Fprintf(w, "Heights: %d..%d\n", result.Heights[0], result.Heights[1])
		fmt.Fprintf(w, "Head:    %s\n", result.Head)
	}

	if len(result.Ops) > 0 {
		fmt.Fprintln(w, "Operations:")
		for _, op := range slices.Sorted(maps.Keys(result.Ops)) {
			fmt.Fprintf(w, "  %-22s %d\n", op, result.Ops[op])
		}
	}

	fmt.Fprintf(w, "Properties: %d, agreements: %d (%d active)\n", result.Properties, result.Agreements, result.Active)
	fmt.Fprintln(w, "✓ Journal verified")
	out.VerboseLog("replayed %d entries to head %s", result.Entries, result.Head)
	return nil
}
