package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/leasehold/internal/ledger"
	"github.com/roach88/leasehold/internal/projection"
)

// ListOptions holds flags for the list commands.
type ListOptions struct {
	*RootOptions
	Projection string
	Database   string // when set, the projection is brought up to date first

	Owner      string
	Tenant     string
	State      string
	PropertyID uint64
	ActiveOnly bool
}

// NewListCommand creates the list command and its subcommands. Listings
// read the projection.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties, agreements or payments from the projection",
		Long: `List records from the projection database.

With --db the journal is verified and replayed into the projection first;
entries already applied are skipped.

Examples:
  leasehold list properties --projection ./view.db --owner alice
  leasehold list agreements --projection ./view.db --state active
  leasehold list payments 3 --projection ./view.db --db ./leasehold.db`,
	}

	cmd.PersistentFlags().StringVar(&opts.Projection, "projection", "", "path to the projection database (default from config)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "journal to sync the projection from before listing")

	properties := &cobra.Command{
		Use:           "properties",
		Short:         "List properties",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd, listProperties)
		},
	}
	properties.Flags().StringVar(&opts.Owner, "owner", "", "only properties of this owner")
	properties.Flags().BoolVar(&opts.ActiveOnly, "active", false, "only active properties")

	agreements := &cobra.Command{
		Use:           "agreements",
		Short:         "List agreements",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd, listAgreements)
		},
	}
	agreements.Flags().StringVar(&opts.Tenant, "tenant", "", "only agreements of this tenant")
	agreements.Flags().StringVar(&opts.State, "state", "", "only agreements in this state (active|completed|terminated)")
	agreements.Flags().Uint64Var(&opts.PropertyID, "property", 0, "only agreements on this property")

	payments := &cobra.Command{
		Use:           "payments <agreement-id>",
		Short:         "List rent payments of an agreement",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("agreement", args[0])
			if err != nil {
				return err
			}
			return runList(opts, cmd, func(ctx context.Context, p *projection.Projection, _ *ListOptions, out *OutputFormatter) error {
				return listPayments(ctx, p, id, out)
			})
		},
	}

	cmd.AddCommand(properties, agreements, payments)
	return cmd
}

type listFunc func(ctx context.Context, p *projection.Projection, opts *ListOptions, out *OutputFormatter) error

func runList(opts *ListOptions, cmd *cobra.Command, list listFunc) error {
	ctx := context.Background()

	path := opts.Projection
	if path == "" {
		path = opts.config().ProjectionPath
	}

	proj, err := projection.Open(path, projection.WithLogger(opts.logger()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open projection", err)
	}
	defer proj.Close()

	if opts.Database != "" {
		if err := syncProjection(ctx, opts.RootOptions, opts.Database, proj); err != nil {
			return err
		}
	}

	return list(ctx, proj, opts, newFormatter(opts.RootOptions, cmd))
}

// syncProjection replays the journal with the projection as observer.
func syncProjection(ctx context.Context, opts *RootOptions, journalPath string, proj *projection.Projection) error {
	st, err := openJournal(journalPath)
	if err != nil {
		return err
	}
	defer st.Close()

	_, _, err = loadLedger(ctx, opts, st, ledger.WithObserver(proj))
	return err
}

func listProperties(ctx context.Context, p *projection.Projection, opts *ListOptions, out *OutputFormatter) error {
	rows, err := p.Properties(ctx, projection.PropertyFilter{Owner: opts.Owner, ActiveOnly: opts.ActiveOnly})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list properties", err)
	}
	if out.Format == "json" {
		return out.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out.Writer, "No properties found.")
		return nil
	}
	tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tTITLE\tRENT\tDEPOSIT\tACTIVE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%t\n", r.ID, r.Owner, r.Title, r.MonthlyRent, r.SecurityDeposit, r.Active)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if opts.Owner != "" {
		collected, err := p.RentCollected(ctx, opts.Owner)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to sum rent", err)
		}
		fmt.Fprintf(out.Writer, "Rent collected by %s: %d\n", opts.Owner, collected)
	}
	return nil
}

func listAgreements(ctx context.Context, p *projection.Projection, opts *ListOptions, out *OutputFormatter) error {
	rows, err := p.Agreements(ctx, projection.AgreementFilter{
		PropertyID: opts.PropertyID,
		Tenant:     opts.Tenant,
		State:      opts.State,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list agreements", err)
	}
	if out.Format == "json" {
		return out.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out.Writer, "No agreements found.")
		return nil
	}
	tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROPERTY\tTENANT\tWINDOW\tSTATE\tPAID\tDEPOSIT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%s\t[%d, %d)\t%s\t%d\t%s\n",
			r.ID, r.PropertyID, r.Tenant, r.StartBlock, r.EndBlock, r.State, r.LastPaidPeriod, r.Deposit)
	}
	return tw.Flush()
}

func listPayments(ctx context.Context, p *projection.Projection, agreementID uint64, out *OutputFormatter) error {
	rows, err := p.Payments(ctx, agreementID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list payments", err)
	}
	if out.Format == "json" {
		return out.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintf(out.Writer, "No payments for agreement %d.\n", agreementID)
		return nil
	}
	tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tPERIOD\tAMOUNT\tHEIGHT\tCALL")
	var total uint64
	for _, r := range rows {
		total += r.Amount
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\n", r.Seq, r.Period, r.Amount, r.Height, r.CallID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "Total: %d over %d payment(s)\n", total, len(rows))
	return nil
}
