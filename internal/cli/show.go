package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
	"github.com/roach88/leasehold/internal/store"
)

// ShowOptions holds flags for the show commands.
type ShowOptions struct {
	*RootOptions
	Database string
	Height   uint64 // rent status height; 0 means the last committed height
}

// AgreementView is an agreement with its rent position and payment history.
type AgreementView struct {
	ir.Agreement
	Rent     ledger.RentStatus `json:"rent"`
	Payments []PaymentView     `json:"payments"`
}

// PaymentView is one journaled rent payment.
type PaymentView struct {
	Seq       int64     `json:"seq"`
	CallID    string    `json:"call_id"`
	Period    uint64    `json:"period"`
	Amount    ir.Amount `json:"amount"`
	Height    ir.Height `json:"height"`
	Completed bool      `json:"completed"`
}

// NewShowCommand creates the show command and its property and agreement
// subcommands. Records are rebuilt by replaying the journal.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one property or agreement from the journal",
		Long: `Show a property or an agreement as recorded by the journal.

The journal is verified and replayed first, so the output reflects the
authoritative state rather than the projection.

Examples:
  leasehold show property 1 --db ./leasehold.db
  leasehold show agreement 3 --db ./leasehold.db --height 500`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the journal database (default from config)")

	property := &cobra.Command{
		Use:           "property <id>",
		Short:         "Show a property",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowProperty(opts, cmd, args[0])
		},
	}

	agreement := &cobra.Command{
		Use:           "agreement <id>",
		Short:         "Show an agreement and its rent status",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowAgreement(opts, cmd, args[0])
		},
	}
	agreement.Flags().Uint64Var(&opts.Height, "height", 0, "block height for the rent status (default: last committed)")

	cmd.AddCommand(property, agreement)
	return cmd
}

func parseID(kind, arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", kind, arg))
	}
	return id, nil
}

func (o *ShowOptions) openLedger(ctx context.Context) (*ledger.Ledger, *store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.config().JournalPath
	}
	st, err := openJournal(path)
	if err != nil {
		return nil, nil, err
	}
	l, _, err := loadLedger(ctx, o.RootOptions, st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return l, st, nil
}

// agreementPayments reads the payments of agreement a from the journal.
func agreementPayments(ctx context.Context, st *store.Store, a ir.Agreement) ([]PaymentView, error) {
	entries, err := st.ReadEntriesByOp(ctx, ir.OpPayMonthlyRent)
	if err != nil {
		return nil, err
	}

	payments := []PaymentView{}
	for _, e := range entries {
		if id, ok := e.Args.Uint("agreement_id"); !ok || ir.AgreementID(id) != a.ID {
			continue
		}
		period, _ := e.Result.Uint("period")
		completed, _ := e.Result.Bool("completed")
		amount := a.MonthlyRent
		if len(e.Transfers) > 0 {
			amount = e.Transfers[0].Amount
		}
		payments = append(payments, PaymentView{
			Seq:       e.Seq,
			CallID:    e.CallID,
			Period:    period,
			Amount:    amount,
			Height:    e.Height,
			Completed: completed,
		})
	}
	return payments, nil
}

func runShowProperty(opts *ShowOptions, cmd *cobra.Command, arg string) error {
	id, err := parseID("property", arg)
	if err != nil {
		return err
	}

	l, st, err := opts.openLedger(context.Background())
	if err != nil {
		return err
	}
	defer st.Close()

	out := newFormatter(opts.RootOptions, cmd)
	p, ok := l.GetProperty(ir.PropertyID(id))
	if !ok {
		if opts.Format == "json" {
			_ = out.Error(ErrCodeNotFound, fmt.Sprintf("property %d not found", id), nil)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("property %d not found", id))
	}

	if opts.Format == "json" {
		return out.Success(p)
	}

	w := out.Writer
	fmt.Fprintf(w, "Property %d: %s\n", p.ID, p.Title)
	fmt.Fprintf(w, "  Owner:       %s\n", p.Owner)
	fmt.Fprintf(w, "  Description: %s\n", p.Description)
	fmt.Fprintf(w, "  Rent:        %d\n", p.MonthlyRent)
	fmt.Fprintf(w, "  Deposit:     %d\n", p.SecurityDeposit)
	fmt.Fprintf(w, "  Active:      %t\n", p.Active)
	fmt.Fprintf(w, "  Registered:  %d\n", p.RegisteredAt)
	if a, ok := l.ActiveAgreement(p.ID); ok {
		fmt.Fprintf(w, "  Rented by:   %s (agreement %d)\n", a.Tenant, a.ID)
	}
	return nil
}

func runShowAgreement(opts *ShowOptions, cmd *cobra.Command, arg string) error {
	id, err := parseID("agreement", arg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	l, st, err := opts.openLedger(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := newFormatter(opts.RootOptions, cmd)
	height := ir.Height(opts.Height)
	if height == 0 {
		height = l.Height()
	}
	status, err := l.RentStatus(ir.AgreementID(id), height)
	if ledger.IsNotFound(err) {
		if opts.Format == "json" {
			_ = out.Error(ErrCodeNotFound, fmt.Sprintf("agreement %d not found", id), nil)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("agreement %d not found", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute rent status", err)
	}
	a, _ := l.GetAgreement(ir.AgreementID(id))

	payments, err := agreementPayments(ctx, st, a)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read payments", err)
	}

	if opts.Format == "json" {
		return out.Success(AgreementView{Agreement: a, Rent: status, Payments: payments})
	}

	w := out.Writer
	fmt.Fprintf(w, "Agreement %d on property %d: %s\n", a.ID, a.PropertyID, a.State)
	fmt.Fprintf(w, "  Tenant:   %s\n", a.Tenant)
	fmt.Fprintf(w, "  Owner:    %s\n", a.Owner)
	fmt.Fprintf(w, "  Window:   [%d, %d)\n", a.StartBlock, a.EndBlock)
	fmt.Fprintf(w, "  Rent:     %d per period\n", a.MonthlyRent)
	fmt.Fprintf(w, "  Deposit:  %d (%s)\n", a.SecurityDeposit, a.Deposit)
	fmt.Fprintf(w, "  Paid:     %d of %d periods\n", status.Paid, status.Periods)
	fmt.Fprintf(w, "  At %d:    %d due, %d overdue\n", status.Height, status.Due, status.Overdue)
	if status.NextDueAt != 0 {
		fmt.Fprintf(w, "  Next due: %d\n", status.NextDueAt)
	}
	if len(payments) > 0 {
		fmt.Fprintln(w, "  Payments:")
		for _, p := range payments {
			fmt.Fprintf(w, "    period %d: %d at %d (seq %d, %s)\n", p.Period, p.Amount, p.Height, p.Seq, p.CallID)
		}
	}
	return nil
}
