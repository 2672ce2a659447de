package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/leasehold/internal/bank"
	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
	"github.com/roach88/leasehold/internal/store"
	"github.com/roach88/leasehold/internal/testutil"
)

// Harness executes one scenario. It owns a fresh ledger, bank, journal and
// block clock so scenarios never share state.
type Harness struct {
	ledger  *ledger.Ledger
	bank    *bank.Bank
	journal *store.Store
	clock   *testutil.BlockClock
	policy  ledger.Policy
	logger  *slog.Logger
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	journalPath string
	observers   []ledger.Observer
	logger      *slog.Logger
}

// WithJournalPath writes the scenario journal to a SQLite file instead of
// an in-memory database. The file must not already hold entries.
func WithJournalPath(path string) Option {
	return func(c *runConfig) { c.journalPath = path }
}

// WithObserver registers an observer (a projection, typically) on the
// scenario ledger.
func WithObserver(o ledger.Observer) Option {
	return func(c *runConfig) { c.observers = append(c.observers, o) }
}

// WithLogger sets the logger passed to the ledger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) { c.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. open the journal and build the ledger with the scenario policy
// 2. fund the scenario accounts
// 3. run each step at its block height, recording a trace event
// 4. check final state expectations
// 5. replay the journal and require the same head hash
//
// Mismatches are reported in Result.Errors. An error is returned only when
// the scenario cannot be executed at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	cfg := runConfig{journalPath: ":memory:"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx := context.Background()

	journal, err := store.Open(cfg.journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	n, err := journal.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal entries: %w", err)
	}
	if n > 0 {
		return nil, fmt.Errorf("journal %s already holds %d entries", cfg.journalPath, n)
	}

	policy := scenario.Policy.Apply(ledger.DefaultPolicy())
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario policy: %w", err)
	}

	h := &Harness{
		bank:    bank.New(),
		journal: journal,
		clock:   testutil.NewBlockClock(0),
		policy:  policy,
		logger:  cfg.logger,
	}

	ledgerOpts := []ledger.Option{
		ledger.WithPolicy(policy),
		ledger.WithJournal(journal),
		ledger.WithCallIDGenerator(testutil.NewSequentialCallIDs("call")),
		ledger.WithLogger(cfg.logger),
		ledger.WithRegistry(prometheus.NewRegistry()),
	}
	for _, o := range cfg.observers {
		ledgerOpts = append(ledgerOpts, ledger.WithObserver(o))
	}
	h.ledger, err = ledger.New(h.bank, ledgerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	for name, amount := range scenario.Accounts {
		h.bank.Fund(ir.Principal(name), ir.Amount(amount))
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.executeStep(ctx, i+1, step)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, ev)
		checkStep(result, ev, step)
	}

	result.Balances = h.bank.Balances()
	result.HeadSeq, result.HeadHash = h.ledger.Head()

	EvaluateAssertions(result, h.ledger, h.bank, scenario.Expect)

	if err := h.verifyReplay(ctx, result); err != nil {
		return nil, err
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", result.Pass)
	return result, nil
}

// executeStep runs one step. A ledger error is a trace outcome, not a
// harness error; only journal read failures abort the run.
func (h *Harness) executeStep(ctx context.Context, n int, step Step) (TraceEvent, error) {
	height := h.clock.Advance(ir.Height(step.Advance))
	if step.Height != nil {
		height = ir.Height(*step.Height)
		// A step may deliberately run below the clock to exercise the
		// regression check; the clock itself never moves back.
		if height >= h.clock.Now() {
			if err := h.clock.Set(height); err != nil {
				return TraceEvent{}, err
			}
		}
	}

	call := ledger.Call{Caller: ir.Principal(step.Caller), Height: height}
	ev := TraceEvent{
		Step:   n,
		Op:     step.Op,
		Caller: call.Caller,
		Height: height,
		Args:   ir.Object(step.Args),
	}

	run := stepRunners[step.Op]
	beforeSeq, _ := h.ledger.Head()
	if err := run(ctx, h.ledger, call, ev.Args); err != nil {
		ev.Outcome = string(ledger.CodeOf(err))
		if ev.Outcome == "" {
			ev.Outcome = "ERROR"
		}
		ev.Error = err.Error()
		return ev, nil
	}

	seq, _ := h.ledger.Head()
	if seq == beforeSeq {
		return TraceEvent{}, fmt.Errorf("step %d: %s succeeded without a journal entry", n, step.Op)
	}
	entry, err := h.journal.ReadEntry(ctx, seq)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("step %d: failed to read journal entry %d: %w", n, seq, err)
	}

	ev.Outcome = OutcomeOK
	ev.Args = entry.Args
	ev.Result = entry.Result
	ev.Transfers = entry.Transfers
	ev.Seq = entry.Seq
	ev.CallID = entry.CallID
	return ev, nil
}

// verifyReplay rebuilds a ledger from the journal and requires the same head.
func (h *Harness) verifyReplay(ctx context.Context, result *Result) error {
	entries, err := h.journal.ReadEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	replayed, err := ledger.Replay(ctx, entries, nil, ledger.WithPolicy(h.policy))
	if err != nil {
		result.AddError(fmt.Sprintf("replay: %v", err))
		return nil
	}
	if seq, hash := replayed.Head(); seq != result.HeadSeq || hash != result.HeadHash {
		result.AddError(fmt.Sprintf("replay: head %d/%s, live ledger %d/%s", seq, hash, result.HeadSeq, result.HeadHash))
	}
	return nil
}

type stepFunc func(ctx context.Context, l *ledger.Ledger, call ledger.Call, args ir.Object) error

var stepRunners = map[string]stepFunc{
	ir.OpRegisterProperty:   runRegisterProperty,
	ir.OpSetPropertyActive:  runSetPropertyActive,
	ir.OpCreateAgreement:    runCreateAgreement,
	ir.OpPayMonthlyRent:     runPayMonthlyRent,
	ir.OpTerminateAgreement: runTerminateAgreement,
}

func runRegisterProperty(ctx context.Context, l *ledger.Ledger, call ledger.Call, args ir.Object) error {
	title, err := argString(args, "title")
	if err != nil {
		return err
	}
	desc, err := argString(args, "description")
	if err != nil {
		return err
	}
	rent, err := argUint(args, "monthly_rent")
	if err != nil {
		return err
	}
	deposit, err := argUint(args, "security_deposit")
	if err != nil {
		return err
	}
	_, err = l.RegisterProperty(ctx, call, title, desc, ir.Amount(rent), ir.Amount(deposit))
	return err
}

func runSetPropertyActive(ctx context.Context, l *ledger.Ledger, call ledger.Call, args ir.Object) error {
	id, err := argUint(args, "property_id")
	if err != nil {
		return err
	}
	active, ok := args.Bool("active")
	if !ok {
		return fmt.Errorf("arg active: expected bool, got %T", args["active"])
	}
	return l.SetPropertyActive(ctx, call, ir.PropertyID(id), active)
}

func runCreateAgreement(ctx context.Context, l *ledger.Ledger, call ledger.Call, args ir.Object) error {
	id, err := argUint(args, "property_id")
	if err != nil {
		return err
	}
	start, err := argUint(args, "start_block")
	if err != nil {
		return err
	}
	end, err := argUint(args, "end_block")
	if err != nil {
		return err
	}
	_, err = l.CreateAgreement(ctx, call, ir.PropertyID(id), ir.Height(start), ir.Height(end))
	return err
}

func runPayMonthlyRent(ctx context.Context, l *ledger.Ledger, call ledger.Call, args ir.Object) error {
	id, err := argUint(args, "agreement_id")
	if err != nil {
		return err
	}
	_, err = l.PayMonthlyRent(ctx, call, ir.AgreementID(id))
	return err
}

func runTerminateAgreement(ctx context.Context, l *ledger.Ledger, call ledger.Call, args ir.Object) error {
	id, err := argUint(args, "agreement_id")
	if err != nil {
		return err
	}
	return l.TerminateAgreement(ctx, call, ir.AgreementID(id))
}

func argUint(args ir.Object, key string) (uint64, error) {
	v, ok := args.Uint(key)
	if !ok {
		return 0, fmt.Errorf("arg %s: expected non-negative integer, got %T", key, args[key])
	}
	return v, nil
}

func argString(args ir.Object, key string) (string, error) {
	v, ok := args.String(key)
	if !ok {
		return "", fmt.Errorf("arg %s: expected string, got %T", key, args[key])
	}
	return v, nil
}
