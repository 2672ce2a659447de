package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/algorand/go-deadlock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/leasehold/internal/ir"
)

// Call is the implicit context of a mutating call: who is calling and the
// block height the environment supplied. Height is read once per call.
type Call struct {
	Caller ir.Principal
	Height ir.Height
}

// Ledger is the rental-agreement state machine.
//
// Every public method runs to completion under one mutex: the id counters,
// the property binding check and the period check can never interleave.
// Observers run after the mutex is released, still in commit order.
// They may call read methods but must not call mutating methods.
//
// INVARIANTS:
//   - ids are allocated only by committing calls
//   - at most one active agreement per property (active index)
//   - a failed call leaves every field untouched
type Ledger struct {
	mu deadlock.Mutex

	notifyMu   deadlock.Mutex
	notifyCond *sync.Cond
	notified   int64 // seq of the last commit handed to observers

	policy  Policy
	deposit DepositPolicy

	ids        Allocator
	properties map[ir.PropertyID]ir.Property
	agreements map[ir.AgreementID]ir.Agreement
	active     map[ir.PropertyID]ir.AgreementID

	height ir.Height // highest height committed so far
	seq    *Sequence
	head   string // hash of the last journal entry

	transfers Transferer
	journal   Journal
	observers []Observer
	callIDs   CallIDGenerator

	logger  *slog.Logger
	metrics *metrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPolicy replaces the default policy.
func WithPolicy(p Policy) Option {
	return func(l *Ledger) { l.policy = p }
}

// WithJournal records every committed call in j.
func WithJournal(j Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithObserver adds an observer notified after each commit.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, o) }
}

// WithCallIDGenerator overrides the UUIDv7 call id generator.
func WithCallIDGenerator(g CallIDGenerator) Option {
	return func(l *Ledger) { l.callIDs = g }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithRegistry registers ledger metrics with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(l *Ledger) { l.metrics = newMetrics(reg) }
}

// New creates an empty ledger that moves funds through t.
func New(t Transferer, opts ...Option) (*Ledger, error) {
	if t == nil {
		return nil, fmt.Errorf("transferer is required")
	}

	l := &Ledger{
		policy:     DefaultPolicy(),
		ids:        NewAllocator(),
		properties: make(map[ir.PropertyID]ir.Property),
		agreements: make(map[ir.AgreementID]ir.Agreement),
		active:     make(map[ir.PropertyID]ir.AgreementID),
		seq:        NewSequence(),
		transfers:  t,
		callIDs:    UUIDv7Generator{},
	}
	l.notifyCond = sync.NewCond(&l.notifyMu)
	for _, opt := range opts {
		opt(l)
	}

	if err := l.policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	l.deposit, _ = LookupDepositPolicy(l.policy.DepositPolicy)

	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if l.metrics == nil {
		l.metrics = newMetrics(nil)
	}
	return l, nil
}

// Policy returns the policy in force.
func (l *Ledger) Policy() Policy {
	return l.policy
}

// Head returns the sequence number and hash of the last journal entry.
func (l *Ledger) Head() (int64, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq.Current(), l.head
}

// Height returns the highest block height committed so far.
func (l *Ledger) Height() ir.Height {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// txn stages the effects of one call. Nothing reaches the ledger until commit.
type txn struct {
	l         *Ledger
	op        string
	call      Call
	ids       Allocator
	args      ir.Object
	result    ir.Object
	transfers []ir.Transfer

	properties []ir.Property
	agreements []ir.Agreement
}

func (tx *txn) property(id ir.PropertyID) (ir.Property, bool) {
	for i := len(tx.properties) - 1; i >= 0; i-- {
		if tx.properties[i].ID == id {
			return tx.properties[i], true
		}
	}
	p, ok := tx.l.properties[id]
	return p, ok
}

func (tx *txn) agreement(id ir.AgreementID) (ir.Agreement, bool) {
	for i := len(tx.agreements) - 1; i >= 0; i-- {
		if tx.agreements[i].ID == id {
			return tx.agreements[i], true
		}
	}
	a, ok := tx.l.agreements[id]
	return a, ok
}

func (tx *txn) putProperty(p ir.Property)   { tx.properties = append(tx.properties, p) }
func (tx *txn) putAgreement(a ir.Agreement) { tx.agreements = append(tx.agreements, a) }

// transfer queues a fund movement. Zero amounts are dropped.
func (tx *txn) transfer(from, to ir.Principal, amount ir.Amount) {
	if amount == 0 {
		return
	}
	tx.transfers = append(tx.transfers, ir.Transfer{From: from, To: to, Amount: amount})
}

// execute runs fn as one atomic call.
func (l *Ledger) execute(ctx context.Context, op string, call Call, fn func(tx *txn) error) error {
	l.mu.Lock()

	c, err := l.run(ctx, op, call, fn)
	l.metrics.calls.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		l.mu.Unlock()
		l.logger.Debug("call rejected",
			"op", op,
			"caller", call.Caller,
			"height", call.Height,
			"error", err,
		)
		return err
	}

	// Observers see commits in seq order. l.mu is released first so an
	// observer may read the ledger while later calls wait their turn here.
	l.mu.Unlock()
	l.notifyMu.Lock()
	for l.notified != c.Entry.Seq-1 {
		l.notifyCond.Wait()
	}
	defer func() {
		l.notified = c.Entry.Seq
		l.notifyCond.Broadcast()
		l.notifyMu.Unlock()
	}()

	l.logger.Info("call committed",
		"op", op,
		"seq", c.Entry.Seq,
		"caller", call.Caller,
		"height", call.Height,
		"call_id", c.Entry.CallID,
	)
	for _, o := range l.observers {
		if err := o.Committed(ctx, c); err != nil {
			l.logger.Error("observer failed",
				"op", op,
				"seq", c.Entry.Seq,
				"error", err,
			)
		}
	}
	return nil
}

// run validates, stages and commits. Caller holds l.mu.
func (l *Ledger) run(ctx context.Context, op string, call Call, fn func(tx *txn) error) (Commit, error) {
	if err := l.checkCall(call); err != nil {
		return Commit{}, withOp(err, op)
	}

	tx := &txn{l: l, op: op, call: call, ids: l.ids}
	if err := fn(tx); err != nil {
		return Commit{}, withOp(err, op)
	}

	if err := ctx.Err(); err != nil {
		return Commit{}, err
	}

	if len(tx.transfers) > 0 {
		if err := l.transfers.Transfer(ctx, tx.transfers...); err != nil {
			return Commit{}, withOp(newError(CodeTransferFailed, err, "transfer declined"), op)
		}
	}

	entry, err := ir.Seal(ir.Entry{
		Seq:       l.seq.Current() + 1,
		CallID:    l.callIDs.Generate(),
		Op:        op,
		Caller:    call.Caller,
		Height:    call.Height,
		Args:      tx.args,
		Result:    tx.result,
		Transfers: tx.transfers,
		PrevHash:  l.head,
	})
	if err == nil && l.journal != nil {
		err = l.journal.Append(ctx, entry)
	}
	if err != nil {
		l.compensate(tx.transfers)
		return Commit{}, withOp(newError(CodeStorage, err, "journal append failed"), op)
	}

	l.apply(tx, entry)
	return Commit{Entry: entry, Properties: tx.properties, Agreements: tx.agreements}, nil
}

// compensate reverses transfers that went through before the journal failed.
func (l *Ledger) compensate(transfers []ir.Transfer) {
	if len(transfers) == 0 {
		return
	}
	reversed := make([]ir.Transfer, len(transfers))
	for i, t := range transfers {
		reversed[len(transfers)-1-i] = ir.Transfer{From: t.To, To: t.From, Amount: t.Amount}
	}
	if err := l.transfers.Transfer(context.Background(), reversed...); err != nil {
		l.logger.Error("compensating transfer failed", "transfers", reversed, "error", err)
	}
}

// apply commits staged records. Caller holds l.mu.
func (l *Ledger) apply(tx *txn, entry ir.Entry) {
	l.ids = tx.ids
	for _, p := range tx.properties {
		l.properties[p.ID] = p
	}
	for _, a := range tx.agreements {
		prev, existed := l.agreements[a.ID]
		l.agreements[a.ID] = a

		switch {
		case a.State == ir.StateActive:
			l.active[a.PropertyID] = a.ID
			if !existed {
				l.metrics.agreementsActive.Inc()
			}
		case l.active[a.PropertyID] == a.ID:
			delete(l.active, a.PropertyID)
			l.metrics.agreementsActive.Dec()
		}

		if !existed && a.DepositPaid {
			l.metrics.depositsEscrowed.Add(float64(a.SecurityDeposit))
		}
		if existed && prev.Deposit == ir.DepositHeld && a.Deposit != ir.DepositHeld {
			l.metrics.depositsEscrowed.Sub(float64(a.SecurityDeposit))
		}
	}

	l.seq.Next()
	l.head = entry.Hash
	l.height = tx.call.Height
	l.metrics.journalSeq.Set(float64(entry.Seq))
}

func (l *Ledger) checkCall(call Call) error {
	if call.Caller == "" {
		return newError(CodeInvalidInput, ErrEmptyCaller, "")
	}
	if call.Height < l.height {
		return newError(CodeInvalidInput, ErrClockRegression, "height %d is below %d", call.Height, l.height)
	}
	return nil
}

func withOp(err error, op string) error {
	var le *Error
	if errors.As(err, &le) && le.Op == "" {
		le.Op = op
	}
	return err
}

// Properties returns every property ordered by id.
func (l *Ledger) Properties() []ir.Property {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ir.Property, 0, len(l.properties))
	for _, p := range l.properties {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b ir.Property) int { return cmpID(a.ID, b.ID) })
	return out
}

// Agreements returns every agreement ordered by id.
func (l *Ledger) Agreements() []ir.Agreement {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ir.Agreement, 0, len(l.agreements))
	for _, a := range l.agreements {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b ir.Agreement) int { return cmpID(a.ID, b.ID) })
	return out
}

func cmpID[T ~uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
