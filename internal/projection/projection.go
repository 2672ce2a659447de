// Package projection maintains a queryable SQL read model of the ledger.
//
// A Projection is a ledger.Observer: every committed call upserts the
// property and agreement rows it wrote and, for rent payments, appends a
// payment row. The projection remembers the last journal seq it applied, so
// re-delivered commits (for example when a journal is replayed into it) are
// skipped and a projection can be rebuilt by replaying the journal.
package projection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
)

// Projection is the read model. Safe for concurrent use.
type Projection struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Option configures a Projection.
type Option func(*Projection)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Projection) { p.logger = logger }
}

// Open opens or creates the read model at path (":memory:" for an
// in-memory model) and migrates its tables.
func Open(path string, opts ...Option) (*Projection, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open projection: %w", err)
	}

	// One connection: an in-memory database exists per connection, and
	// SQLite allows one writer anyway.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open projection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate projection: %w", err)
	}

	p := &Projection{db: db}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p, nil
}

// Close releases the database.
func (p *Projection) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Committed applies one commit. Implements ledger.Observer.
func (p *Projection) Committed(ctx context.Context, c ledger.Commit) error {
	seq := c.Entry.Seq
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cursor, err := readCursor(tx)
		if err != nil {
			return err
		}
		if seq <= cursor {
			p.logger.Debug("commit already projected", "seq", seq, "cursor", cursor)
			return nil
		}
		if seq != cursor+1 {
			return fmt.Errorf("projection at seq %d cannot apply seq %d", cursor, seq)
		}

		for _, prop := range c.Properties {
			row := propertyRow(prop, seq)
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert property %d: %w", prop.ID, err)
			}
		}
		for _, a := range c.Agreements {
			row := agreementRow(a, seq)
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert agreement %d: %w", a.ID, err)
			}
		}

		if c.Entry.Op == ir.OpPayMonthlyRent && len(c.Agreements) == 1 {
			row := paymentRow(c.Entry, c.Agreements[0])
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert payment seq %d: %w", seq, err)
			}
		}

		return writeCursor(tx, seq)
	})
}

// Cursor returns the last journal seq applied, 0 for an empty projection.
func (p *Projection) Cursor(ctx context.Context) (int64, error) {
	return readCursor(p.db.WithContext(ctx))
}

func readCursor(tx *gorm.DB) (int64, error) {
	var c cursorRow
	err := tx.First(&c, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	return c.Seq, nil
}

func writeCursor(tx *gorm.DB, seq int64) error {
	c := cursorRow{ID: 1, Seq: seq}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&c).Error; err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return nil
}

func propertyRow(p ir.Property, seq int64) PropertyRow {
	return PropertyRow{
		ID:              uint64(p.ID),
		Owner:           string(p.Owner),
		Title:           p.Title,
		Description:     p.Description,
		MonthlyRent:     uint64(p.MonthlyRent),
		SecurityDeposit: uint64(p.SecurityDeposit),
		Active:          p.Active,
		RegisteredAt:    uint64(p.RegisteredAt),
		UpdatedSeq:      seq,
	}
}

func agreementRow(a ir.Agreement, seq int64) AgreementRow {
	return AgreementRow{
		ID:              uint64(a.ID),
		PropertyID:      uint64(a.PropertyID),
		Tenant:          string(a.Tenant),
		Owner:           string(a.Owner),
		StartBlock:      uint64(a.StartBlock),
		EndBlock:        uint64(a.EndBlock),
		MonthlyRent:     uint64(a.MonthlyRent),
		SecurityDeposit: uint64(a.SecurityDeposit),
		State:           string(a.State),
		Deposit:         string(a.Deposit),
		LastPaidPeriod:  a.LastPaidPeriod,
		OpenedHeight:    uint64(a.CreatedAt),
		ClosedHeight:    uint64(a.ClosedAt),
		UpdatedSeq:      seq,
	}
}

func paymentRow(e ir.Entry, a ir.Agreement) PaymentRow {
	period, _ := e.Result.Uint("period")
	completed, _ := e.Result.Bool("completed")
	return PaymentRow{
		Seq:         e.Seq,
		CallID:      e.CallID,
		AgreementID: uint64(a.ID),
		Tenant:      string(a.Tenant),
		Owner:       string(a.Owner),
		Period:      period,
		Amount:      uint64(a.MonthlyRent),
		Height:      uint64(e.Height),
		Completed:   completed,
	}
}
