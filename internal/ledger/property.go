package ledger

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/leasehold/internal/ir"
)

// RegisterProperty stores a new active property owned by the caller and
// returns its id. Any caller may register.
//
// Title and description are NFC-normalized before the bounds check.
func (l *Ledger) RegisterProperty(
	ctx context.Context,
	call Call,
	title, description string,
	monthlyRent, securityDeposit ir.Amount,
) (ir.PropertyID, error) {
	var id ir.PropertyID
	err := l.execute(ctx, ir.OpRegisterProperty, call, func(tx *txn) error {
		t, err := cleanText("title", title, l.policy.MaxTitleLength)
		if err != nil {
			return err
		}
		d, err := cleanText("description", description, l.policy.MaxDescriptionLength)
		if err != nil {
			return err
		}

		id = tx.ids.AllocateProperty()
		tx.putProperty(ir.Property{
			ID:              id,
			Owner:           call.Caller,
			Title:           t,
			Description:     d,
			MonthlyRent:     monthlyRent,
			SecurityDeposit: securityDeposit,
			Active:          true,
			RegisteredAt:    call.Height,
		})
		tx.args = ir.Object{
			"title":            t,
			"description":      d,
			"monthly_rent":     uint64(monthlyRent),
			"security_deposit": uint64(securityDeposit),
		}
		tx.result = ir.Object{"property_id": uint64(id)}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetPropertyActive opens or closes a property to new agreements. Only the
// owner may call it; an existing agreement is not affected.
func (l *Ledger) SetPropertyActive(ctx context.Context, call Call, id ir.PropertyID, active bool) error {
	return l.execute(ctx, ir.OpSetPropertyActive, call, func(tx *txn) error {
		p, ok := tx.property(id)
		if !ok {
			return newError(CodeNotFound, ErrPropertyNotFound, "property %d", id)
		}
		if p.Owner != call.Caller {
			return newError(CodeUnauthorized, ErrNotOwner, "property %d", id)
		}

		p.Active = active
		tx.putProperty(p)
		tx.args = ir.Object{"property_id": uint64(id), "active": active}
		tx.result = ir.Object{"property_id": uint64(id), "active": active}
		return nil
	})
}

// GetProperty looks up a property. Absence is not an error.
func (l *Ledger) GetProperty(id ir.PropertyID) (ir.Property, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.properties[id]
	return p, ok
}

func cleanText(field, s string, maxRunes int) (string, error) {
	if !utf8.ValidString(s) {
		return "", newError(CodeInvalidInput, nil, "%s is not valid UTF-8", field)
	}
	s = norm.NFC.String(s)
	if strings.TrimSpace(s) == "" {
		return "", newError(CodeInvalidInput, nil, "%s must not be empty", field)
	}
	if n := utf8.RuneCountInString(s); n > maxRunes {
		return "", newError(CodeInvalidInput, nil, "%s is %d characters, limit is %d", field, n, maxRunes)
	}
	return s, nil
}
