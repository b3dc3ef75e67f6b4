// Package ledger holds the quantity arithmetic for inventory transactions:
// which types add, which subtract, when a transaction is rejected and when
// the result clamps to the zero floor.
package ledger

import (
	"github.com/shopspring/decimal"

	"kukuyard-system/internal/apperr"
)

type Type string

const (
	TypePurchase    Type = "purchase"
	TypeUsage       Type = "usage"
	TypeAdjustment  Type = "adjustment"
	TypeWastage     Type = "wastage"
	TypeTransferIn  Type = "transfer_in"
	TypeTransferOut Type = "transfer_out"
)

func (t Type) Valid() bool {
	switch t {
	case TypePurchase, TypeUsage, TypeAdjustment, TypeWastage, TypeTransferIn, TypeTransferOut:
		return true
	}
	return false
}

// Inbound types add to the current quantity.
func (t Type) Inbound() bool {
	return t == TypePurchase || t == TypeTransferIn
}

// Outbound types subtract and are validated against sufficiency.
func (t Type) Outbound() bool {
	return t == TypeUsage || t == TypeWastage || t == TypeTransferOut
}

// Apply computes the item quantity after a transaction of the given type.
//
// Quantity must be positive for every type except adjustment, which takes a
// signed delta and skips the sufficiency check (the reconciliation escape
// hatch). Outbound types are rejected with ErrInsufficientQuantity when the
// quantity exceeds the current stock. Any residual negative result clamps to
// zero: a concurrent race can drift the ledger, and the clamp keeps the
// stored quantity non-negative rather than failing the transaction.
func Apply(current decimal.Decimal, t Type, quantity decimal.Decimal) (decimal.Decimal, error) {
	if !t.Valid() {
		return current, apperr.Validation("unknown transaction type %q", t)
	}

	if t == TypeAdjustment {
		if quantity.IsZero() {
			return current, apperr.Validation("adjustment quantity must be non-zero")
		}
		return floor(current.Add(quantity)), nil
	}

	if quantity.Sign() <= 0 {
		return current, apperr.Validation("quantity must be greater than 0")
	}

	if t.Inbound() {
		return current.Add(quantity), nil
	}

	if quantity.GreaterThan(current) {
		return current, apperr.ErrInsufficientQuantity
	}
	return floor(current.Sub(quantity)), nil
}

// TotalAmount is quantity x unit price, computed eagerly when a unit price
// accompanies the transaction.
func TotalAmount(quantity decimal.Decimal, unitPrice *decimal.Decimal) *decimal.Decimal {
	if unitPrice == nil {
		return nil
	}
	total := quantity.Abs().Mul(*unitPrice)
	return &total
}

// Magnitude is the unsigned quantity stored on the transaction record; the
// sign lives in the transaction type.
func Magnitude(quantity decimal.Decimal) decimal.Decimal {
	return quantity.Abs()
}

func floor(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}
