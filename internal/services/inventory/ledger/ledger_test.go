package ledger

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kukuyard-system/internal/apperr"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		txType   Type
		quantity string
		want     string
		wantErr  error
	}{
		{name: "purchase adds", current: "5", txType: TypePurchase, quantity: "10", want: "15"},
		{name: "transfer_in adds", current: "0", txType: TypeTransferIn, quantity: "2.5", want: "2.5"},
		{name: "usage subtracts", current: "10", txType: TypeUsage, quantity: "4", want: "6"},
		{name: "wastage subtracts", current: "3", txType: TypeWastage, quantity: "3", want: "0"},
		{name: "transfer_out subtracts", current: "8", txType: TypeTransferOut, quantity: "1.25", want: "6.75"},
		{name: "usage beyond stock rejected", current: "5", txType: TypeUsage, quantity: "10", wantErr: apperr.ErrInsufficientQuantity},
		{name: "wastage beyond stock rejected", current: "0", txType: TypeWastage, quantity: "0.01", wantErr: apperr.ErrInsufficientQuantity},
		{name: "zero quantity rejected", current: "5", txType: TypePurchase, quantity: "0", wantErr: &apperr.ValidationError{}},
		{name: "negative quantity rejected", current: "5", txType: TypeUsage, quantity: "-1", wantErr: &apperr.ValidationError{}},
		{name: "adjustment positive", current: "5", txType: TypeAdjustment, quantity: "3", want: "8"},
		{name: "adjustment negative", current: "5", txType: TypeAdjustment, quantity: "-2", want: "3"},
		{name: "adjustment below zero clamps", current: "5", txType: TypeAdjustment, quantity: "-20", want: "0"},
		{name: "adjustment zero rejected", current: "5", txType: TypeAdjustment, quantity: "0", wantErr: &apperr.ValidationError{}},
		{name: "unknown type rejected", current: "5", txType: Type("loan"), quantity: "1", wantErr: &apperr.ValidationError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := dec(tt.current)
			got, err := Apply(current, tt.txType, dec(tt.quantity))

			if tt.wantErr != nil {
				require.Error(t, err)
				if tt.wantErr == apperr.ErrInsufficientQuantity {
					assert.ErrorIs(t, err, apperr.ErrInsufficientQuantity)
				} else {
					assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
				}
				// A rejected transaction performs no mutation.
				assert.True(t, got.Equal(current))
				return
			}

			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestTotalAmount(t *testing.T) {
	price := dec("2.0")
	total := TotalAmount(dec("10"), &price)
	require.NotNil(t, total)
	assert.True(t, total.Equal(dec("20.0")))

	// Unsigned even for signed adjustment deltas.
	total = TotalAmount(dec("-4"), &price)
	require.NotNil(t, total)
	assert.True(t, total.Equal(dec("8.0")))

	assert.Nil(t, TotalAmount(dec("10"), nil))
}

func TestMagnitude(t *testing.T) {
	assert.True(t, Magnitude(dec("-3.5")).Equal(dec("3.5")))
	assert.True(t, Magnitude(dec("3.5")).Equal(dec("3.5")))
}

// Simulates concurrent transactions against one item. Each goroutine holds
// the item lock for its read-modify-write, as the row lock does in the
// service; the quantity must never go negative and must reconcile with the
// sum of the accepted signed transactions.
func TestApplyConcurrentNeverNegative(t *testing.T) {
	var mu sync.Mutex
	current := dec("50")
	accepted := decimal.Zero

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		txType := TypeUsage
		if i%5 == 0 {
			txType = TypePurchase
		}
		go func(txType Type) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			next, err := Apply(current, txType, dec("3"))
			if err != nil {
				return
			}
			if txType.Inbound() {
				accepted = accepted.Add(dec("3"))
			} else {
				accepted = accepted.Sub(dec("3"))
			}
			current = next
		}(txType)
	}
	wg.Wait()

	assert.True(t, current.Sign() >= 0, "quantity went negative: %s", current)
	assert.True(t, current.Equal(dec("50").Add(accepted)),
		"quantity %s does not reconcile with signed sum %s", current, accepted)
}
