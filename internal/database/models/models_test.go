package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBatchAgeDays(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	batch := Batch{StartDate: start}

	assert.Equal(t, 10, batch.AgeDays(start.AddDate(0, 0, 10)))
	assert.Equal(t, 0, batch.AgeDays(start))

	// A future start date never yields a negative age.
	assert.Equal(t, 0, batch.AgeDays(start.AddDate(0, 0, -5)))

	assert.Equal(t, 0, (&Batch{}).AgeDays(time.Now()))
}

func TestInventoryItemNeedsRestock(t *testing.T) {
	item := InventoryItem{
		CurrentQuantity: decimal.NewFromInt(5),
		MinimumQuantity: decimal.NewFromInt(10),
	}
	assert.True(t, item.NeedsRestock())

	item.CurrentQuantity = decimal.NewFromInt(10)
	assert.True(t, item.NeedsRestock())

	item.CurrentQuantity = decimal.NewFromInt(11)
	assert.False(t, item.NeedsRestock())
}

func TestSubscriptionIsValid(t *testing.T) {
	now := time.Now()

	sub := Subscription{
		Status:   SubscriptionStatusActive,
		IsActive: true,
		EndDate:  now.AddDate(0, 1, 0),
	}
	assert.True(t, sub.IsValid(now))

	expired := sub
	expired.EndDate = now.AddDate(0, -1, 0)
	assert.False(t, expired.IsValid(now))

	cancelled := sub
	cancelled.Status = SubscriptionStatusCancelled
	assert.False(t, cancelled.IsValid(now))

	pending := sub
	pending.IsActive = false
	assert.False(t, pending.IsValid(now))
}
