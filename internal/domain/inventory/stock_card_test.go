package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestCard(t *testing.T, status CardStatus) *StockCard {
	t.Helper()
	card, err := NewStockCard(uuid.New(), PeriodKey{Month: 3, Year: 2024}, "bottle", "ml", status)
	require.NoError(t, err)
	return card
}

func movement(dir Direction, cat Category, qty, base string) Movement {
	return Movement{
		Direction:       dir,
		Category:        cat,
		Quantity:        dec(qty),
		BaseQuantity:    dec(base),
		Reference:       GoodsReceiptLineRef(uuid.New()),
		TransactionDate: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		Note:            "GR GR-001",
	}
}

func TestStockCard_Post(t *testing.T) {
	card := newTestCard(t, CardStatusRunning)

	entry, err := card.Post(movement(DirectionIn, CategoryGoodsReceipt, "10", "5000"))
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(card.Qty.In))
	assert.True(t, dec("5000").Equal(card.BaseQty.In))
	assert.True(t, dec("10").Equal(entry.Balance))
	assert.True(t, dec("5000").Equal(entry.BaseBalance))
	assert.Equal(t, 1, entry.Sequence)
	assert.Equal(t, card.ID, entry.StockCardID)
	assert.Equal(t, "bottle", entry.Unit)

	out := movement(DirectionOut, CategoryStockOut, "3", "1500")
	out.Reference = StockOutLineRef(uuid.New())
	entry, err = card.Post(out)
	require.NoError(t, err)
	assert.True(t, dec("7").Equal(card.Qty.Ending))
	assert.True(t, dec("3500").Equal(card.BaseQty.Ending))
	assert.True(t, dec("7").Equal(entry.Balance))
	assert.Equal(t, 2, entry.Sequence)
	assert.Equal(t, 2, card.EntryCount)

	assert.True(t, card.Qty.Consistent())
	assert.True(t, card.BaseQty.Consistent())
}

func TestStockCard_ZeroMovementsAreRecorded(t *testing.T) {
	card := newTestCard(t, CardStatusStockTake)

	match := movement(DirectionIn, CategoryStockTake, "0", "0")
	match.Reference = StockOpnameLineRef(uuid.New())
	entry, err := card.Post(match)
	require.NoError(t, err)
	assert.True(t, card.Qty.In.IsZero())
	assert.Equal(t, 1, card.EntryCount)
	assert.True(t, entry.Quantity.IsZero())

	placeholder := movement(DirectionInProcess, CategoryPurchase, "0", "0")
	placeholder.Reference = PurchaseOrderLineRef(uuid.New())
	_, err = card.Post(placeholder)
	require.NoError(t, err)
	assert.Equal(t, 2, card.EntryCount)
	assert.True(t, card.Qty.Ending.IsZero())
}

func TestStockCard_PostRejectsInvalidMovements(t *testing.T) {
	tests := []struct {
		name string
		m    Movement
	}{
		{"negative quantity", movement(DirectionIn, CategoryGoodsReceipt, "-1", "-500")},
		{"negative base quantity", movement(DirectionIn, CategoryGoodsReceipt, "1", "-500")},
		{"unknown direction", movement("SIDEWAYS", CategoryGoodsReceipt, "1", "500")},
		{"unknown category", movement(DirectionIn, "GIFT", "1", "500")},
		{"non-moving direction with quantity", movement(DirectionNewMaster, CategoryMasterNew, "1", "500")},
		{"missing reference", func() Movement {
			m := movement(DirectionIn, CategoryGoodsReceipt, "1", "500")
			m.Reference = Reference{Type: ReferenceGoodsReceiptLine}
			return m
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := newTestCard(t, CardStatusRunning)
			_, err := card.Post(tt.m)
			assert.True(t, errors.Is(err, ErrInvalidMovement), "got %v", err)
			assert.Equal(t, 0, card.EntryCount)
			assert.True(t, card.Qty.Ending.IsZero())
		})
	}
}

func TestStockCard_EndedRefusesWrites(t *testing.T) {
	card := newTestCard(t, CardStatusRunning)
	card.End()
	assert.True(t, card.IsEnded())

	_, err := card.Post(movement(DirectionIn, CategoryGoodsReceipt, "1", "500"))
	assert.True(t, errors.Is(err, ErrPeriodClosed))

	next := newTestCard(t, CardStatusInProgress)
	_, err = card.SeedOpening(next, "carry")
	assert.True(t, errors.Is(err, ErrPeriodClosed))
}

func TestStockCard_SeedOpening(t *testing.T) {
	closing := newTestCard(t, CardStatusRunning)
	_, err := closing.Post(movement(DirectionIn, CategoryGoodsReceipt, "10", "5000"))
	require.NoError(t, err)
	_, err = closing.Post(movement(DirectionOut, CategoryStockOut, "3", "1500"))
	require.NoError(t, err)
	closing.End()

	next, err := NewStockCard(closing.ProductID, closing.Key().Next(), "bottle", "ml", CardStatusInProgress)
	require.NoError(t, err)

	entry, err := next.SeedOpening(closing, "Opening balance from 2024-03")
	require.NoError(t, err)
	assert.True(t, dec("7").Equal(next.Qty.Beginning))
	assert.True(t, dec("7").Equal(next.Qty.Ending))
	assert.True(t, dec("3500").Equal(next.BaseQty.Beginning))
	assert.True(t, dec("3500").Equal(next.BaseQty.Ending))
	assert.True(t, next.Qty.In.IsZero())
	assert.True(t, next.Qty.Out.IsZero())
	assert.Equal(t, CardStatusInProgress, next.Status)

	assert.Equal(t, CategoryOpeningBalance, entry.Category)
	assert.Equal(t, StockCardRef(closing.ID), entry.Reference)
	assert.Contains(t, entry.Note, "2024-03")

	_, err = next.SeedOpening(closing, "again")
	assert.True(t, errors.Is(err, ErrInvalidMovement))

	other := newTestCard(t, CardStatusRunning)
	_, err = other.SeedOpening(closing, "wrong product")
	assert.True(t, errors.Is(err, ErrInvalidMovement))
}

func TestReplay_ReproducesCardBalances(t *testing.T) {
	closing := newTestCard(t, CardStatusRunning)
	_, err := closing.Post(movement(DirectionIn, CategoryGoodsReceipt, "4", "2000"))
	require.NoError(t, err)
	closing.End()

	card, err := NewStockCard(closing.ProductID, closing.Key().Next(), "bottle", "ml", CardStatusInProgress)
	require.NoError(t, err)

	var entries []StockCardEntry
	e, err := card.SeedOpening(closing, "opening")
	require.NoError(t, err)
	entries = append(entries, *e)

	steps := []Movement{
		movement(DirectionIn, CategoryGoodsReceipt, "10", "5000"),
		movement(DirectionOut, CategorySale, "2.5", "1250"),
		movement(DirectionIn, CategoryStockTake, "0", "0"),
		movement(DirectionOut, CategoryStockOut, "1", "500"),
	}
	for _, m := range steps {
		e, err := card.Post(m)
		require.NoError(t, err)
		entries = append(entries, *e)
	}

	qty, base := Replay(entries)
	assert.True(t, qty.Equal(card.Qty), "replayed %+v, card %+v", qty, card.Qty)
	assert.True(t, base.Equal(card.BaseQty))
	assert.True(t, dec("10.5").Equal(qty.Ending))

	last := entries[len(entries)-1]
	assert.True(t, last.Balance.Equal(card.Qty.Ending))
	assert.True(t, last.BaseBalance.Equal(card.BaseQty.Ending))
}

func TestCurrentStock(t *testing.T) {
	productID := uuid.New()
	key := PeriodKey{Month: 3, Year: 2024}
	s, err := NewCurrentStock(productID, "bottle", key, CardStatusRunning)
	require.NoError(t, err)

	require.NoError(t, s.Adjust(dec("10"), dec("5000")))
	require.NoError(t, s.Adjust(dec("-3"), dec("-1500")))
	assert.True(t, dec("7").Equal(s.Quantity))
	assert.True(t, dec("3500").Equal(s.BaseQuantity))

	card, err := NewStockCard(productID, key, "bottle", "ml", CardStatusRunning)
	require.NoError(t, err)
	_, err = card.Post(movement(DirectionIn, CategoryGoodsReceipt, "7", "3500"))
	require.NoError(t, err)
	assert.True(t, s.Matches(card))

	s.End()
	assert.True(t, errors.Is(s.Adjust(dec("1"), dec("500")), ErrPeriodClosed))

	next, err := NewCurrentStock(productID, "bottle", key.Next(), CardStatusInProgress)
	require.NoError(t, err)
	require.NoError(t, next.SeedOpening(s))
	assert.True(t, dec("7").Equal(next.Quantity))
	assert.Equal(t, CardStatusInProgress, next.Status)

	_, err = NewCurrentStock(productID, "bottle", key, CardStatusEnded)
	assert.Error(t, err)
}
