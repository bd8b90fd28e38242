package export

import (
	"bytes"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookRenderer_Render(t *testing.T) {
	key := inventory.PeriodKey{Month: 3, Year: 2024}
	productID := uuid.New()
	card := &inventory.StockCard{
		ProductID: productID,
		Month:     3,
		Year:      2024,
		Unit:      "BOX",
		BaseUnit:  "PCS",
		Status:    inventory.CardStatusEnded,
		Qty: inventory.Balances{
			Beginning: decimal.NewFromInt(10),
			In:        decimal.NewFromInt(5),
			Out:       decimal.NewFromFloat(2.5),
			Ending:    decimal.NewFromFloat(12.5),
		},
		BaseQty: inventory.Balances{
			Beginning: decimal.NewFromInt(120),
			In:        decimal.NewFromInt(60),
			Out:       decimal.NewFromInt(30),
			Ending:    decimal.NewFromInt(150),
		},
	}
	receiptLine := uuid.New()
	entries := []inventory.StockCardEntry{
		{
			ProductID:       productID,
			Sequence:        1,
			Reference:       inventory.Reference{Type: inventory.ReferenceGoodsReceiptLine, ID: receiptLine},
			Category:        inventory.CategoryGoodsReceipt,
			Direction:       inventory.DirectionIn,
			Unit:            "BOX",
			Quantity:        decimal.NewFromInt(5),
			Balance:         decimal.NewFromInt(15),
			BaseQuantity:    decimal.NewFromInt(60),
			BaseBalance:     decimal.NewFromInt(180),
			TransactionDate: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
			Note:            "GR-001",
		},
	}

	data, err := NewWorkbookRenderer().Render(key, []inventoryapp.LedgerHistory{
		{Card: card, Entries: entries},
		{Card: nil},
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, EntriesSheet}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Product", summary[0][0])
	assert.Equal(t, []string{productID.String(), "2024-03", "BOX", "ENDED", "10", "5", "2.5", "12.5", "PCS", "120", "60", "30", "150", "1"}, summary[1])

	rows, err := f.GetRows(EntriesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-05", rows[1][2])
	assert.Equal(t, "GOODS_RECEIPT", rows[1][3])
	assert.Equal(t, "GOODS_RECEIPT_LINE", rows[1][5])
	assert.Equal(t, receiptLine.String(), rows[1][6])
	assert.Equal(t, "15", rows[1][9])
	assert.Equal(t, "GR-001", rows[1][12])

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "Stock cards 2024-03", props.Title)
}

func TestWorkbookRenderer_Empty(t *testing.T) {
	data, err := (&WorkbookRenderer{}).Render(inventory.PeriodKey{Month: 1, Year: 2025}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
