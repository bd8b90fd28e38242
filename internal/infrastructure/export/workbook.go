// Package export renders stock cards into xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names of a stock card workbook
const (
	SummarySheet = "Summary"
	EntriesSheet = "Entries"
)

var (
	summaryHeader = []any{
		"Product", "Period", "Unit", "Status",
		"Beginning", "In", "Out", "Ending",
		"Base Unit", "Base Beginning", "Base In", "Base Out", "Base Ending",
		"Entries",
	}
	entriesHeader = []any{
		"Product", "Seq", "Date", "Category", "Direction",
		"Reference Type", "Reference ID", "Unit",
		"Quantity", "Balance", "Base Quantity", "Base Balance", "Note",
	}
)

var _ inventoryapp.WorkbookRenderer = (*WorkbookRenderer)(nil)

// WorkbookRenderer writes one summary row per stock card and one row per entry.
type WorkbookRenderer struct {
	// DateFormat formats entry transaction dates
	DateFormat string
}

// NewWorkbookRenderer creates a renderer with ISO dates
func NewWorkbookRenderer() *WorkbookRenderer {
	return &WorkbookRenderer{DateFormat: time.DateOnly}
}

// Render builds the workbook for the given month
func (r *WorkbookRenderer) Render(key inventory.PeriodKey, histories []inventoryapp.LedgerHistory) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(EntriesSheet); err != nil {
		return nil, err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("Stock cards %s", key),
		Subject: "stock ledger",
	}); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := writeHeader(f, SummarySheet, summaryHeader, bold); err != nil {
		return nil, err
	}
	if err := writeHeader(f, EntriesSheet, entriesHeader, bold); err != nil {
		return nil, err
	}

	summaryRow, entryRow := 2, 2
	for _, h := range histories {
		if h.Card == nil {
			continue
		}
		if err := setRow(f, SummarySheet, summaryRow, r.summaryValues(key, h)); err != nil {
			return nil, err
		}
		summaryRow++

		for _, e := range h.Entries {
			if err := setRow(f, EntriesSheet, entryRow, r.entryValues(e)); err != nil {
				return nil, err
			}
			entryRow++
		}
	}

	if err := f.SetPanes(SummarySheet, frozenHeader()); err != nil {
		return nil, err
	}
	if err := f.SetPanes(EntriesSheet, frozenHeader()); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *WorkbookRenderer) summaryValues(key inventory.PeriodKey, h inventoryapp.LedgerHistory) []any {
	c := h.Card
	return []any{
		c.ProductID.String(), key.String(), c.Unit, string(c.Status),
		num(c.Qty.Beginning), num(c.Qty.In), num(c.Qty.Out), num(c.Qty.Ending),
		c.BaseUnit, num(c.BaseQty.Beginning), num(c.BaseQty.In), num(c.BaseQty.Out), num(c.BaseQty.Ending),
		len(h.Entries),
	}
}

func (r *WorkbookRenderer) entryValues(e inventory.StockCardEntry) []any {
	layout := r.DateFormat
	if layout == "" {
		layout = time.DateOnly
	}
	return []any{
		e.ProductID.String(), e.Sequence, e.TransactionDate.Format(layout), string(e.Category), string(e.Direction),
		string(e.Reference.Type), e.Reference.ID.String(), e.Unit,
		num(e.Quantity), num(e.Balance), num(e.BaseQuantity), num(e.BaseBalance), e.Note,
	}
}

func writeHeader(f *excelize.File, sheet string, header []any, style int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func frozenHeader() *excelize.Panes {
	return &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}
}

// num converts a quantity for display. Ledger values keep full precision in the database.
func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
