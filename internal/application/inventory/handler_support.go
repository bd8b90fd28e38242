package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
)

// Note tags prefixed to the source document number on every entry
const (
	NoteTagMasterNew      = "MASTER NEW"
	NoteTagPurchaseOrder  = "PO"
	NoteTagGoodsReceipt   = "GR"
	NoteTagStockOut       = "STOCK OUT"
	NoteTagSale           = "SALE"
	NoteTagStockOpname    = "OPNAME"
	NoteTagOpeningBalance = "OPENING BALANCE"
)

// transactionDate is the acknowledgement or approval time of a document, or now
func transactionDate(ts *time.Time) time.Time {
	if ts == nil || ts.IsZero() {
		return time.Now()
	}
	return *ts
}

func documentNote(tag, number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return tag
	}
	return tag + " " + number
}

func unexpectedEvent(expected string, event shared.DomainEvent) error {
	return fmt.Errorf("unexpected event type: expected %s, got %s", expected, event.EventType())
}
