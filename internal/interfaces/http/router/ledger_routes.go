package router

import (
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// LedgerHandlers are the HTTP handlers of the stock ledger API
type LedgerHandlers struct {
	Periods    *handler.PeriodHandler
	StockCards *handler.StockCardHandler
	Events     *handler.EventHandler
	System     *handler.SystemHandler
	Deliveries *handler.DeliveryHandler
}

// RegisterLedgerRoutes registers the ledger API on r.
// intake wraps only the event intake, which is where upstream systems push load.
func RegisterLedgerRoutes(r *Router, h LedgerHandlers, intake ...gin.HandlerFunc) {
	r.Engine().GET("/health", h.System.Health)

	periods := NewGroup("/periods")
	periods.GET("", h.Periods.List).
		GET("/active", h.Periods.Active).
		POST("", h.Periods.Open).
		POST("/:id/start", h.Periods.Start).
		POST("/:id/close", h.Periods.Close).
		POST("/:id/confirm", h.Periods.Confirm).
		DELETE("/:id", h.Periods.Tombstone)

	stockCards := NewGroup("/stock-cards")
	stockCards.GET("/:product_id", h.StockCards.History).
		GET("/:product_id/reconcile", h.StockCards.Reconcile).
		GET("/:product_id/export", h.StockCards.ExportStockCard)

	currentStock := NewGroup("/current-stock")
	currentStock.GET("/:product_id", h.StockCards.CurrentStock)

	ledger := NewGroup("/ledger")
	ledger.GET("/export", h.StockCards.ExportPeriod).
		GET("/archive", h.StockCards.GetArchive).
		POST("/archive", h.StockCards.ArchivePeriod)

	events := NewGroup("/events")
	events.Use(intake...)
	events.POST("/:type", h.Events.Intake)

	system := NewGroup("/system")
	system.GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	if h.Deliveries != nil {
		outbox := system.Group("/outbox")
		outbox.GET("/stats", h.Deliveries.Stats).
			GET("/dead", h.Deliveries.ListDead).
			POST("/dead/retry", h.Deliveries.RedeliverAll).
			GET("/entries/:id", h.Deliveries.Get).
			POST("/entries/:id/retry", h.Deliveries.Redeliver)
	}

	r.Register(periods, stockCards, currentStock, ledger, events, system)
}
