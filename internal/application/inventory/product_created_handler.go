package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductCreatedHandler registers a new product with the ledger and opens its
// MASTER_NEW stock card in the month the product was created.
type ProductCreatedHandler struct {
	products    catalog.ProductRepository
	conversions catalog.UnitConversionRepository
	poster      *MovementPoster
	logger      *zap.Logger
}

// NewProductCreatedHandler creates a new ProductCreatedHandler
func NewProductCreatedHandler(products catalog.ProductRepository, conversions catalog.UnitConversionRepository, poster *MovementPoster, logger *zap.Logger) *ProductCreatedHandler {
	return &ProductCreatedHandler{
		products:    products,
		conversions: conversions,
		poster:      poster,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ProductCreatedHandler) EventTypes() []string {
	return []string{catalog.EventTypeProductCreated}
}

// Handle stores the product and its conversions and opens its card. Catalog
// rows and the posting share one transaction, so a rejected posting leaves no
// product behind.
func (h *ProductCreatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*catalog.ProductCreatedEvent)
	if !ok {
		return unexpectedEvent(catalog.EventTypeProductCreated, event)
	}

	product, conversions, err := catalogRows(e)
	if err != nil {
		return err
	}

	return h.poster.scope.Atomic(ctx, func(ctx context.Context) error {
		if err := h.register(ctx, product, conversions); err != nil {
			return err
		}
		_, err := h.poster.Post(ctx, PostingDocument{
			Category:        inventory.CategoryMasterNew,
			Target:          DocumentPeriodTarget(inventory.PeriodKeyOf(product.CreatedAt), false),
			CreateStatus:    inventory.CardStatusMasterNew,
			Projection:      ProjectionEnsure,
			TransactionDate: product.CreatedAt,
			Note:            documentNote(NoteTagMasterNew, e.Code),
			Lines: []PostingLine{{
				Reference: inventory.ProductRef(e.ProductID),
				ProductID: e.ProductID,
				Unit:      product.StockUnit,
				Direction: inventory.DirectionNewMaster,
			}},
		})
		return err
	})
}

// catalogRows builds the product and conversion rows of e. Every conversion is
// validated before anything is written.
func catalogRows(e *catalog.ProductCreatedEvent) (*catalog.Product, []*catalog.UnitConversion, error) {
	stockUnit := e.StockUnit
	if stockUnit == "" {
		stockUnit = e.BaseUnit
	}
	product := &catalog.Product{
		Aggregate: shared.NewAggregate(),
		Code:      e.Code,
		Name:      e.Name,
		BaseUnit:  e.BaseUnit,
		StockUnit: stockUnit,
	}
	product.ID = e.ProductID
	switch {
	case !e.CreatedAt.IsZero():
		product.CreatedAt = e.CreatedAt
	case !e.OccurredAt().IsZero():
		product.CreatedAt = e.OccurredAt()
	}

	conversions := make([]*catalog.UnitConversion, 0, len(e.Conversions))
	for _, spec := range e.Conversions {
		conv, err := catalog.NewUnitConversion(e.ProductID, spec.FromUnit, spec.ToUnit, spec.Factor)
		if err != nil {
			return nil, nil, fmt.Errorf("product %s conversion %s->%s: %w", e.ProductID, spec.FromUnit, spec.ToUnit, err)
		}
		conversions = append(conversions, conv)
	}
	return product, conversions, nil
}

func (h *ProductCreatedHandler) register(ctx context.Context, product *catalog.Product, conversions []*catalog.UnitConversion) error {
	if err := h.products.Save(ctx, product); err != nil {
		return fmt.Errorf("register product %s: %w", product.ID, err)
	}
	for _, conv := range conversions {
		if err := h.conversions.Save(ctx, conv); err != nil {
			return fmt.Errorf("register unit conversion %s->%s: %w", conv.FromUnit, conv.ToUnit, err)
		}
	}

	h.logger.Debug("product registered",
		zap.String("product_id", product.ID.String()),
		zap.String("code", product.Code),
		zap.Int("conversions", len(conversions)),
	)
	return nil
}

// Ensure ProductCreatedHandler implements shared.EventHandler
var _ shared.EventHandler = (*ProductCreatedHandler)(nil)
