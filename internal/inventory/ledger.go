// Package inventory adjusts product stock when an order changes status.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/metrics"
	"gorm.io/gorm"
)

// Ledger commits stock when an order starts being fulfilled and restores it
// when a committed order is cancelled.
type Ledger struct {
	logg    *logger.Logger
	metrics *metrics.ShopMetrics
	now     func() time.Time
}

// NewLedger builds a stock ledger. metrics may be nil.
func NewLedger(logg *logger.Logger, m *metrics.ShopMetrics) (*Ledger, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Ledger{logg: logg, metrics: m, now: time.Now}, nil
}

func consumesStock(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered:
		return true
	}
	return false
}

// ApplyTransition runs inside the caller's transaction. It must only be called
// when from and to differ.
func (l *Ledger) ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, from, to enums.OrderStatus) error {
	if order == nil || from == to {
		return nil
	}
	repo := NewRepository(tx)
	ctx = l.logg.WithOrderNumber(ctx, order.OrderNumber)

	switch {
	case consumesStock(to) && order.StockCommittedAt == nil:
		if err := l.move(ctx, repo, order, -1); err != nil {
			return err
		}
		at := l.now().UTC()
		if err := repo.SetStockCommittedAt(ctx, order.ID, &at); err != nil {
			return fmt.Errorf("mark stock committed: %w", err)
		}
		order.StockCommittedAt = &at
	case to == enums.OrderStatusCancelled && order.StockCommittedAt != nil:
		if err := l.move(ctx, repo, order, 1); err != nil {
			return err
		}
		if err := repo.SetStockCommittedAt(ctx, order.ID, nil); err != nil {
			return fmt.Errorf("clear stock commitment: %w", err)
		}
		order.StockCommittedAt = nil
	}
	return nil
}

// move applies sign × quantity to every item's product: -1 takes stock out, +1 puts it back.
func (l *Ledger) move(ctx context.Context, repo *Repository, order *models.Order, sign int) error {
	items, err := repo.OrderItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	direction := "out"
	if sign > 0 {
		direction = "in"
	}

	for _, item := range items {
		if item.ProductID == nil {
			l.logg.Warn(l.logg.WithField(ctx, "product_name", item.ProductName), "inventory.product_missing")
			continue
		}
		product, err := repo.LockProduct(ctx, *item.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.logg.Warn(l.logg.WithField(ctx, "product_id", item.ProductID.String()), "inventory.product_missing")
			continue
		}
		if err != nil {
			return fmt.Errorf("lock product %s: %w", item.ProductID, err)
		}

		if err := adjustSize(ctx, repo, item, sign); err != nil {
			return err
		}

		stock := nonNegative(product.StockQuantity + sign*item.Quantity)
		updates := map[string]any{
			"stock_quantity": stock,
			"sales_count":    nonNegative(product.SalesCount - sign*item.Quantity),
		}
		switch {
		case sign < 0 && stock == 0 && product.IsActive:
			updates["is_active"] = false
			updates["stock_deactivated"] = true
		case sign > 0 && stock > 0 && product.StockDeactivated:
			updates["is_active"] = true
			updates["stock_deactivated"] = false
		}
		if err := repo.UpdateProduct(ctx, product.ID, updates); err != nil {
			return fmt.Errorf("update product %s stock: %w", product.ID, err)
		}
		l.metrics.AddStockMovement(direction, item.Quantity)
	}
	return nil
}

func adjustSize(ctx context.Context, repo *Repository, item models.OrderItem, sign int) error {
	row, err := repo.LockSizeStock(ctx, *item.ProductID, item.Size)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock size stock: %w", err)
	}
	return repo.SetSizeQuantity(ctx, row.ID, nonNegative(row.Quantity+sign*item.Quantity))
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
