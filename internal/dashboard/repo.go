package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	revenueSQL = `
SELECT COALESCE(SUM(total), 0) AS value
FROM orders
WHERE payment_status = ?
`

	countByColumnSQL = `
SELECT %s AS label, COUNT(*) AS value
FROM %s
GROUP BY %s
`

	topProductsSQL = `
SELECT
  order_items.product_id AS product_id,
  order_items.product_name AS name,
  SUM(order_items.quantity) AS quantity,
  COALESCE(SUM(order_items.total_price), 0) AS revenue
FROM order_items
JOIN orders ON orders.id = order_items.order_id
WHERE orders.status <> ?
GROUP BY order_items.product_id, order_items.product_name
ORDER BY quantity DESC, name ASC
LIMIT ?
`

	paidSinceSQL = `
SELECT paid_at, created_at, total
FROM orders
WHERE payment_status = ?
  AND COALESCE(paid_at, created_at) >= ?
`
)

// Repository runs the read-only dashboard aggregates.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type labelCount struct {
	Label string
	Value int64
}

type productRow struct {
	ProductID *uuid.UUID
	Name      string
	Quantity  int64
	Revenue   decimal.Decimal
}

type paidRow struct {
	PaidAt    *time.Time
	CreatedAt time.Time
	Total     decimal.Decimal
}

func (r *Repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var row struct{ Value decimal.Decimal }
	err := r.db.WithContext(ctx).Raw(revenueSQL, enums.OrderPaymentStatusPaid).Scan(&row).Error
	return row.Value, err
}

// CountBy groups table rows by column. Both names come from constants, never
// from request input.
func (r *Repository) CountBy(ctx context.Context, table, column string) (map[string]int64, error) {
	var rows []labelCount
	query := fmt.Sprintf(countByColumnSQL, column, table, column)
	if err := r.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Label] = row.Value
	}
	return out, nil
}

func (r *Repository) TopProducts(ctx context.Context, limit int) ([]productRow, error) {
	var rows []productRow
	err := r.db.WithContext(ctx).Raw(topProductsSQL, enums.OrderStatusCancelled, limit).Scan(&rows).Error
	return rows, err
}

func (r *Repository) PaidSince(ctx context.Context, since time.Time) ([]paidRow, error) {
	var rows []paidRow
	err := r.db.WithContext(ctx).Raw(paidSinceSQL, enums.OrderPaymentStatusPaid, since).Scan(&rows).Error
	return rows, err
}

func (r *Repository) CountOutOfStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("stock_quantity <= 0").Count(&n).Error
	return n, err
}

func (r *Repository) CountOnSale(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("sale_price IS NOT NULL AND sale_price < price").
		Count(&n).Error
	return n, err
}

func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
