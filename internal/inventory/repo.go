package inventory

import (
	"context"
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and writes stock rows. It is always bound to the caller's transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to tx.
func NewRepository(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// OrderItems returns the items of an order.
func (r *Repository) OrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var rows []models.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// LockProduct reads a product row FOR UPDATE.
func (r *Repository) LockProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", productID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// LockSizeStock reads the size row of a product FOR UPDATE.
func (r *Repository) LockSizeStock(ctx context.Context, productID uuid.UUID, size string) (*models.ProductSizeStock, error) {
	var row models.ProductSizeStock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND size = ?", productID, size).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateProduct applies column updates to a product.
func (r *Repository) UpdateProduct(ctx context.Context, productID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Updates(updates).Error
}

// SetSizeQuantity overwrites the quantity of a size row.
func (r *Repository) SetSizeQuantity(ctx context.Context, rowID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Model(&models.ProductSizeStock{}).Where("id = ?", rowID).Update("quantity", quantity).Error
}

// SetStockCommittedAt stores or clears the commitment timestamp of an order.
func (r *Repository) SetStockCommittedAt(ctx context.Context, orderID uuid.UUID, at *time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Update("stock_committed_at", at).Error
}
