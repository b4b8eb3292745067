package cart

import (
	"context"
	"errors"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence operations for carts, lines and line customizations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindCart returns the cart of owner without its lines.
func (r *Repository) FindCart(ctx context.Context, owner Owner) (*models.Cart, error) {
	query := r.db.WithContext(ctx)
	if owner.UserID != nil {
		query = query.Where("user_id = ?", *owner.UserID)
	} else {
		query = query.Where("session_token = ?", owner.SessionToken)
	}
	var cart models.Cart
	if err := query.First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// EnsureCart returns the cart of owner, creating it when missing. A concurrent
// creator losing the unique race re-reads the winner's row.
func (r *Repository) EnsureCart(ctx context.Context, owner Owner) (*models.Cart, error) {
	cart, err := r.FindCart(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &models.Cart{UserID: owner.UserID}
	if owner.UserID == nil {
		token := owner.SessionToken
		cart.SessionToken = &token
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(cart).Error; err != nil {
		return nil, err
	}
	return r.FindCart(ctx, owner)
}

// DeleteCart removes an empty cart row.
func (r *Repository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Cart{}, "id = ?", cartID).Error
}

// ListItems returns the lines of a cart with their product and customizations,
// oldest first.
func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.SizeStocks").
		Preload("Product.Images").
		Preload("Customizations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Customizations.Option").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// FindItem returns the (product, size) line of a cart.
func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID, size string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND size = ?", cartID, productID, size).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByID returns a line restricted to the cart.
func (r *Repository) FindItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts a line.
func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// UpdateItem applies column updates to a line.
func (r *Repository) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", itemID).Updates(updates).Error
}

// DeleteItem removes a line and its customizations.
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("cart_item_id = ?", itemID).Delete(&models.CartItemCustomization{}).Error; err != nil {
		return err
	}
	return conn.Delete(&models.CartItem{}, "id = ?", itemID).Error
}

// DeleteItems removes every line of a cart and their customizations.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	lines := r.db.Model(&models.CartItem{}).Select("id").Where("cart_id = ?", cartID)
	if err := conn.Where("cart_item_id IN (?)", lines).Delete(&models.CartItemCustomization{}).Error; err != nil {
		return err
	}
	return conn.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// SaveCustomization reprices c against option and inserts it.
func (r *Repository) SaveCustomization(ctx context.Context, c *models.CartItemCustomization, option models.CustomizationOption) error {
	c.Reprice(option)
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

// FindCustomization returns a customization whose line belongs to the cart.
func (r *Repository) FindCustomization(ctx context.Context, cartID, customizationID uuid.UUID) (*models.CartItemCustomization, error) {
	var row models.CartItemCustomization
	err := r.db.WithContext(ctx).
		Joins("JOIN cart_items ON cart_items.id = cart_item_customizations.cart_item_id").
		Where("cart_item_customizations.id = ? AND cart_items.cart_id = ?", customizationID, cartID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteCustomization removes a customization.
func (r *Repository) DeleteCustomization(ctx context.Context, customizationID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItemCustomization{}, "id = ?", customizationID).Error
}

// MoveCustomizations re-parents every customization of one line onto another.
func (r *Repository) MoveCustomizations(ctx context.Context, fromItemID, toItemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItemCustomization{}).
		Where("cart_item_id = ?", fromItemID).
		Update("cart_item_id", toItemID).Error
}
