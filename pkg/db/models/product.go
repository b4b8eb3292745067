package models

import (
	"strings"
	"time"

	dbtypes "github.com/angelmondragon/maillot-backend/pkg/db/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a jersey listing. StockQuantity is the global counter; per-size
// rows in SizeStocks take precedence for availability when present.
type Product struct {
	ID               uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Name             string              `gorm:"column:name;not null"`
	Slug             string              `gorm:"column:slug;not null;uniqueIndex"`
	CategoryID       uuid.UUID           `gorm:"column:category_id;type:uuid;not null"`
	Category         *Category           `gorm:"foreignKey:CategoryID"`
	TeamID           uuid.UUID           `gorm:"column:team_id;type:uuid;not null"`
	Team             *Team               `gorm:"foreignKey:TeamID"`
	Description      string              `gorm:"column:description"`
	Price            decimal.Decimal     `gorm:"column:price;type:numeric(10,2);not null"`
	SalePrice        decimal.NullDecimal `gorm:"column:sale_price;type:numeric(10,2)"`
	AvailableSizes   dbtypes.SizeList    `gorm:"column:available_sizes;not null"`
	StockQuantity    int                 `gorm:"column:stock_quantity;not null"`
	IsActive         bool                `gorm:"column:is_active;not null"`
	IsFeatured       bool                `gorm:"column:is_featured;not null"`
	StockDeactivated bool                `gorm:"column:stock_deactivated;not null"`
	SalesCount       int                 `gorm:"column:sales_count;not null"`
	SizeStocks       []ProductSizeStock  `gorm:"foreignKey:ProductID"`
	Images           []ProductImage      `gorm:"foreignKey:ProductID"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	return nil
}

// CurrentPrice is the sale price when it undercuts the base price.
func (p Product) CurrentPrice() decimal.Decimal {
	if p.IsOnSale() {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// IsOnSale reports whether a sale price below the base price is set.
func (p Product) IsOnSale() bool {
	return p.SalePrice.Valid && p.SalePrice.Decimal.LessThan(p.Price)
}

// DiscountPercentage is the rounded sale discount, zero when not on sale.
func (p Product) DiscountPercentage() int {
	if !p.IsOnSale() || p.Price.IsZero() {
		return 0
	}
	pct := p.Price.Sub(p.SalePrice.Decimal).Div(p.Price).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}

// IsAvailable reports whether the product can be sold at all.
func (p Product) IsAvailable() bool {
	return p.IsActive && p.StockQuantity > 0
}

// HasSize reports whether size is one of the offered sizes.
func (p Product) HasSize(size string) bool {
	return p.AvailableSizes.Contains(size)
}

// StockForSize returns the sellable units for size. The global counter is used
// when the product tracks no per-size rows.
func (p Product) StockForSize(size string) int {
	if len(p.SizeStocks) == 0 {
		return p.StockQuantity
	}
	for _, row := range p.SizeStocks {
		if strings.EqualFold(row.Size, size) {
			return row.Quantity
		}
	}
	return 0
}

// PrimaryImage returns the primary image, falling back to the first one.
func (p Product) PrimaryImage() *ProductImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	if len(p.Images) > 0 {
		return &p.Images[0]
	}
	return nil
}

// ProductSizeStock tracks sellable units for one size of a product.
type ProductSizeStock struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_size_stock"`
	Size      string    `gorm:"column:size;type:text;not null;uniqueIndex:idx_product_size_stock"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *ProductSizeStock) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	s.Size = strings.ToUpper(strings.TrimSpace(s.Size))
	return nil
}

// ProductImage is a gallery image of a product.
type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	URL       string    `gorm:"column:url;not null"`
	AltText   string    `gorm:"column:alt_text"`
	IsPrimary bool      `gorm:"column:is_primary;not null"`
	Position  int       `gorm:"column:position;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// Review is a shopper rating, one per product and user.
type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_review_product_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_review_product_user"`
	User      *User     `gorm:"foreignKey:UserID"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   string    `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
