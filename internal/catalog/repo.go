package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const currentPriceExpr = "(CASE WHEN products.sale_price IS NOT NULL AND products.sale_price < products.price THEN products.sale_price ELSE products.price END)"

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Category").
		Preload("Team").
		Preload("SizeStocks").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		})
}

// ListProducts returns the active products matching filter and the total match count.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("products.is_active = ?", true)

	if slug := strings.TrimSpace(filter.Category); slug != "" {
		query = query.Where("products.category_id IN (?)", r.db.Model(&models.Category{}).Select("id").Where("slug = ?", slug))
	}
	if slug := strings.TrimSpace(filter.Team); slug != "" {
		query = query.Where("products.team_id IN (?)", r.db.Model(&models.Team{}).Select("id").Where("slug = ?", slug))
	}
	if size := strings.ToUpper(strings.TrimSpace(filter.Size)); size != "" {
		query = query.Where("(',' || products.available_sizes || ',') LIKE ?", "%,"+size+",%")
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", like, like)
	}
	if filter.MinPrice != nil {
		query = query.Where(currentPriceExpr+" >= CAST(? AS NUMERIC)", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where(currentPriceExpr+" <= CAST(? AS NUMERIC)", *filter.MaxPrice)
	}
	if filter.OnSale {
		query = query.Where("products.sale_price IS NOT NULL AND products.sale_price < products.price")
	}
	if filter.Featured {
		query = query.Where("products.is_featured = ?", true)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case SortPriceAsc:
		query = query.Order(clause.Expr{SQL: currentPriceExpr + " ASC"})
	case SortPriceDesc:
		query = query.Order(clause.Expr{SQL: currentPriceExpr + " DESC"})
	case SortName:
		query = query.Order("products.name ASC")
	case SortPopular:
		query = query.Order("products.sales_count DESC")
	default:
		query = query.Order("products.created_at DESC")
	}
	query = query.Order("products.id ASC")

	var ids []uuid.UUID
	if err := query.Limit(filter.Limit).Offset(filter.Offset).Pluck("products.id", &ids).Error; err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []models.Product{}, total, nil
	}

	var rows []models.Product
	if err := r.withDetails(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	ordered := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, total, nil
}

// FindBySlug loads a product with its relations.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.withDetails(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByID loads a product with its size stock rows.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("SizeStocks").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads products with size stock rows keyed by id. Missing ids are absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Preload("SizeStocks").Preload("Images").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// ListCategories returns active categories by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&rows).Error
	return rows, err
}

// ListTeams returns active teams by name, optionally within a category slug.
func (r *Repository) ListTeams(ctx context.Context, categorySlug string) ([]models.Team, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if slug := strings.TrimSpace(categorySlug); slug != "" {
		query = query.Where("category_id IN (?)", r.db.Model(&models.Category{}).Select("id").Where("slug = ?", slug))
	}
	var rows []models.Team
	err := query.Order("name ASC").Find(&rows).Error
	return rows, err
}

// CreateReview inserts a review.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error
}

// ListReviews returns the reviews of a product, newest first.
func (r *Repository) ListReviews(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// RatingSummary returns the review count and average rating of a product.
func (r *Repository) RatingSummary(ctx context.Context, productID uuid.UUID) (int64, float64, error) {
	var out struct {
		Count   int64
		Average float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average").
		Where("product_id = ?", productID).
		Scan(&out).Error
	return out.Count, out.Average, err
}

// ReplaceSizeStock overwrites the per-size rows of a product.
func (r *Repository) ReplaceSizeStock(ctx context.Context, productID uuid.UUID, sizes map[string]int) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("product_id = ?", productID).Delete(&models.ProductSizeStock{}).Error; err != nil {
		return err
	}
	if len(sizes) == 0 {
		return nil
	}
	rows := make([]models.ProductSizeStock, 0, len(sizes))
	for size, qty := range sizes {
		rows = append(rows, models.ProductSizeStock{ProductID: productID, Size: size, Quantity: qty})
	}
	return conn.Create(&rows).Error
}

// UpdateProduct applies column updates to a product.
func (r *Repository) UpdateProduct(ctx context.Context, productID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Updates(updates).Error
}

// DemotePrimaryImages clears is_primary on every image of a product except keepID.
func (r *Repository) DemotePrimaryImages(ctx context.Context, productID, keepID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("product_id = ? AND id <> ? AND is_primary = ?", productID, keepID, true).
		Update("is_primary", false).Error
}

// CreateImage inserts an image.
func (r *Repository) CreateImage(ctx context.Context, image *models.ProductImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}
