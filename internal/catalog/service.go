package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines catalog reads and staff stock edits.
type Service interface {
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductList, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListTeams(ctx context.Context, categorySlug string) ([]TeamDTO, error)
	CreateReview(ctx context.Context, userID uuid.UUID, slug string, input ReviewInput) (*ReviewDTO, error)
	ListReviews(ctx context.Context, slug string) ([]ReviewDTO, error)
	SetStock(ctx context.Context, productID uuid.UUID, input SetStockInput) (*ProductDTO, error)
	AddImage(ctx context.Context, productID uuid.UUID, input AddImageInput) (*ImageDTO, error)
}

type service struct {
	repo *Repository
	tx   db.TxRunner
}

// NewService builds the catalog service.
func NewService(repo *Repository, tx db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) (*ProductList, error) {
	filter.Limit = normalizePageSize(filter.Limit)
	filter.Offset = pagination.NormalizeOffset(filter.Offset)
	switch filter.Sort {
	case "", SortNewest, SortPriceAsc, SortPriceDesc, SortName, SortPopular:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported sort %q", filter.Sort))
	}
	if filter.Size != "" {
		size, err := enums.ParseProductSize(filter.Size)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidSize, err, "invalid size filter")
		}
		filter.Size = size.String()
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min price exceeds max price")
	}

	rows, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromProduct(&rows[i]))
	}
	return &ProductList{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	dto := FromProduct(product)
	count, avg, err := s.repo.RatingSummary(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rating summary")
	}
	dto.ReviewCount = count
	dto.AverageRating = avg
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *categoryDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) ListTeams(ctx context.Context, categorySlug string) ([]TeamDTO, error) {
	rows, err := s.repo.ListTeams(ctx, categorySlug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list teams")
	}
	out := make([]TeamDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *teamDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) CreateReview(ctx context.Context, userID uuid.UUID, slug string, input ReviewInput) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	product, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		ProductID: product.ID,
		UserID:    userID,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	dto := reviewDTO(*review)
	return &dto, nil
}

func (s *service) ListReviews(ctx context.Context, slug string) ([]ReviewDTO, error) {
	product, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListReviews(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := make([]ReviewDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, reviewDTO(r))
	}
	return out, nil
}

func (s *service) SetStock(ctx context.Context, productID uuid.UUID, input SetStockInput) (*ProductDTO, error) {
	var result *ProductDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}

		sizes, total, err := normalizeStock(product, input)
		if err != nil {
			return err
		}
		if err := repo.ReplaceSizeStock(ctx, product.ID, sizes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace size stock")
		}

		updates := map[string]any{"stock_quantity": total}
		if product.StockDeactivated && total > 0 {
			updates["is_active"] = true
			updates["stock_deactivated"] = false
		}
		if err := repo.UpdateProduct(ctx, product.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock")
		}

		reloaded, err := repo.FindByID(ctx, product.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
		}
		dto := FromProduct(reloaded)
		result = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AddImage(ctx context.Context, productID uuid.UUID, input AddImageInput) (*ImageDTO, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image url is required")
	}
	var result ImageDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		image := &models.ProductImage{
			ProductID: productID,
			URL:       strings.TrimSpace(input.URL),
			AltText:   input.AltText,
			IsPrimary: input.IsPrimary,
			Position:  input.Position,
		}
		if err := repo.CreateImage(ctx, image); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create image")
		}
		if image.IsPrimary {
			if err := repo.DemotePrimaryImages(ctx, productID, image.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "demote primary images")
			}
		}
		result = imageDTO(*image)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) activeProduct(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func normalizeStock(product *models.Product, input SetStockInput) (map[string]int, int, error) {
	if len(input.Sizes) == 0 {
		if input.Total == nil {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "total or sizes is required")
		}
		if *input.Total < 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		return nil, *input.Total, nil
	}

	sizes := make(map[string]int, len(input.Sizes))
	total := 0
	keys := make([]string, 0, len(input.Sizes))
	for k := range input.Sizes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, raw := range keys {
		qty := input.Sizes[raw]
		size, err := enums.ParseProductSize(raw)
		if err != nil || !product.HasSize(size.String()) {
			return nil, 0, pkgerrors.New(pkgerrors.CodeInvalidSize, fmt.Sprintf("size %q is not offered for this product", raw))
		}
		if qty < 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		sizes[size.String()] += qty
		total += qty
	}
	return sizes, total, nil
}

func normalizePageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
