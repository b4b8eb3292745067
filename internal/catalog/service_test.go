package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/db/testdb"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t, "catalog")
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	clubs := testdb.SeedCategory(t, conn, "Clubs")
	nations := testdb.SeedCategory(t, conn, "Nations")
	psg := testdb.SeedTeam(t, conn, "PSG", clubs)
	senegal := testdb.SeedTeam(t, conn, "Senegal", nations)

	cheap := testdb.SeedProduct(t, conn, testdb.ProductFixture{Name: "PSG Away", Price: 15000, Category: clubs, Team: psg, Sizes: []string{"M"}})
	sale := testdb.SeedProduct(t, conn, testdb.ProductFixture{Name: "PSG Home", Price: 30000, SalePrice: 12000, Category: clubs, Team: psg, SalesCount: 9})
	testdb.SeedProduct(t, conn, testdb.ProductFixture{Name: "Senegal Home", Price: 25000, Category: nations, Team: senegal, Sizes: []string{"XL"}})
	testdb.SeedProduct(t, conn, testdb.ProductFixture{Name: "Hidden", Inactive: true, Category: clubs, Team: psg})

	all, err := svc.ListProducts(ctx, ProductFilter{Sort: SortPriceAsc})
	require.NoError(t, err)
	require.EqualValues(t, 3, all.Total)
	require.Len(t, all.Items, 3)
	require.Equal(t, sale.ID, all.Items[0].ID)
	require.True(t, all.Items[0].CurrentPrice.Equal(decimal.NewFromInt(12000)))
	require.Equal(t, 60, all.Items[0].DiscountPercentage)
	require.Equal(t, cheap.ID, all.Items[1].ID)

	byCategory, err := svc.ListProducts(ctx, ProductFilter{Category: "clubs"})
	require.NoError(t, err)
	require.EqualValues(t, 2, byCategory.Total)

	bySize, err := svc.ListProducts(ctx, ProductFilter{Size: "xl"})
	require.NoError(t, err)
	require.Len(t, bySize.Items, 1)
	require.Equal(t, "Senegal Home", bySize.Items[0].Name)

	onSale, err := svc.ListProducts(ctx, ProductFilter{OnSale: true})
	require.NoError(t, err)
	require.Len(t, onSale.Items, 1)
	require.Equal(t, sale.ID, onSale.Items[0].ID)

	max := decimal.NewFromInt(14000)
	underMax, err := svc.ListProducts(ctx, ProductFilter{MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, underMax.Items, 1)

	popular, err := svc.ListProducts(ctx, ProductFilter{Sort: SortPopular, Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 3, popular.Total)
	require.Len(t, popular.Items, 1)
	require.Equal(t, sale.ID, popular.Items[0].ID)

	search, err := svc.ListProducts(ctx, ProductFilter{Query: "away"})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
}

func TestListProductsRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListProducts(context.Background(), ProductFilter{Sort: "random"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.ListProducts(context.Background(), ProductFilter{Size: "XXS"})
	require.Equal(t, pkgerrors.CodeInvalidSize, pkgerrors.As(err).Code())
}

func TestGetProductBySlugHidesInactive(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	active := testdb.SeedProduct(t, conn, testdb.ProductFixture{Name: "OM Home", SizeStock: map[string]int{"S": 2, "M": 3}})
	inactive := testdb.SeedProduct(t, conn, testdb.ProductFixture{Name: "OM Retro", Inactive: true})

	dto, err := svc.GetProductBySlug(ctx, active.Slug)
	require.NoError(t, err)
	require.Equal(t, 5, dto.StockQuantity)
	require.Equal(t, 3, dto.SizeStock["M"])
	require.NotNil(t, dto.Category)

	_, err = svc.GetProductBySlug(ctx, inactive.Slug)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCreateReviewOncePerUser(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := testdb.SeedProduct(t, conn, testdb.ProductFixture{})
	user := testdb.SeedUser(t, conn, "awa@example.com", false)

	review, err := svc.CreateReview(ctx, user.ID, product.Slug, ReviewInput{Rating: 4, Comment: " Top "})
	require.NoError(t, err)
	require.Equal(t, "Top", review.Comment)

	_, err = svc.CreateReview(ctx, user.ID, product.Slug, ReviewInput{Rating: 5})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = svc.CreateReview(ctx, user.ID, product.Slug, ReviewInput{Rating: 6})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	reviews, err := svc.ListReviews(ctx, product.Slug)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, "Awa", reviews[0].Author)

	dto, err := svc.GetProductBySlug(ctx, product.Slug)
	require.NoError(t, err)
	require.EqualValues(t, 1, dto.ReviewCount)
	require.InDelta(t, 4.0, dto.AverageRating, 0.001)
}

func TestSetStockPerSize(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := testdb.SeedProduct(t, conn, testdb.ProductFixture{Stock: 1})
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", product.ID).
		Updates(map[string]any{"is_active": false, "stock_deactivated": true, "stock_quantity": 0}).Error)

	dto, err := svc.SetStock(ctx, product.ID, SetStockInput{Sizes: map[string]int{"s": 2, "M": 5}})
	require.NoError(t, err)
	require.Equal(t, 7, dto.StockQuantity)
	require.Equal(t, 2, dto.SizeStock["S"])

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	require.True(t, reloaded.IsActive)
	require.False(t, reloaded.StockDeactivated)

	_, err = svc.SetStock(ctx, product.ID, SetStockInput{Sizes: map[string]int{"XXL": 1}})
	require.Equal(t, pkgerrors.CodeInvalidSize, pkgerrors.As(err).Code())

	negative := -1
	_, err = svc.SetStock(ctx, product.ID, SetStockInput{Total: &negative})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.SetStock(ctx, uuid.New(), SetStockInput{Sizes: map[string]int{"S": 1}})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestAddImageKeepsSinglePrimary(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := testdb.SeedProduct(t, conn, testdb.ProductFixture{})
	first, err := svc.AddImage(ctx, product.ID, AddImageInput{URL: "https://cdn.example.com/a.jpg", IsPrimary: true})
	require.NoError(t, err)
	second, err := svc.AddImage(ctx, product.ID, AddImageInput{URL: "https://cdn.example.com/b.jpg", IsPrimary: true, Position: 1})
	require.NoError(t, err)

	var primaries []models.ProductImage
	require.NoError(t, conn.Where("product_id = ? AND is_primary = ?", product.ID, true).Find(&primaries).Error)
	require.Len(t, primaries, 1)
	require.Equal(t, second.ID, primaries[0].ID)
	require.NotEqual(t, first.ID, second.ID)
}
