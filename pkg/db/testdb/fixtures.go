package testdb

import (
	"testing"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/maillot-backend/pkg/db/types"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductFixture describes a product to seed. Zero fields take defaults:
// price 20000, sizes S/M/L, stock 10 unless OutOfStock, active.
type ProductFixture struct {
	Name       string
	Price      int64
	SalePrice  int64
	Sizes      []string
	Stock      int
	OutOfStock bool
	SizeStock  map[string]int
	Inactive   bool
	Featured   bool
	SalesCount int
	Category   *models.Category
	Team       *models.Team
}

// SeedCategory inserts an active category.
func SeedCategory(t testing.TB, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, IsActive: true}
	mustCreate(t, conn, category)
	return category
}

// SeedTeam inserts an active team in category.
func SeedTeam(t testing.TB, conn *gorm.DB, name string, category *models.Category) *models.Team {
	t.Helper()
	team := &models.Team{Name: name, Country: "France", IsActive: true}
	if category != nil {
		team.CategoryID = &category.ID
	}
	mustCreate(t, conn, team)
	return team
}

// SeedProduct inserts a product and its per-size stock rows.
func SeedProduct(t testing.TB, conn *gorm.DB, fx ProductFixture) *models.Product {
	t.Helper()
	if fx.Name == "" {
		fx.Name = "Maillot " + uuid.NewString()[:8]
	}
	if fx.Price == 0 {
		fx.Price = 20000
	}
	if fx.Sizes == nil {
		fx.Sizes = []string{"S", "M", "L"}
	}
	if fx.Stock == 0 && fx.SizeStock == nil && !fx.OutOfStock {
		fx.Stock = 10
	}
	if fx.Category == nil {
		fx.Category = SeedCategory(t, conn, "Clubs "+uuid.NewString()[:8])
	}
	if fx.Team == nil {
		fx.Team = SeedTeam(t, conn, "Team "+uuid.NewString()[:8], fx.Category)
	}

	product := &models.Product{
		Name:           fx.Name,
		CategoryID:     fx.Category.ID,
		TeamID:         fx.Team.ID,
		Price:          decimal.NewFromInt(fx.Price),
		AvailableSizes: dbtypes.SizeList(fx.Sizes),
		StockQuantity:  fx.Stock,
		IsActive:       !fx.Inactive,
		IsFeatured:     fx.Featured,
		SalesCount:     fx.SalesCount,
	}
	if fx.SalePrice > 0 {
		product.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(fx.SalePrice))
	}
	if fx.SizeStock != nil {
		total := 0
		for _, qty := range fx.SizeStock {
			total += qty
		}
		product.StockQuantity = total
	}
	mustCreate(t, conn, product)

	for size, qty := range fx.SizeStock {
		row := &models.ProductSizeStock{ProductID: product.ID, Size: size, Quantity: qty}
		mustCreate(t, conn, row)
		product.SizeStocks = append(product.SizeStocks, *row)
	}
	return product
}

// SeedUser inserts an active customer, or staff when staff is true.
func SeedUser(t testing.TB, conn *gorm.DB, email string, staff bool) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "unused",
		FirstName:    "Awa",
		LastName:     "Diop",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	if staff {
		user.Role = enums.UserRoleStaff
	}
	mustCreate(t, conn, user)
	return user
}

// SeedAddress inserts a default address for user.
func SeedAddress(t testing.TB, conn *gorm.DB, user *models.User) *models.Address {
	t.Helper()
	address := &models.Address{
		UserID:        user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Phone:         "+221770000000",
		Email:         user.Email,
		StreetAddress: "12 Rue Carnot",
		City:          "Dakar",
		IsDefault:     true,
	}
	mustCreate(t, conn, address)
	return address
}

// OrderLine is one item of a seeded order.
type OrderLine struct {
	Product  *models.Product
	Size     string
	Quantity int
}

// SeedOrder inserts a pending order for user with one item per line, priced
// at the product's current price plus a 1000 shipping fee.
func SeedOrder(t testing.TB, conn *gorm.DB, user *models.User, number string, lines ...OrderLine) *models.Order {
	t.Helper()
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		unit := line.Product.CurrentPrice()
		total := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
		productID := line.Product.ID
		items = append(items, models.OrderItem{
			ProductID:   &productID,
			ProductName: line.Product.Name,
			Size:        line.Size,
			Quantity:    line.Quantity,
			Price:       unit,
			TotalPrice:  total,
		})
		subtotal = subtotal.Add(total)
	}
	shipping := decimal.NewFromInt(1000)
	order := &models.Order{
		OrderNumber: number,
		UserID:      user.ID,
		ShippingAddress: types.AddressSnapshot{
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			Phone:         "+221770000000",
			Email:         user.Email,
			StreetAddress: "12 Rue Carnot",
			City:          "Dakar",
			Country:       types.DefaultCountry,
		},
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.OrderPaymentStatusPending,
		PaymentMethod: enums.PaymentMethodGateway,
		Subtotal:      subtotal,
		ShippingCost:  shipping,
		Total:         subtotal.Add(shipping),
	}
	mustCreate(t, conn, order)
	for i := range items {
		items[i].OrderID = order.ID
		mustCreate(t, conn, &items[i])
	}
	order.Items = items
	return order
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
