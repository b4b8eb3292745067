package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/maillot-backend/internal/address"
	"github.com/angelmondragon/maillot-backend/internal/cart"
	"github.com/angelmondragon/maillot-backend/internal/catalog"
	"github.com/angelmondragon/maillot-backend/internal/customizations"
	"github.com/angelmondragon/maillot-backend/internal/inventory"
	"github.com/angelmondragon/maillot-backend/internal/orders"
	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/db/testdb"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 5, 0, time.UTC)

type harness struct {
	conn     *gorm.DB
	carts    cart.Service
	checkout Service
	orders   orders.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := testdb.Open(t, "checkout")
	client := db.NewFromGorm(conn)
	logg := logger.New(logger.Options{ServiceName: "checkout-test"})

	options, err := customizations.NewService(customizations.NewRepository(conn))
	require.NoError(t, err)
	carts, err := cart.NewService(cart.NewRepository(conn), catalog.NewRepository(conn), options, client)
	require.NoError(t, err)
	orderRepo := orders.NewRepository(conn)
	cfg := config.CheckoutConfig{ShippingCost: decimal.NewFromInt(1000), Currency: "XOF", OrderPrefix: "CMD"}
	svc, err := NewService(client, carts, orderRepo, address.NewRepository(conn), cfg, logg, nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	ledger, err := inventory.NewLedger(logg, nil)
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orderRepo, client, ledger, logg)
	require.NoError(t, err)
	return &harness{conn: conn, carts: carts, checkout: svc, orders: orderSvc}
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestOrderNumberFormat(t *testing.T) {
	id := uuid.MustParse("0a1b2c3d-4e5f-4071-8899-aabbccddeeff")
	require.Equal(t, "CMD20250314093005"+"0A1B2C3D4E5F40718899AABBCCDDEEFF", OrderNumber("CMD", fixedNow, id))
}

func TestCheckoutEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.conn, "e2e@example.com", false)
	addr := testdb.SeedAddress(t, h.conn, user)
	product := testdb.SeedProduct(t, h.conn, testdb.ProductFixture{Name: "France Domicile", Price: 20000, Stock: 10})

	_, err := h.carts.Add(ctx, cart.ForUser(user.ID), cart.AddInput{
		ProductID:      product.ID,
		Size:           "M",
		Quantity:       1,
		Customizations: []cart.CustomizationInput{{Type: enums.CustomizationTypeName, Name: "MBAPPE", Number: "10"}},
	})
	require.NoError(t, err)

	order, err := h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethodGateway, Notes: " sonner deux fois "})
	require.NoError(t, err)
	require.Equal(t, OrderNumber("CMD", fixedNow, user.ID), order.OrderNumber)
	require.True(t, order.Subtotal.Equal(decimal.NewFromInt(24500)))
	require.True(t, order.ShippingCost.Equal(decimal.NewFromInt(1000)))
	require.True(t, order.Total.Equal(decimal.NewFromInt(25500)))
	require.Equal(t, "sonner deux fois", order.Notes)
	require.Equal(t, "Dakar", order.ShippingAddress.City)
	require.Len(t, order.Items, 1)
	require.Equal(t, "France Domicile", order.Items[0].ProductName)
	require.Len(t, order.Items[0].Customizations, 1)
	require.Equal(t, "MBAPPE 10", order.Items[0].Customizations[0].CustomText)
	require.Equal(t, "Nom et Numéro", order.Items[0].Customizations[0].Name)
	require.True(t, order.Items[0].Customizations[0].Price.Equal(decimal.NewFromInt(4500)))

	view, err := h.carts.Get(ctx, cart.ForUser(user.ID))
	require.NoError(t, err)
	require.Empty(t, view.Items)

	var untouched models.Product
	require.NoError(t, h.conn.First(&untouched, "id = ?", product.ID).Error)
	require.Equal(t, 10, untouched.StockQuantity)

	staff := types.Actor{UserID: uuid.New(), Role: enums.UserRoleStaff}
	_, err = h.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, staff)
	require.NoError(t, err)
	var committed models.Product
	require.NoError(t, h.conn.First(&committed, "id = ?", product.ID).Error)
	require.Equal(t, 9, committed.StockQuantity)
	require.Equal(t, 1, committed.SalesCount)

	require.NoError(t, h.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", decimal.NewFromInt(99000)).Error)
	require.NoError(t, h.conn.Model(&models.CustomizationOption{}).Where("1 = 1").Update("price", decimal.NewFromInt(900)).Error)
	again, err := h.orders.Get(ctx, user.ID, order.ID)
	require.NoError(t, err)
	require.True(t, again.Total.Equal(decimal.NewFromInt(25500)))
	require.True(t, again.Items[0].Customizations[0].Price.Equal(decimal.NewFromInt(4500)))
}

func TestCheckoutRejectsEmptyCartAndForeignAddress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.conn, "empty@example.com", false)
	other := testdb.SeedUser(t, h.conn, "other@example.com", false)
	addr := testdb.SeedAddress(t, h.conn, user)
	foreign := testdb.SeedAddress(t, h.conn, other)

	_, err := h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethodGateway})
	require.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.As(err).Code())

	product := testdb.SeedProduct(t, h.conn, testdb.ProductFixture{})
	_, err = h.carts.Add(ctx, cart.ForUser(user.ID), cart.AddInput{ProductID: product.ID, Size: "S", Quantity: 1})
	require.NoError(t, err)

	_, err = h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: foreign.ID, PaymentMethod: enums.PaymentMethodGateway})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethod("cheque")})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	require.Zero(t, countRows(t, h.conn, &models.Order{}))
}

func TestCheckoutDuplicateOrderNumberRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.conn, "dup@example.com", false)
	addr := testdb.SeedAddress(t, h.conn, user)
	product := testdb.SeedProduct(t, h.conn, testdb.ProductFixture{})
	owner := cart.ForUser(user.ID)

	_, err := h.carts.Add(ctx, owner, cart.AddInput{ProductID: product.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)
	_, err = h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethodMobileMoney})
	require.NoError(t, err)

	_, err = h.carts.Add(ctx, owner, cart.AddInput{ProductID: product.ID, Size: "L", Quantity: 2})
	require.NoError(t, err)
	_, err = h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethodMobileMoney})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDuplicateOrderNumber, typed.Code())
	require.False(t, pkgerrors.MetadataFor(typed.Code()).Retryable)

	require.EqualValues(t, 1, countRows(t, h.conn, &models.Order{}))
	lines, err := h.carts.Lines(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestCheckoutFailureOnNthItemRollsBackEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.conn, "atomic@example.com", false)
	addr := testdb.SeedAddress(t, h.conn, user)
	owner := cart.ForUser(user.ID)
	for i := 0; i < 3; i++ {
		product := testdb.SeedProduct(t, h.conn, testdb.ProductFixture{})
		_, err := h.carts.Add(ctx, owner, cart.AddInput{
			ProductID:      product.ID,
			Size:           "M",
			Quantity:       1,
			Customizations: []cart.CustomizationInput{{Type: enums.CustomizationTypeBadge, BadgeType: enums.BadgeTypeChampions}},
		})
		require.NoError(t, err)
	}

	require.NoError(t, h.conn.Exec(`CREATE TRIGGER fail_third_item BEFORE INSERT ON order_items
WHEN (SELECT COUNT(*) FROM order_items WHERE order_id = NEW.order_id) >= 2
BEGIN SELECT RAISE(ABORT, 'forced item failure'); END;`).Error)

	_, err := h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethodGateway})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())

	require.Zero(t, countRows(t, h.conn, &models.Order{}))
	require.Zero(t, countRows(t, h.conn, &models.OrderItem{}))
	require.Zero(t, countRows(t, h.conn, &models.OrderItemCustomization{}))
	lines, err := h.carts.Lines(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	for _, line := range lines {
		require.Len(t, line.Customizations, 1)
	}
}

func TestCheckoutRejectsMergedCartBeyondStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.conn, "merge@example.com", false)
	addr := testdb.SeedAddress(t, h.conn, user)
	product := testdb.SeedProduct(t, h.conn, testdb.ProductFixture{Stock: 3})

	_, err := h.carts.Add(ctx, cart.ForUser(user.ID), cart.AddInput{ProductID: product.ID, Size: "M", Quantity: 3})
	require.NoError(t, err)
	_, err = h.carts.Add(ctx, cart.ForSession("guest-merge"), cart.AddInput{ProductID: product.ID, Size: "M", Quantity: 3})
	require.NoError(t, err)
	require.NoError(t, h.carts.MergeSessionCart(ctx, "guest-merge", user.ID))

	_, err = h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethodGateway})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

	require.Zero(t, countRows(t, h.conn, &models.Order{}))
	lines, err := h.carts.Lines(ctx, cart.ForUser(user.ID))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 6, lines[0].Quantity)
}

func TestCheckoutRejectsStockDroppedAfterAdd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.conn, "drop@example.com", false)
	addr := testdb.SeedAddress(t, h.conn, user)
	product := testdb.SeedProduct(t, h.conn, testdb.ProductFixture{SizeStock: map[string]int{"M": 4, "L": 2}})

	_, err := h.carts.Add(ctx, cart.ForUser(user.ID), cart.AddInput{ProductID: product.ID, Size: "M", Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, h.conn.Model(&models.ProductSizeStock{}).
		Where("product_id = ? AND size = ?", product.ID, "M").Update("quantity", 1).Error)

	_, err = h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethodGateway})
	require.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
	require.Zero(t, countRows(t, h.conn, &models.Order{}))
}

// "MESSI 10" is 8 runes, so the name customization prices at 8 * 500.
func TestCheckoutTwoUnitsWithNameCustomization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testdb.SeedUser(t, h.conn, "messi@example.com", false)
	addr := testdb.SeedAddress(t, h.conn, user)
	product := testdb.SeedProduct(t, h.conn, testdb.ProductFixture{Name: "Argentine Domicile", Price: 10000, Stock: 5})
	owner := cart.ForUser(user.ID)

	line, err := h.carts.Add(ctx, owner, cart.AddInput{ProductID: product.ID, Size: "M", Quantity: 2})
	require.NoError(t, err)
	view, err := h.carts.Get(ctx, owner)
	require.NoError(t, err)
	require.True(t, view.Subtotal.Equal(decimal.NewFromInt(20000)), view.Subtotal.String())

	attached, err := h.carts.AttachCustomization(ctx, owner, line.ID, cart.CustomizationInput{Type: enums.CustomizationTypeName, Text: "MESSI 10"})
	require.NoError(t, err)
	require.True(t, attached.Price.Equal(decimal.NewFromInt(4000)), attached.Price.String())

	order, err := h.checkout.CreateOrder(ctx, user.ID, Input{AddressID: addr.ID, PaymentMethod: enums.PaymentMethodMobileMoney})
	require.NoError(t, err)
	require.True(t, order.Subtotal.Equal(decimal.NewFromInt(24000)), order.Subtotal.String())
	require.True(t, order.Total.Equal(decimal.NewFromInt(25000)), order.Total.String())

	var untouched models.Product
	require.NoError(t, h.conn.First(&untouched, "id = ?", product.ID).Error)
	require.Equal(t, 5, untouched.StockQuantity)
	view, err = h.carts.Get(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, view.Items)
}
