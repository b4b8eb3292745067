package models

import (
	"testing"

	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProductCurrentPrice(t *testing.T) {
	t.Parallel()

	p := Product{Price: decimal.NewFromInt(10000)}
	require.True(t, p.CurrentPrice().Equal(decimal.NewFromInt(10000)))
	require.False(t, p.IsOnSale())
	require.Zero(t, p.DiscountPercentage())

	p.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(7500))
	require.True(t, p.CurrentPrice().Equal(decimal.NewFromInt(7500)))
	require.True(t, p.IsOnSale())
	require.Equal(t, 25, p.DiscountPercentage())

	p.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(12000))
	require.True(t, p.CurrentPrice().Equal(decimal.NewFromInt(10000)))
	require.False(t, p.IsOnSale())
}

func TestProductStockForSize(t *testing.T) {
	t.Parallel()

	p := Product{StockQuantity: 5}
	require.Equal(t, 5, p.StockForSize("M"))

	p.SizeStocks = []ProductSizeStock{{Size: "M", Quantity: 2}, {Size: "L", Quantity: 3}}
	require.Equal(t, 2, p.StockForSize("m"))
	require.Equal(t, 3, p.StockForSize("L"))
	require.Equal(t, 0, p.StockForSize("XL"))
}

func TestProductIsAvailable(t *testing.T) {
	t.Parallel()

	require.True(t, Product{IsActive: true, StockQuantity: 1}.IsAvailable())
	require.False(t, Product{IsActive: true}.IsAvailable())
	require.False(t, Product{StockQuantity: 4}.IsAvailable())
}

func TestCartItemCustomizationReprice(t *testing.T) {
	t.Parallel()

	option := CustomizationOption{ID: uuid.New(), Type: enums.CustomizationTypeName, Price: decimal.NewFromInt(500)}
	custom := CartItemCustomization{CustomText: "MBAPPE 10"}
	custom.Reprice(option)
	require.Equal(t, 1, custom.Quantity)
	require.Equal(t, option.ID, custom.OptionID)
	require.True(t, custom.Price.Equal(decimal.NewFromInt(4500)))

	custom.Reprice(option)
	require.True(t, custom.Price.Equal(decimal.NewFromInt(4500)))

	custom.CustomText = "ZIDANE"
	custom.Reprice(option)
	require.True(t, custom.Price.Equal(decimal.NewFromInt(3000)))
}

func TestCartItemTotal(t *testing.T) {
	t.Parallel()

	item := CartItem{
		UnitPrice: decimal.NewFromInt(10000),
		Quantity:  2,
		Customizations: []CartItemCustomization{
			{Price: decimal.NewFromInt(4500)},
			{Price: decimal.NewFromInt(500)},
		},
	}
	require.True(t, item.Total().Equal(decimal.NewFromInt(25000)))
	require.True(t, item.CustomizationTotal().Equal(decimal.NewFromInt(5000)))
}

func TestOrderCanBeCancelled(t *testing.T) {
	t.Parallel()

	require.True(t, Order{Status: enums.OrderStatusPending}.CanBeCancelled())
	require.True(t, Order{Status: enums.OrderStatusProcessing}.CanBeCancelled())
	require.False(t, Order{Status: enums.OrderStatusShipped}.CanBeCancelled())
	require.False(t, Order{Status: enums.OrderStatusCancelled}.CanBeCancelled())
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	require.Equal(t, "maillot-domicile-2024", Slugify("Maillot Domicile 2024"))
	require.Equal(t, "cote-d-ivoire", Slugify("Côte d'Ivoire"))
	require.Equal(t, "paris-saint-germain", Slugify("  Paris  Saint-Germain! "))
}
