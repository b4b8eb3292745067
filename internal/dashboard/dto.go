package dashboard

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stats is the staff dashboard payload.
type Stats struct {
	GeneratedAt           time.Time        `json:"generated_at"`
	TotalRevenue          decimal.Decimal  `json:"total_revenue"`
	TotalRevenueFormatted string           `json:"total_revenue_formatted"`
	OrdersByStatus        map[string]int64 `json:"orders_by_status"`
	PaymentsByStatus      map[string]int64 `json:"payments_by_status"`
	PaymentsByMethod      map[string]int64 `json:"payments_by_method"`
	TopProducts           []TopProduct     `json:"top_products"`
	OutOfStockProducts    int64            `json:"out_of_stock_products"`
	OnSaleProducts        int64            `json:"on_sale_products"`
	RevenueByDay          []DailyRevenue   `json:"revenue_by_day"`
	RecentOrders          []RecentOrder    `json:"recent_orders"`
}

type TopProduct struct {
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type DailyRevenue struct {
	Day     string          `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type RecentOrder struct {
	ID             uuid.UUID                `json:"id"`
	OrderNumber    string                   `json:"order_number"`
	CustomerName   string                   `json:"customer_name"`
	Status         enums.OrderStatus        `json:"status"`
	PaymentStatus  enums.OrderPaymentStatus `json:"payment_status"`
	Total          decimal.Decimal          `json:"total"`
	TotalFormatted string                   `json:"total_formatted"`
	CreatedAt      time.Time                `json:"created_at"`
}
