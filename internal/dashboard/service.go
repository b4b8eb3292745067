// Package dashboard aggregates the staff overview of sales, payments and stock.
package dashboard

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	topProductsLimit  = 5
	recentOrdersLimit = 10
	revenueDays       = 7
	dayLayout         = "2006-01-02"
)

// Service provides the staff dashboard.
type Service interface {
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	now = now.UTC()
	stats := &Stats{GeneratedAt: now}

	revenue, err := s.repo.Revenue(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum revenue")
	}
	stats.TotalRevenue = revenue
	stats.TotalRevenueFormatted = money.Format(revenue)

	if stats.OrdersByStatus, err = s.repo.CountBy(ctx, "orders", "status"); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders by status")
	}
	if stats.PaymentsByStatus, err = s.repo.CountBy(ctx, "payments", "status"); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count payments by status")
	}
	if stats.PaymentsByMethod, err = s.repo.CountBy(ctx, "payments", "method"); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count payments by method")
	}

	products, err := s.repo.TopProducts(ctx, topProductsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "top products")
	}
	stats.TopProducts = make([]TopProduct, 0, len(products))
	for _, row := range products {
		stats.TopProducts = append(stats.TopProducts, TopProduct(row))
	}

	if stats.OutOfStockProducts, err = s.repo.CountOutOfStock(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count out of stock")
	}
	if stats.OnSaleProducts, err = s.repo.CountOnSale(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count on sale")
	}

	if stats.RevenueByDay, err = s.revenueByDay(ctx, now); err != nil {
		return nil, err
	}

	recent, err := s.repo.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recent orders")
	}
	stats.RecentOrders = make([]RecentOrder, 0, len(recent))
	for _, order := range recent {
		stats.RecentOrders = append(stats.RecentOrders, RecentOrder{
			ID:             order.ID,
			OrderNumber:    order.OrderNumber,
			CustomerName:   order.ShippingAddress.FullName(),
			Status:         order.Status,
			PaymentStatus:  order.PaymentStatus,
			Total:          order.Total,
			TotalFormatted: money.Format(order.Total),
			CreatedAt:      order.CreatedAt,
		})
	}
	return stats, nil
}

// revenueByDay buckets paid orders into the last revenueDays UTC days,
// oldest first, with empty days kept as zero.
func (s *service) revenueByDay(ctx context.Context, now time.Time) ([]DailyRevenue, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(revenueDays - 1))

	rows, err := s.repo.PaidSince(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revenue by day")
	}

	days := make([]DailyRevenue, revenueDays)
	index := make(map[string]int, revenueDays)
	for i := range days {
		day := start.AddDate(0, 0, i).Format(dayLayout)
		days[i] = DailyRevenue{Day: day, Revenue: decimal.Zero}
		index[day] = i
	}
	for _, row := range rows {
		at := row.CreatedAt
		if row.PaidAt != nil && !row.PaidAt.IsZero() {
			at = *row.PaidAt
		}
		i, ok := index[at.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		days[i].Revenue = days[i].Revenue.Add(row.Total)
		days[i].Orders++
	}
	return days, nil
}
