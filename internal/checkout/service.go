// Package checkout turns a user's cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/maillot-backend/internal/address"
	"github.com/angelmondragon/maillot-backend/internal/cart"
	"github.com/angelmondragon/maillot-backend/internal/orders"
	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderNumberLayout = "20060102150405"

// Input is the checkout request.
type Input struct {
	AddressID     uuid.UUID           `json:"address_id" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	Notes         string              `json:"notes" validate:"max=1000"`
}

// Service materializes orders from carts.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error)
}

type service struct {
	tx        db.TxRunner
	carts     cart.Service
	orders    *orders.Repository
	addresses *address.Repository
	cfg       config.CheckoutConfig
	logg      *logger.Logger
	metrics   *metrics.ShopMetrics
	now       func() time.Time
}

// Option customizes the checkout service.
type Option func(*service)

// WithClock overrides the clock used for order numbers.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds the checkout service. m may be nil.
func NewService(tx db.TxRunner, carts cart.Service, orderRepo *orders.Repository, addresses *address.Repository, cfg config.CheckoutConfig, logg *logger.Logger, m *metrics.ShopMetrics, opts ...Option) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.OrderPrefix == "" {
		cfg.OrderPrefix = "CMD"
	}
	s := &service{
		tx:        tx,
		carts:     carts,
		orders:    orderRepo,
		addresses: addresses,
		cfg:       cfg,
		logg:      logg,
		metrics:   m,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OrderNumber builds prefix + timestamp + upper-case user id hex.
func OrderNumber(prefix string, at time.Time, userID uuid.UUID) string {
	return prefix + at.Format(orderNumberLayout) + strings.ToUpper(strings.ReplaceAll(userID.String(), "-", ""))
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error) {
	started := time.Now()
	result, err := s.createOrder(ctx, userID, input)
	s.metrics.ObserveCheckout(outcome(err), time.Since(started))
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderNumber(ctx, result.OrderNumber), map[string]any{
		"user_id": userID.String(),
		"total":   result.Total.String(),
		"items":   len(result.Items),
	}), "checkout.order_created")
	return result, nil
}

func (s *service) createOrder(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}

	var result *orders.OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		owner := cart.ForUser(userID)
		carts := s.carts.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		addr, err := s.addresses.WithTx(tx).FindForUser(ctx, userID, input.AddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
		}

		lines, err := carts.Lines(ctx, owner)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		if err := checkStock(lines); err != nil {
			s.logg.Warn(s.logg.WithCartID(ctx, lines[0].CartID.String()), "checkout.insufficient_stock")
			return err
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			subtotal = subtotal.Add(line.Total())
		}
		addressID := addr.ID
		order := &models.Order{
			OrderNumber:     OrderNumber(s.cfg.OrderPrefix, s.now(), userID),
			UserID:          userID,
			AddressID:       &addressID,
			ShippingAddress: addr.Snapshot(),
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.OrderPaymentStatusPending,
			PaymentMethod:   input.PaymentMethod,
			Subtotal:        subtotal,
			ShippingCost:    s.cfg.ShippingCost,
			Total:           subtotal.Add(s.cfg.ShippingCost),
			Notes:           strings.TrimSpace(input.Notes),
		}
		if err := orderRepo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "order_number") {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateOrderNumber, err, "order number already exists").
					WithDetails(map[string]any{"order_number": order.OrderNumber})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		for _, line := range lines {
			if err := snapshotLine(ctx, orderRepo, order.ID, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "snapshot cart line")
			}
		}

		if err := carts.Clear(ctx, owner); err != nil {
			return err
		}

		created, err := orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		dto := orders.FromModel(created)
		result = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkStock rejects lines asking for more units than the product holds. Products
// without per-size rows share one counter across their sizes.
func checkStock(lines []models.CartItem) error {
	requested := make(map[string]int, len(lines))
	for _, line := range lines {
		requested[stockKey(line)] += line.Quantity
	}
	for _, line := range lines {
		available := line.Product.StockForSize(line.Size)
		if want := requested[stockKey(line)]; want > available {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d left for %s in size %s", available, line.Product.Name, line.Size)).
				WithDetails(map[string]any{
					"product_id": line.ProductID.String(),
					"size":       line.Size,
					"available":  available,
					"requested":  want,
				})
		}
	}
	return nil
}

func stockKey(line models.CartItem) string {
	if len(line.Product.SizeStocks) == 0 {
		return line.ProductID.String()
	}
	return line.ProductID.String() + ":" + strings.ToUpper(line.Size)
}

func snapshotLine(ctx context.Context, repo *orders.Repository, orderID uuid.UUID, line models.CartItem) error {
	productID := line.ProductID
	item := &models.OrderItem{
		OrderID:     orderID,
		ProductID:   &productID,
		ProductName: line.Product.Name,
		Size:        line.Size,
		Quantity:    line.Quantity,
		Price:       line.UnitPrice,
		TotalPrice:  line.Total(),
	}
	if err := repo.CreateItem(ctx, item); err != nil {
		return err
	}
	for _, c := range line.Customizations {
		optionID := c.OptionID
		row := &models.OrderItemCustomization{
			OrderItemID: item.ID,
			OptionID:    &optionID,
			CustomText:  c.CustomText,
			Quantity:    c.Quantity,
			Price:       c.Price,
		}
		if c.Option != nil {
			row.OptionName = c.Option.Name
			row.OptionType = c.Option.Type
		}
		if err := repo.CreateItemCustomization(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	return strings.ToLower(string(typed.Code()))
}
