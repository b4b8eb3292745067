package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/pagination"
	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransitionHandler reacts to an order status change inside the same transaction.
type TransitionHandler interface {
	ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, from, to enums.OrderStatus) error
}

// Service exposes order reads and status changes.
type Service interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*types.CursorPage[OrderDTO], error)
	ListAll(ctx context.Context, filters Filters, params pagination.Params) (*types.CursorPage[OrderDTO], error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, actor types.Actor) (*OrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo    *Repository
	tx      db.TxRunner
	handler TransitionHandler
	logg    *logger.Logger
}

// NewService builds the orders service.
func NewService(repo *Repository, tx db.TxRunner, handler TransitionHandler, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if handler == nil {
		return nil, fmt.Errorf("transition handler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, handler: handler, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*types.CursorPage[OrderDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, Filters{UserID: &userID}, params)
}

func (s *service) ListAll(ctx context.Context, filters Filters, params pagination.Params) (*types.CursorPage[OrderDTO], error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if filters.PaymentStatus != nil && !filters.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
	}
	return s.list(ctx, filters, params)
}

func (s *service) list(ctx context.Context, filters Filters, params pagination.Params) (*types.CursorPage[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	kept, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	items := make([]OrderDTO, 0, len(kept))
	for i := range kept {
		items = append(items, FromModel(&kept[i]))
	}
	return &types.CursorPage[OrderDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, actor types.Actor) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", next))
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"actor_id": actor.UserID.String(), "actor_role": string(actor.Role)})

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).LockByID(ctx, orderID)
		if err != nil {
			return mapLoadErr(err)
		}
		result, err = s.transition(ctx, tx, order, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).LockByID(ctx, orderID)
		if err != nil {
			return mapLoadErr(err)
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.CanBeCancelled() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s can no longer be cancelled", order.Status))
		}
		result, err = s.transition(ctx, tx, order, enums.OrderStatusCancelled)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// transition persists next and hands the change to the transition handler.
// Saving the current status again is a no-op.
func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.Order, next enums.OrderStatus) (*OrderDTO, error) {
	repo := s.repo.WithTx(tx)
	prev := order.Status
	if prev != next {
		if !CanTransition(prev, next, order.PaymentStatus) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", prev, next)).
				WithDetails(map[string]any{"from": prev, "to": next})
		}
		updates := map[string]any{"status": next}
		if next == enums.OrderStatusRefunded {
			updates["payment_status"] = enums.OrderPaymentStatusRefunded
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		order.Status = next
		if err := s.handler.ApplyTransition(ctx, tx, order, prev, next); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply stock transition")
		}
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderNumber(ctx, order.OrderNumber), map[string]any{
			"from": string(prev),
			"to":   string(next),
		}), "order.status_changed")
	}

	reloaded, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	dto := FromModel(reloaded)
	return &dto, nil
}

func mapLoadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}
