// Package webhooks turns provider notifications into payment transitions.
package webhooks

import (
	"context"
	"strings"

	"github.com/angelmondragon/maillot-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/gateway"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
)

type callbackHandler interface {
	HandleGatewayCallback(ctx context.Context, token string, status gateway.Status) (*payments.PaymentDTO, error)
}

type ServiceParams struct {
	Payments callbackHandler
	Logger   *logger.Logger
}

type Service struct {
	payments callbackHandler
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

// GatewayEvent is the signed callback posted by the hosted checkout.
type GatewayEvent struct {
	EventID string `json:"event_id"`
	Token   string `json:"token"`
	Status  string `json:"status"`
}

// SquareEvent is the subset of a Square payment notification we consume.
type SquareEvent struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"type"`
	Data    SquareEventData `json:"data"`
}

type SquareEventData struct {
	Type   string            `json:"type"`
	ID     string            `json:"id"`
	Object SquareEventObject `json:"object"`
}

type SquareEventObject struct {
	Payment *SquarePayment `json:"payment"`
}

type SquarePayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HandleGatewayEvent applies a hosted checkout callback.
func (s *Service) HandleGatewayEvent(ctx context.Context, event *GatewayEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway event required")
	}
	token := strings.TrimSpace(event.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	status, ok := gateway.ParseStatus(event.Status)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").
			WithDetails(map[string]any{"status": event.Status})
	}
	payment, err := s.payments.HandleGatewayCallback(ctx, token, status)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.logg.Warn(s.logg.WithField(ctx, "event_id", event.EventID), "webhook.gateway_order_cancelled")
			return nil
		}
		return err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithPaymentID(ctx, payment.PaymentID), map[string]any{
		"event_id": event.EventID,
		"status":   string(payment.Status),
	}), "webhook.gateway_processed")
	return nil
}

// HandleSquareEvent applies payment.updated notifications. Other event types
// and payments this shop never created are acknowledged without effect.
func (s *Service) HandleSquareEvent(ctx context.Context, event *SquareEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
	default:
		s.logg.Debug(s.logg.WithField(ctx, "event_type", event.Type), "webhook.square_ignored")
		return nil
	}
	payment := event.Data.Object.Payment
	if payment == nil || payment.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}
	status, ok := gateway.ParseStatus(payment.Status)
	if !ok {
		return nil
	}
	updated, err := s.payments.HandleGatewayCallback(ctx, payment.ID, status)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "square_payment_id", payment.ID), "webhook.square_unknown_payment")
			return nil
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.logg.Warn(s.logg.WithField(ctx, "square_payment_id", payment.ID), "webhook.square_order_cancelled")
			return nil
		}
		return err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithPaymentID(ctx, updated.PaymentID), map[string]any{
		"event_id": event.EventID,
		"status":   string(updated.Status),
	}), "webhook.square_processed")
	return nil
}
