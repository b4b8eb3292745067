package webhooks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/maillot-backend/internal/payments"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/gateway"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
)

type stubCallbacks struct {
	tokens   []string
	statuses []gateway.Status
	err      error
}

func (s *stubCallbacks) HandleGatewayCallback(ctx context.Context, token string, status gateway.Status) (*payments.PaymentDTO, error) {
	s.tokens = append(s.tokens, token)
	s.statuses = append(s.statuses, status)
	if s.err != nil {
		return nil, s.err
	}
	return &payments.PaymentDTO{PaymentID: "PAY_" + token, Status: enums.PaymentStatus(status)}, nil
}

func newTestService(t *testing.T, callbacks *stubCallbacks) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Payments: callbacks,
		Logger:   logger.New(logger.Options{ServiceName: "webhooks-test"}),
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func TestService_HandleGatewayEvent(t *testing.T) {
	callbacks := &stubCallbacks{}
	svc := newTestService(t, callbacks)

	if err := svc.HandleGatewayEvent(context.Background(), &GatewayEvent{EventID: "evt-1", Token: "tok-1", Status: "completed"}); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(callbacks.tokens) != 1 || callbacks.tokens[0] != "tok-1" {
		t.Fatalf("unexpected tokens %v", callbacks.tokens)
	}
	if callbacks.statuses[0] != gateway.StatusCompleted {
		t.Fatalf("unexpected status %s", callbacks.statuses[0])
	}
}

func TestService_HandleGatewayEventRejectsUnknownStatus(t *testing.T) {
	callbacks := &stubCallbacks{}
	svc := newTestService(t, callbacks)

	err := svc.HandleGatewayEvent(context.Background(), &GatewayEvent{EventID: "evt-2", Token: "tok-1", Status: "maybe"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(callbacks.tokens) != 0 {
		t.Fatalf("callback should not run")
	}
}

func TestService_HandleSquareEvent(t *testing.T) {
	callbacks := &stubCallbacks{}
	svc := newTestService(t, callbacks)

	event := &SquareEvent{
		EventID: "sq-evt-1",
		Type:    "payment.updated",
		Data:    SquareEventData{Object: SquareEventObject{Payment: &SquarePayment{ID: "sq-pay-1", Status: "CANCELED"}}},
	}
	if err := svc.HandleSquareEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if callbacks.statuses[0] != gateway.StatusCancelled {
		t.Fatalf("unexpected status %s", callbacks.statuses[0])
	}

	if err := svc.HandleSquareEvent(context.Background(), &SquareEvent{Type: "refund.created"}); err != nil {
		t.Fatalf("ignored event returned %v", err)
	}
	if len(callbacks.tokens) != 1 {
		t.Fatalf("ignored event should not reach payments")
	}
}

func TestService_HandleSquareEventUnknownPaymentAcknowledged(t *testing.T) {
	callbacks := &stubCallbacks{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")}
	svc := newTestService(t, callbacks)

	event := &SquareEvent{
		Type: "payment.updated",
		Data: SquareEventData{Object: SquareEventObject{Payment: &SquarePayment{ID: "foreign", Status: "COMPLETED"}}},
	}
	if err := svc.HandleSquareEvent(context.Background(), event); err != nil {
		t.Fatalf("expected unknown payment to be acknowledged, got %v", err)
	}
}

func TestIdempotencyGuard_CheckAndMark(t *testing.T) {
	store := newInMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "gateway")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt-1")
	if err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(context.Background(), "evt-1")
	if err != nil || !seen {
		t.Fatalf("second delivery: seen=%v err=%v", seen, err)
	}
	if err := guard.Delete(context.Background(), "evt-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, _ = guard.CheckAndMark(context.Background(), "evt-1")
	if seen {
		t.Fatalf("expected event to be forgotten after delete")
	}
	if _, ok := store.data["maillot:webhook:gateway:evt-1"]; !ok {
		t.Fatalf("expected provider scoped key, got %v", store.data)
	}
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *inMemoryStore) WebhookEventKey(provider, eventID string) string {
	return fmt.Sprintf("maillot:webhook:%s:%s", provider, eventID)
}

func TestService_CancelledOrderCallbacksAcknowledged(t *testing.T) {
	callbacks := &stubCallbacks{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")}
	svc := newTestService(t, callbacks)

	if err := svc.HandleGatewayEvent(context.Background(), &GatewayEvent{EventID: "evt-9", Token: "tok-9", Status: "completed"}); err != nil {
		t.Fatalf("expected cancelled order callback to be acknowledged, got %v", err)
	}
	event := &SquareEvent{
		Type: "payment.updated",
		Data: SquareEventData{Object: SquareEventObject{Payment: &SquarePayment{ID: "sq-9", Status: "COMPLETED"}}},
	}
	if err := svc.HandleSquareEvent(context.Background(), event); err != nil {
		t.Fatalf("expected cancelled order notification to be acknowledged, got %v", err)
	}
	if len(callbacks.tokens) != 2 {
		t.Fatalf("expected both callbacks to reach payments, got %v", callbacks.tokens)
	}
}
