package payments

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/db/testdb"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/gateway"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubProvider struct {
	mu       sync.Mutex
	name     string
	result   gateway.Result
	err      error
	verify   gateway.Verification
	delay    time.Duration
	requests []gateway.Request
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Initiate(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return gateway.Result{}, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	if p.err != nil {
		return gateway.Result{}, p.err
	}
	return p.result, nil
}

func (p *stubProvider) Verify(ctx context.Context, token string) (gateway.Verification, error) {
	if p.err != nil {
		return gateway.Verification{}, p.err
	}
	v := p.verify
	v.Token = token
	return v, nil
}

var paidAt = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

type harness struct {
	conn     *gorm.DB
	svc      Service
	paydunya *stubProvider
	square   *stubProvider
	user     *models.User
	staff    types.Actor
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	conn := testdb.Open(t, "payments")
	paydunya := &stubProvider{
		name:   "paydunya",
		result: gateway.Result{Token: "tok-123", RedirectURL: "https://pay.example/checkout/tok-123", Status: gateway.StatusPending},
	}
	square := &stubProvider{name: "square"}
	registry, err := gateway.NewRegistry("paydunya", paydunya, square)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "payments-test"})
	svc, err := NewService(
		NewRepository(conn),
		db.NewFromGorm(conn),
		registry,
		config.GatewayConfig{Timeout: timeout},
		config.WaveConfig{MerchantPhone: "+225 07 00 00 00 00", MerchantName: "Maillots"},
		logg,
		nil,
		WithClock(func() time.Time { return paidAt }),
	)
	require.NoError(t, err)

	user := testdb.SeedUser(t, conn, "buyer@example.com", false)
	staffUser := testdb.SeedUser(t, conn, "staff@example.com", true)
	return &harness{
		conn:     conn,
		svc:      svc,
		paydunya: paydunya,
		square:   square,
		user:     user,
		staff:    types.Actor{UserID: staffUser.ID, Email: staffUser.Email, Role: enums.UserRoleStaff},
	}
}

func (h *harness) order(t *testing.T, number string, method enums.PaymentMethod) *models.Order {
	t.Helper()
	product := testdb.SeedProduct(t, h.conn, testdb.ProductFixture{Price: 20000})
	order := testdb.SeedOrder(t, h.conn, h.user, number, testdb.OrderLine{Product: product, Size: "M", Quantity: 1})
	if method != order.PaymentMethod {
		require.NoError(t, h.conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("payment_method", method).Error)
		order.PaymentMethod = method
	}
	return order
}

func (h *harness) reloadOrder(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, h.conn.First(&order, "id = ?", id).Error)
	return order
}

func (h *harness) events(t *testing.T, paymentID string) []enums.PaymentLogEvent {
	t.Helper()
	logs, err := h.svc.ListLogs(context.Background(), paymentID)
	require.NoError(t, err)
	out := make([]enums.PaymentLogEvent, 0, len(logs))
	for _, entry := range logs {
		out = append(out, entry.Event)
	}
	return out
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestInitiateGatewayStoresToken(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD500", enums.PaymentMethodGateway)

	session, err := h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{})
	require.NoError(t, err)
	require.Equal(t, "tok-123", session.Token)
	require.Equal(t, "https://pay.example/checkout/tok-123", session.RedirectURL)
	require.Equal(t, "PAY_CMD500", session.Payment.PaymentID)
	require.Equal(t, enums.PaymentStatusPending, session.Payment.Status)
	require.True(t, session.Payment.Amount.Equal(order.Total))
	require.Equal(t, "paydunya", session.Payment.Provider)

	require.Len(t, h.paydunya.requests, 1)
	req := h.paydunya.requests[0]
	require.Equal(t, "CMD500", req.OrderNumber)
	require.Equal(t, "buyer@example.com", req.CustomerEmail)
	require.Len(t, req.Items, 1)

	require.Equal(t, []enums.PaymentLogEvent{
		enums.PaymentLogInitiated,
		enums.PaymentLogAPICall,
		enums.PaymentLogCreated,
	}, h.events(t, "PAY_CMD500"))
	require.Equal(t, enums.OrderPaymentStatusPending, h.reloadOrder(t, order.ID).PaymentStatus)
}

func TestInitiateGatewayFailureKeepsPending(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD501", enums.PaymentMethodGateway)
	h.paydunya.err = errors.New("connection refused")

	_, err := h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{Provider: "paydunya"})
	requireCode(t, err, pkgerrors.CodePaymentGateway)
	require.True(t, pkgerrors.MetadataFor(pkgerrors.CodePaymentGateway).Retryable)

	var payment models.Payment
	require.NoError(t, h.conn.First(&payment, "order_id = ?", order.ID).Error)
	require.Equal(t, enums.PaymentStatusPending, payment.Status)
	require.Nil(t, payment.GatewayToken)
	require.Equal(t, []enums.PaymentLogEvent{
		enums.PaymentLogInitiated,
		enums.PaymentLogAPICall,
		enums.PaymentLogPaymentError,
	}, h.events(t, "PAY_CMD501"))
	require.Equal(t, enums.OrderPaymentStatusPending, h.reloadOrder(t, order.ID).PaymentStatus)

	h.paydunya.err = nil
	session, err := h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{})
	require.NoError(t, err)
	require.Equal(t, payment.ID, session.Payment.ID)
}

func TestInitiateGatewayTimeout(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	order := h.order(t, "CMD502", enums.PaymentMethodGateway)
	h.paydunya.delay = time.Second

	_, err := h.svc.InitiateGateway(context.Background(), h.user.ID, order.ID, GatewayInput{})
	requireCode(t, err, pkgerrors.CodePaymentGateway)
}

func TestInitiateGatewayRejectsBadInput(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD503", enums.PaymentMethodGateway)
	manual := h.order(t, "CMD504", enums.PaymentMethodMobileMoney)
	stranger := testdb.SeedUser(t, h.conn, "stranger@example.com", false)

	_, err := h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{Provider: "stripe"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.InitiateGateway(ctx, stranger.ID, order.ID, GatewayInput{})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = h.svc.InitiateGateway(ctx, h.user.ID, manual.ID, GatewayInput{})
	requireCode(t, err, pkgerrors.CodeValidation)

	require.NoError(t, h.conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("payment_status", enums.OrderPaymentStatusPaid).Error)
	_, err = h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestInitiateGatewayCompletedChargeMarksPaid(t *testing.T) {
	h := newHarness(t, time.Second)
	order := h.order(t, "CMD505", enums.PaymentMethodGateway)
	h.square.result = gateway.Result{Token: "sq-pay-1", ReceiptURL: "https://squareup.example/r/1", Reference: "sq-pay-1", Status: gateway.StatusCompleted}

	session, err := h.svc.InitiateGateway(context.Background(), h.user.ID, order.ID, GatewayInput{Provider: "square", SourceID: "cnon:card-nonce-ok"})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, session.Payment.Status)
	require.Equal(t, "https://squareup.example/r/1", session.Payment.ReceiptURL)
	require.Equal(t, "cnon:card-nonce-ok", h.square.requests[0].SourceID)

	reloaded := h.reloadOrder(t, order.ID)
	require.Equal(t, enums.OrderPaymentStatusPaid, reloaded.PaymentStatus)
	require.NotNil(t, reloaded.PaidAt)
	require.True(t, reloaded.PaidAt.Equal(paidAt))
	require.Equal(t, enums.PaymentLogSuccess, h.events(t, "PAY_CMD505")[3])
}

func TestGatewayCallbackCompletesOnce(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD506", enums.PaymentMethodGateway)
	_, err := h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{})
	require.NoError(t, err)

	payment, err := h.svc.HandleGatewayCallback(ctx, "tok-123", gateway.StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.CompletedAt)
	require.Equal(t, enums.OrderPaymentStatusPaid, h.reloadOrder(t, order.ID).PaymentStatus)

	again, err := h.svc.HandleGatewayCallback(ctx, "tok-123", gateway.StatusFailed)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, again.Status)

	events := h.events(t, "PAY_CMD506")
	require.Equal(t, enums.PaymentLogSuccess, events[len(events)-1])
	count := 0
	for _, event := range events {
		if event == enums.PaymentLogSuccess || event == enums.PaymentLogFailed {
			count++
		}
	}
	require.Equal(t, 1, count)

	_, err = h.svc.HandleGatewayCallback(ctx, "missing", gateway.StatusCompleted)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestGatewayCallbackFailureLeavesOrder(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD507", enums.PaymentMethodGateway)
	_, err := h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{})
	require.NoError(t, err)

	payment, err := h.svc.HandleGatewayCallback(ctx, "tok-123", gateway.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCancelled, payment.Status)
	require.Equal(t, enums.OrderPaymentStatusPending, h.reloadOrder(t, order.ID).PaymentStatus)

	events := h.events(t, "PAY_CMD507")
	require.Equal(t, enums.PaymentLogFailed, events[len(events)-1])
}

func TestConfirmGatewayReturnVerifiesToken(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD508", enums.PaymentMethodGateway)
	_, err := h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{})
	require.NoError(t, err)

	stranger := testdb.SeedUser(t, h.conn, "other@example.com", false)
	_, err = h.svc.ConfirmGatewayReturn(ctx, stranger.ID, "tok-123")
	requireCode(t, err, pkgerrors.CodeNotFound)

	h.paydunya.verify = gateway.Verification{Status: gateway.StatusCompleted}
	payment, err := h.svc.ConfirmGatewayReturn(ctx, h.user.ID, "tok-123")
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	require.Equal(t, enums.OrderPaymentStatusPaid, h.reloadOrder(t, order.ID).PaymentStatus)
}

func TestManualPaymentConfirmFlow(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD600", enums.PaymentMethodMobileMoney)

	instructions, err := h.svc.InitiateManual(ctx, h.user.ID, order.ID)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^WAVE_[0-9A-F]{8}$`), instructions.PaymentCode)
	require.Equal(t, "+225 07 00 00 00 00", instructions.MerchantPhone)
	require.Equal(t, "WAVE_CMD600", instructions.Payment.PaymentID)

	again, err := h.svc.InitiateManual(ctx, h.user.ID, order.ID)
	require.NoError(t, err)
	require.Equal(t, instructions.PaymentCode, again.PaymentCode)

	cases := []ManualSubmission{
		{TransactionID: "", Phone: "+225 07 11 22 33"},
		{TransactionID: "AB-123", Phone: "+225 07 11 22 33"},
		{TransactionID: "AB123", Phone: "07a1122334"},
		{TransactionID: "AB123", Phone: "1234"},
		{TransactionID: "AB123", Phone: "+225 07 11 22 33 44 55 66"},
	}
	for _, input := range cases {
		_, err := h.svc.SubmitManual(ctx, h.user.ID, order.ID, input)
		requireCode(t, err, pkgerrors.CodeValidation)
	}

	submitted, err := h.svc.SubmitManual(ctx, h.user.ID, order.ID, ManualSubmission{TransactionID: "TX9F8E7D", Phone: "+225 07 11 22 33"})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusAwaitingReview, submitted.Status)
	require.Equal(t, enums.OrderPaymentStatusPending, h.reloadOrder(t, order.ID).PaymentStatus)

	customer := types.Actor{UserID: h.user.ID, Email: h.user.Email, Role: enums.UserRoleCustomer}
	_, err = h.svc.ConfirmManual(ctx, customer, "WAVE_CMD600", "")
	requireCode(t, err, pkgerrors.CodeForbidden)

	confirmed, err := h.svc.ConfirmManual(ctx, h.staff, "WAVE_CMD600", "vu sur le relevé")
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, confirmed.Status)

	reloaded := h.reloadOrder(t, order.ID)
	require.Equal(t, enums.OrderPaymentStatusPaid, reloaded.PaymentStatus)
	require.NotNil(t, reloaded.PaidAt)

	var payment models.Payment
	require.NoError(t, h.conn.First(&payment, "payment_id = ?", "WAVE_CMD600").Error)
	require.NotNil(t, payment.ReviewedBy)
	require.Equal(t, h.staff.UserID, *payment.ReviewedBy)

	logs, err := h.svc.ListLogs(ctx, "WAVE_CMD600")
	require.NoError(t, err)
	require.Equal(t, []enums.PaymentLogEvent{
		enums.PaymentLogWaveInitiated,
		enums.PaymentLogWaveSubmitted,
		enums.PaymentLogWaveConfirmed,
	}, h.events(t, "WAVE_CMD600"))
	require.Equal(t, "staff@example.com", logs[2].Data["confirmed_by"])

	_, err = h.svc.ConfirmManual(ctx, h.staff, "WAVE_CMD600", "")
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestManualPaymentReject(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD601", enums.PaymentMethodMobileMoney)

	_, err := h.svc.SubmitManual(ctx, h.user.ID, order.ID, ManualSubmission{TransactionID: "TX1", Phone: "0711223344"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = h.svc.InitiateManual(ctx, h.user.ID, order.ID)
	require.NoError(t, err)
	_, err = h.svc.SubmitManual(ctx, h.user.ID, order.ID, ManualSubmission{TransactionID: "TX1", Phone: "0711223344"})
	require.NoError(t, err)

	rejected, err := h.svc.RejectManual(ctx, h.staff, "WAVE_CMD601", "transaction introuvable")
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusFailed, rejected.Status)
	require.Equal(t, enums.OrderPaymentStatusPending, h.reloadOrder(t, order.ID).PaymentStatus)

	_, err = h.svc.ConfirmManual(ctx, h.staff, "WAVE_CMD601", "")
	requireCode(t, err, pkgerrors.CodeStateConflict)

	fresh, err := h.svc.InitiateManual(ctx, h.user.ID, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPending, fresh.Payment.Status)
	require.Empty(t, fresh.Payment.TransactionID)
}

func TestGetForOrder(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	order := h.order(t, "CMD602", enums.PaymentMethodGateway)

	_, err := h.svc.GetForOrder(ctx, h.user.ID, order.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = h.svc.InitiateGateway(ctx, h.user.ID, order.ID, GatewayInput{})
	require.NoError(t, err)
	payment, err := h.svc.GetForOrder(ctx, h.user.ID, order.ID)
	require.NoError(t, err)
	require.Equal(t, "PAY_CMD602", payment.PaymentID)
}

func TestRedactMasksNestedSecrets(t *testing.T) {
	out := redact(map[string]any{
		"provider": "paydunya",
		"headers":  map[string]any{"PAYDUNYA-MASTER-KEY": "mk", "Content-Type": "application/json"},
		"items":    []any{map[string]any{"source_id": "cnon:1"}},
	})
	require.Equal(t, "paydunya", out["provider"])
	headers := out["headers"].(map[string]any)
	require.Equal(t, redacted, headers["PAYDUNYA-MASTER-KEY"])
	require.Equal(t, "application/json", headers["Content-Type"])
	require.Equal(t, redacted, out["items"].([]any)[0].(map[string]any)["source_id"])
}

func TestCompletionRejectedForCancelledOrder(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()

	card := h.order(t, "CMD700", enums.PaymentMethodGateway)
	_, err := h.svc.InitiateGateway(ctx, h.user.ID, card.ID, GatewayInput{})
	require.NoError(t, err)
	require.NoError(t, h.conn.Model(&models.Order{}).Where("id = ?", card.ID).Update("status", enums.OrderStatusCancelled).Error)

	_, err = h.svc.HandleGatewayCallback(ctx, "tok-123", gateway.StatusCompleted)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Equal(t, enums.OrderPaymentStatusPending, h.reloadOrder(t, card.ID).PaymentStatus)
	var payment models.Payment
	require.NoError(t, h.conn.First(&payment, "payment_id = ?", "PAY_CMD700").Error)
	require.Equal(t, enums.PaymentStatusPending, payment.Status)
	require.NotContains(t, h.events(t, "PAY_CMD700"), enums.PaymentLogSuccess)

	wave := h.order(t, "CMD701", enums.PaymentMethodMobileMoney)
	_, err = h.svc.InitiateManual(ctx, h.user.ID, wave.ID)
	require.NoError(t, err)
	_, err = h.svc.SubmitManual(ctx, h.user.ID, wave.ID, ManualSubmission{TransactionID: "TX700", Phone: "+225 07 11 22 33"})
	require.NoError(t, err)
	require.NoError(t, h.conn.Model(&models.Order{}).Where("id = ?", wave.ID).Update("status", enums.OrderStatusCancelled).Error)

	_, err = h.svc.ConfirmManual(ctx, h.staff, "WAVE_CMD701", "")
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Equal(t, enums.OrderPaymentStatusPending, h.reloadOrder(t, wave.ID).PaymentStatus)
}
