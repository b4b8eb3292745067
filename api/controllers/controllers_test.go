package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/maillot-backend/api/middleware"
	"github.com/angelmondragon/maillot-backend/internal/checkout"
	"github.com/angelmondragon/maillot-backend/internal/orders"
	"github.com/angelmondragon/maillot-backend/internal/payments"
	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/types"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test"})
}

func withActor(r *http.Request, role enums.UserRole) (*http.Request, types.Actor) {
	actor := types.Actor{UserID: uuid.New(), Email: "client@maillot.sn", Role: role}
	return r.WithContext(middleware.WithActor(r.Context(), actor)), actor
}

type stubCheckout struct {
	userID uuid.UUID
	input  checkout.Input
	err    error
}

func (s *stubCheckout) CreateOrder(ctx context.Context, userID uuid.UUID, input checkout.Input) (*orders.OrderDTO, error) {
	s.userID = userID
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{
		ID:            uuid.New(),
		OrderNumber:   "CMD-20261014120000-ABCD",
		UserID:        userID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		Total:         decimal.NewFromInt(26000),
	}, nil
}

func TestCheckoutCreatesOrder(t *testing.T) {
	svc := &stubCheckout{}
	addressID := uuid.New()
	body := `{"address_id":"` + addressID.String() + `","payment_method":"wave","notes":"  livrer le soir  "}`
	req, actor := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()

	Checkout(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, actor.UserID, svc.userID)
	assert.Equal(t, addressID, svc.input.AddressID)
	assert.Equal(t, "livrer le soir", svc.input.Notes)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, string(env.Data), "CMD-20261014120000-ABCD")
}

func TestCheckoutRequiresActor(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))

	Checkout(&stubCheckout{}, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutPropagatesEmptyCart(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
	body := `{"address_id":"` + uuid.NewString() + `","payment_method":"gateway"}`
	req, _ := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()

	Checkout(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "cart is empty", env.Error.Message)
}

type stubPayments struct {
	payments.Service
	staff     types.Actor
	paymentID string
	note      string
}

func (s *stubPayments) ConfirmManual(ctx context.Context, staff types.Actor, paymentID, note string) (*payments.PaymentDTO, error) {
	s.staff = staff
	s.paymentID = paymentID
	s.note = note
	return &payments.PaymentDTO{PaymentID: paymentID, Status: enums.PaymentStatusCompleted}, nil
}

func routeWithParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAdminConfirmPayment(t *testing.T) {
	svc := &stubPayments{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/PAY_1/confirm", strings.NewReader(`{"note":"vu sur le relevé"}`))
	req = routeWithParam(req, "paymentId", "PAY_1")
	req, actor := withActor(req, enums.UserRoleStaff)
	rec := httptest.NewRecorder()

	AdminConfirmPayment(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PAY_1", svc.paymentID)
	assert.Equal(t, actor.UserID, svc.staff.UserID)
	assert.Equal(t, "vu sur le relevé", svc.note)
}

func TestAdminConfirmPaymentWithoutBody(t *testing.T) {
	svc := &stubPayments{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/PAY_2/confirm", nil)
	req = routeWithParam(req, "paymentId", "PAY_2")
	req, _ = withActor(req, enums.UserRoleStaff)
	rec := httptest.NewRecorder()

	AdminConfirmPayment(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", svc.note)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), ok, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skipped")

	rec = httptest.NewRecorder()
	HealthReady(cfg, testLogger(), ok, down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthLiveReportsEnv(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	rec := httptest.NewRecorder()

	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get(envHeader))
}
