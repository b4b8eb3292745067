package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/maillot-backend/api/middleware"
	internalorders "github.com/angelmondragon/maillot-backend/internal/orders"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/pagination"
	"github.com/angelmondragon/maillot-backend/pkg/types"
)

type stubOrders struct {
	internalorders.Service
	next    enums.OrderStatus
	filters internalorders.Filters
	params  pagination.Params
	called  bool
}

func (s *stubOrders) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, actor types.Actor) (*internalorders.OrderDTO, error) {
	s.called = true
	s.next = next
	return &internalorders.OrderDTO{ID: orderID, Status: next}, nil
}

func (s *stubOrders) ListAll(ctx context.Context, filters internalorders.Filters, params pagination.Params) (*types.CursorPage[internalorders.OrderDTO], error) {
	s.called = true
	s.filters = filters
	s.params = params
	return &types.CursorPage[internalorders.OrderDTO]{}, nil
}

func staffRequest(method, target, body string, orderID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithActor(ctx, types.Actor{UserID: uuid.New(), Role: enums.UserRoleStaff})
	return req.WithContext(ctx)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-controller-test"})
}

func TestAdminUpdateStatus(t *testing.T) {
	svc := &stubOrders{}
	rec := httptest.NewRecorder()

	AdminUpdateStatus(svc, testLogger()).ServeHTTP(rec, staffRequest(http.MethodPost, "/", `{"status":"shipped"}`, uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.next != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", svc.next)
	}
}

func TestAdminUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrders{}
	rec := httptest.NewRecorder()

	AdminUpdateStatus(svc, testLogger()).ServeHTTP(rec, staffRequest(http.MethodPost, "/", `{"status":"lost"}`, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.called {
		t.Fatalf("service should not be called")
	}
}

func TestAdminListParsesFilters(t *testing.T) {
	svc := &stubOrders{}
	userID := uuid.New()
	rec := httptest.NewRecorder()
	target := "/?status=pending&payment_status=paid&limit=5&cursor=abc&user_id=" + userID.String()

	AdminList(svc, testLogger()).ServeHTTP(rec, staffRequest(http.MethodGet, target, "", uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.filters.Status == nil || *svc.filters.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected status filter %v", svc.filters.Status)
	}
	if svc.filters.UserID == nil || *svc.filters.UserID != userID {
		t.Fatalf("unexpected user filter %v", svc.filters.UserID)
	}
	if svc.params.Limit != 5 || svc.params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.params)
	}
}

func TestAdminListRejectsBadFilter(t *testing.T) {
	svc := &stubOrders{}
	rec := httptest.NewRecorder()

	AdminList(svc, testLogger()).ServeHTTP(rec, staffRequest(http.MethodGet, "/?user_id=nope", "", uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
