package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/maillot-backend/api/middleware"
	cartsvc "github.com/angelmondragon/maillot-backend/internal/cart"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/types"
)

type recordingCart struct {
	cartsvc.Service
	owners []cartsvc.Owner
}

func (c *recordingCart) Get(ctx context.Context, owner cartsvc.Owner) (*cartsvc.View, error) {
	c.owners = append(c.owners, owner)
	return &cartsvc.View{}, nil
}

func (c *recordingCart) Add(ctx context.Context, owner cartsvc.Owner, input cartsvc.AddInput) (*cartsvc.LineView, error) {
	c.owners = append(c.owners, owner)
	return &cartsvc.LineView{ID: uuid.New(), ProductID: input.ProductID, Size: input.Size, Quantity: input.Quantity}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-controller-test"})
}

func addBody() string {
	return `{"product_id":"` + uuid.NewString() + `","size":"M","quantity":2}`
}

func TestCartAddItemMintsSessionForAnonymous(t *testing.T) {
	svc := &recordingCart{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(addBody()))

	CartAddItem(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	token := rec.Header().Get(middleware.CartSessionHeader)
	require.NotEmpty(t, token)
	require.Len(t, svc.owners, 1)
	assert.Equal(t, token, svc.owners[0].SessionToken)
	assert.Nil(t, svc.owners[0].UserID)
}

func TestCartAddItemReusesSession(t *testing.T) {
	svc := &recordingCart{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(addBody()))
	req = req.WithContext(middleware.WithCartSession(req.Context(), "existing-session"))

	CartAddItem(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get(middleware.CartSessionHeader))
	assert.Equal(t, "existing-session", svc.owners[0].SessionToken)
}

func TestCartFetchPrefersUser(t *testing.T) {
	svc := &recordingCart{}
	userID := uuid.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	ctx := middleware.WithCartSession(req.Context(), "stale-session")
	ctx = middleware.WithActor(ctx, types.Actor{UserID: userID, Role: enums.UserRoleCustomer})
	req = req.WithContext(ctx)

	CartFetch(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.owners[0].UserID)
	assert.Equal(t, userID, *svc.owners[0].UserID)
}

func TestCartAddItemRejectsInvalidBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"size":"M","quantity":0}`))

	CartAddItem(&recordingCart{}, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get(middleware.CartSessionHeader))
}
