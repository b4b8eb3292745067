package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/maillot-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/maillot-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/maillot-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/maillot-backend/api/controllers/webhooks"
	"github.com/angelmondragon/maillot-backend/api/middleware"
	"github.com/angelmondragon/maillot-backend/internal/address"
	"github.com/angelmondragon/maillot-backend/internal/auth"
	"github.com/angelmondragon/maillot-backend/internal/cart"
	"github.com/angelmondragon/maillot-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/maillot-backend/internal/checkout"
	"github.com/angelmondragon/maillot-backend/internal/customizations"
	"github.com/angelmondragon/maillot-backend/internal/dashboard"
	"github.com/angelmondragon/maillot-backend/internal/orders"
	"github.com/angelmondragon/maillot-backend/internal/payments"
	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
)

// RedisStore is the redis surface the router's middleware and probes use.
type RedisStore interface {
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// Dependencies are the services mounted by NewRouter. Nil entries answer 500.
type Dependencies struct {
	DB      controllers.Pinger
	Redis   RedisStore
	Metrics http.Handler

	Auth           auth.Service
	Register       auth.RegisterService
	Catalog        catalog.Service
	Customizations customizations.Service
	Carts          cart.Service
	Checkout       checkoutsvc.Service
	Orders         orders.Service
	Addresses      address.Service
	Payments       payments.Service
	Dashboard      dashboard.Service

	GatewayWebhooks webhookcontrollers.GatewayWebhookService
	SquareWebhooks  webhookcontrollers.SquareWebhookService
	GatewayGuard    webhookcontrollers.Guard
	SquareGuard     webhookcontrollers.Guard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayWebhook(deps.GatewayWebhooks, cfg.Gateway.WebhookSecret, deps.GatewayGuard, logg))
		r.Post("/square", webhookcontrollers.SquareWebhook(deps.SquareWebhooks, webhookcontrollers.SquareSigning{
			SignatureKey:    cfg.Square.WebhookSecret,
			NotificationURL: cfg.Square.WebhookURL,
		}, deps.SquareGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.CartSession(logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Get("/products", controllers.ProductList(deps.Catalog, logg))
			r.Get("/products/{slug}", controllers.ProductDetail(deps.Catalog, logg))
			r.Get("/products/{slug}/reviews", controllers.ReviewList(deps.Catalog, logg))
			r.With(middleware.Auth(cfg.JWT, logg)).Post("/products/{slug}/reviews", controllers.ReviewCreate(deps.Catalog, logg))
			r.Get("/categories", controllers.CategoryList(deps.Catalog, logg))
			r.Get("/teams", controllers.TeamList(deps.Catalog, logg))
			r.Get("/customizations", controllers.CustomizationList(deps.Customizations, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(middleware.CartSession(logg))
			r.Get("/", cartcontrollers.CartFetch(deps.Carts, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Carts, logg))
			r.Post("/items", cartcontrollers.CartAddItem(deps.Carts, logg))
			r.Patch("/items", cartcontrollers.CartUpdateItem(deps.Carts, logg))
			r.Delete("/items", cartcontrollers.CartRemoveItem(deps.Carts, logg))
			r.Post("/items/{itemId}/customizations", cartcontrollers.CartAttachCustomization(deps.Carts, logg))
			r.Delete("/customizations/{customizationId}", cartcontrollers.CartDetachCustomization(deps.Carts, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.CancelOrder(deps.Orders, logg))
				r.Get("/{orderId}/payment", controllers.PaymentForOrder(deps.Payments, logg))
				r.Post("/{orderId}/payments/gateway", controllers.PaymentInitiateGateway(deps.Payments, logg))
				r.Post("/{orderId}/payments/manual", controllers.PaymentInitiateManual(deps.Payments, logg))
				r.Post("/{orderId}/payments/manual/submit", controllers.PaymentSubmitManual(deps.Payments, logg))
			})
			r.Post("/payments/gateway/return", controllers.PaymentGatewayReturn(deps.Payments, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(deps.Addresses, logg))
				r.Post("/", controllers.AddressCreate(deps.Addresses, logg))
				r.Get("/{addressId}", controllers.AddressDetail(deps.Addresses, logg))
				r.Put("/{addressId}", controllers.AddressUpdate(deps.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(deps.Addresses, logg))
				r.Post("/{addressId}/default", controllers.AddressSetDefault(deps.Addresses, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleStaff, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/orders", ordercontrollers.AdminList(deps.Orders, logg))
		r.Post("/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(deps.Orders, logg))
		r.Post("/payments/{paymentId}/confirm", controllers.AdminConfirmPayment(deps.Payments, logg))
		r.Post("/payments/{paymentId}/reject", controllers.AdminRejectPayment(deps.Payments, logg))
		r.Get("/payments/{paymentId}/logs", controllers.AdminPaymentLogs(deps.Payments, logg))
		r.Put("/products/{productId}/stock", controllers.AdminSetStock(deps.Catalog, logg))
		r.Post("/products/{productId}/images", controllers.AdminAddImage(deps.Catalog, logg))
		r.Get("/dashboard", controllers.AdminDashboard(deps.Dashboard, logg))
	})

	return r
}
