package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/maillot-backend/api"
	"github.com/angelmondragon/maillot-backend/api/routes"
	"github.com/angelmondragon/maillot-backend/internal/address"
	"github.com/angelmondragon/maillot-backend/internal/auth"
	"github.com/angelmondragon/maillot-backend/internal/cart"
	"github.com/angelmondragon/maillot-backend/internal/catalog"
	"github.com/angelmondragon/maillot-backend/internal/checkout"
	"github.com/angelmondragon/maillot-backend/internal/customizations"
	"github.com/angelmondragon/maillot-backend/internal/dashboard"
	"github.com/angelmondragon/maillot-backend/internal/inventory"
	"github.com/angelmondragon/maillot-backend/internal/orders"
	"github.com/angelmondragon/maillot-backend/internal/payments"
	"github.com/angelmondragon/maillot-backend/internal/users"
	"github.com/angelmondragon/maillot-backend/internal/webhooks"
	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/gateway"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/metrics"
	"github.com/angelmondragon/maillot-backend/pkg/migrate"
	"github.com/angelmondragon/maillot-backend/pkg/paydunya"
	"github.com/angelmondragon/maillot-backend/pkg/redis"
	"github.com/angelmondragon/maillot-backend/pkg/square"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const (
	webhookEventTTL = 72 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	closeAll := func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shopMetrics := metrics.NewShopMetrics(registry)

	deps, err := buildDependencies(ctx, cfg, logg, dbClient, redisClient, shopMetrics)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		closeAll()
		os.Exit(1)
	}
	deps.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"gateway":  cfg.Gateway.NormalizedProvider(),
		"test_pay": cfg.Gateway.IsTestMode(),
	})
	logg.Info(runCtx, "starting api server")
	if cfg.App.IsProd() && cfg.Gateway.IsTestMode() {
		logg.Warn(runCtx, "payment gateway is in test mode in production")
	}

	server := api.NewServer(cfg, addr, routes.NewRouter(cfg, logg, deps))

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(runCtx, "graceful shutdown failed", err)
		exitCode = 1
	}
	closeAll()
	logg.Info(runCtx, "api server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, m *metrics.ShopMetrics) (routes.Dependencies, error) {
	conn := dbClient.DB()

	catalogRepo := catalog.NewRepository(conn)
	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		return routes.Dependencies{}, err
	}

	customizationService, err := customizations.NewService(customizations.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}

	cartService, err := cart.NewService(cart.NewRepository(conn), catalogRepo, customizationService, dbClient)
	if err != nil {
		return routes.Dependencies{}, err
	}

	addressRepo := address.NewRepository(conn)
	addressService, err := address.NewService(addressRepo, dbClient)
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderRepo := orders.NewRepository(conn)
	checkoutService, err := checkout.NewService(dbClient, cartService, orderRepo, addressRepo, cfg.Checkout, logg, m)
	if err != nil {
		return routes.Dependencies{}, err
	}

	ledger, err := inventory.NewLedger(logg, m)
	if err != nil {
		return routes.Dependencies{}, err
	}
	orderService, err := orders.NewService(orderRepo, dbClient, ledger, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	gateways, err := buildGatewayRegistry(ctx, cfg, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	paymentService, err := payments.NewService(payments.NewRepository(conn), dbClient, gateways, cfg.Gateway, cfg.Wave, logg, m)
	if err != nil {
		return routes.Dependencies{}, err
	}

	dashboardService, err := dashboard.NewService(dashboard.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  users.NewRepository(conn),
		Carts:     cartService,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
		Carts:          cartService,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	webhookService, err := webhooks.NewService(webhooks.ServiceParams{Payments: paymentService, Logger: logg})
	if err != nil {
		return routes.Dependencies{}, err
	}
	gatewayGuard, err := webhooks.NewIdempotencyGuard(redisClient, webhookEventTTL, config.GatewayProviderPayDunya)
	if err != nil {
		return routes.Dependencies{}, err
	}
	squareGuard, err := webhooks.NewIdempotencyGuard(redisClient, webhookEventTTL, config.GatewayProviderSquare)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:    dbClient,
		Redis: redisClient,

		Auth:           authService,
		Register:       registerService,
		Catalog:        catalogService,
		Customizations: customizationService,
		Carts:          cartService,
		Checkout:       checkoutService,
		Orders:         orderService,
		Addresses:      addressService,
		Payments:       paymentService,
		Dashboard:      dashboardService,

		GatewayWebhooks: webhookService,
		SquareWebhooks:  webhookService,
		GatewayGuard:    gatewayGuard,
		SquareGuard:     squareGuard,
	}, nil
}

// buildGatewayRegistry always registers PayDunya and adds Square when credentials are set.
func buildGatewayRegistry(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*gateway.Registry, error) {
	providers := []gateway.Provider{}

	paydunyaClient, err := paydunya.NewClient(cfg.Gateway, logg)
	if err != nil {
		return nil, err
	}
	providers = append(providers, paydunyaClient)

	if cfg.Square.AccessToken != "" {
		squareClient, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, squareClient)
	}

	return gateway.NewRegistry(cfg.Gateway.NormalizedProvider(), providers...)
}
