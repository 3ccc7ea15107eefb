package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nairatrade/deposits/internal/api/handler"
	"github.com/nairatrade/deposits/internal/api/middleware"
	"github.com/nairatrade/deposits/internal/api/spec"
	"github.com/nairatrade/deposits/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Router wires handlers, middleware and infrastructure into the HTTP tree.
type Router struct {
	db         *pgxpool.Pool
	redis      redis.Cmdable
	payments   *service.PaymentService
	accounts   *service.AccountService
	reconciler *service.ReconcileService
	logger     *zap.Logger

	publicRPS int
	authRPS   int
	devAuth   bool
}

type RouterOptions struct {
	DB         *pgxpool.Pool
	Redis      redis.Cmdable
	Payments   *service.PaymentService
	Accounts   *service.AccountService
	Reconciler *service.ReconcileService
	Logger     *zap.Logger

	PublicRPS        int
	AuthenticatedRPS int
	DevAuthEnabled   bool
}

func NewRouter(opts RouterOptions) *Router {
	return &Router{
		db:         opts.DB,
		redis:      opts.Redis,
		payments:   opts.Payments,
		accounts:   opts.Accounts,
		reconciler: opts.Reconciler,
		logger:     opts.Logger,
		publicRPS:  opts.PublicRPS,
		authRPS:    opts.AuthenticatedRPS,
		devAuth:    opts.DevAuthEnabled,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(chiMiddleware.RealIP)

	paymentHandler := handler.NewPaymentHandler(api.payments)
	accountHandler := handler.NewAccountHandler(api.accounts)
	webhookHandler := handler.NewWebhookHandler(api.reconciler)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Operational endpoints.
	r.Get("/healthz", healthHandler.HandleLiveness)
	r.Get("/readyz", healthHandler.HandleReadiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	if api.devAuth {
		r.Post("/v1/auth/dev-login", handler.NewAuthHandler().DevLogin)
	}

	// Webhooks authenticate with their payload signature, not a JWT.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.publicRPS))
		r.Post("/v1/webhooks/{rail}", webhookHandler.HandleRailWebhook)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.authRPS))

		r.Route("/v1/deposits", func(r chi.Router) {
			create := r.With(middleware.IdempotencyGuard(api.redis, api.logger))
			create.Post("/bank", paymentHandler.HandleBankDeposit)
			create.Post("/crypto", paymentHandler.HandleCryptoDeposit)
			create.Post("/card", paymentHandler.HandleCardDeposit)
			create.Post("/momo", paymentHandler.HandleMomoDeposit)

			r.Get("/{txRef}", paymentHandler.HandleGetDeposit)
			r.Post("/{txRef}/cancel", paymentHandler.HandleCancelDeposit)
		})

		r.Get("/v1/accounts/{accountID}/balance", accountHandler.HandleGetBalance)
		r.Get("/v1/accounts/{accountID}/statement", accountHandler.HandleGetStatement)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Post("/v1/admin/deposits/{txRef}/confirm", webhookHandler.HandleConfirmDeposit)
		})
	})

	return r
}
