package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sekolah-catering/api/internal/cart"
	"github.com/sekolah-catering/api/internal/config"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/enum"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/handler"
	mw "github.com/sekolah-catering/api/internal/middleware"
	"github.com/sekolah-catering/api/internal/payment"
	"github.com/sekolah-catering/api/internal/service"
	"github.com/sekolah-catering/api/internal/ws"
	"go.uber.org/zap"
)

// Deps are the long-lived collaborators the routes are built from.
type Deps struct {
	Queries   *database.Queries
	Pool      *pgxpool.Pool
	Hub       *ws.Hub
	Carts     cart.Store
	Gateway   payment.Gateway
	Publisher events.Publisher
	Redis     *redis.Client // optional; shares rate limit counters between replicas
	Log       *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, role checks and rate limiting as needed.
func New(cfg *config.Config, d Deps) (chi.Router, error) {
	limit, err := mw.RateLimit(cfg.RateLimit, d.Redis)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	// Services
	payments := payment.NewService(d.Gateway, cfg.MidtransServerKey, d.Queries, d.Log.Named("payment"))
	checkoutService := service.NewCheckoutService(
		d.Pool,
		func(db database.DBTX) service.CheckoutStore { return database.New(db) },
		payments,
		d.Publisher,
		cfg.LegacyOrderItems,
		d.Log.Named("checkout"),
	)
	paymentService := service.NewPaymentService(
		d.Pool,
		func(db database.DBTX) service.PaymentStore { return database.New(db) },
		payments,
		d.Publisher,
		cfg.MidtransServerKey,
		d.Log.Named("payment"),
	)
	settlementService := service.NewSettlementService(
		d.Pool,
		func(db database.DBTX) service.SettlementStore { return database.New(db) },
		d.Publisher,
		d.Log.Named("settlement"),
	)

	// Handlers
	authHandler := handler.NewAuthHandler(d.Queries, cfg.JWTSecret)
	menuHandler := handler.NewMenuHandler(d.Queries)
	childHandler := handler.NewChildHandler(d.Queries)
	cartHandler := handler.NewCartHandler(d.Carts, d.Queries)
	orderHandler := handler.NewOrderHandler(checkoutService, paymentService, d.Queries, d.Carts, d.Publisher)
	paymentHandler := handler.NewPaymentHandler(payments, paymentService)
	cashierHandler := handler.NewCashierHandler(d.Queries, settlementService)
	reportsHandler := handler.NewReportsHandler(d.Queries)

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(d.Log.Named("http")))
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Group(func(r chi.Router) {
		r.Use(limit)
		authHandler.RegisterRoutes(r)
		paymentHandler.RegisterNotificationRoutes(r)
	})
	r.Route("/menu", menuHandler.RegisterRoutes)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Get("/auth/me", authHandler.Me)

		r.Group(func(r chi.Router) {
			r.Use(limit)
			paymentHandler.RegisterFunctionRoutes(r)
		})

		// Parent routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleParent))
			r.Route("/children", childHandler.RegisterRoutes)
			r.Route("/cart", cartHandler.RegisterRoutes)
			r.Route("/orders", orderHandler.WithLimiter(limit).RegisterRoutes)
			r.With(limit).Route("/payments", paymentHandler.RegisterRoutes)
		})

		// Cashier routes (admins pass too)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleCashier))
			r.Route("/cashier", func(r chi.Router) {
				cashierHandler.RegisterRoutes(r)
				r.Route("/reports", reportsHandler.RegisterCashierRoutes)
			})
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			r.Route("/admin", func(r chi.Router) {
				r.Route("/menu", menuHandler.RegisterAdminRoutes)
				r.Route("/orders", orderHandler.RegisterAdminRoutes)
				r.Route("/reports", reportsHandler.RegisterAdminRoutes)
			})
		})
	})

	d.Log.Info("router initialized")
	return r, nil
}
