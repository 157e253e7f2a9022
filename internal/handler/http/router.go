package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritikvr/GenieBazaar-backend/internal/auth"
	"github.com/ritikvr/GenieBazaar-backend/internal/domain"
	"github.com/ritikvr/GenieBazaar-backend/internal/service"
	"github.com/ritikvr/GenieBazaar-backend/pkg/health"
	"github.com/ritikvr/GenieBazaar-backend/pkg/middleware"
)

// RouterConfig bundles the dependencies of the HTTP router.
type RouterConfig struct {
	Catalog           *service.CatalogService
	Identity          *service.IdentityService
	Orders            *service.OrderService
	Payments          *service.PaymentService
	Tokens            *auth.TokenManager
	Health            *health.Handler
	Logger            *slog.Logger
	AllowedOrigins    []string
	Environment       string
	CookieExpireDays  int
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with every storefront route registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Correlation-ID"},
		AllowCredentials: true,
		Environment:      cfg.Environment,
	}))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing("geniebazaar"))
	// After RequestLogging and Tracing so the request-scoped logger picks up
	// correlation_id and the active span.
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("geniebazaar"))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints, gated by an IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, cfg.Logger)

	authn := Authenticate(cfg.Tokens, cfg.Identity)
	adminOnly := RequireRole(domain.RoleAdmin)

	productHandler := NewProductHandler(cfg.Catalog, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.Catalog, cfg.Logger)
	userHandler := NewUserHandler(cfg.Identity, cfg.CookieExpireDays, cfg.Logger)
	orderHandler := NewOrderHandler(cfg.Orders, cfg.Logger)
	paymentHandler := NewPaymentHandler(cfg.Payments, cfg.Logger)

	// Public catalog endpoints
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", productHandler.ListProducts)
		r.Get("/{id}", productHandler.GetProduct)
		r.Get("/{id}/reviews", reviewHandler.ListReviews)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Use(ContentTypeJSON)

			r.Put("/{id}/reviews", reviewHandler.UpsertReview)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Delete("/api/v1/reviews/{id}", reviewHandler.DeleteReview)
	})

	// Session endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.Post("/logout", userHandler.Logout)
		r.Post("/password/forgot", userHandler.ForgotPassword)
		r.Put("/password/reset/{token}", userHandler.ResetPassword)
	})

	// Profile endpoints (auth required)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(authn)
		r.Use(ContentTypeJSON)

		r.Get("/me", userHandler.Me)
		r.Put("/me", userHandler.UpdateProfile)
		r.Put("/me/password", userHandler.UpdatePassword)
	})

	// Order endpoints (auth required)
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(authn)
		r.Use(ContentTypeJSON)

		r.Post("/", orderHandler.CreateOrder)
		r.Get("/my", orderHandler.MyOrders)
		r.Get("/{id}", orderHandler.GetOrder)
	})

	// Payment endpoints (auth required)
	r.Route("/api/v1/payment", func(r chi.Router) {
		r.Use(authn)
		r.Use(ContentTypeJSON)

		r.Post("/process", paymentHandler.CreateIntent)
		r.Get("/key", paymentHandler.PublishableKey)
	})

	// Admin endpoints
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(authn)
		r.Use(adminOnly)
		r.Use(ContentTypeJSON)

		r.Get("/products", productHandler.AdminListProducts)
		r.Post("/products", productHandler.CreateProduct)
		r.Put("/products/{id}", productHandler.UpdateProduct)
		r.Delete("/products/{id}", productHandler.DeleteProduct)

		r.Get("/users", userHandler.AdminListUsers)
		r.Get("/users/{id}", userHandler.AdminGetUser)
		r.Put("/users/{id}", userHandler.AdminUpdateUser)
		r.Delete("/users/{id}", userHandler.AdminDeleteUser)

		r.Get("/orders", orderHandler.AdminListOrders)
		r.Put("/orders/{id}", orderHandler.AdminUpdateStatus)
		r.Delete("/orders/{id}", orderHandler.AdminDeleteOrder)
	})

	return r
}
