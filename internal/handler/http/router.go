package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Services are the application services the router exposes.
type Services struct {
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Products *service.ProductService
	Category *service.CategoryService
	Payments *service.PaymentService
	Auth     *service.AuthService
}

// RouterConfig holds everything NewRouter wires besides the services.
type RouterConfig struct {
	ServiceName    string
	Health         *health.Handler
	TokenValidator middleware.TokenValidator
	RateLimiter    *middleware.RateLimiter
	Metrics        *middleware.HTTPMetrics
	Gatherer       prometheus.Gatherer
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
	RequestTimeout time.Duration
	// PaymentWebhook mounts POST /api/v1/payments/webhook. Enable it only
	// when notifications are confirmed with the payment provider.
	PaymentWebhook bool
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(svc Services, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.LivenessHandler())
		r.Get("/health/ready", cfg.Health.ReadinessHandler())
	}
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	carts := NewCartHandler(svc.Cart, logger)
	orders := NewOrderHandler(svc.Checkout, svc.Orders, logger)
	products := NewProductHandler(svc.Products, logger)
	categories := NewCategoryHandler(svc.Category, logger)
	payments := NewPaymentHandler(svc.Payments, logger)
	auth := NewAuthHandler(svc.Auth, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Middleware)
			}

			r.Route("/cart", func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/", carts.GetCart)
				r.Delete("/", carts.ClearCart)
				r.Post("/items", carts.AddItem)
				r.Delete("/items/{productID}", carts.RemoveItem)
			})

			r.Post("/orders", orders.Checkout)

			r.Get("/products", products.ListProducts)
			r.Get("/products/search", products.SearchProducts)
			r.Get("/products/{id}", products.GetProduct)
			r.Get("/categories", categories.ListCategories)

			r.Post("/auth/login", auth.Login)
			r.Post("/auth/refresh", auth.Refresh)
		})

		if cfg.PaymentWebhook {
			r.Post("/payments/webhook", payments.Webhook)
		}

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Get("/orders", orders.ListOrders)
			r.Get("/orders/status", orders.ListOrdersByStatus)
			r.Get("/orders/report", orders.OrderReport)
			r.Get("/orders/{id}", orders.GetOrder)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", products.ListProducts)
				r.Post("/", products.CreateProduct)
				r.Get("/out-of-stock", products.ListOutOfStock)
				r.Get("/search", products.AdminSearchProducts)
				r.Patch("/{id}", products.UpdateProduct)
				r.Delete("/{id}", products.DeleteProduct)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Post("/", categories.CreateCategory)
				r.Patch("/{id}", categories.UpdateCategory)
				r.Delete("/{id}", categories.DeleteCategory)
				r.Post("/{id}/subcategories", categories.CreateSubcategory)
				r.Get("/{id}/subcategories", categories.ListSubcategories)
			})

			r.Patch("/subcategories/{id}", categories.UpdateSubcategory)
			r.Delete("/subcategories/{id}", categories.DeleteSubcategory)
		})
	})

	return r
}
