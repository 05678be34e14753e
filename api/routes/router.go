package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saudamarket/storefront-backend/api/controllers"
	webhookcontrollers "github.com/saudamarket/storefront-backend/api/controllers/webhooks"
	"github.com/saudamarket/storefront-backend/api/middleware"
	"github.com/saudamarket/storefront-backend/internal/cart"
	ordersvc "github.com/saudamarket/storefront-backend/internal/orders"
	"github.com/saudamarket/storefront-backend/internal/payments"
	"github.com/saudamarket/storefront-backend/pkg/config"
	"github.com/saudamarket/storefront-backend/pkg/db"
	"github.com/saudamarket/storefront-backend/pkg/logger"
	"github.com/saudamarket/storefront-backend/pkg/metrics"
	"github.com/saudamarket/storefront-backend/pkg/redis"
)

// NewRouter wires the HTTP surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redis.Pinger,
	cartService cart.Service,
	orderService ordersvc.Service,
	linkBuilder *payments.LinkBuilder,
	paymentWebhook webhookcontrollers.PaymentWebhookService,
	paymentMetrics *metrics.PaymentMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(dbP, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.PaymentWebhook(paymentWebhook, logg))
		r.Get("/payment", webhookcontrollers.PaymentWebhook(paymentWebhook, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{itemID}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartService, logg))
			r.Delete("/items", controllers.CartClear(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(cartService, orderService, linkBuilder, paymentMetrics, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireAuth(logg)).Get("/", controllers.OrdersList(orderService, logg))
			r.Get("/{orderNumber}", controllers.OrderGet(orderService, logg))
			r.Patch("/{orderNumber}/status", controllers.OrderAdvanceStatus(orderService, logg))
		})
	})

	return r
}
