package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cartflow/api/controllers"
	"github.com/angelmondragon/cartflow/api/middleware"
	"github.com/angelmondragon/cartflow/internal/orders"
	"github.com/angelmondragon/cartflow/internal/search"
	"github.com/angelmondragon/cartflow/internal/session"
	"github.com/angelmondragon/cartflow/pkg/config"
	"github.com/angelmondragon/cartflow/pkg/logger"
	"github.com/angelmondragon/cartflow/pkg/metrics"
	"github.com/angelmondragon/cartflow/pkg/redis"
)

// Deps groups everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Pingers     map[string]controllers.Pinger
	Idempotency *redis.Client
	Sessions    *session.Manager
	Orders      orders.Service
	Search      *search.Service
	Metrics     *metrics.CheckoutMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	logg := d.Logger

	var origins []string
	if d.Config != nil {
		origins = d.Config.App.CORSOrigins
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(origins),
		middleware.Logging(logg, d.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Config))
		r.Get("/ready", controllers.HealthReady(d.Config, d.Pingers, logg))
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if d.Idempotency != nil {
			r.Use(middleware.Idempotency(d.Idempotency, logg))
		}

		r.Post("/sessions", controllers.SessionCreate(d.Sessions, logg))
		r.Get("/search", controllers.ProductSearch(d.Search, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(d.Sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartView(logg))
				r.Put("/open", controllers.CartSetOpen(d.Sessions, logg))
				r.Post("/items", controllers.CartAddItem(d.Sessions, logg))
				r.Delete("/items", controllers.CartRemove(d.Sessions, logg))
				r.Post("/items/increase", controllers.CartIncrease(d.Sessions, logg))
				r.Post("/items/decrease", controllers.CartDecrease(d.Sessions, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutView(logg))
				r.Post("/sections/{section}", controllers.SectionSubmit(d.Sessions, logg))
				r.Post("/sections/{section}/edit", controllers.SectionEdit(d.Sessions, logg))
				r.Post("/sections/{section}/cancel", controllers.SectionCancel(d.Sessions, logg))
				r.Put("/billing-same-as-shipping", controllers.BillingSameAsShipping(d.Sessions, logg))
				r.Put("/shipping-method", controllers.ShippingMethodSet(d.Sessions, logg))
				r.Put("/coupon", controllers.CouponApply(d.Sessions, logg))
				r.Delete("/coupon", controllers.CouponClear(d.Sessions, logg))
				r.Put("/payment-method", controllers.PaymentMethodSet(d.Sessions, logg))
				r.Put("/note", controllers.CustomerNoteSet(d.Sessions, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrderPlace(d.Orders, logg))
				r.Get("/", controllers.OrderSubmissions(d.Orders, logg))
			})
		})
	})

	return r
}
