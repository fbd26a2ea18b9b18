package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/NematiDev/Zentec/internal/metrics"
)

// NewRouter assembles the public API. Operational endpoints stay outside
// the auth middleware; everything under /api requires an authenticated
// caller.
func NewRouter(cart *CartHandler, checkout *CheckoutHandler, orders *OrdersHandler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/items", cart.AddItem)
			r.Put("/items/{productID}", cart.UpdateQuantity)
			r.Delete("/items/{productID}", cart.RemoveItem)
		})

		r.Post("/checkout", checkout.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Get("/{orderID}", orders.GetOrder)
			r.Post("/{orderID}/cancel", orders.CancelOrder)
		})
	})

	return otelhttp.NewHandler(r, "order-service")
}
