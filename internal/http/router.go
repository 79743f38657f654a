package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/sillage/internal/catalog"
)

type RouterConfig struct {
	RequestTimeout time.Duration
}

// NewRouter wires every storefront endpoint under /api/v1.
func NewRouter(cfg RouterConfig, sessions Sessions, products catalog.RepoInterface, logger *zap.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	cartHandler := NewCartHandler(sessions, cfg.RequestTimeout)
	wishlistHandler := NewWishlistHandler(sessions, cfg.RequestTimeout)
	notificationHandler := NewNotificationHandler(sessions)
	checkoutHandler := NewCheckoutHandler(sessions, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(sessions, cfg.RequestTimeout)
	productHandler := NewProductHandler(products, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{id}", productHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Patch("/items/{id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{id}", cartHandler.RemoveItem)
			})
			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistHandler.Get)
				r.Delete("/", wishlistHandler.Clear)
				r.Post("/toggle", wishlistHandler.Toggle)
				r.Delete("/{productId}", wishlistHandler.Remove)
			})
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Delete("/{id}", notificationHandler.Dismiss)
			})
			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", checkoutHandler.Get)
				r.Patch("/fields", checkoutHandler.SetFields)
				r.Post("/submit", checkoutHandler.Submit)
				r.Post("/continue", checkoutHandler.ContinueShopping)
			})
			r.Get("/orders/track", ordersHandler.Track)
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}
