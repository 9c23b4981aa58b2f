package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olekdev/tackleshop-backend/api/controllers"
	"github.com/olekdev/tackleshop-backend/api/middleware"
	cartsvc "github.com/olekdev/tackleshop-backend/internal/cart"
	checkoutsvc "github.com/olekdev/tackleshop-backend/internal/checkout"
	"github.com/olekdev/tackleshop-backend/internal/promos"
	"github.com/olekdev/tackleshop-backend/pkg/config"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/session"
)

// Deps collects everything the router wires into handlers.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Sessions  session.Checker
	Carts     cartsvc.Service
	Promos    promos.Validator
	Checkout  checkoutsvc.Assembler
	Orders    controllers.OrderStore
	Pingers   []controllers.Pinger
	MetricsHN http.Handler
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	r.Get("/healthz", controllers.HealthLive(deps.Config))
	r.Get("/readyz", controllers.HealthReady(deps.Config, deps.Pingers...))

	metricsHandler := deps.MetricsHN
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(deps.Sessions, deps.Config.Session, deps.Logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, deps.Logger))
			r.Delete("/", controllers.CartClear(deps.Carts, deps.Logger))
			r.Post("/items", controllers.CartAddItem(deps.Carts, deps.Logger))
			r.Patch("/items/{productID}", controllers.CartUpdateQuantity(deps.Carts, deps.Logger))
			r.Delete("/items/{productID}", controllers.CartRemoveItem(deps.Carts, deps.Logger))
			r.Post("/undo", controllers.CartUndo(deps.Carts, deps.Logger))
		})

		r.Post("/promos/validate", controllers.PromoValidate(deps.Promos, deps.Carts, deps.Logger))
		r.Post("/checkout", controllers.Checkout(deps.Checkout, deps.Promos, deps.Carts, deps.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderID}", controllers.OrderFetch(deps.Orders, deps.Logger))
			r.Patch("/{orderID}/status", controllers.OrderUpdateStatus(deps.Orders, deps.Logger))
		})
	})

	return r
}
