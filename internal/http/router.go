package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Catalog   *CatalogHandler
	Cart      *CartHandler
	Auth      *AuthHandler
	Profile   *ProfileHandler
	Orders    *OrdersHandler
	Addresses *AddressHandler
}

type RouterConfig struct {
	RequestTimeout time.Duration
	Sessions       *Sessions
	AuthLimiter    *RateLimiter
}

func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.Sessions.Middleware)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Catalog.ListProducts)
			r.Get("/{product_id}", h.Catalog.GetProduct)
			r.Get("/{product_id}/reviews", h.Catalog.ListReviews)
			r.Post("/{product_id}/reviews", h.Catalog.CreateReview)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Catalog.ListCategories)
			r.Get("/{id}", h.Catalog.GetCategory)
			r.Get("/{id}/subcategories", h.Catalog.ListSubcategories)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Patch("/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/session", h.Auth.Session)
			r.Group(func(r chi.Router) {
				if cfg.AuthLimiter != nil {
					r.Use(cfg.AuthLimiter.Middleware)
				}
				r.Post("/signup", h.Auth.SignUp)
				r.Post("/signin", h.Auth.SignIn)
				r.Post("/signout", h.Auth.SignOut)
			})
		})
		r.Get("/notifications", h.Auth.Notifications)

		r.Get("/profile", h.Profile.GetProfile)
		r.Put("/profile", h.Profile.UpdateProfile)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{order_id}", h.Orders.GetOrder)
		})
		r.Get("/checkout", h.Orders.Summary)
		r.Post("/checkout", h.Orders.PlaceOrder)

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", h.Addresses.ListAddresses)
			r.Post("/", h.Addresses.CreateAddress)
			r.Put("/{id}", h.Addresses.UpdateAddress)
			r.Delete("/{id}", h.Addresses.DeleteAddress)
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
	)
}
