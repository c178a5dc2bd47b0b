package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/catalog/catalog-go/internal/metrics"
	"github.com/catalog/catalog-go/internal/middleware"
	"github.com/catalog/catalog-go/internal/service"
)

// RouterConfig carries everything the HTTP routes depend on.
type RouterConfig struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Products *service.ProductService

	Logger   *slog.Logger
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer

	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
}

// NewRouter builds the HTTP routes. Background work started for the router stops when ctx is done.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Auth, cfg.Logger)
	userHandler := NewUserHandler(cfg.Users, cfg.Logger)
	productHandler := NewProductHandler(cfg.Products, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recovery(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the catalog API"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(ctx, cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst))
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/token", authHandler.HandleToken)
		})
		r.With(middleware.Authenticate(cfg.Auth, cfg.Logger)).Get("/me", authHandler.HandleMe)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.HandleList)
		r.Get("/{user_id}", userHandler.HandleGet)
		r.Put("/{user_id}", userHandler.HandleUpdate)
		r.Delete("/{user_id}", userHandler.HandleDelete)
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", productHandler.HandleCreate)
		r.Get("/", productHandler.HandleList)
		r.With(middleware.Authenticate(cfg.Auth, cfg.Logger)).Get("/withUsers", productHandler.HandleListWithCreators)
		r.Get("/{product_id}", productHandler.HandleGet)
		r.Put("/{product_id}", productHandler.HandleUpdate)
		r.Delete("/{product_id}", productHandler.HandleDelete)
	})

	return r
}
