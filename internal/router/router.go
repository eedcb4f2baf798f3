package router

import (
	"net/http"

	"norko-pos-edge/internal/handler"
	"norko-pos-edge/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler *handler.Handler
	Edge    http.Handler
}

// New creates and configures the HTTP router. Local routes are answered
// by the agent itself; everything else falls through to the edge proxy
// so the POS UI can keep talking to its usual upstream paths.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Served-From"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/health", cfg.Handler.Health)
		r.Get("/ready", cfg.Handler.Ready)
		r.Get("/status", cfg.Handler.AgentStatus)

		// Offline control surface for the POS UI
		r.Route("/api/offline", func(r chi.Router) {
			r.Get("/status", cfg.Handler.OfflineStatus)
			r.Get("/stats", cfg.Handler.StoreStats)
			r.Post("/sync", cfg.Handler.TriggerSync)
			r.Post("/clear-cache", cfg.Handler.ClearCache)
		})

		// Reads served straight from the local mirror, never the network
		r.Route("/api/local", func(r chi.Router) {
			r.Get("/products", cfg.Handler.Products)
			r.Get("/categories", cfg.Handler.Categories)
			r.Get("/customers", cfg.Handler.Customers)
			r.Get("/sales", cfg.Handler.Sales)
			r.Get("/sales/{id}", cfg.Handler.Sale)
			r.Post("/sales", cfg.Handler.CreateSale)
		})
	}

	// Everything else goes through the caching proxy to the upstream
	if cfg.Edge != nil {
		r.Handle("/*", cfg.Edge)
	}

	return r
}
