/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy, for rate limiting
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Secure:     Security headers, HTTPS redirect in production
  6. CORS:       Cross-origin requests for the till frontend
  7. Rate limit: Requests per minute per client IP

ROUTE GROUPS:
  /api/stores/*                 Store registry and active store
  /api/stores/{storeID}/*       Store-scoped resources
  /api/*                        The same resources on the active store
  /api/admin/*                  Snapshot export

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	CORSOrigins []string
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit  int
	Production bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        opts.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !opts.Production,
	})

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))
	if opts.RateLimit > 0 {
		r.Use(httprate.Limit(opts.RateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded", nil)
			}),
		))
	}

	r.Route("/api", func(r chi.Router) {
		// Store registry
		r.Get("/stores", h.ListStores)
		r.Post("/stores", h.CreateStore)
		r.Get("/stores/active", h.GetActiveStore)
		r.Put("/stores/active", h.SetActiveStore)

		r.Route("/stores/{storeID}", func(r chi.Router) {
			r.Put("/", h.UpdateStore)
			r.Delete("/", h.DeleteStore)
			h.storeRoutes(r)
		})

		// Active store
		r.Group(h.storeRoutes)

		r.Post("/derive", h.Derive)
		r.Get("/templates/{entity}", h.GetTemplate)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/snapshots", h.ListSnapshotRuns)
			r.Post("/snapshots", h.TriggerSnapshots)
		})
	})

	return r
}

// storeRoutes registers the routes that act on one store.
func (h *Handler) storeRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.ListEmployees)
		r.Post("/", h.SaveEmployee)
		r.Get("/{id}", h.GetEmployee)
		r.Put("/{id}", h.SaveEmployee)
		r.Delete("/{id}", h.DeleteEmployee)
		r.Get("/{id}/summary", h.GetEmployeeSummary)
	})

	r.Route("/advances", func(r chi.Router) {
		r.Get("/", h.ListAdvances)
		r.Post("/", h.SaveAdvance)
		r.Delete("/{id}", h.DeleteAdvance)
	})

	r.Route("/salaries", func(r chi.Router) {
		r.Get("/", h.ListSalaries)
		r.Post("/close", h.CloseMonth)
		r.Delete("/{id}", h.DeleteSalary)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.ListSales)
		r.Post("/", h.SaveSales)
		r.Get("/{date}", h.GetSales)
		r.Delete("/{date}", h.DeleteSales)
	})

	r.Get("/export/sales.xlsx", h.ExportWorkbook)
	r.Get("/export/{entity}", h.Export)
	r.Post("/import/{entity}", h.Import)
	r.Get("/summary", h.GetSummary)
}
