package evalapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// API holds the router and dependencies of the evaluation service.
type API struct {
	// Router is the chi multiplexer handling HTTP requests.
	Router *chi.Mux

	catalog *Catalog

	// apiKeyHash is the SHA-256 hex digest of the accepted API key.
	apiKeyHash string

	// skipAuth disables authentication (test/dev environments only).
	skipAuth bool
}

// NewAPI creates the API with authentication enabled.
func NewAPI(catalog *Catalog, apiKeyHash string) *API {
	return NewAPIWithConfig(catalog, apiKeyHash, false)
}

// NewAPIWithConfig creates the API with explicit control over
// authentication; skipAuth is for tests.
func NewAPIWithConfig(catalog *Catalog, apiKeyHash string, skipAuth bool) *API {
	if catalog == nil {
		panic("evalapi: catalog cannot be nil")
	}
	if !skipAuth && apiKeyHash == "" {
		panic("evalapi: apiKeyHash cannot be empty when authentication is enabled")
	}

	api := &API{
		Router:     chi.NewRouter(),
		catalog:    catalog,
		apiKeyHash: apiKeyHash,
		skipAuth:   skipAuth,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and endpoints.
func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger)
	a.Router.Use(Metrics)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/v1", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)

		r.Post("/check_gate", a.handleCheckGate)
		r.Post("/get_config", a.handleGetConfig)
		r.Post("/get_layer", a.handleGetLayer)
	})
}

// handleHealthCheck reports serving capability and whether a ruleset
// has been loaded yet.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"status": "ok",
		"loaded": a.catalog.Loaded(),
	})
}
