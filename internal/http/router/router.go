// Package router arma el árbol de rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/keysmith/internal/http/controllers"
	httperrors "github.com/dropDatabas3/keysmith/internal/http/errors"
	"github.com/dropDatabas3/keysmith/internal/http/middlewares"
)

// Deps agrupa todas las dependencias del router.
type Deps struct {
	JWKS   *controllers.JWKSController
	Keys   *controllers.KeysController
	Health *controllers.HealthController

	AdminAPIKey string
}

// New construye el router completo.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.RequestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// ─── Públicas ───
	r.Get("/.well-known/jwks.json", deps.JWKS.GetJWKS)
	r.Head("/.well-known/jwks.json", deps.JWKS.GetJWKS)
	r.Get("/healthz", deps.Health.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// ─── Admin ───
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.AdminAPIKey(deps.AdminAPIKey))
		r.Get("/keys", deps.Keys.ListKeys)
		r.Post("/keys", deps.Keys.IntroduceKey)
	})

	return r
}
