package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/keysmith/internal/cache"
	httperrors "github.com/dropDatabas3/keysmith/internal/http/errors"
)

// HealthController expone liveness/readiness básicos.
type HealthController struct {
	cache cache.Client
}

func NewHealthController(c cache.Client) *HealthController {
	return &HealthController{cache: c}
}

// GET /healthz
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	if c.cache != nil {
		if err := c.cache.Ping(r.Context()); err != nil {
			httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("cache: "+err.Error()))
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "cache": "ok"})
}
