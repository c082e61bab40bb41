package controllers

import (
	"net/http"

	"github.com/dropDatabas3/keysmith/internal/http/services"
)

// JWKSController sirve el endpoint público de claves de verificación.
type JWKSController struct {
	service *services.JWKSService
}

func NewJWKSController(service *services.JWKSService) *JWKSController {
	return &JWKSController{service: service}
}

// GET /.well-known/jwks.json
//
// Nunca falla hacia el cliente: el service degrada a reconstruir desde el
// registro ante cualquier problema de cache.
func (c *JWKSController) GetJWKS(w http.ResponseWriter, r *http.Request) {
	doc := c.service.Document(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = w.Write(doc)
}
