package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/keysmith/internal/http/errors"
	"github.com/dropDatabas3/keysmith/internal/http/services"
	"github.com/dropDatabas3/keysmith/internal/jwt"
	"github.com/dropDatabas3/keysmith/internal/keyring"
)

// KeysController expone las operaciones admin sobre el ring de claves.
type KeysController struct {
	service *services.KeysService
}

func NewKeysController(service *services.KeysService) *KeysController {
	return &KeysController{service: service}
}

type introduceKeyRequest struct {
	KID      string `json:"kid"`
	Alg      string `json:"alg"`
	Material string `json:"material"`
}

// GET /admin/keys
func (c *KeysController) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys := c.service.List(r.Context())

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
}

// POST /admin/keys
//
// Rotación manual: registra el par kid/material y lo promueve de inmediato.
func (c *KeysController) IntroduceKey(w http.ResponseWriter, r *http.Request) {
	var req introduceKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	err := c.service.Introduce(r.Context(), req.KID, req.Alg, req.Material)
	switch {
	case err == nil:
	case errors.Is(err, keyring.ErrKeyExists):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("kid already registered"))
		return
	case errors.Is(err, jwt.ErrConfiguration):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
		return
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"kid": req.KID, "status": "active"})
}
