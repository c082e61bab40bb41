package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/keysmith/internal/jwt"
	"github.com/dropDatabas3/keysmith/internal/keyring"
	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

// JWKSService sirve el documento JWKS con cache-aside de entrada única.
// Errores del cache jamás se vuelven errores de request: el peor caso es
// reconstruir el set fresco desde el registro.
type JWKSService struct {
	Reg   *keyring.Registry
	Cache *jwt.JWKSCache

	// Now inyectable para tests; nil usa time.Now UTC.
	Now func() time.Time
}

func NewJWKSService(reg *keyring.Registry, cache *jwt.JWKSCache) *JWKSService {
	return &JWKSService{Reg: reg, Cache: cache}
}

func (s *JWKSService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Document retorna el JWKS serializado: del cache si hay hit, reconstruido
// desde una vista del registro si no (y cacheado best-effort).
func (s *JWKSService) Document(ctx context.Context) json.RawMessage {
	if s.Cache != nil {
		if doc, ok := s.Cache.Get(ctx); ok {
			return doc
		}
	}

	doc := jwt.BuildJWKSJSON(ctx, s.Reg.Snapshot(), s.now())
	if s.Cache != nil {
		s.Cache.Set(ctx, doc)
	}
	logger.From(ctx).Debug("jwks rebuilt from registry",
		logger.Component("services.jwks"), logger.Op("Document"), logger.Layer("service"))
	return doc
}
