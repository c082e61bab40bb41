package jwt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/keysmith/internal/cache"
	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

// jwksCacheKey: entrada única, el JWKS no está parametrizado por request.
const jwksCacheKey = "jwks:v1"

// JWKSCache es el wrapper cache-aside sobre el builder. Errores del backend
// NUNCA cruzan este boundary hacia el request path: un miss o un error se
// reportan igual ("no value") y el caller reconstruye fresco.
type JWKSCache struct {
	client cache.Client
	ttl    time.Duration
}

func NewJWKSCache(client cache.Client, ttl time.Duration) *JWKSCache {
	return &JWKSCache{client: client, ttl: ttl}
}

// Get retorna el JWKSet cacheado, o false si no hay valor utilizable.
func (c *JWKSCache) Get(ctx context.Context) (json.RawMessage, bool) {
	val, err := c.client.Get(ctx, jwksCacheKey)
	if err != nil {
		if !cache.IsNotFound(err) {
			logger.From(ctx).Warn("jwks cache get failed",
				logger.Component("jwt.jwks_cache"), logger.Key(jwksCacheKey), logger.Err(err))
		}
		return nil, false
	}
	if val == "" {
		return nil, false
	}
	return json.RawMessage(val), true
}

// Set escribe el set recién construido, best-effort con TTL fijo.
func (c *JWKSCache) Set(ctx context.Context, data json.RawMessage) {
	if err := c.client.Set(ctx, jwksCacheKey, string(data), c.ttl); err != nil {
		logger.From(ctx).Warn("jwks cache set failed",
			logger.Component("jwt.jwks_cache"), logger.Key(jwksCacheKey), logger.Err(err))
	}
}

// Invalidate borra la entrada. Lo usa solo el Mutator, estrictamente después
// de escribir el registro. "No había nada que borrar" se reporta como
// removed=false y el caller lo trata como fallo (semántica preservada del
// sistema original, ver DESIGN.md).
func (c *JWKSCache) Invalidate(ctx context.Context) (bool, error) {
	return c.client.Delete(ctx, jwksCacheKey)
}
