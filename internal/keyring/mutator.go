package keyring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/keysmith/internal/audit"
	"github.com/dropDatabas3/keysmith/internal/metrics"
	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

// JWKSInvalidator borra la entrada cacheada del JWKS. Retorna si se eliminó
// algo; "no había nada que invalidar" se trata como fallo, no como éxito
// idempotente (semántica heredada, ver DESIGN.md).
type JWKSInvalidator interface {
	Invalidate(ctx context.Context) (bool, error)
}

// Mutator aplica un KeySetUpdate sobre el registro vivo y dispara
// invalidación de cache, métricas y auditoría.
type Mutator struct {
	reg   *Registry
	jwks  JWKSInvalidator // puede ser nil (sin cache)
	audit audit.Emitter

	// Now es inyectable para tests de borde temporal.
	Now func() time.Time
}

// NewMutator crea un mutador sobre el registro dado.
func NewMutator(reg *Registry, inv JWKSInvalidator, emitter audit.Emitter) *Mutator {
	return &Mutator{
		reg:   reg,
		jwks:  inv,
		audit: emitter,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// Apply ejecuta el update. El caller corta los no-op antes de llamar; acá un
// no-op simplemente no hace nada. Fallos mutando el registro propagan al
// coordinator (que los clasifica como retryables); el paso de invalidación de
// cache es best-effort y ocurre estrictamente DESPUÉS del write del registro.
func (m *Mutator) Apply(ctx context.Context, upd KeySetUpdate) error {
	if upd.IsNoop() {
		return nil
	}
	log := logger.From(ctx).With(logger.Component("keyring.mutator"), logger.Op("Apply"))
	now := m.Now()

	if upd.NewActiveKID != "" {
		if err := m.reg.Promote(upd.NewActiveKID); err != nil {
			return err
		}
		audit.Log(ctx, m.audit, "key.promoted", map[string]any{"kid": upd.NewActiveKID})
		metrics.KeyPromotions.Inc()
		log.Info("key promoted", logger.KID(upd.NewActiveKID))
	}

	for _, kid := range upd.Retire {
		if err := m.reg.Retire(kid, now); err != nil {
			return err
		}
		audit.Log(ctx, m.audit, "key.retired", map[string]any{
			"kid":        kid,
			"retired_at": now.Format(time.RFC3339),
		})
		metrics.KeyRetirements.Inc()
		log.Info("key retired", logger.KID(kid))
	}

	m.invalidateJWKS(ctx, log)
	return nil
}

func (m *Mutator) invalidateJWKS(ctx context.Context, log *zap.Logger) {
	if m.jwks == nil {
		return
	}
	removed, err := m.jwks.Invalidate(ctx)
	switch {
	case err != nil:
		log.Warn("jwks cache invalidation failed", logger.Err(err))
		metrics.JWKSCacheInvalidationErrors.Inc()
	case !removed:
		log.Warn("jwks cache invalidation removed nothing")
		metrics.JWKSCacheInvalidationErrors.Inc()
	default:
		audit.Log(ctx, m.audit, "jwks.cache_invalidated", nil)
		metrics.JWKSCacheInvalidations.Inc()
	}
}
