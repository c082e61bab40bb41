package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Rotation-related Prometheus metrics. Defined in a standalone package to avoid
// import cycles between the keyring (mutator) and HTTP packages.

var (
	KeyPromotions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "key_promotions_total",
		Help: "Claves promovidas a activa",
	})

	KeyRetirements = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "key_retirements_total",
		Help: "Claves marcadas como retired",
	})

	RotationErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rotation_errors_total",
		Help: "Corridas de rotación que terminaron en error",
	})

	JWKSCacheInvalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jwks_cache_invalidations_total",
		Help: "Invalidaciones exitosas del cache JWKS",
	})

	JWKSCacheInvalidationErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jwks_cache_invalidation_errors_total",
		Help: "Invalidaciones del cache JWKS que fallaron (incluye delete sin entradas)",
	})
)

// RegisterRotation registers the rotation metrics on the given registry (or default if nil).
func RegisterRotation(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		KeyPromotions,
		KeyRetirements,
		RotationErrors,
		JWKSCacheInvalidations,
		JWKSCacheInvalidationErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
