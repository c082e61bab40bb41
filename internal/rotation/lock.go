// Package rotation coordina la rotación de claves a lo largo del fleet:
// un lock advisory sobre el store compartido serializa las corridas entre
// workers; el scheduler reintenta con backoff cuando una corrida falla.
package rotation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/keysmith/internal/cache"
)

// Locker adquiere un lock advisory con nombre y TTL. acquired=false significa
// que otro worker lo tiene: eso es skip cooperativo, no espera.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), acquired bool, err error)
}

// CacheLocker implementa Locker con SetNX sobre el cache compartido (Redis en
// producción). El TTL cubre la muerte del proceso: si el worker muere con el
// lock tomado, expira solo y una corrida posterior recomputa.
type CacheLocker struct {
	client cache.Client
}

func NewCacheLocker(client cache.Client) *CacheLocker {
	return &CacheLocker{client: client}
}

// Acquire toma el lock con un owner token. El release devuelto borra la key
// solo si el token sigue siendo nuestro, en un check-and-delete atómico; así
// un release tardío no pisa el lock de otro worker que lo tomó tras la
// expiración del TTL.
func (l *CacheLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) {
		_, _ = l.client.DeleteIfEquals(ctx, key, token)
	}
	return release, true, nil
}
