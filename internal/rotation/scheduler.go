package rotation

import (
	"context"
	"time"

	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

const (
	retryBase = time.Minute
	retryMax  = time.Hour
)

// Backoff computa el delay de reintento para el intento dado (base cero):
// min(60m, (attempt+1) × 1m). El crecimiento de intentos no está acotado acá;
// cortar o dead-letterear es responsabilidad del supervisor externo.
func Backoff(attempt int) time.Duration {
	d := time.Duration(attempt+1) * retryBase
	if d > retryMax {
		return retryMax
	}
	return d
}

// Scheduler dispara RunOnce en un intervalo fijo, desacoplado del request
// path. Tras una corrida fallida se re-invoca con el backoff computado; un
// éxito (incluye skipped y noop) resetea el contador de intentos.
// El control de reintentos es por valores de retorno, no por excepciones.
type Scheduler struct {
	coord    *Coordinator
	interval time.Duration
}

func NewScheduler(coord *Coordinator, interval time.Duration) *Scheduler {
	return &Scheduler{coord: coord, interval: interval}
}

// Run bloquea hasta que el contexto se cancele.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Component("rotation.scheduler"))
	log.Info("rotation scheduler started", logger.Duration(s.interval))

	attempt := 0
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		outcome, err := s.coord.RunOnce(ctx)
		if err != nil {
			delay := Backoff(attempt)
			log.Warn("rotation run failed, scheduling retry",
				logger.Err(err),
				logger.Attempt(attempt),
				logger.Duration(delay),
			)
			attempt++
			timer.Reset(delay)
			continue
		}

		attempt = 0
		log.Debug("rotation run finished", logger.Outcome(string(outcome)))
		timer.Reset(s.interval)
	}
}
