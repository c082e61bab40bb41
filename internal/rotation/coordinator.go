package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/keysmith/internal/audit"
	"github.com/dropDatabas3/keysmith/internal/keyring"
	"github.com/dropDatabas3/keysmith/internal/metrics"
	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

// ErrTransient marca fallos de rotación reintentables (contención del lock a
// nivel backend, I/O contra el store). Lo evalúa el Scheduler.
var ErrTransient = errors.New("rotation_transient")

// Outcome es el resultado de una corrida.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped" // lock en manos de otro worker
	OutcomeNoop    Outcome = "noop"    // lock tomado, decisión sin trabajo
	OutcomeApplied Outcome = "applied" // lock tomado, mutador ejecutado
)

// Coordinator ejecuta una rotación: lock -> snapshot -> Decide -> Apply.
// Las corridas se serializan entre procesos por el lock distribuido; dentro
// del proceso el registro se protege solo.
type Coordinator struct {
	reg     *keyring.Registry
	mutator *keyring.Mutator
	locker  Locker
	lockKey string
	lockTTL time.Duration
	audit   audit.Emitter

	// Now es inyectable para tests.
	Now func() time.Time
}

func NewCoordinator(reg *keyring.Registry, mut *keyring.Mutator, locker Locker, lockKey string, lockTTL time.Duration, emitter audit.Emitter) *Coordinator {
	return &Coordinator{
		reg:     reg,
		mutator: mut,
		locker:  locker,
		lockKey: lockKey,
		lockTTL: lockTTL,
		audit:   emitter,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce es la operación sin parámetros que dispara el scheduler externo.
// Tres salidas posibles: skipped, noop, applied. El release del lock está
// garantizado en todo exit path; si el proceso muere, expira el TTL.
func (c *Coordinator) RunOnce(ctx context.Context) (Outcome, error) {
	log := logger.From(ctx).With(logger.Component("rotation.coordinator"), logger.Op("RunOnce"))

	release, acquired, err := c.locker.Acquire(ctx, c.lockKey, c.lockTTL)
	if err != nil {
		c.fail(ctx, err)
		return "", fmt.Errorf("acquire lock: %v: %w", err, ErrTransient)
	}
	if !acquired {
		// Skip cooperativo: otro worker está rotando. No se lee el registro
		// ni se invoca el decision engine.
		log.Debug("rotation lock held elsewhere, skipping")
		return OutcomeSkipped, nil
	}
	defer release(ctx)

	upd := keyring.Decide(c.reg.Snapshot(), c.Now())
	if upd.IsNoop() {
		log.Debug("no rotation due")
		return OutcomeNoop, nil
	}

	if err := c.mutator.Apply(ctx, upd); err != nil {
		c.fail(ctx, err)
		return "", fmt.Errorf("apply update: %v: %w", err, ErrTransient)
	}
	log.Info("rotation applied",
		logger.String("new_active_kid", upd.NewActiveKID),
		logger.Count(len(upd.Retire)),
	)
	return OutcomeApplied, nil
}

func (c *Coordinator) fail(ctx context.Context, err error) {
	audit.Log(ctx, c.audit, "rotation.failed", map[string]any{"error": err.Error()})
	metrics.RotationErrors.Inc()
}
