// Package audit emite eventos estructurados por cada transición de estado del
// key lifecycle (promoted, retired, cache invalidated, rotation failed).
// La emisión es best-effort: sin sink configurado degrada a no-op.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

// Emitter escribe un evento de auditoría. In the future this can be wired to
// DB or an external sink; hoy el sink por defecto es el logger estructurado.
type Emitter interface {
	Emit(ctx context.Context, event string, fields map[string]any)
}

// Nop es un Emitter que descarta todo.
type Nop struct{}

func (Nop) Emit(context.Context, string, map[string]any) {}

// LogEmitter emite eventos via zap.
type LogEmitter struct{}

func (LogEmitter) Emit(ctx context.Context, event string, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields)+2)
	zf = append(zf,
		zap.String("audit_event", event),
		zap.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	)
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	logger.From(ctx).Named("audit").Info(event, zf...)
}

// Log emite un evento con el emitter dado, tolerando emitter nil.
func Log(ctx context.Context, e Emitter, event string, fields map[string]any) {
	if e == nil {
		return
	}
	e.Emit(ctx, event, fields)
}
