package keyring

import "time"

// Decide mapea (estado del registro, now) -> instrucciones de rotación.
// Función pura: sin I/O, sin efectos, nunca falla con input bien formado; la
// ausencia de trabajo se expresa como update no-op, no como error.
//
// Reglas:
//   - Clave activa sin marca de retiro, o con retiro en el futuro: no-op.
//   - Retiro vencido (retired_at <= now) y existe sucesor: promover el primer
//     kid no-activo en orden de registro y re-retirar la activa.
//   - Retiro vencido sin sucesor: re-retirar la activa SIN despromoverla; la
//     clave sola sigue firmando aunque esté marcada retired. Asimetría del
//     sistema original, preservada a propósito (ver DESIGN.md).
func Decide(ks KeySet, now time.Time) KeySetUpdate {
	act, ok := ks.Active()
	if !ok {
		return KeySetUpdate{}
	}
	if act.RetiredAt == nil || act.RetiredAt.After(now) {
		return KeySetUpdate{}
	}

	next := ks.NextKID()
	if next == "" {
		return KeySetUpdate{Retire: []string{ks.ActiveKID}}
	}
	return KeySetUpdate{
		NewActiveKID: next,
		Retire:       []string{ks.ActiveKID},
	}
}
