// Package keyring mantiene el estado del ciclo de vida de las signing keys:
// el registro de claves, la decisión de rotación y el mutador que la aplica.
package keyring

import (
	"time"
)

// Algoritmos soportados por el issuer/verifier.
const (
	AlgHS256 = "HS256"
	AlgRS256 = "RS256"
)

// Key representa una clave de firma registrada.
// Material es un secreto HMAC o una private key RSA en PEM.
// RetiredAt es la marca de retiro; una vez seteada solo se refresca, nunca se
// borra, y las claves jamás se eliminan del registro (no hay purga).
type Key struct {
	KID       string
	Alg       string
	Material  string
	RetiredAt *time.Time
}

// Retired indica si la clave tiene marca de retiro.
func (k Key) Retired() bool { return k.RetiredAt != nil }

// VerifiableAt indica si la clave sigue siendo aceptable para verificación en
// el instante dado. Es EL predicado compartido entre el Verifier y el builder
// de JWKS: una clave sin retirar siempre acepta; una retirada acepta mientras
// now < retired_at + grace.
func (k Key) VerifiableAt(now time.Time, grace time.Duration) bool {
	if k.RetiredAt == nil {
		return true
	}
	return now.Before(k.RetiredAt.Add(grace))
}

// KeySet es una vista de lectura del registro en un instante.
// Order preserva el orden de registro de los kids; la selección del sucesor
// depende de ese orden (determinístico, pero NO es una política de fairness).
type KeySet struct {
	Keys      map[string]Key
	Order     []string
	ActiveKID string
	Grace     time.Duration
}

// Active retorna la clave activa, si hay.
func (s KeySet) Active() (Key, bool) {
	if s.ActiveKID == "" {
		return Key{}, false
	}
	k, ok := s.Keys[s.ActiveKID]
	return k, ok
}

// NextKID deriva el sucesor: el primer kid en orden de registro que no es el
// activo. Vacío si no existe otro.
func (s KeySet) NextKID() string {
	for _, kid := range s.Order {
		if kid != s.ActiveKID {
			return kid
		}
	}
	return ""
}

// KeySetUpdate son las instrucciones promote/retire que produce el decision
// engine y aplica el mutador.
type KeySetUpdate struct {
	NewActiveKID string
	Retire       []string
}

// IsNoop indica que no hay nada que aplicar.
func (u KeySetUpdate) IsNoop() bool {
	return u.NewActiveKID == "" && len(u.Retire) == 0
}
