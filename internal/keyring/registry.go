package keyring

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNoActiveKey = errors.New("no_active_signing_key")
	ErrKeyExists   = errors.New("kid_already_registered")
	ErrKeyNotFound = errors.New("kid_not_found")
)

// Registry es el estado mutable compartido del proceso: mapa de claves, puntero
// de clave activa y tabla de retiros. Lo leen issuer/verifier/JWKS en cada
// request y lo escribe solo el Mutator (o Introduce, la rotación manual).
// Guardado con RWMutex: el lock distribuido serializa rotaciones entre
// procesos, no protege a los lectores dentro del proceso.
type Registry struct {
	mu        sync.RWMutex
	keys      map[string]*Key
	order     []string // orden de registro, define la selección del sucesor
	activeKID string
	grace     time.Duration

	now func() time.Time
}

// NewRegistry crea un registro vacío con el grace period dado.
func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		keys:  make(map[string]*Key),
		grace: grace,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register agrega una clave sin promoverla. Usado en bootstrap para cargar el
// mapa inicial que provee la configuración.
func (r *Registry) Register(k Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[k.KID]; ok {
		return fmt.Errorf("%w: %s", ErrKeyExists, k.KID)
	}
	cp := k
	r.keys[k.KID] = &cp
	r.order = append(r.order, k.KID)
	return nil
}

// SetActive fija el puntero de clave activa. El kid debe existir.
func (r *Registry) SetActive(kid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[kid]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	r.activeKID = kid
	return nil
}

// Introduce es la rotación manual del operador: registra un par kid/material
// nuevo, lo promueve de inmediato y marca el retiro de la clave activa
// anterior con "now".
func (r *Registry) Introduce(kid, alg, material string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[kid]; ok {
		return fmt.Errorf("%w: %s", ErrKeyExists, kid)
	}
	now := r.now()
	if prev, ok := r.keys[r.activeKID]; ok {
		prev.RetiredAt = &now
	}
	r.keys[kid] = &Key{KID: kid, Alg: alg, Material: material}
	r.order = append(r.order, kid)
	r.activeKID = kid
	return nil
}

// Promote cambia el puntero de clave activa. Solo lo llama el Mutator.
func (r *Registry) Promote(kid string) error {
	return r.SetActive(kid)
}

// Retire marca (o refresca) el retiro de una clave. Solo lo llama el Mutator.
func (r *Registry) Retire(kid string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[kid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	t := at
	k.RetiredAt = &t
	return nil
}

// Snapshot retorna una vista inmutable (copias) del estado actual.
func (r *Registry) Snapshot() KeySet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make(map[string]Key, len(r.keys))
	for kid, k := range r.keys {
		cp := *k
		if k.RetiredAt != nil {
			t := *k.RetiredAt
			cp.RetiredAt = &t
		}
		keys[kid] = cp
	}
	order := make([]string, len(r.order))
	copy(order, r.order)
	return KeySet{
		Keys:      keys,
		Order:     order,
		ActiveKID: r.activeKID,
		Grace:     r.grace,
	}
}

// Active retorna la clave activa actual.
func (r *Registry) Active() (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[r.activeKID]
	if !ok {
		return Key{}, ErrNoActiveKey
	}
	cp := *k
	if k.RetiredAt != nil {
		t := *k.RetiredAt
		cp.RetiredAt = &t
	}
	return cp, nil
}

// Get busca una clave por kid.
func (r *Registry) Get(kid string) (Key, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[kid]
	if !ok {
		return Key{}, false
	}
	cp := *k
	if k.RetiredAt != nil {
		t := *k.RetiredAt
		cp.RetiredAt = &t
	}
	return cp, true
}

// Grace retorna el grace period configurado.
func (r *Registry) Grace() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grace
}
