package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/keysmith/internal/audit"
	"github.com/dropDatabas3/keysmith/internal/jwt"
	"github.com/dropDatabas3/keysmith/internal/keyring"
	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

// KeyStore es el write-through opcional hacia storage persistente.
type KeyStore interface {
	IntroduceKeyTx(ctx context.Context, k keyring.Key) error
}

// KeyView es la proyección admin de una clave: nunca incluye material.
type KeyView struct {
	KID       string     `json:"kid"`
	Alg       string     `json:"alg"`
	Active    bool       `json:"active"`
	RetiredAt *time.Time `json:"retired_at,omitempty"`
}

// KeysService maneja las operaciones admin sobre el ring.
type KeysService struct {
	Reg   *keyring.Registry
	Cache *jwt.JWKSCache // nilable
	Store KeyStore       // nilable
	Audit audit.Emitter
}

func NewKeysService(reg *keyring.Registry, cache *jwt.JWKSCache, store KeyStore, emitter audit.Emitter) *KeysService {
	return &KeysService{Reg: reg, Cache: cache, Store: store, Audit: emitter}
}

// List retorna las claves en orden de registro, sin material.
func (s *KeysService) List(ctx context.Context) []KeyView {
	ks := s.Reg.Snapshot()
	out := make([]KeyView, 0, len(ks.Order))
	for _, kid := range ks.Order {
		k, ok := ks.Keys[kid]
		if !ok {
			continue
		}
		out = append(out, KeyView{
			KID:       k.KID,
			Alg:       k.Alg,
			Active:    kid == ks.ActiveKID,
			RetiredAt: k.RetiredAt,
		})
	}
	return out
}

// Introduce registra una clave nueva y la promueve de inmediato (rotación
// manual). La anterior queda marcada como retirada. El write-through a
// storage y la invalidación del JWKS cache son best-effort: el registro en
// memoria ya cambió y los requests siguientes lo reflejan.
func (s *KeysService) Introduce(ctx context.Context, kid, alg, material string) error {
	log := logger.From(ctx).With(logger.Component("services.keys"), logger.Op("Introduce"), logger.Layer("service"))

	switch alg {
	case keyring.AlgHS256, keyring.AlgRS256:
	default:
		return fmt.Errorf("unsupported alg %q: %w", alg, jwt.ErrConfiguration)
	}
	if kid == "" || material == "" {
		return fmt.Errorf("kid and material are required: %w", jwt.ErrConfiguration)
	}

	if err := s.Reg.Introduce(kid, alg, material); err != nil {
		return err
	}
	audit.Log(ctx, s.Audit, "key.introduced", map[string]any{"kid": kid, "alg": alg})

	if s.Store != nil {
		if err := s.Store.IntroduceKeyTx(ctx, keyring.Key{KID: kid, Alg: alg, Material: material}); err != nil {
			log.Warn("key introduced but storage write-through failed", logger.KID(kid), logger.Err(err))
		}
	}
	if s.Cache != nil {
		if removed, err := s.Cache.Invalidate(ctx); err != nil {
			log.Warn("jwks cache invalidation failed after introduce", logger.KID(kid), logger.Err(err))
		} else if !removed {
			log.Debug("jwks cache had no entry to invalidate", logger.KID(kid))
		}
	}
	return nil
}
