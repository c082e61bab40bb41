package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/dropDatabas3/keysmith/internal/keyring"
	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

// JWK es una clave pública en formato RFC 7517. Solo RSA: otros tipos se
// rechazan, no se coercionan.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	KID string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSet es el conjunto publicado, una entrada por clave verificable.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// VerifyingKeys retorna, en orden de registro, toda clave aceptable para
// verificación en el instante dado: sin marca de retiro, o retirada con
// now < retired_at + grace. Debe espejar EXACTAMENTE la regla del Verifier
// (mismo predicado Key.VerifiableAt) en todo momento.
func VerifyingKeys(ks keyring.KeySet, now time.Time) []keyring.Key {
	out := make([]keyring.Key, 0, len(ks.Order))
	for _, kid := range ks.Order {
		k, ok := ks.Keys[kid]
		if !ok {
			continue
		}
		if k.VerifiableAt(now, ks.Grace) {
			out = append(out, k)
		}
	}
	return out
}

// FormatToJWK convierte una public key RSA a JWK: modulus/exponente en
// base64url sin padding, shape validado antes de retornar. Una clave no-RSA
// es un type error, nunca una coerción silenciosa.
func FormatToJWK(pub any, kid, alg string) (JWK, error) {
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return JWK{}, fmt.Errorf("public key for %s is not RSA: %w", kid, ErrConfiguration)
	}
	if alg == "" {
		alg = keyring.AlgRS256
	}
	j := JWK{
		Kty: "RSA",
		Use: "sig",
		KID: kid,
		Alg: alg,
		N:   base64.RawURLEncoding.EncodeToString(rsaPub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(rsaPub.E)).Bytes()),
	}
	if err := j.validate(); err != nil {
		return JWK{}, err
	}
	return j, nil
}

func (j JWK) validate() error {
	if j.Kty != "RSA" || j.KID == "" || j.Alg == "" || j.N == "" || j.E == "" {
		return fmt.Errorf("jwk shape invalid for kid %q: %w", j.KID, ErrConfiguration)
	}
	return nil
}

// BuildJWKS arma el set publicado desde una vista del registro. Degrada por
// clave: una clave que no puede formatearse (p.ej. HMAC) se saltea y se
// loguea, jamás aborta la respuesta completa.
func BuildJWKS(ctx context.Context, ks keyring.KeySet, now time.Time) JWKSet {
	log := logger.From(ctx).With(logger.Component("jwt.jwks"), logger.Op("BuildJWKS"))

	set := JWKSet{Keys: make([]JWK, 0, len(ks.Order))}
	for _, k := range VerifyingKeys(ks, now) {
		pub, err := publicKeyFor(k)
		if err != nil {
			log.Debug("skipping key without public JWK form", logger.KID(k.KID), logger.Err(err))
			continue
		}
		j, err := FormatToJWK(pub, k.KID, k.Alg)
		if err != nil {
			log.Warn("skipping key that failed JWK formatting", logger.KID(k.KID), logger.Err(err))
			continue
		}
		set.Keys = append(set.Keys, j)
	}
	return set
}

// BuildJWKSJSON es BuildJWKS serializado, listo para servir o cachear.
func BuildJWKSJSON(ctx context.Context, ks keyring.KeySet, now time.Time) json.RawMessage {
	b, _ := json.Marshal(BuildJWKS(ctx, ks, now))
	return b
}
