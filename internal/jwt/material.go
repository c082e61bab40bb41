package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/keysmith/internal/keyring"
)

// signingMethodFor resuelve el método de firma para un alg soportado.
func signingMethodFor(alg string) (jwtv5.SigningMethod, error) {
	switch alg {
	case keyring.AlgHS256:
		return jwtv5.SigningMethodHS256, nil
	case keyring.AlgRS256:
		return jwtv5.SigningMethodRS256, nil
	default:
		return nil, fmt.Errorf("unsupported alg %q: %w", alg, ErrConfiguration)
	}
}

// signingKeyFor deriva la clave de firma desde el material registrado.
func signingKeyFor(k keyring.Key) (any, error) {
	switch k.Alg {
	case keyring.AlgHS256:
		if k.Material == "" {
			return nil, fmt.Errorf("empty secret for %s: %w", k.KID, ErrConfiguration)
		}
		return []byte(k.Material), nil
	case keyring.AlgRS256:
		priv, err := parseRSAPrivateFlexible(k.Material)
		if err != nil {
			return nil, err
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("unsupported alg %q: %w", k.Alg, ErrConfiguration)
	}
}

// verifyingKeyFor deriva la clave de verificación.
func verifyingKeyFor(k keyring.Key) (any, error) {
	switch k.Alg {
	case keyring.AlgHS256:
		if k.Material == "" {
			return nil, fmt.Errorf("empty secret for %s: %w", k.KID, ErrConfiguration)
		}
		return []byte(k.Material), nil
	case keyring.AlgRS256:
		priv, err := parseRSAPrivateFlexible(k.Material)
		if err != nil {
			return nil, err
		}
		return &priv.PublicKey, nil
	default:
		return nil, fmt.Errorf("unsupported alg %q: %w", k.Alg, ErrConfiguration)
	}
}

// publicKeyFor expone la public key RSA para el JWKS. Claves no-RSA no son
// publicables.
func publicKeyFor(k keyring.Key) (*rsa.PublicKey, error) {
	if k.Alg != keyring.AlgRS256 {
		return nil, fmt.Errorf("non-RSA key %s (%s) has no public JWK form: %w", k.KID, k.Alg, ErrConfiguration)
	}
	priv, err := parseRSAPrivateFlexible(k.Material)
	if err != nil {
		return nil, err
	}
	return &priv.PublicKey, nil
}

// parseRSAPrivateFlexible parsea el material PEM; ante un fallo estructural
// reintenta UNA vez con el encoding alternativo del mismo material (secuencias
// `\n` escapadas normalizadas a newlines reales, el formato que sobrevive a
// env vars). Robustez pura, no relaja nada de seguridad.
func parseRSAPrivateFlexible(material string) (*rsa.PrivateKey, error) {
	priv, err := parseRSAPrivate(material)
	if err != nil {
		alt := normalizeMaterial(material)
		if alt == material {
			return nil, err
		}
		priv, err = parseRSAPrivate(alt)
		if err != nil {
			return nil, err
		}
	}
	return priv, nil
}

// parseRSAPrivate acepta PKCS#1 ("RSA PRIVATE KEY") y PKCS#8 ("PRIVATE KEY").
func parseRSAPrivate(material string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(material))
	if block == nil {
		return nil, fmt.Errorf("material is not PEM: %w", ErrConfiguration)
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkcs1: %v: %w", err, ErrConfiguration)
		}
		return priv, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkcs8: %v: %w", err, ErrConfiguration)
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("pkcs8 key is not RSA: %w", ErrConfiguration)
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block %q: %w", block.Type, ErrConfiguration)
	}
}

// normalizeMaterial convierte "\n" literales en newlines reales.
func normalizeMaterial(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
