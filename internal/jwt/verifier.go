package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/keysmith/internal/keyring"
)

// Verifier valida tokens contra las claves candidatas del registro,
// aplicando el grace window de retiro ANTES de cualquier verificación
// criptográfica.
type Verifier struct {
	Reg *keyring.Registry

	// Now es inyectable para tests de borde del grace window.
	Now func() time.Time
}

func NewVerifier(reg *keyring.Registry) *Verifier {
	return &Verifier{
		Reg: reg,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// DecodeToken verifica el token y retorna sus claims.
//
// Selección de clave: lee `kid` del header SIN verificar la firma primero.
// Si el kid no existe en el registro, cae a intentar con la clave activa
// antes de fallar. Si la clave candidata está retirada y el grace window ya
// venció, falla con ErrExpiredSignature sin tocar criptografía: ese es el
// punto de enforcement del grace period.
func (v *Verifier) DecodeToken(token string) (map[string]any, error) {
	parser := jwtv5.NewParser()
	unverified, _, err := parser.ParseUnverified(token, jwtv5.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parse header: %v: %w", err, ErrMalformedToken)
	}
	kid, _ := unverified.Header["kid"].(string)

	candidate, err := v.candidateKey(kid)
	if err != nil {
		return nil, err
	}

	now := v.Now()
	if !candidate.VerifiableAt(now, v.Reg.Grace()) {
		return nil, fmt.Errorf("key %s past retirement grace window: %w", candidate.KID, ErrExpiredSignature)
	}

	claims, err := v.verifyWith(token, candidate)
	if err != nil {
		return nil, err
	}

	// sub no vacío es requisito post-verificación, distinto de un fallo de firma.
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("subject claim missing or empty: %w", ErrMalformedToken)
	}
	return claims, nil
}

// candidateKey resuelve la clave contra la que se va a verificar.
func (v *Verifier) candidateKey(kid string) (keyring.Key, error) {
	if kid != "" {
		if k, ok := v.Reg.Get(kid); ok {
			return k, nil
		}
	}
	// kid desconocido (o ausente): fallback a la activa actual.
	k, err := v.Reg.Active()
	if err != nil {
		return keyring.Key{}, fmt.Errorf("%v: %w", err, ErrConfiguration)
	}
	return k, nil
}

func (v *Verifier) verifyWith(token string, k keyring.Key) (map[string]any, error) {
	key, err := verifyingKeyFor(k)
	if err != nil {
		return nil, err
	}

	tok, err := jwtv5.Parse(token,
		func(*jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{k.Alg}),
		jwtv5.WithTimeFunc(func() time.Time { return v.Now() }),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", ErrExpiredSignature)
		}
		return nil, fmt.Errorf("verify: %v: %w", err, ErrMalformedToken)
	}
	if !tok.Valid {
		return nil, ErrMalformedToken
	}

	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type: %w", ErrMalformedToken)
	}
	out := make(map[string]any, len(mc))
	for ck, cv := range mc {
		out[ck] = cv
	}
	return out, nil
}
