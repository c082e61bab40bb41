package jwt

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/keysmith/internal/keyring"
)

// Tipos de token emitidos.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Issuer firma tokens usando la clave activa del registro.
// Firma SIEMPRE con la clave que apunta active_kid, aunque esa clave tenga
// marca de retiro (el caso "clave sola re-retirada" sigue firmando).
type Issuer struct {
	Iss        string            // "iss"
	Reg        *keyring.Registry // registro vivo
	AccessTTL  time.Duration     // TTL por defecto de access tokens (ej: 15m)
	RefreshTTL time.Duration     // TTL de refresh tokens (ej: 30d)

	// Now es inyectable para tests.
	Now func() time.Time
}

func NewIssuer(iss string, reg *keyring.Registry) *Issuer {
	return &Issuer{
		Iss:        iss,
		Reg:        reg,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// ActiveKID devuelve el KID activo actual.
func (i *Issuer) ActiveKID() (string, error) {
	k, err := i.Reg.Active()
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrConfiguration)
	}
	return k.KID, nil
}

// CreateAccessToken emite un access token para el subject dado.
// expiresIn 0 usa el AccessTTL por defecto; extra se mergea en el payload sin
// poder pisar los claims reservados.
func (i *Issuer) CreateAccessToken(sub string, expiresIn time.Duration, extra map[string]any) (string, error) {
	if expiresIn <= 0 {
		expiresIn = i.AccessTTL
	}
	return i.sign(sub, TokenTypeAccess, expiresIn, extra)
}

// CreateRefreshToken emite un refresh token para el subject dado.
func (i *Issuer) CreateRefreshToken(sub string) (string, error) {
	return i.sign(sub, TokenTypeRefresh, i.RefreshTTL, nil)
}

func (i *Issuer) sign(sub, typ string, ttl time.Duration, extra map[string]any) (string, error) {
	k, err := i.Reg.Active()
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrConfiguration)
	}
	method, err := signingMethodFor(k.Alg)
	if err != nil {
		return "", err
	}
	key, err := signingKeyFor(k)
	if err != nil {
		return "", err
	}

	now := i.Now()
	exp := now.Add(ttl)

	claims := jwtv5.MapClaims{}
	for ck, cv := range extra {
		claims[ck] = cv
	}
	claims["iss"] = i.Iss
	claims["sub"] = sub
	claims["iat"] = now.Unix()
	claims["exp"] = exp.Unix()
	claims["jti"] = uuid.NewString()
	claims["type"] = typ

	tk := jwtv5.NewWithClaims(method, claims)
	tk.Header["kid"] = k.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %v: %w", err, ErrConfiguration)
	}
	return signed, nil
}
