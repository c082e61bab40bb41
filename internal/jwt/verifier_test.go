package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/keysmith/internal/keyring"
)

func TestVerifierRS256RoundTrip(t *testing.T) {
	pemKey := genRSAPEM(t)
	r := newTestRegistry(t, time.Hour, keyring.Key{KID: "rs-1", Alg: keyring.AlgRS256, Material: pemKey})

	iss := NewIssuer("http://test", r)
	token, err := iss.CreateAccessToken("user-1", 0, nil)
	require.NoError(t, err)

	claims, err := NewVerifier(r).DecodeToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])
}

func TestVerifierEscapedNewlineMaterial(t *testing.T) {
	// Material que pasó por una env var: newlines como secuencias "\n"
	// literales. El retry de encoding alternativo lo tiene que aceptar.
	pemKey := genRSAPEM(t)
	escaped := strings.ReplaceAll(pemKey, "\n", `\n`)

	_, err := verifyingKeyFor(keyring.Key{KID: "rs-1", Alg: keyring.AlgRS256, Material: escaped})
	require.NoError(t, err)

	// El material original sin escapar sigue funcionando directo.
	_, err = verifyingKeyFor(keyring.Key{KID: "rs-1", Alg: keyring.AlgRS256, Material: pemKey})
	require.NoError(t, err)

	// Y el round trip completo con material escapado también firma y valida.
	r := newTestRegistry(t, time.Hour, keyring.Key{KID: "rs-1", Alg: keyring.AlgRS256, Material: escaped})
	token, err := NewIssuer("http://test", r).CreateAccessToken("user-1", 0, nil)
	require.NoError(t, err)
	_, err = NewVerifier(r).DecodeToken(token)
	require.NoError(t, err)
}

func TestVerifierGraceWindowBoundary(t *testing.T) {
	grace := 24 * time.Hour
	retiredAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	r := newTestRegistry(t, grace,
		keyring.Key{KID: "hs-old", Alg: keyring.AlgHS256, Material: "s1"},
	)

	iss := NewIssuer("http://test", r)
	iss.Now = func() time.Time { return retiredAt.Add(-time.Hour) }
	token, err := iss.CreateAccessToken("user-1", 48*time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, r.Retire("hs-old", retiredAt))

	v := NewVerifier(r)

	// Dentro de la ventana: now < retired_at + grace.
	v.Now = func() time.Time { return retiredAt.Add(grace - time.Second) }
	_, err = v.DecodeToken(token)
	require.NoError(t, err, "token firmado por clave retirada debe validar dentro del grace window")

	// En el borde exacto ya NO es verificable (now == retired_at + grace).
	v.Now = func() time.Time { return retiredAt.Add(grace) }
	_, err = v.DecodeToken(token)
	require.ErrorIs(t, err, ErrExpiredSignature)

	// Después del borde, idem.
	v.Now = func() time.Time { return retiredAt.Add(grace + time.Hour) }
	_, err = v.DecodeToken(token)
	require.ErrorIs(t, err, ErrExpiredSignature)
}

func TestVerifierUnknownKIDFallsBackToActive(t *testing.T) {
	r := newTestRegistry(t, time.Hour, keyring.Key{KID: "hs-1", Alg: keyring.AlgHS256, Material: "secret"})

	iss := NewIssuer("http://test", r)
	token, err := iss.CreateAccessToken("user-1", 0, nil)
	require.NoError(t, err)

	// Se fuerza un kid desconocido re-firmando el mismo payload con otra
	// instancia cuyo registro tiene un kid distinto pero el mismo material.
	r2 := newTestRegistry(t, time.Hour, keyring.Key{KID: "other-kid", Alg: keyring.AlgHS256, Material: "secret"})
	iss2 := NewIssuer("http://test", r2)
	tokenOtherKID, err := iss2.CreateAccessToken("user-1", 0, nil)
	require.NoError(t, err)

	// El verifier de r no conoce "other-kid" pero cae a la activa, que
	// comparte material, y valida.
	claims, err := NewVerifier(r).DecodeToken(tokenOtherKID)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])

	_ = token
}

func TestVerifierUnknownKIDWrongKeyFails(t *testing.T) {
	r := newTestRegistry(t, time.Hour, keyring.Key{KID: "hs-1", Alg: keyring.AlgHS256, Material: "secret-A"})
	r2 := newTestRegistry(t, time.Hour, keyring.Key{KID: "hs-2", Alg: keyring.AlgHS256, Material: "secret-B"})

	token, err := NewIssuer("http://test", r2).CreateAccessToken("user-1", 0, nil)
	require.NoError(t, err)

	_, err = NewVerifier(r).DecodeToken(token)
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerifierExpiredToken(t *testing.T) {
	r := newTestRegistry(t, time.Hour, keyring.Key{KID: "hs-1", Alg: keyring.AlgHS256, Material: "s"})
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	iss := NewIssuer("http://test", r)
	iss.Now = func() time.Time { return fixed }
	token, err := iss.CreateAccessToken("user-1", time.Minute, nil)
	require.NoError(t, err)

	v := NewVerifier(r)
	v.Now = func() time.Time { return fixed.Add(2 * time.Minute) }
	_, err = v.DecodeToken(token)
	require.ErrorIs(t, err, ErrExpiredSignature)
}

func TestVerifierMissingSubject(t *testing.T) {
	r := newTestRegistry(t, time.Hour, keyring.Key{KID: "hs-1", Alg: keyring.AlgHS256, Material: "s"})

	// Un token bien firmado pero con sub vacío no pasa.
	token, err := NewIssuer("http://test", r).CreateAccessToken("   ", 0, nil)
	require.NoError(t, err)

	_, err = NewVerifier(r).DecodeToken(token)
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerifierGarbageToken(t *testing.T) {
	r := newTestRegistry(t, time.Hour, keyring.Key{KID: "hs-1", Alg: keyring.AlgHS256, Material: "s"})

	_, err := NewVerifier(r).DecodeToken("not.a.jwt")
	require.ErrorIs(t, err, ErrMalformedToken)

	_, err = NewVerifier(r).DecodeToken("")
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerifierNoKeysConfigured(t *testing.T) {
	r := keyring.NewRegistry(time.Hour)
	valid := newTestRegistry(t, time.Hour, keyring.Key{KID: "hs-1", Alg: keyring.AlgHS256, Material: "s"})
	token, err := NewIssuer("http://test", valid).CreateAccessToken("user-1", 0, nil)
	require.NoError(t, err)

	_, err = NewVerifier(r).DecodeToken(token)
	require.ErrorIs(t, err, ErrConfiguration)
}
