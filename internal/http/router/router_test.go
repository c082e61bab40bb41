package router

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/keysmith/internal/cache"
	"github.com/dropDatabas3/keysmith/internal/http/controllers"
	"github.com/dropDatabas3/keysmith/internal/http/services"
	"github.com/dropDatabas3/keysmith/internal/jwt"
	"github.com/dropDatabas3/keysmith/internal/keyring"
)

const testAdminKey = "test-admin-key"

func testRSAPEM(t *testing.T) string {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}))
}

func newTestHandler(t *testing.T) (http.Handler, *keyring.Registry) {
	t.Helper()
	reg := keyring.NewRegistry(24 * time.Hour)
	require.NoError(t, reg.Register(keyring.Key{KID: "rs-1", Alg: keyring.AlgRS256, Material: testRSAPEM(t)}))
	require.NoError(t, reg.SetActive("rs-1"))

	client := cache.NewMemory("")
	jwksCache := jwt.NewJWKSCache(client, time.Minute)

	h := New(Deps{
		JWKS:        controllers.NewJWKSController(services.NewJWKSService(reg, jwksCache)),
		Keys:        controllers.NewKeysController(services.NewKeysService(reg, jwksCache, nil, nil)),
		Health:      controllers.NewHealthController(client),
		AdminAPIKey: testAdminKey,
	})
	return h, reg
}

func TestJWKSEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var set jwt.JWKSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Keys, 1)
	require.Equal(t, "rs-1", set.Keys[0].KID)
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no-such-route", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestAdminRequiresAPIKey(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/keys", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/keys", nil)
	req.Header.Set("X-Admin-API-Key", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminListKeys(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/keys", nil)
	req.Header.Set("X-Admin-API-Key", testAdminKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Keys []services.KeyView `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Keys, 1)
	require.True(t, resp.Keys[0].Active)
	require.NotContains(t, rec.Body.String(), "PRIVATE KEY", "el material jamás se expone")
}

func TestAdminIntroduceKey(t *testing.T) {
	h, reg := newTestHandler(t)

	body := map[string]string{"kid": "hs-new", "alg": "HS256", "material": "fresh-secret"}
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(string(payload)))
	req.Header.Set("X-Admin-API-Key", testAdminKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	act, err := reg.Active()
	require.NoError(t, err)
	require.Equal(t, "hs-new", act.KID, "la clave introducida queda activa")

	old, _ := reg.Get("rs-1")
	require.NotNil(t, old.RetiredAt, "la activa anterior quedó retirada")

	// Repetir el mismo kid es conflicto.
	req = httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(string(payload)))
	req.Header.Set("X-Admin-API-Key", testAdminKey)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminIntroduceKeyValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	cases := []map[string]string{
		{"kid": "x", "alg": "ES256", "material": "m"}, // alg no soportado
		{"kid": "", "alg": "HS256", "material": "m"},  // kid vacío
		{"kid": "x", "alg": "HS256", "material": ""},  // material vacío
	}
	for _, c := range cases {
		payload, _ := json.Marshal(c)
		req := httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(string(payload)))
		req.Header.Set("X-Admin-API-Key", testAdminKey)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "caso %v", c)
	}
}

func TestJWKSServedFromCacheAfterFirstHit(t *testing.T) {
	reg := keyring.NewRegistry(24 * time.Hour)
	require.NoError(t, reg.Register(keyring.Key{KID: "rs-1", Alg: keyring.AlgRS256, Material: testRSAPEM(t)}))
	require.NoError(t, reg.SetActive("rs-1"))

	client := cache.NewMemory("")
	jwksCache := jwt.NewJWKSCache(client, time.Minute)
	svc := services.NewJWKSService(reg, jwksCache)

	h := New(Deps{
		JWKS:        controllers.NewJWKSController(svc),
		Keys:        controllers.NewKeysController(services.NewKeysService(reg, jwksCache, nil, nil)),
		Health:      controllers.NewHealthController(client),
		AdminAPIKey: testAdminKey,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	first := rec.Body.String()

	// Mutar el registro SIN invalidar: el cache sigue sirviendo lo viejo
	// hasta el TTL. La invalidación explícita es la que fuerza el rebuild.
	require.NoError(t, reg.Register(keyring.Key{KID: "rs-2", Alg: keyring.AlgRS256, Material: testRSAPEM(t)}))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	require.JSONEq(t, first, rec.Body.String())

	removed, err := jwksCache.Invalidate(context.Background())
	require.NoError(t, err)
	require.True(t, removed)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

	var set jwt.JWKSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Keys, 2, "tras invalidar, el rebuild ve la clave nueva")
}
