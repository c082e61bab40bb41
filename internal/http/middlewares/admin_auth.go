package middlewares

import (
	"crypto/subtle"
	"net/http"

	httperrors "github.com/dropDatabas3/keysmith/internal/http/errors"
)

const adminAPIKeyHeader = "X-Admin-API-Key"

// AdminAPIKey protege las rutas admin con una API key estática comparada en
// tiempo constante. Si la key configurada está vacía, las rutas admin quedan
// deshabilitadas (401 siempre).
func AdminAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(adminAPIKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
