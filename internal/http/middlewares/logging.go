package middlewares

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dropDatabas3/keysmith/internal/observability/logger"
)

// RequestLogger inyecta un logger scoped con request_id en el contexto y
// loguea cada request al completarse.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())

		l := logger.L().With(
			logger.RequestID(reqID),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
		)
		ctx := logger.ToContext(r.Context(), l)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		l.Info("request completed",
			logger.Status(ww.Status()),
			logger.Duration(time.Since(start)),
		)
	})
}
