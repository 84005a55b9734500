package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

type Log interface {
	Info(string, ...zap.Field)
}

// RequestLogger logs one line per request after it has been served.
func RequestLogger(log Log) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("Request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
