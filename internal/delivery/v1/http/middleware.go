package http

import (
	"net/http"
	"time"

	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger пишет строку на каждый запрос с request id, статусом и длительностью.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			l := log.With("request_id", middleware.GetReqID(r.Context()))
			if status >= http.StatusInternalServerError {
				l.Warnf("%s %s -> %d (%s)", r.Method, r.URL.Path, status, time.Since(started))
				return
			}
			l.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, status, time.Since(started))
		})
	}
}
