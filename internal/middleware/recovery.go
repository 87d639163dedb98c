package middleware

import (
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftandlevel/internal/telemetry/metrics"
	"github.com/2beens/liftandlevel/pkg"
)

// PanicRecovery turns a handler panic into a 500 with the generic error body.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := req.Header.Get(RequestIDHeader)
				if requestID == "" {
					requestID = w.Header().Get(RequestIDHeader)
				}
				log.WithFields(log.Fields{
					"method":     req.Method,
					"path":       req.URL.Path,
					"request_id": requestID,
				}).Errorf("http: panic: %v\n%s", rec, debug.Stack())
				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				pkg.WriteJSONError(w, http.StatusInternalServerError, "server error", "")
			}()

			next.ServeHTTP(w, req)
		})
	}
}
