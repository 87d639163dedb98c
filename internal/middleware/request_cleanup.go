package middleware

import (
	"io"
	"net/http"
)

const (
	DefaultMaxBodyBytes = 1 << 20
	maxDrainBytes       = 64 << 10
)

// LimitAndDrainRequest caps the request body at maxBodyBytes, and once the handler
// returns drains what is left of it (up to a small bound) so the connection can be reused.
func LimitAndDrainRequest(maxBodyBytes int64) func(next http.Handler) http.Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
				_ = r.Body.Close()
			}
		})
	}
}
