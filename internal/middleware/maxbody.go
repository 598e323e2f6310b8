package middleware

import "net/http"

// MaxBody caps request body size; attachments arrive inline as base64 data
// URLs, so the limit is generous (50 MB in the default deployment).
func MaxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
