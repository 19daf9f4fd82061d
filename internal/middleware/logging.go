package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// responseWriter captures the status code and byte count for logging and
// metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// operatorFromPath pulls the operator segment out of /v1/{operator}/...
// without waiting for routing; "-" for unscoped paths like /health.
func operatorFromPath(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if len(parts) >= 2 && parts[0] == "v1" && parts[1] != "" {
		return parts[1]
	}
	return "-"
}

// LoggingMiddleware logs one key=value line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		log.Printf(
			"operator=%s method=%s path=%s status=%d duration=%s bytes=%d ip=%s",
			operatorFromPath(r.URL.Path),
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			time.Since(start),
			wrapped.written,
			r.RemoteAddr,
		)
	})
}
