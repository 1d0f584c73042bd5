package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/AnandVishesh1301/temboXpoke/internal/observability"
)

// Recovery is HTTP middleware that recovers from panics.
// It logs the stack trace and returns a 500 Internal Server Error.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					requestID := GetRequestID(r.Context())
					logger.Error("panic recovered",
						"err", err,
						"request_id", requestID,
						"stack", string(debug.Stack()),
					)

					// Log to Loki for alerting
					observability.LogSecurityEvent(requestID, "panic_recovered", map[string]any{
						"error": fmt.Sprintf("%v", err),
						"path":  r.URL.Path,
					})

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					fmt.Fprintf(w, `{"error":"internal_server_error","message":"An unexpected error occurred"}`)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
