package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/echowall/echowall/internal/metrics"
	"github.com/echowall/echowall/internal/observability"
)

// Recovery middleware recovers from panics, logs them with the stack
// trace, and answers with the standard error body.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if observability.ServerLogger != nil {
					observability.ServerLogger.Error("Recovered from panic",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("requestID", GetRequestID(r.Context())),
						zap.String("stack", string(debug.Stack())),
					)
				}

				metrics.RecordPanic()

				writeErrorBody(w, r, http.StatusInternalServerError, "An unexpected error occurred")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// errorBody mirrors errors.ErrorBody; duplicated here to avoid a
// circular import with the errors package.
type errorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := errorBody{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
