package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/echowall/echowall/internal/metrics"
	"github.com/echowall/echowall/internal/observability"
	"github.com/echowall/echowall/internal/server/middleware"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

const opaqueMessage = "An unexpected error occurred"

// RespondWithError is the central error responder. Typed AppErrors map
// to their status; anything else becomes an opaque 500. Internal detail
// is logged, never written to the response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := &AppError{}
	if !stderrors.As(err, &appErr) {
		appErr = WrapInternal(err, opaqueMessage)
	}

	status := appErr.Status
	message := appErr.Message
	if status == http.StatusInternalServerError {
		message = opaqueMessage
	}

	logError(r, appErr, status)
	metrics.RecordError(appErr.Code, status)

	body := ErrorBody{
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

func logError(r *http.Request, appErr *AppError, status int) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("code", appErr.Code),
		zap.Int("status", status),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("requestID", middleware.GetRequestID(r.Context())),
	}
	if appErr.Err != nil {
		fields = append(fields, zap.Error(appErr.Err))
	}

	switch {
	case status >= 500:
		logger.Error(appErr.Message, fields...)
	case status == http.StatusTooManyRequests:
		logger.Warn(appErr.Message, fields...)
	default:
		logger.Debug(appErr.Message, fields...)
	}
}
