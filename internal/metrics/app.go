package metrics

import (
	"strconv"

	"github.com/echowall/echowall/internal/observability"
)

// Application metric names following Prometheus conventions
const (
	NotesCreatedTotal     = "notes_created_total"
	NotesRateLimitedTotal = "notes_rate_limited_total"
	NoteStoreErrorsTotal  = "note_store_errors_total"
	ErrorsTotalName       = "errors_total"
	PanicsTotalName       = "panics_total"
)

// RecordNoteCreated records a successfully persisted note.
func RecordNoteCreated() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			NotesCreatedTotal,
			1,
			nil,
		)
	}
}

// RecordRateLimited records a submission rejected by the rate limiter.
func RecordRateLimited() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			NotesRateLimitedTotal,
			1,
			nil,
		)
	}
}

// RecordStoreError records a failed store operation.
func RecordStoreError(operation string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			NoteStoreErrorsTotal,
			1,
			map[string]string{
				"operation": operation,
			},
		)
	}
}

// RecordError records an error response with code and status.
func RecordError(errorCode string, httpStatus int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotalName,
			1,
			map[string]string{
				"error_code":  errorCode,
				"http_status": strconv.Itoa(httpStatus),
			},
		)
	}
}

// RecordPanic records a panic recovery.
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PanicsTotalName,
			1,
			nil,
		)
	}
}
