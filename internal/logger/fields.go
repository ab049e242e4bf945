package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Tracing fields, propagated through the context.
const (
	FieldRunID     = "run_id"
	FieldStage     = "stage"
	FieldComponent = "component"
	FieldSource    = "source"
	FieldJobID     = "job_id"
	FieldCompany   = "company"
	FieldRequestID = "request_id"
)

// Metric fields, attached per entry.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldStatus     = "status"
	FieldSize       = "size"
)
