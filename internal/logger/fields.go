package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Context fields, set once and carried down the call chain.
const (
	FieldRequestID      = "request_id"
	FieldComponent      = "component"
	FieldClientIP       = "client_ip"
	FieldSTID           = "stid"
	FieldSupplierUID    = "supplier_uid"
	FieldProjectID      = "project_id"
	FieldHashIdentifier = "hash_identifier"
)

// Per-line metric fields.
const (
	FieldDurationMs = "duration_ms"
	FieldStatus     = "status"
	FieldCount      = "count"
	FieldSize       = "size"
	// FieldAttempt is 1-based.
	FieldAttempt = "attempt"
	// FieldLOI is length of interview in whole minutes.
	FieldLOI = "loi"
)
