package log

import (
	"maps"
	"slices"
)

const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldBytes      = "bytes"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"

	// report fields
	FieldView      = "view"
	FieldPeriod    = "period"
	FieldVersion   = "version"
	FieldSeq       = "seq"
	FieldTarget    = "target"
	FieldSheet     = "sheet"
	FieldSheetsRef = "sheets_ref"
)

const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentTrace   = "trace"
	ComponentCache   = "cache"
	ComponentReport  = "report"
	ComponentSession = "session"
	ComponentBackend = "backend"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
)

const (
	OpLoad   = "load"
	OpSave   = "save"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpRender = "render"
	OpExport = "export"
)

const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields collects attributes for one log line.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

// Set adds key unless v is the zero string.
func (f LogFields) Set(key string, v any) LogFields {
	if s, ok := v.(string); ok && s == "" {
		return f
	}
	f[key] = v
	return f
}

func (f LogFields) WithComponent(component string) LogFields {
	return f.Set(FieldComponent, component)
}

func (f LogFields) WithOperation(op string) LogFields {
	return f.Set(FieldOperation, op)
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithVersion(version int64) LogFields {
	f[FieldVersion] = version
	return f
}

// WithRequest adds the request line plus the caller's id and address.
func (f LogFields) WithRequest(method, path, query, requestID, clientIP string) LogFields {
	return f.Set(FieldMethod, method).
		Set(FieldPath, path).
		Set(FieldQuery, query).
		Set(FieldRequestID, requestID).
		Set(FieldClientIP, clientIP)
}

func (f LogFields) WithResponse(status int, durationMs, bytes int64) LogFields {
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	f[FieldBytes] = bytes
	f[FieldSuccess] = status < 400
	return f
}

// ToSlice returns key/value pairs ordered by key.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, k, f[k])
	}
	return out
}
