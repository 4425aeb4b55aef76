package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ContextKey string

// LoggerContextKey holds the request-scoped *Logger.
const LoggerContextKey ContextKey = "logger"

func withLogger(r *http.Request, logger *Logger) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), LoggerContextKey, logger))
}

// Middleware makes logger available to handlers through FromContext.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withLogger(r, logger))
		})
	}
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return FromSlog(slog.Default(), ComponentApp)
}

// RequestIDMiddleware tags the request logger with the id extractRequestID
// returns. It must run after whatever assigns the id.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			next.ServeHTTP(w, withLogger(r, logger))
		})
	}
}

// RequestSummary is what the trace middleware knows once a request is done.
type RequestSummary struct {
	RequestID  string
	ClientIP   string
	Status     int
	Bytes      int
	DurationMs int64
}

// StructuredLogger writes the recurring log events of the server and the
// export worker with a fixed field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogRequestStart(ctx context.Context, r *http.Request, requestID, clientIP string) {
	fields := NewFields().
		WithRequest(r.Method, r.URL.Path, r.URL.RawQuery, requestID, clientIP).
		Set(FieldUserAgent, r.Header.Get("User-Agent")).
		Set(FieldReferer, r.Header.Get("Referer"))
	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogRequestEnd logs at info, warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogRequestEnd(ctx context.Context, r *http.Request, sum RequestSummary) {
	level := slog.LevelInfo
	switch {
	case sum.Status >= 500:
		level = slog.LevelError
	case sum.Status >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithRequest(r.Method, r.URL.Path, r.URL.RawQuery, sum.RequestID, sum.ClientIP).
		WithResponse(sum.Status, sum.DurationMs, int64(sum.Bytes))
	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogEditRejected records an edit that failed validation. These are user
// mistakes, so they stay at info.
func (sl *StructuredLogger) LogEditRejected(ctx context.Context, op string, err error) {
	fields := NewFields().WithOperation(op).WithError(err)
	fields[FieldErrorType] = ErrorTypeValidation
	sl.logger.InfoContext(ctx, "Edit rejected", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogReportExported(ctx context.Context, version int64, sheet, ref string) {
	fields := NewFields().
		WithVersion(version).
		WithOperation(OpExport).
		Set(FieldSheet, sheet).
		Set(FieldSheetsRef, ref)
	sl.logger.InfoContext(ctx, "Report exported", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogFailure(ctx context.Context, msg, op, errorType string, err error) {
	fields := NewFields().WithOperation(op).WithError(err)
	fields[FieldErrorType] = errorType
	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
