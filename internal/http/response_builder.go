package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"famreport/internal/core"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorResponse creates a {error, code} response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message, Code: code})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal_error", "internal server error")
}

var validationCodes = []struct {
	err  error
	code string
}{
	{core.ErrInvalidYear, "invalid_year"},
	{core.ErrInvalidMonth, "invalid_month"},
	{core.ErrInvalidDay, "invalid_day"},
	{core.ErrInvalidPeriod, "invalid_period"},
	{core.ErrInvalidView, "invalid_view"},
	{core.ErrDuplicatePeriod, "duplicate_period"},
	{core.ErrEmptyName, "empty_name"},
	{core.ErrDuplicateID, "duplicate_id"},
	{core.ErrAggregateItem, "aggregate_item"},
	{core.ErrInvalidAmount, "invalid_amount"},
}

// errBadRequest marks request-shape problems found by the parser.
var errBadRequest = errors.New("bad request")

// ErrorFor maps err onto a status: rejected edits are 422, malformed input
// 400, anything else 500 without leaking the cause.
func ErrorFor(err error) *JSONResponseBuilder {
	if core.IsValidation(err) {
		for _, vc := range validationCodes {
			if errors.Is(err, vc.err) {
				return ErrorResponse(http.StatusUnprocessableEntity, vc.code, err.Error())
			}
		}
	}
	switch {
	case errors.Is(err, core.ErrMalformedPayload):
		return ErrorResponse(http.StatusBadRequest, "malformed_payload", "report payload must be a JSON object")
	case errors.Is(err, errBadRequest):
		return BadRequestError(err.Error())
	}
	return InternalServerError()
}
