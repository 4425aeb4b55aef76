package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"famreport/internal/core"
)

// maxBodyBytes bounds request bodies; a whole report is the largest.
const maxBodyBytes = 4 << 20

// decodeJSON reads a single JSON value from r into v. Unknown fields are
// rejected so typos in edit requests do not silently do nothing.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return fmt.Errorf("%w: content type must be application/json", errBadRequest)
		}
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// ViewParams selects one period of one view.
type ViewParams struct {
	View   core.ViewMode
	Period string
}

// ParseViewParams reads view and period from the query. The view defaults
// to year and the period to the report's latest period of that view.
func ParseViewParams(query url.Values, r core.Report) (ViewParams, error) {
	view := core.ViewYear
	if v := strings.TrimSpace(query.Get("view")); v != "" {
		m, err := core.ParseViewMode(v)
		if err != nil {
			return ViewParams{}, fmt.Errorf("%w: %q", err, v)
		}
		view = m
	}

	period := strings.TrimSpace(query.Get("period"))
	if period == "" {
		period = r.LatestPeriod(view)
	}
	if kind, ok := core.KindOf(period); !ok || kind != view {
		return ViewParams{}, fmt.Errorf("%w: %q for %s view", core.ErrInvalidPeriod, period, view)
	}
	return ViewParams{View: view, Period: period}, nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
