package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"famreport/internal/core"
	"famreport/internal/export"
	"famreport/internal/log"
	"famreport/internal/storage"
)

// reportResponse is the whole-report envelope. Data is an empty object when
// nothing has been stored, which device clients read as "no server copy".
type reportResponse struct {
	Data     any            `json:"data"`
	Version  int64          `json:"version,omitempty"`
	Item     *core.Item     `json:"item,omitempty"`
	Note     *core.Note     `json:"note,omitempty"`
	Snapshot *core.Snapshot `json:"snapshot,omitempty"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Version int64  `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the store and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	switch {
	case s.store == nil:
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	st := s.pdfCache.Stats()
	checks["pdf_cache"] = map[string]any{
		"entries": st.Size,
		"hits":    st.Hits,
		"misses":  st.Misses,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// current loads the stored report, falling back to the template when the
// store is empty. stored is false in that case.
func (s *Server) current(ctx context.Context) (r core.Report, rec storage.Record, stored bool, err error) {
	r, rec, err = s.svc.Current(ctx)
	if errors.Is(err, storage.ErrNoReport) {
		return r, rec, false, nil
	}
	return r, rec, err == nil, err
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, rec, stored, err := s.current(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to load report", log.OpLoad, err)
		return
	}
	if !stored {
		NewJSONResponse().Body(reportResponse{Data: struct{}{}}).Write(w)
		return
	}
	NewJSONResponse().Body(reportResponse{Data: rep.Payload(), Version: rec.Version}).Write(w)
}

type putReportRequest struct {
	Data json.RawMessage `json:"data"`
}

// handlePutReport replaces the stored report with the migrated body.
func (s *Server) handlePutReport(w http.ResponseWriter, r *http.Request) {
	var req putReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	if len(bytes.TrimSpace(req.Data)) == 0 || string(bytes.TrimSpace(req.Data)) == "null" {
		BadRequestError("missing data").Write(w)
		return
	}
	p, err := core.DecodePayload(req.Data)
	if err != nil {
		reportSavesTotal.WithLabelValues("rejected").Inc()
		ErrorFor(err).Write(w)
		return
	}

	_, rec, err := s.svc.Replace(r.Context(), p)
	if err != nil {
		reportSavesTotal.WithLabelValues("failed").Inc()
		s.fail(w, r, "Failed to store report", log.OpSave, err)
		return
	}
	reportSavesTotal.WithLabelValues("saved").Inc()
	NewJSONResponse().Body(statusResponse{Status: "ok", Version: rec.Version}).Write(w)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context()); err != nil {
		s.fail(w, r, "Failed to delete report", log.OpDelete, err)
		return
	}
	// Versions restart after a delete, so cached documents could collide.
	s.pdfCache.Purge()
	NewJSONResponse().Body(statusResponse{Status: "deleted"}).Write(w)
}

type summaryResponse struct {
	View    core.ViewMode `json:"view"`
	Period  string        `json:"period"`
	Summary core.Summary  `json:"summary"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rep, _, _, err := s.current(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to load report", log.OpLoad, err)
		return
	}
	vp, err := ParseViewParams(r.URL.Query(), rep)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(summaryResponse{
		View:    vp.View,
		Period:  vp.Period,
		Summary: rep.Summary(vp.View, vp.Period),
	}).Write(w)
}

type groupsResponse struct {
	View   core.ViewMode `json:"view"`
	Groups []core.Group  `json:"groups"`
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	rep, _, _, err := s.current(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to load report", log.OpLoad, err)
		return
	}
	view := core.ViewYear
	if v := r.URL.Query().Get("view"); v != "" {
		if view, err = core.ParseViewMode(v); err != nil {
			ErrorFor(err).Write(w)
			return
		}
	}
	groups := rep.DisplayGroups(view)
	if groups == nil {
		groups = []core.Group{}
	}
	NewJSONResponse().Body(groupsResponse{View: view, Groups: groups}).Write(w)
}

// handleExportPDF renders the statement for one period. Documents are
// cached per stored version, view and period.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		ErrorResponse(http.StatusNotImplemented, "pdf_disabled", "PDF export is not configured").Write(w)
		return
	}
	rep, rec, _, err := s.current(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to load report", log.OpLoad, err)
		return
	}
	vp, err := ParseViewParams(r.URL.Query(), rep)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	key := fmt.Sprintf("%d:%s:%s", rec.Version, vp.View, vp.Period)
	doc, ok := s.pdfCache.Get(key)
	if ok {
		pdfCacheTotal.WithLabelValues("hit").Inc()
	} else {
		pdfCacheTotal.WithLabelValues("miss").Inc()
		st, err := export.Build(rep, vp.View, vp.Period, s.now())
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		var buf bytes.Buffer
		if err := s.renderer.Render(&buf, st); err != nil {
			s.fail(w, r, "Failed to render PDF", log.OpRender, err)
			return
		}
		doc = buf.Bytes()
		s.pdfCache.Set(key, doc)
		log.FromContext(r.Context()).DebugContext(r.Context(), "Rendered PDF statement",
			log.FieldView, vp.View, log.FieldPeriod, vp.Period,
			log.FieldVersion, rec.Version, log.FieldBytes, len(doc))
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="famreport-%s-%s.pdf"`, vp.View, vp.Period))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// fail logs an infrastructure error and answers 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg, op string, err error) {
	log.NewStructuredLogger(log.FromContext(r.Context())).LogFailure(r.Context(), msg, op, log.ErrorTypeInternal, err)
	ErrorFor(err).Write(w)
}
