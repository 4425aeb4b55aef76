package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"famreport/internal/core"
	"famreport/internal/log"
)

// mutate runs fn through the report service and writes the resulting
// report. Rejected edits answer 422 and store nothing. Edits naming a
// missing group, item, note or snapshot are no-ops and answer 200 with the
// unchanged report.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(core.Report) (core.Report, error), decorate func(*reportResponse)) {
	rep, rec, err := s.svc.Mutate(r.Context(), fn)
	if err != nil {
		if core.IsValidation(err) {
			reportSavesTotal.WithLabelValues("rejected").Inc()
			log.NewStructuredLogger(log.FromContext(r.Context())).LogEditRejected(r.Context(), op, err)
			ErrorFor(err).Write(w)
			return
		}
		reportSavesTotal.WithLabelValues("failed").Inc()
		s.fail(w, r, "Failed to apply edit", op, err)
		return
	}
	reportSavesTotal.WithLabelValues("saved").Inc()

	resp := reportResponse{Data: rep.Payload(), Version: rec.Version}
	if decorate != nil {
		decorate(&resp)
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(w, r, v); err != nil {
		ErrorFor(err).Write(w)
		return false
	}
	return true
}

type addPeriodRequest struct {
	View string `json:"view"`
	Key  string `json:"key"`
}

func (s *Server) handleAddPeriod(w http.ResponseWriter, r *http.Request) {
	var req addPeriodRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := core.ParseViewMode(req.View)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	key := sanitizeInput(req.Key)
	s.mutate(w, r, log.OpCreate, func(rep core.Report) (core.Report, error) {
		return core.AddPeriod(rep, view, key)
	}, nil)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpUpdate, func(core.Report) (core.Report, error) {
		return core.Default(), nil
	}, nil)
}

type addItemRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	groupID := chi.URLParam(r, "groupID")
	name := sanitizeInput(req.Name)

	var added core.Item
	s.mutate(w, r, log.OpCreate, func(rep core.Report) (core.Report, error) {
		var (
			next core.Report
			err  error
		)
		if req.ParentID == "" {
			next, added, err = core.AddItem(rep, groupID, name)
		} else {
			next, added, err = core.AddSubItem(rep, groupID, req.ParentID, name)
		}
		return next, err
	}, func(resp *reportResponse) {
		if added.ID != "" {
			resp.Item = &added
		}
	})
}

type editItemRequest struct {
	Name *string `json:"name,omitempty"`
	Note *string `json:"note,omitempty"`
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var req editItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Name == nil && req.Note == nil {
		BadRequestError("name or note is required").Write(w)
		return
	}
	groupID, itemID := chi.URLParam(r, "groupID"), chi.URLParam(r, "itemID")

	s.mutate(w, r, log.OpUpdate, func(rep core.Report) (core.Report, error) {
		var err error
		if req.Name != nil {
			if rep, err = core.RenameItem(rep, groupID, itemID, sanitizeInput(*req.Name)); err != nil {
				return rep, err
			}
		}
		if req.Note != nil {
			rep = core.SetItemNote(rep, groupID, itemID, sanitizeInput(*req.Note))
		}
		return rep, nil
	}, nil)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	groupID, itemID := chi.URLParam(r, "groupID"), chi.URLParam(r, "itemID")
	s.mutate(w, r, log.OpDelete, func(rep core.Report) (core.Report, error) {
		return core.DeleteItem(rep, groupID, itemID), nil
	}, nil)
}

type setValueRequest struct {
	Period string  `json:"period"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	var req setValueRequest
	if !s.decode(w, r, &req) {
		return
	}
	groupID, itemID := chi.URLParam(r, "groupID"), chi.URLParam(r, "itemID")
	s.mutate(w, r, log.OpUpdate, func(rep core.Report) (core.Report, error) {
		return core.UpdateItemValue(rep, groupID, itemID, req.Period, req.Amount)
	}, nil)
}

type setQuantityRequest struct {
	Period    string   `json:"period"`
	Quantity  *float64 `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unitPrice,omitempty"`
}

// handleSetQuantity sets the unit price first so a request carrying both
// prices the new quantity with the new price.
func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Quantity == nil && req.UnitPrice == nil {
		BadRequestError("quantity or unitPrice is required").Write(w)
		return
	}
	groupID, itemID := chi.URLParam(r, "groupID"), chi.URLParam(r, "itemID")

	s.mutate(w, r, log.OpUpdate, func(rep core.Report) (core.Report, error) {
		var err error
		if req.UnitPrice != nil {
			if rep, err = core.UpdateItemUnitPrice(rep, groupID, itemID, req.Period, *req.UnitPrice); err != nil {
				return rep, err
			}
		}
		if req.Quantity != nil {
			if rep, err = core.UpdateItemQuantity(rep, groupID, itemID, req.Period, *req.Quantity); err != nil {
				return rep, err
			}
		}
		return rep, nil
	}, nil)
}

type noteRequest struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !s.decode(w, r, &req) {
		return
	}
	var added core.Note
	s.mutate(w, r, log.OpCreate, func(rep core.Report) (core.Report, error) {
		next, n := core.AddNote(rep, sanitizeInput(req.Label), sanitizeInput(req.Value))
		added = n
		return next, nil
	}, func(resp *reportResponse) { resp.Note = &added })
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "noteID")
	s.mutate(w, r, log.OpUpdate, func(rep core.Report) (core.Report, error) {
		return core.UpdateNote(rep, id, sanitizeInput(req.Label), sanitizeInput(req.Value)), nil
	}, nil)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "noteID")
	s.mutate(w, r, log.OpDelete, func(rep core.Report) (core.Report, error) {
		return core.DeleteNote(rep, id), nil
	}, nil)
}

type snapshotRequest struct {
	Day  string `json:"day"`
	Note string `json:"note,omitempty"`
}

func (s *Server) handleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if !s.decode(w, r, &req) {
		return
	}
	var taken core.Snapshot
	s.mutate(w, r, log.OpCreate, func(rep core.Report) (core.Report, error) {
		day := sanitizeInput(req.Day)
		if day == "" {
			day = rep.LatestPeriod(core.ViewDay)
		}
		next, snap, err := core.TakeSnapshot(rep, day, sanitizeInput(req.Note))
		if err != nil {
			return next, fmt.Errorf("snapshot %q: %w", day, err)
		}
		taken = snap
		return next, nil
	}, func(resp *reportResponse) { resp.Snapshot = &taken })
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "snapshotID")
	s.mutate(w, r, log.OpDelete, func(rep core.Report) (core.Report, error) {
		return core.DeleteSnapshot(rep, id), nil
	}, nil)
}
