package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/estimator/internal/report"
)

func (h *Handler) reportTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"report_types": report.Types()})
}

// periodReport builds the report named by {kind} for ?start_date= to
// ?end_date= in ?format=.
func (h *Handler) periodReport(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	format, err := report.ParseFormat(q.str("format"))
	if err != nil {
		h.writeError(w, r, invalid("format", err.Error()))
		return
	}
	rng, err := report.ParseRange(q.str("start_date"), q.str("end_date"))
	if err != nil {
		h.writeError(w, r, invalid("date_range", err.Error()))
		return
	}
	kind := chi.URLParam(r, "kind")
	doc, err := h.Reports.Build(r.Context(), kind, rng)
	if errors.Is(err, report.ErrUnknownKind) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeReport(w, r, format, kind+"_report", doc)
}

// writeReport renders doc into memory first so an encoding failure still
// yields a clean 500.
func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, format report.Format, name string, doc report.Document) {
	var buf bytes.Buffer
	if err := report.Write(&buf, format, doc); err != nil {
		h.writeError(w, r, fmt.Errorf("render %s report: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format != report.JSON {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(name, h.now())))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
