package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/report"
)

// listEstimates filters by ?status=, ?client=, ?start_date= and ?end_date=.
func (h *Handler) listEstimates(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := model.EstimateFilter{
		Status: q.str("status"),
		Client: q.str("client"),
		From:   q.date("start_date"),
		To:     q.date("end_date"),
	}
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.ProjectEstimate, error) {
		return h.Estimates.List(ctx, f)
	})
}

func (h *Handler) getEstimate(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Estimates.Get)
}

func (h *Handler) createEstimate(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Estimates.Create)
}

func (h *Handler) updateEstimate(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Estimates.Update)
}

func (h *Handler) deleteEstimate(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Estimates.Delete)
}

func (h *Handler) addEstimateItem(w http.ResponseWriter, r *http.Request) {
	createUnder(h, w, r, h.Estimates.AddItem)
}

func (h *Handler) updateEstimateItem(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Estimates.UpdateItem)
}

func (h *Handler) deleteEstimateItem(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Estimates.DeleteItem)
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *Handler) changeEstimateStatus(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, func(ctx context.Context, id int64, in statusBody) (model.ProjectEstimate, error) {
		return h.Estimates.ChangeStatus(ctx, id, in.Status)
	})
}

// estimateReport answers the detailed report of one estimate as JSON, CSV or
// Excel depending on ?format=.
func (h *Handler) estimateReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	format, err := report.ParseFormat(newQuery(r).str("format"))
	if err != nil {
		h.writeError(w, r, invalid("format", err.Error()))
		return
	}
	rep, err := h.Estimates.Report(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeReport(w, r, format, fmt.Sprintf("estimate_%d", id), report.Estimate{EstimateReport: rep})
}
