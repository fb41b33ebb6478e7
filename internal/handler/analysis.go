package handler

import (
	"context"
	"net/http"

	"github.com/Simplici0/estimator/internal/model"
)

// listAnalyses filters by ?category_id=, ?active= and ?q=.
func (h *Handler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := model.AnalysisFilter{CategoryID: q.int64("category_id"), Active: q.bool("active"), Query: q.str("q")}
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.UnitPriceAnalysis, error) {
		return h.Analyses.List(ctx, f)
	})
}

func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Analyses.Get)
}

func (h *Handler) createAnalysis(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Analyses.Create)
}

func (h *Handler) updateAnalysis(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Analyses.Update)
}

func (h *Handler) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Analyses.Delete)
}

func (h *Handler) addAnalysisItem(w http.ResponseWriter, r *http.Request) {
	createUnder(h, w, r, h.Analyses.AddItem)
}

func (h *Handler) costBreakdown(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Analyses.CostBreakdown)
}

func (h *Handler) duplicateAnalysis(w http.ResponseWriter, r *http.Request) {
	createUnder(h, w, r, h.Analyses.Duplicate)
}

func (h *Handler) getAnalysisItem(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Analyses.GetItem)
}

func (h *Handler) updateAnalysisItem(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Analyses.UpdateItem)
}

func (h *Handler) deleteAnalysisItem(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Analyses.DeleteItem)
}
