package handler

import (
	"context"
	"net/http"

	"github.com/Simplici0/estimator/internal/costmatrix"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/service"
)

// listMatrices answers every matrix, or only the active ones with ?active=true.
func (h *Handler) listMatrices(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	active := q.bool("active")
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.CostMatrix, error) {
		return h.Matrices.List(ctx, active != nil && *active)
	})
}

func (h *Handler) getMatrix(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Matrices.Get)
}

func (h *Handler) createMatrix(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Matrices.Create)
}

func (h *Handler) updateMatrix(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Matrices.Update)
}

func (h *Handler) deleteMatrix(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Matrices.Delete)
}

func (h *Handler) calculatePrice(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, func(ctx context.Context, id int64, in service.PriceRequest) (costmatrix.Quote, error) {
		return h.Matrices.Calculate(ctx, id, in)
	})
}

// listScenarios narrows to one matrix with ?matrix_id=.
func (h *Handler) listScenarios(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	matrixID := q.int64("matrix_id")
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.PricingScenario, error) {
		return h.Matrices.ListScenarios(ctx, matrixID)
	})
}

func (h *Handler) getScenario(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Matrices.GetScenario)
}

func (h *Handler) createScenario(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Matrices.CreateScenario)
}

func (h *Handler) updateScenario(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Matrices.UpdateScenario)
}

func (h *Handler) deleteScenario(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Matrices.DeleteScenario)
}

func (h *Handler) calculateScenario(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Matrices.CalculateScenario)
}
