package handler

import (
	"context"
	"net/http"

	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/service"
)

func (h *Handler) listAssetCategories(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.Assets.ListCategories)
}

func (h *Handler) getAssetCategory(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Assets.GetCategory)
}

func (h *Handler) createAssetCategory(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Assets.CreateCategory)
}

func (h *Handler) updateAssetCategory(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Assets.UpdateCategory)
}

func (h *Handler) deleteAssetCategory(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Assets.DeleteCategory)
}

// listAssets filters by ?status=, ?category_id= and a purchase date window.
func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := model.AssetFilter{
		Status:     q.str("status"),
		CategoryID: q.int64("category_id"),
		From:       q.date("start_date"),
		To:         q.date("end_date"),
	}
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.Asset, error) {
		return h.Assets.List(ctx, f)
	})
}

func (h *Handler) getAsset(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Assets.Get)
}

func (h *Handler) createAsset(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Assets.Create)
}

func (h *Handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Assets.Update)
}

func (h *Handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Assets.Delete)
}

func (h *Handler) assetSchedule(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Assets.Schedule)
}

func (h *Handler) recalculateAsset(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Assets.Recalculate)
}

func (h *Handler) changeAssetStatus(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, func(ctx context.Context, id int64, in service.StatusChange) (model.Asset, error) {
		return h.Assets.ChangeStatus(ctx, id, in)
	})
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Assets.ListEntries)
}

func (h *Handler) postEntry(w http.ResponseWriter, r *http.Request) {
	createUnder(h, w, r, h.Assets.PostEntry)
}

func (h *Handler) listMaintenance(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Assets.ListMaintenance)
}

func (h *Handler) recordMaintenance(w http.ResponseWriter, r *http.Request) {
	createUnder(h, w, r, h.Assets.RecordMaintenance)
}
