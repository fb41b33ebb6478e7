package handler

import (
	"context"
	"net/http"

	"github.com/Simplici0/estimator/internal/model"
)

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.Catalog.ListCategories)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Catalog.GetCategory)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Catalog.CreateCategory)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Catalog.UpdateCategory)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Catalog.DeleteCategory)
}

func (h *Handler) listResourceTypes(w http.ResponseWriter, r *http.Request) {
	list(h, w, r, h.Catalog.ListResourceTypes)
}

func (h *Handler) getResourceType(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Catalog.GetResourceType)
}

func (h *Handler) createResourceType(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Catalog.CreateResourceType)
}

func (h *Handler) updateResourceType(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Catalog.UpdateResourceType)
}

func (h *Handler) deleteResourceType(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Catalog.DeleteResourceType)
}

// listResources filters by ?type=, ?active= and ?q=.
func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := model.ResourceFilter{TypeName: q.str("type"), Active: q.bool("active"), Query: q.str("q")}
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.Resource, error) {
		return h.Catalog.ListResources(ctx, f)
	})
}

func (h *Handler) getResource(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Catalog.GetResource)
}

func (h *Handler) createResource(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Catalog.CreateResource)
}

func (h *Handler) updateResource(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Catalog.UpdateResource)
}

func (h *Handler) deleteResource(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Catalog.DeleteResource)
}
