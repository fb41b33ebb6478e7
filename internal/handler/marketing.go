package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

// listPlatforms answers every platform, or only the active ones with
// ?active=true.
func (h *Handler) listPlatforms(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	active := q.bool("active")
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.MarketingPlatform, error) {
		return h.Marketing.ListPlatforms(ctx, active != nil && *active)
	})
}

func (h *Handler) getPlatform(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Marketing.GetPlatform)
}

func (h *Handler) createPlatform(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Marketing.CreatePlatform)
}

func (h *Handler) deletePlatform(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Marketing.DeletePlatform)
}

type syncRequest struct {
	DaysBack int `json:"days_back"`
}

type syncResponse struct {
	Status   string     `json:"status"`
	Message  string     `json:"message"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}

func (h *Handler) daysBack(in syncRequest) int {
	if in.DaysBack > 0 {
		return in.DaysBack
	}
	return h.opts.SyncDaysBack
}

// syncPlatform pulls recent data for one platform. Failures other than an
// unknown platform are reported in the body with a 400.
func (h *Handler) syncPlatform(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in syncRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	at, err := h.Syncer.Sync(r.Context(), id, h.daysBack(in))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, r, err)
	case err != nil:
		writeJSON(w, http.StatusBadRequest, syncResponse{Status: "error", Message: err.Error()})
	default:
		writeJSON(w, http.StatusOK, syncResponse{Status: "success", Message: "sync completed", LastSync: &at})
	}
}

func (h *Handler) syncAll(w http.ResponseWriter, r *http.Request) {
	var in syncRequest
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	results, err := h.Syncer.SyncAll(r.Context(), h.daysBack(in), false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type connectionResponse struct {
	Connected bool   `json:"connected"`
	Platform  string `json:"platform"`
	Message   string `json:"message"`
}

func (h *Handler) testConnection(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.Marketing.GetPlatform(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := connectionResponse{Connected: true, Platform: p.Name, Message: "connection successful"}
	if err := h.Syncer.TestConnection(r.Context(), id); err != nil {
		resp.Connected = false
		resp.Message = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) recordAudience(w http.ResponseWriter, r *http.Request) {
	createUnder(h, w, r, h.Marketing.RecordAudience)
}

func (h *Handler) listPlatformInsights(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, func(ctx context.Context, id int64) ([]model.MarketingInsight, error) {
		return h.Marketing.ListInsights(ctx, 0, id)
	})
}

func (h *Handler) generatePlatformInsights(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Marketing.PlatformInsights)
}

// listCampaigns narrows to one platform with ?platform_id=.
func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	platformID := q.int64("platform_id")
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.MarketingCampaign, error) {
		return h.Marketing.ListCampaigns(ctx, platformID)
	})
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Marketing.GetCampaign)
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Marketing.CreateCampaign)
}

// listMetrics answers a campaign's daily metrics within ?start_date= and
// ?end_date=.
func (h *Handler) listMetrics(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	from, to := q.date("start_date"), q.date("end_date")
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	show(h, w, r, func(ctx context.Context, id int64) ([]model.MarketingMetric, error) {
		return h.Marketing.ListMetrics(ctx, id, orZero(from), orZero(to))
	})
}

func orZero(d *model.Date) model.Date {
	if d == nil {
		return model.Date{}
	}
	return *d
}

func (h *Handler) recordMetric(w http.ResponseWriter, r *http.Request) {
	createUnder(h, w, r, h.Marketing.RecordMetric)
}

func (h *Handler) listCampaignInsights(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, func(ctx context.Context, id int64) ([]model.MarketingInsight, error) {
		return h.Marketing.ListInsights(ctx, id, 0)
	})
}

func (h *Handler) generateCampaignInsights(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Marketing.CampaignInsights)
}

func (h *Handler) campaignPerformance(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Marketing.Performance)
}
