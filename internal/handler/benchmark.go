package handler

import (
	"context"
	"net/http"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

// listBenchmarks filters by ?category=, ?industry= and ?verified=.
func (h *Handler) listBenchmarks(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := repository.BenchmarkFilter{Category: q.str("category"), Industry: q.str("industry"), Verified: q.bool("verified")}
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	list(h, w, r, func(ctx context.Context) ([]model.Benchmark, error) {
		return h.Benchmarks.List(ctx, f)
	})
}

func (h *Handler) getBenchmark(w http.ResponseWriter, r *http.Request) {
	show(h, w, r, h.Benchmarks.Get)
}

func (h *Handler) createBenchmark(w http.ResponseWriter, r *http.Request) {
	create(h, w, r, h.Benchmarks.Create)
}

func (h *Handler) updateBenchmark(w http.ResponseWriter, r *http.Request) {
	update(h, w, r, h.Benchmarks.Update)
}

func (h *Handler) deleteBenchmark(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.Benchmarks.Delete)
}

// compareBenchmark places ?value= against the benchmark's quartiles.
func (h *Handler) compareBenchmark(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	value := q.decimal("value")
	if err := q.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	show(h, w, r, func(ctx context.Context, id int64) (analytics.Comparison, error) {
		return h.Benchmarks.Compare(ctx, id, value)
	})
}
