package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
	"github.com/Simplici0/estimator/internal/service"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service and repository errors onto HTTP responses.
// Unexpected errors are logged and answered with a bare 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var v *service.ValidationError
	switch {
	case errors.As(err, &v):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_failed", Fields: v.Fields})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
	case errors.Is(err, repository.ErrDuplicate):
		writeJSON(w, http.StatusConflict, errorBody{Error: "conflict", Message: "already exists"})
	case errors.Is(err, repository.ErrReference):
		writeJSON(w, http.StatusConflict, errorBody{Error: "conflict", Message: "still referenced by other records"})
	default:
		h.logger(r).WithError(err).WithField("id", chi.URLParam(r, "id")).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
	}
}

func (h *Handler) logger(r *http.Request) logrus.FieldLogger {
	return h.log.WithFields(logrus.Fields{
		"request_id": requestID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}

func invalid(field, msg string) error {
	v := &service.ValidationError{}
	v.Add(field, msg)
	return v
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return invalid("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id", "must be a positive integer")
	}
	return id, nil
}

type query struct {
	r    *http.Request
	errs service.ValidationError
}

func newQuery(r *http.Request) *query {
	return &query{r: r}
}

func (q *query) str(key string) string {
	return strings.TrimSpace(q.r.URL.Query().Get(key))
}

func (q *query) int64(key string) int64 {
	raw := q.str(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		q.errs.Add(key, "must be a positive integer")
		return 0
	}
	return n
}

func (q *query) bool(key string) *bool {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.errs.Add(key, "must be true or false")
		return nil
	}
	return &b
}

func (q *query) date(key string) *model.Date {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		q.errs.Add(key, "must be a YYYY-MM-DD date")
		return nil
	}
	return &d
}

func (q *query) decimal(key string) decimal.Decimal {
	raw := q.str(key)
	if raw == "" {
		q.errs.Add(key, "is required")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		q.errs.Add(key, "must be a number")
		return decimal.Zero
	}
	return d
}

func (q *query) err() error {
	return q.errs.Err()
}

// delete runs del for the id in the path and answers 204.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id int64) error) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// show answers 200 with the record fetched by the id in the path.
func show[T any](h *Handler, w http.ResponseWriter, r *http.Request, get func(ctx context.Context, id int64) (T, error)) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// create decodes an I from the body and answers 201 with the new record.
func create[I, T any](h *Handler, w http.ResponseWriter, r *http.Request, add func(ctx context.Context, in I) (T, error)) {
	var in I
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := add(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// createUnder is create for records nested below the id in the path.
func createUnder[I, T any](h *Handler, w http.ResponseWriter, r *http.Request, add func(ctx context.Context, parentID int64, in I) (T, error)) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	create(h, w, r, func(ctx context.Context, in I) (T, error) {
		return add(ctx, id, in)
	})
}

// update decodes a patch from the body and answers 200 with the result.
func update[I, T any](h *Handler, w http.ResponseWriter, r *http.Request, patch func(ctx context.Context, id int64, in I) (T, error)) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in I
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := patch(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func list[T any](h *Handler, w http.ResponseWriter, r *http.Request, all func(ctx context.Context) ([]T, error)) {
	out, err := all(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
