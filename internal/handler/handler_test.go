package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/db"
	"github.com/Simplici0/estimator/internal/depreciation"
	"github.com/Simplici0/estimator/internal/marketing"
	"github.com/Simplici0/estimator/internal/metrics"
	"github.com/Simplici0/estimator/internal/migrations"
	"github.com/Simplici0/estimator/internal/report"
	"github.com/Simplici0/estimator/internal/repository"
	"github.com/Simplici0/estimator/internal/seed"
	"github.com/Simplici0/estimator/internal/service"
)

var testNow = time.Date(2024, time.June, 30, 9, 0, 0, 0, time.UTC)

type fakeSyncer struct {
	failures map[int64]error
	daysBack int
}

func (f *fakeSyncer) Sync(_ context.Context, id int64, daysBack int) (time.Time, error) {
	f.daysBack = daysBack
	if err, ok := f.failures[id]; ok {
		return time.Time{}, err
	}
	return testNow, nil
}

func (f *fakeSyncer) SyncAll(context.Context, int, bool) ([]marketing.Result, error) {
	at := testNow
	return []marketing.Result{{PlatformID: 1, Platform: "Google", Status: "success", Message: "ok", LastSync: &at}}, nil
}

func (f *fakeSyncer) TestConnection(_ context.Context, id int64) error {
	if err, ok := f.failures[id]; ok {
		return err
	}
	return nil
}

type server struct {
	handler http.Handler
	syncer  *fakeSyncer
}

func newServer(t *testing.T, opts Options) *server {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "handler-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.Up(database))
	_, err = seed.Run(context.Background(), database)
	require.NoError(t, err)

	catalogRepo := repository.NewSQLiteCatalogRepository(database)
	engine, err := depreciation.NewEngine(16)
	require.NoError(t, err)

	analyses := service.NewAnalysisService(repository.NewSQLiteAnalysisRepository(database), catalogRepo)
	estimates := service.NewEstimateService(repository.NewSQLiteEstimateRepository(database), analyses)
	assets := service.NewAssetService(repository.NewSQLiteAssetRepository(database), engine)
	mkt := service.NewMarketingService(repository.NewSQLiteMarketingRepository(database))

	log, _ := test.NewNullLogger()
	syncer := &fakeSyncer{failures: map[int64]error{}}
	h := New(Deps{
		Catalog:    service.NewCatalogService(catalogRepo),
		Analyses:   analyses,
		Estimates:  estimates,
		Matrices:   service.NewMatrixService(repository.NewSQLiteMatrixRepository(database), analyses),
		Assets:     assets,
		Benchmarks: service.NewBenchmarkService(repository.NewSQLiteBenchmarkRepository(database)),
		Marketing:  mkt,
		Syncer:     syncer,
		Reports:    report.NewBuilder(estimates, assets, mkt),
		DB:         database,
		Metrics:    metrics.New(),
		Log:        log,
	}, opts)
	h.now = func() time.Time { return testNow }
	return &server{handler: h.Routes(), syncer: syncer}
}

func (s *server) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newServer(t, Options{})
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCategoryLifecycle(t *testing.T) {
	s := newServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/api/service-categories", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorBody](t, rec)
	require.Equal(t, "validation_failed", body.Error)
	require.Contains(t, body.Fields, "code")
	require.Contains(t, body.Fields, "name")

	rec = s.do(t, http.MethodPost, "/api/service-categories", map[string]any{"code": "EXC", "name": "Excavation"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[map[string]any](t, rec)
	id := int64(created["id"].(float64))
	require.Equal(t, true, created["is_active"])

	rec = s.do(t, http.MethodPost, "/api/service-categories", map[string]any{"code": "EXC", "name": "Again"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "code")

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/api/service-categories/%d", id), map[string]any{"name": "Earthworks"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Earthworks", decodeBody[map[string]any](t, rec)["name"])

	rec = s.do(t, http.MethodGet, "/api/service-categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]map[string]any](t, rec), 2)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/service-categories/%d", id), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/service-categories/%d", id), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/service-categories/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "id")
}

func TestMalformedBodyAndQuery(t *testing.T) {
	s := newServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/service-categories", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "body")

	rec = s.do(t, http.MethodGet, "/api/resources?active=maybe", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "active")

	rec = s.do(t, http.MethodGet, "/api/project-estimates?start_date=30-06-2024", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "start_date")
}

func TestDeleteReferencedResourceType(t *testing.T) {
	s := newServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/api/resources", map[string]any{
		"code": "MO-01", "name": "Helper", "resource_type": "labor", "unit": "day", "unit_cost": "120.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decodeBody[map[string]any](t, rec)
	typeID := int64(res["resource_type_id"].(float64))

	rec = s.do(t, http.MethodGet, "/api/resources?type=labor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]map[string]any](t, rec), 1)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/resource-types/%d", typeID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "conflict", decodeBody[errorBody](t, rec).Error)
}

func token(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestAuthentication(t *testing.T) {
	s := newServer(t, Options{AuthSecret: "s3cret"})

	rec := s.do(t, http.MethodGet, "/api/service-categories", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = s.do(t, http.MethodGet, "/api/service-categories", nil, "Authorization", token(t, "other", "ana"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/service-categories", nil, "Authorization", token(t, "s3cret", ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/service-categories", nil, "Authorization", token(t, "s3cret", "ana"))
	require.Equal(t, http.StatusOK, rec.Code)

	// health stays public
	rec = s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	rec := s.do(t, http.MethodGet, "/api/service-categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/service-categories", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.JSONEq(t, `{"error":"rate_limited"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	s := newServer(t, Options{})

	id := uuid.NewString()
	rec := s.do(t, http.MethodGet, "/healthz", nil, requestIDHeader, id)
	require.Equal(t, id, rec.Header().Get(requestIDHeader))

	rec = s.do(t, http.MethodGet, "/healthz", nil, requestIDHeader, "not-a-uuid")
	got := rec.Header().Get(requestIDHeader)
	require.NotEqual(t, "not-a-uuid", got)
	_, err := uuid.Parse(got)
	require.NoError(t, err)
}

func TestMarketingSync(t *testing.T) {
	s := newServer(t, Options{SyncDaysBack: 14})

	rec := s.do(t, http.MethodPost, "/api/marketing-platforms", map[string]any{
		"name": "Google", "platform_type": "google_ads", "account_id": "123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int64(decodeBody[map[string]any](t, rec)["id"].(float64))
	path := fmt.Sprintf("/api/marketing-platforms/%d", id)

	rec = s.do(t, http.MethodPost, path+"/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ok := decodeBody[map[string]any](t, rec)
	require.Equal(t, "success", ok["status"])
	require.Equal(t, "2024-06-30T09:00:00Z", ok["last_sync"])
	require.Equal(t, 14, s.syncer.daysBack)

	rec = s.do(t, http.MethodPost, path+"/sync", map[string]any{"days_back": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, s.syncer.daysBack)

	s.syncer.failures[id] = errors.New("authenticate: 401")
	rec = s.do(t, http.MethodPost, path+"/sync", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"status":"error","message":"authenticate: 401"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, path+"/test-connection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"connected":false,"platform":"Google","message":"authenticate: 401"}`, rec.Body.String())

	s.syncer.failures[99] = repository.ErrNotFound
	rec = s.do(t, http.MethodPost, "/api/marketing-platforms/99/sync", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/marketing-platforms/99/test-connection", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/marketing-platforms/sync-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[map[string][]marketing.Result](t, rec)
	require.Len(t, all["results"], 1)
}

func TestPeriodReport(t *testing.T) {
	s := newServer(t, Options{})

	rec := s.do(t, http.MethodGet, "/api/reports/types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[map[string][]report.Type](t, rec)["report_types"], 3)

	rec = s.do(t, http.MethodGet, "/api/reports/estimates?format=csv&start_date=2024-01-01&end_date=2024-06-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="estimates_report_20240630.csv"`, rec.Header().Get("Content-Disposition"))
	require.Contains(t, rec.Body.String(), "Estimates report 2024-01-01 to 2024-06-30")

	rec = s.do(t, http.MethodGet, "/api/reports/depreciation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Empty(t, rec.Header().Get("Content-Disposition"))

	rec = s.do(t, http.MethodGet, "/api/reports/marketing?format=pdf", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "format")

	rec = s.do(t, http.MethodGet, "/api/reports/marketing?start_date=2024-06-30&end_date=2024-01-01", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/reports/payroll", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, Options{})

	s.do(t, http.MethodGet, "/api/service-categories", nil)
	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `route="/api/service-categories`)
}

func idOf(t *testing.T, rec *httptest.ResponseRecorder) int64 {
	t.Helper()
	return int64(decodeBody[map[string]any](t, rec)["id"].(float64))
}

func firstID(t *testing.T, s *server, path string) int64 {
	t.Helper()
	rec := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows := decodeBody[[]map[string]any](t, rec)
	require.NotEmpty(t, rows)
	return int64(rows[0]["id"].(float64))
}

func TestAnalysisItemsAndDuplicate(t *testing.T) {
	s := newServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/api/resources", map[string]any{
		"code": "MO-01", "name": "Helper", "resource_type": "labor", "unit": "day", "unit_cost": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resourceID := idOf(t, rec)

	rec = s.do(t, http.MethodPost, "/api/unit-price-analyses", map[string]any{
		"code": "APU-01", "name": "Trenching", "unit": "m3",
		"category_id": firstID(t, s, "/api/service-categories"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	analysisID := idOf(t, rec)
	itemsPath := fmt.Sprintf("/api/unit-price-analyses/%d/items", analysisID)

	rec = s.do(t, http.MethodPost, itemsPath, map[string]any{"resource_id": resourceID, "quantity": "2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, itemsPath, map[string]any{"resource_id": resourceID, "quantity": "1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "resource_id")

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/unit-price-analyses/%d/duplicate", analysisID), map[string]any{"new_code": "APU-02"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dup := decodeBody[map[string]any](t, rec)
	require.Equal(t, "APU-02", dup["code"])
	require.Equal(t, "Trenching (Copy)", dup["name"])
	require.Len(t, dup["items"], 1)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/unit-price-analyses/%d/duplicate", analysisID), map[string]any{"new_code": "APU-02"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "new_code")
}

func TestEstimateStatus(t *testing.T) {
	s := newServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/api/project-estimates", map[string]any{"name": "Warehouse", "client": "ACME"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := idOf(t, rec)
	statusPath := fmt.Sprintf("/api/project-estimates/%d/status", id)

	rec = s.do(t, http.MethodPost, statusPath, map[string]any{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "approved", decodeBody[map[string]any](t, rec)["status"])

	rec = s.do(t, http.MethodPost, statusPath, map[string]any{"status": "archived"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "status")

	rec = s.do(t, http.MethodPost, "/api/project-estimates/999/status", map[string]any{"status": "approved"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssetStatus(t *testing.T) {
	s := newServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/api/assets", map[string]any{
		"asset_code": "EQ-01", "name": "Excavator",
		"category_id":   firstID(t, s, "/api/asset-categories"),
		"purchase_date": "2024-01-15", "purchase_cost": "12000", "salvage_value": "0",
		"useful_life_years": 5, "depreciation_method": "straight_line",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	statusPath := fmt.Sprintf("/api/assets/%d/status", idOf(t, rec))

	rec = s.do(t, http.MethodPost, statusPath, map[string]any{"status": "impaired"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "impaired", decodeBody[map[string]any](t, rec)["status"])

	rec = s.do(t, http.MethodPost, statusPath, map[string]any{"status": "disposed"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "disposal_date")

	rec = s.do(t, http.MethodPost, statusPath, map[string]any{"status": "fully_depreciated"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "status")
}

func TestCostMatrixCalculate(t *testing.T) {
	s := newServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/api/cost-matrices", map[string]any{
		"name": "Standard 2024", "base_margin": "20", "administrative_overhead": "15",
		"config": map[string]any{
			"risk_premiums": map[string]any{"medium": "5"},
			"volume_tiers": []map[string]any{
				{"name": "small", "min": "0", "max": "100000", "discount": "0"},
				{"name": "large", "min": "100000", "discount": "10"},
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	calcPath := fmt.Sprintf("/api/cost-matrices/%d/calculate", idOf(t, rec))

	rec = s.do(t, http.MethodPost, calcPath, map[string]any{
		"base_cost": "1000",
		"factors":   map[string]any{"risk_level": "medium", "project_value": "300000"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quote := decodeBody[map[string]any](t, rec)
	require.Equal(t, "1150", quote["location_adjusted_cost"])
	require.Equal(t, "1437.5", quote["subtotal"])
	require.Equal(t, "10", quote["volume_discount_percentage"])
	require.Equal(t, "1293.75", quote["final_price"])

	rec = s.do(t, http.MethodPost, calcPath, map[string]any{"factors": map[string]any{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[errorBody](t, rec).Fields, "base_cost")

	rec = s.do(t, http.MethodPost, "/api/cost-matrices/999/calculate", map[string]any{"base_cost": "1000"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
