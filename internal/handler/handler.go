// Package handler exposes the services over a JSON REST API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Simplici0/estimator/internal/marketing"
	"github.com/Simplici0/estimator/internal/metrics"
	"github.com/Simplici0/estimator/internal/report"
	"github.com/Simplici0/estimator/internal/service"
)

// Syncer pulls marketing platform data. *marketing.Syncer implements it.
type Syncer interface {
	Sync(ctx context.Context, platformID int64, daysBack int) (time.Time, error)
	SyncAll(ctx context.Context, daysBack int, onlyDue bool) ([]marketing.Result, error)
	TestConnection(ctx context.Context, platformID int64) error
}

// Pinger checks the database for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of the API.
type Deps struct {
	Catalog    service.CatalogService
	Analyses   service.AnalysisService
	Estimates  service.EstimateService
	Matrices   service.MatrixService
	Assets     service.AssetService
	Benchmarks service.BenchmarkService
	Marketing  service.MarketingService
	Syncer     Syncer
	Reports    *report.Builder
	DB         Pinger
	Metrics    *metrics.Metrics
	Log        logrus.FieldLogger
}

// Options configure the middleware stack.
type Options struct {
	// AuthSecret enables HS256 bearer authentication on /api when set.
	AuthSecret     string
	RateLimitRPS   float64
	RateLimitBurst int
	SyncDaysBack   int
}

// Handler serves the HTTP API.
type Handler struct {
	Deps
	log  logrus.FieldLogger
	opts Options
	now  func() time.Time
}

// New returns a Handler. Mount it with Routes.
func New(deps Deps, opts Options) *Handler {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Deps: deps, log: log, opts: opts, now: time.Now}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	if h.Metrics != nil {
		r.Use(h.Metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if h.opts.RateLimitRPS > 0 {
			r.Use(newRateLimiter(h.opts.RateLimitRPS, h.opts.RateLimitBurst, h.log).handler)
		}
		if h.opts.AuthSecret != "" {
			r.Use((&authenticator{secret: []byte(h.opts.AuthSecret), log: h.log}).handler)
		}

		r.Route("/service-categories", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.Post("/", h.createCategory)
			r.Get("/{id}", h.getCategory)
			r.Patch("/{id}", h.updateCategory)
			r.Delete("/{id}", h.deleteCategory)
		})
		r.Route("/resource-types", func(r chi.Router) {
			r.Get("/", h.listResourceTypes)
			r.Post("/", h.createResourceType)
			r.Get("/{id}", h.getResourceType)
			r.Patch("/{id}", h.updateResourceType)
			r.Delete("/{id}", h.deleteResourceType)
		})
		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.listResources)
			r.Post("/", h.createResource)
			r.Get("/{id}", h.getResource)
			r.Patch("/{id}", h.updateResource)
			r.Delete("/{id}", h.deleteResource)
		})

		r.Route("/unit-price-analyses", func(r chi.Router) {
			r.Get("/", h.listAnalyses)
			r.Post("/", h.createAnalysis)
			r.Get("/{id}", h.getAnalysis)
			r.Patch("/{id}", h.updateAnalysis)
			r.Delete("/{id}", h.deleteAnalysis)
			r.Post("/{id}/items", h.addAnalysisItem)
			r.Get("/{id}/cost-breakdown", h.costBreakdown)
			r.Post("/{id}/duplicate", h.duplicateAnalysis)
		})
		r.Route("/unit-price-items", func(r chi.Router) {
			r.Get("/{id}", h.getAnalysisItem)
			r.Patch("/{id}", h.updateAnalysisItem)
			r.Delete("/{id}", h.deleteAnalysisItem)
		})

		r.Route("/project-estimates", func(r chi.Router) {
			r.Get("/", h.listEstimates)
			r.Post("/", h.createEstimate)
			r.Get("/{id}", h.getEstimate)
			r.Patch("/{id}", h.updateEstimate)
			r.Delete("/{id}", h.deleteEstimate)
			r.Post("/{id}/items", h.addEstimateItem)
			r.Post("/{id}/status", h.changeEstimateStatus)
			r.Get("/{id}/report", h.estimateReport)
		})
		r.Route("/project-estimate-items", func(r chi.Router) {
			r.Patch("/{id}", h.updateEstimateItem)
			r.Delete("/{id}", h.deleteEstimateItem)
		})

		r.Route("/cost-matrices", func(r chi.Router) {
			r.Get("/", h.listMatrices)
			r.Post("/", h.createMatrix)
			r.Get("/{id}", h.getMatrix)
			r.Patch("/{id}", h.updateMatrix)
			r.Delete("/{id}", h.deleteMatrix)
			r.Post("/{id}/calculate", h.calculatePrice)
		})
		r.Route("/pricing-scenarios", func(r chi.Router) {
			r.Get("/", h.listScenarios)
			r.Post("/", h.createScenario)
			r.Get("/{id}", h.getScenario)
			r.Patch("/{id}", h.updateScenario)
			r.Delete("/{id}", h.deleteScenario)
			r.Post("/{id}/calculate", h.calculateScenario)
		})

		r.Route("/asset-categories", func(r chi.Router) {
			r.Get("/", h.listAssetCategories)
			r.Post("/", h.createAssetCategory)
			r.Get("/{id}", h.getAssetCategory)
			r.Patch("/{id}", h.updateAssetCategory)
			r.Delete("/{id}", h.deleteAssetCategory)
		})
		r.Route("/assets", func(r chi.Router) {
			r.Get("/", h.listAssets)
			r.Post("/", h.createAsset)
			r.Get("/{id}", h.getAsset)
			r.Patch("/{id}", h.updateAsset)
			r.Delete("/{id}", h.deleteAsset)
			r.Get("/{id}/schedule", h.assetSchedule)
			r.Post("/{id}/recalculate", h.recalculateAsset)
			r.Post("/{id}/status", h.changeAssetStatus)
			r.Get("/{id}/depreciation-entries", h.listEntries)
			r.Post("/{id}/depreciation-entries", h.postEntry)
			r.Get("/{id}/maintenance", h.listMaintenance)
			r.Post("/{id}/maintenance", h.recordMaintenance)
		})

		r.Route("/benchmarks", func(r chi.Router) {
			r.Get("/", h.listBenchmarks)
			r.Post("/", h.createBenchmark)
			r.Get("/{id}", h.getBenchmark)
			r.Patch("/{id}", h.updateBenchmark)
			r.Delete("/{id}", h.deleteBenchmark)
			r.Get("/{id}/compare", h.compareBenchmark)
		})

		r.Route("/marketing-platforms", func(r chi.Router) {
			r.Get("/", h.listPlatforms)
			r.Post("/", h.createPlatform)
			r.Post("/sync-all", h.syncAll)
			r.Get("/{id}", h.getPlatform)
			r.Delete("/{id}", h.deletePlatform)
			r.Post("/{id}/sync", h.syncPlatform)
			r.Post("/{id}/test-connection", h.testConnection)
			r.Post("/{id}/audience", h.recordAudience)
			r.Get("/{id}/insights", h.listPlatformInsights)
			r.Post("/{id}/insights", h.generatePlatformInsights)
		})
		r.Route("/marketing-campaigns", func(r chi.Router) {
			r.Get("/", h.listCampaigns)
			r.Post("/", h.createCampaign)
			r.Get("/{id}", h.getCampaign)
			r.Get("/{id}/metrics", h.listMetrics)
			r.Post("/{id}/metrics", h.recordMetric)
			r.Get("/{id}/insights", h.listCampaignInsights)
			r.Post("/{id}/insights", h.generateCampaignInsights)
			r.Get("/{id}/performance", h.campaignPerformance)
		})

		r.Get("/reports/types", h.reportTypes)
		r.Get("/reports/{kind}", h.periodReport)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			h.logger(r).WithError(err).Error("database ping failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
