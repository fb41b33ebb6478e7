package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitPriceAnalysis is a costed recipe for one unit of work. The cost fields
// are derived from its items and never stored.
type UnitPriceAnalysis struct {
	ID                       int64           `json:"id"`
	Code                     string          `json:"code"`
	Name                     string          `json:"name"`
	CategoryID               int64           `json:"category_id"`
	CategoryName             string          `json:"category_name"`
	Description              string          `json:"description"`
	Unit                     string          `json:"unit"`
	PerformanceFactor        decimal.Decimal `json:"performance_factor"`
	DifficultyFactor         decimal.Decimal `json:"difficulty_factor"`
	ProfitMargin             decimal.Decimal `json:"profit_margin"`
	AdministrativePercentage decimal.Decimal `json:"administrative_percentage"`
	IsActive                 bool            `json:"is_active"`
	Version                  string          `json:"version"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`

	Items              []UnitPriceItem `json:"items"`
	TotalDirectCost    decimal.Decimal `json:"total_direct_cost"`
	BaseCost           decimal.Decimal `json:"base_cost"`
	AdministrativeCost decimal.Decimal `json:"administrative_cost"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	ProfitAmount       decimal.Decimal `json:"profit_amount"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
}

// UnitPriceItem is one resource line of an analysis with a unit cost snapshot.
type UnitPriceItem struct {
	ID           int64           `json:"id"`
	AnalysisID   int64           `json:"analysis_id"`
	ResourceID   int64           `json:"resource_id"`
	ResourceCode string          `json:"resource_code"`
	ResourceName string          `json:"resource_name"`
	ResourceType string          `json:"resource_type"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Efficiency   decimal.Decimal `json:"efficiency"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Notes        string          `json:"notes"`
}

// AnalysisFilter narrows analysis listings.
type AnalysisFilter struct {
	CategoryID int64
	Active     *bool
	Query      string
}

// CostShare is one row of an analysis cost breakdown.
type CostShare struct {
	ResourceType string          `json:"resource_type"`
	Cost         decimal.Decimal `json:"cost"`
	Percentage   decimal.Decimal `json:"percentage"`
}

// CostBreakdown is the per resource type split of an analysis.
type CostBreakdown struct {
	AnalysisID      int64           `json:"analysis_id"`
	TotalDirectCost decimal.Decimal `json:"total_direct_cost"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Breakdown       []CostShare     `json:"breakdown"`
}
