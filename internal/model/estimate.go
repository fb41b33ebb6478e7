package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estimate statuses.
const (
	EstimateDraft    = "draft"
	EstimatePending  = "pending"
	EstimateApproved = "approved"
	EstimateRejected = "rejected"
	EstimateExecuted = "executed"
)

// ValidEstimateStatus reports whether s is a known estimate status.
func ValidEstimateStatus(s string) bool {
	switch s {
	case EstimateDraft, EstimatePending, EstimateApproved, EstimateRejected, EstimateExecuted:
		return true
	}
	return false
}

type ProjectEstimate struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Client       string          `json:"client"`
	Description  string          `json:"description"`
	Location     string          `json:"location"`
	EstimateDate Date            `json:"estimate_date"`
	ValidityDays int             `json:"validity_days"`
	SiteFactor   decimal.Decimal `json:"site_factor"`
	SeasonFactor decimal.Decimal `json:"season_factor"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Items           []ProjectEstimateItem `json:"items"`
	ValidityEndDate Date                  `json:"validity_end_date"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	TotalEstimate   decimal.Decimal       `json:"total_estimate"`
}

type ProjectEstimateItem struct {
	ID           int64           `json:"id"`
	EstimateID   int64           `json:"estimate_id"`
	AnalysisID   int64           `json:"analysis_id"`
	AnalysisCode string          `json:"analysis_code"`
	AnalysisName string          `json:"analysis_name"`
	CategoryName string          `json:"category_name"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Description  string          `json:"description"`
}

// EstimateFilter narrows estimate listings. From and To bound estimate_date inclusively.
type EstimateFilter struct {
	Status string
	Client string
	From   *Date
	To     *Date
}

// CategorySection groups estimate items by service category.
type CategorySection struct {
	Category string                `json:"category"`
	Items    []ProjectEstimateItem `json:"items"`
	Subtotal decimal.Decimal       `json:"subtotal"`
}

// EstimateSummary is the closing block of an estimate report.
type EstimateSummary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	SiteFactor    decimal.Decimal `json:"site_factor"`
	SeasonFactor  decimal.Decimal `json:"season_factor"`
	TotalEstimate decimal.Decimal `json:"total_estimate"`
}

// EstimateReport is the full printable view of an estimate.
type EstimateReport struct {
	Estimate          ProjectEstimate   `json:"estimate"`
	CategoryBreakdown []CategorySection `json:"category_breakdown"`
	Summary           EstimateSummary   `json:"summary"`
}
