package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/costmatrix"
)

// Matrix types.
const (
	MatrixStandard   = "standard"
	MatrixPremium    = "premium"
	MatrixEconomy    = "economy"
	MatrixEnterprise = "enterprise"
	MatrixGovernment = "government"
	MatrixCustom     = "custom"
)

// ValidMatrixType reports whether s is a known matrix type.
func ValidMatrixType(s string) bool {
	switch s {
	case MatrixStandard, MatrixPremium, MatrixEconomy, MatrixEnterprise, MatrixGovernment, MatrixCustom:
		return true
	}
	return false
}

// CostMatrix is a named pricing configuration. Config holds the factor
// table with defaults applied.
type CostMatrix struct {
	ID                     int64             `json:"id"`
	Name                   string            `json:"name"`
	MatrixType             string            `json:"matrix_type"`
	Description            string            `json:"description"`
	BaseMargin             decimal.Decimal   `json:"base_margin"`
	AdministrativeOverhead decimal.Decimal   `json:"administrative_overhead"`
	Config                 costmatrix.Config `json:"config"`
	EffectiveDate          Date              `json:"effective_date"`
	ExpiryDate             *Date             `json:"expiry_date"`
	IsActive               bool              `json:"is_active"`
	IsDefault              bool              `json:"is_default"`
	Version                string            `json:"version"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// Pricer returns the calculation view of m.
func (m CostMatrix) Pricer() costmatrix.Matrix {
	return costmatrix.Matrix{
		BaseMargin:             m.BaseMargin,
		AdministrativeOverhead: m.AdministrativeOverhead,
		Config:                 m.Config.WithDefaults(),
	}
}

// PricingScenario prices an analysis with a matrix and a set of factors.
type PricingScenario struct {
	ID              int64              `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	CostMatrixID    int64              `json:"cost_matrix_id"`
	AnalysisID      int64              `json:"analysis_id"`
	Params          costmatrix.Factors `json:"params"`
	TotalCost       decimal.Decimal    `json:"total_cost"`
	TotalPrice      decimal.Decimal    `json:"total_price"`
	EffectiveMargin decimal.Decimal    `json:"effective_margin"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}
