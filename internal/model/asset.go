package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/depreciation"
)

type AssetCategory struct {
	ID                        int64               `json:"id"`
	Name                      string              `json:"name"`
	Description               string              `json:"description"`
	DefaultUsefulLife         int                 `json:"default_useful_life"`
	DefaultDepreciationMethod depreciation.Method `json:"default_depreciation_method"`
	IsActive                  bool                `json:"is_active"`
	CreatedAt                 time.Time           `json:"created_at"`
}

// Asset is a fixed asset. The depreciation figures are recomputed and stored
// every time the asset is saved.
type Asset struct {
	ID                 int64               `json:"id"`
	AssetCode          string              `json:"asset_code"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	CategoryID         int64               `json:"category_id"`
	CategoryName       string              `json:"category_name"`
	SerialNumber       string              `json:"serial_number"`
	PurchaseDate       Date                `json:"purchase_date"`
	PurchaseCost       decimal.Decimal     `json:"purchase_cost"`
	Supplier           string              `json:"supplier"`
	InvoiceNumber      string              `json:"invoice_number"`
	UsefulLifeYears    int                 `json:"useful_life_years"`
	UsefulLifeMonths   int                 `json:"useful_life_months"`
	SalvageValue       decimal.Decimal     `json:"salvage_value"`
	DepreciationMethod depreciation.Method `json:"depreciation_method"`
	Status             depreciation.Status `json:"status"`

	CurrentValue            decimal.Decimal `json:"current_value"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	AnnualDepreciation      decimal.Decimal `json:"annual_depreciation"`
	MonthlyDepreciation     decimal.Decimal `json:"monthly_depreciation"`

	Location                   string          `json:"location"`
	Department                 string          `json:"department"`
	ResponsiblePerson          string          `json:"responsible_person"`
	LastMaintenance            *Date           `json:"last_maintenance"`
	NextMaintenance            *Date           `json:"next_maintenance"`
	MaintenanceCostAccumulated decimal.Decimal `json:"maintenance_cost_accumulated"`
	DisposalDate               *Date           `json:"disposal_date"`
	DisposalValue              decimal.Decimal `json:"disposal_value"`
	Notes                      string          `json:"notes"`
	CreatedAt                  time.Time       `json:"created_at"`
	UpdatedAt                  time.Time       `json:"updated_at"`

	TotalUsefulLifeMonths     int             `json:"total_useful_life_months"`
	DepreciableAmount         decimal.Decimal `json:"depreciable_amount"`
	MonthsSincePurchase       int             `json:"months_since_purchase"`
	RemainingUsefulLifeMonths int             `json:"remaining_useful_life_months"`
	DepreciationPercentage    decimal.Decimal `json:"depreciation_percentage"`
}

// Depreciable returns the engine view of a.
func (a Asset) Depreciable() depreciation.Asset {
	return depreciation.Asset{
		PurchaseDate:     a.PurchaseDate.Time,
		PurchaseCost:     a.PurchaseCost,
		SalvageValue:     a.SalvageValue,
		UsefulLifeYears:  a.UsefulLifeYears,
		UsefulLifeMonths: a.UsefulLifeMonths,
		Method:           a.DepreciationMethod,
	}
}

// AssetFilter narrows asset listings. From and To bound purchase_date inclusively.
type AssetFilter struct {
	Status     string
	CategoryID int64
	From       *Date
	To         *Date
}

// DepreciationEntry is the posted depreciation of one asset for one month.
type DepreciationEntry struct {
	ID          int64           `json:"id"`
	AssetID     int64           `json:"asset_id"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Amount      decimal.Decimal `json:"amount"`
	Accumulated decimal.Decimal `json:"accumulated_depreciation"`
	BookValue   decimal.Decimal `json:"book_value"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Maintenance types.
const (
	MaintenancePreventive = "preventive"
	MaintenanceCorrective = "corrective"
	MaintenanceEmergency  = "emergency"
	MaintenanceInspection = "inspection"
)

// ValidMaintenanceType reports whether s is a known maintenance type.
func ValidMaintenanceType(s string) bool {
	switch s {
	case MaintenancePreventive, MaintenanceCorrective, MaintenanceEmergency, MaintenanceInspection:
		return true
	}
	return false
}

type MaintenanceRecord struct {
	ID              int64           `json:"id"`
	AssetID         int64           `json:"asset_id"`
	MaintenanceType string          `json:"maintenance_type"`
	PerformedOn     Date            `json:"performed_on"`
	Cost            decimal.Decimal `json:"cost"`
	Description     string          `json:"description"`
	PerformedBy     string          `json:"performed_by"`
	NextDue         *Date           `json:"next_due"`
	CreatedAt       time.Time       `json:"created_at"`
}
