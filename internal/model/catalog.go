package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resource type names.
const (
	ResourceMaterial    = "material"
	ResourceLabor       = "labor"
	ResourceEquipment   = "equipment"
	ResourceSubcontract = "subcontract"
	ResourceTransport   = "transport"
	ResourceOverhead    = "overhead"
)

// ResourceTypeNames lists the valid resource type names in display order.
var ResourceTypeNames = []string{
	ResourceMaterial,
	ResourceLabor,
	ResourceEquipment,
	ResourceSubcontract,
	ResourceTransport,
	ResourceOverhead,
}

// ValidResourceType reports whether name is a known resource type.
func ValidResourceType(name string) bool {
	for _, n := range ResourceTypeNames {
		if n == name {
			return true
		}
	}
	return false
}

type ServiceCategory struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type ResourceType struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	OverheadPercentage decimal.Decimal `json:"overhead_percentage"`
}

// Resource is a priced catalog entry. TypeName and OverheadPercentage are
// read from its resource type.
type Resource struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	ResourceTypeID     int64           `json:"resource_type_id"`
	TypeName           string          `json:"resource_type"`
	OverheadPercentage decimal.Decimal `json:"overhead_percentage"`
	Unit               string          `json:"unit"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	CostWithOverhead   decimal.Decimal `json:"cost_with_overhead"`
	Description        string          `json:"description"`
	Supplier           string          `json:"supplier"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ResourceFilter narrows resource listings.
type ResourceFilter struct {
	TypeName string
	Active   *bool
	Query    string
}
