package depreciation

// Status is the lifecycle state of an asset.
type Status string

const (
	StatusActive           Status = "active"
	StatusFullyDepreciated Status = "fully_depreciated"
	StatusDisposed         Status = "disposed"
	StatusImpaired         Status = "impaired"
	StatusUnderMaintenance Status = "under_maintenance"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// transitions lists the manual status changes allowed from each state.
// fully_depreciated is only entered through Reconcile.
var transitions = map[Status][]Status{
	StatusActive:           {StatusImpaired, StatusUnderMaintenance, StatusDisposed},
	StatusImpaired:         {StatusActive, StatusDisposed},
	StatusUnderMaintenance: {StatusActive, StatusDisposed},
	StatusFullyDepreciated: {StatusDisposed},
	StatusDisposed:         nil,
}

// CanTransition reports whether a manual change from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Reconcile returns the status after a valuation: an active asset that has
// reached salvage or the end of its useful life becomes fully depreciated.
// Other states are kept.
func Reconcile(current Status, v Valuation, a Asset) Status {
	if current == StatusActive && (v.FullyDepreciated(a.SalvageValue) || v.RemainingMonths == 0) {
		return StatusFullyDepreciated
	}
	return current
}
