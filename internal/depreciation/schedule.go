package depreciation

import (
	"github.com/shopspring/decimal"
)

// ScheduleRow is one year of an amortization table.
type ScheduleRow struct {
	Year                    int             `json:"year"`
	OpeningValue            decimal.Decimal `json:"opening_value"`
	DepreciationExpense     decimal.Decimal `json:"depreciation_expense"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	ClosingValue            decimal.Decimal `json:"closing_value"`
}

// Schedule returns the year-by-year amortization table of a, ending early
// once the closing value reaches salvage.
func Schedule(a Asset) []ScheduleRow {
	total := a.TotalMonths()
	if total <= 0 {
		return []ScheduleRow{}
	}

	years := (total + 11) / 12
	rows := make([]ScheduleRow, 0, years)
	opening := a.PurchaseCost
	book := a.PurchaseCost

	for year := 1; year <= years; year++ {
		end := year * 12
		if end > total {
			end = total
		}

		var accumulated decimal.Decimal
		if a.Method == DecliningBalance {
			book = decliningFrom(a, book, (year-1)*12, end)
			accumulated = a.PurchaseCost.Sub(book)
		} else {
			accumulated = AccumulatedAt(a, end)
		}
		closing := decimal.Max(a.PurchaseCost.Sub(accumulated), a.SalvageValue)

		rows = append(rows, ScheduleRow{
			Year:                    year,
			OpeningValue:            opening,
			DepreciationExpense:     opening.Sub(closing),
			AccumulatedDepreciation: accumulated,
			ClosingValue:            closing,
		})

		if closing.LessThanOrEqual(a.SalvageValue) {
			break
		}
		opening = closing
	}
	return rows
}
