package depreciation

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
)

type checkpoint struct {
	fingerprint string
	month       int
	book        decimal.Decimal
}

// Engine evaluates assets, memoising declining-balance book values per asset
// so that a later evaluation resumes from the last computed month.
// A nil *Engine evaluates without memoisation.
type Engine struct {
	memo *lru.Cache[int64, checkpoint]
}

// NewEngine returns an engine that keeps checkpoints for up to size assets.
func NewEngine(size int) (*Engine, error) {
	memo, err := lru.New[int64, checkpoint](size)
	if err != nil {
		return nil, fmt.Errorf("create depreciation memo: %w", err)
	}
	return &Engine{memo: memo}, nil
}

// Evaluate values the asset identified by id after months elapsed.
// An id of zero is never memoised.
func (e *Engine) Evaluate(id int64, a Asset, months int) Valuation {
	if months < 0 {
		months = 0
	}
	switch a.Method {
	case DecliningBalance:
		return decliningValuation(a, months, e.bookValue(id, a, months))
	case SumOfYears:
		return sumOfYears(a, months)
	default:
		return straightLine(a, months)
	}
}

// Forget drops the checkpoint of an asset.
func (e *Engine) Forget(id int64) {
	if e == nil {
		return
	}
	e.memo.Remove(id)
}

func (e *Engine) bookValue(id int64, a Asset, months int) decimal.Decimal {
	if e == nil || id == 0 {
		return decliningFrom(a, a.PurchaseCost, 0, months)
	}

	fp := a.fingerprint()
	start, book := 0, a.PurchaseCost
	if cp, ok := e.memo.Get(id); ok && cp.fingerprint == fp && cp.month <= months {
		start, book = cp.month, cp.book
	}
	book = decliningFrom(a, book, start, months)
	e.memo.Add(id, checkpoint{fingerprint: fp, month: months, book: book})
	return book
}
