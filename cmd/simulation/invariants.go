package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ksred/summit-api/internal/types"
)

// ledgerAudit is the result of replaying the record logs against current balances and holdings.
type ledgerAudit struct {
	Cash          types.Money
	ExpectedCash  types.Money
	Deposits      types.Money
	Bought        types.Money
	Sold          types.Money
	NegativeCount int
	ShareDrift    map[string]types.Quantity
}

func (a ledgerAudit) violations() []string {
	var out []string
	if !a.Cash.Equal(a.ExpectedCash) {
		out = append(out, fmt.Sprintf("cash %s does not match deposits - buys + sells = %s", a.Cash, a.ExpectedCash))
	}
	if a.NegativeCount > 0 {
		out = append(out, fmt.Sprintf("%d accounts have a negative balance", a.NegativeCount))
	}
	for symbol, drift := range a.ShareDrift {
		out = append(out, fmt.Sprintf("%s inventory plus holdings drifted by %d shares", symbol, drift))
	}
	return out
}

// auditLedger checks that cash only moved through deposits and trades and that each
// stock's inventory plus held shares still equals what was listed. Accounts must have
// been opened with a zero balance or an initial deposit that is on record.
func auditLedger(db *gorm.DB, listedShares map[string]types.Quantity) (ledgerAudit, error) {
	result := ledgerAudit{ShareDrift: map[string]types.Quantity{}}

	var accounts []types.Account
	if err := db.Find(&accounts).Error; err != nil {
		return result, fmt.Errorf("load accounts: %w", err)
	}
	for _, a := range accounts {
		result.Cash = result.Cash.Add(a.Balance)
		if a.Balance.IsNegative() {
			result.NegativeCount++
		}
	}

	var deposits []types.Transaction
	if err := db.Where("type = ?", types.DepositTransaction).Find(&deposits).Error; err != nil {
		return result, fmt.Errorf("load deposits: %w", err)
	}
	for _, d := range deposits {
		result.Deposits = result.Deposits.Add(d.Amount)
	}

	var trades []types.StockTransaction
	if err := db.Find(&trades).Error; err != nil {
		return result, fmt.Errorf("load trades: %w", err)
	}
	for _, t := range trades {
		switch t.Side {
		case types.Buy:
			result.Bought = result.Bought.Add(t.TotalAmount)
		case types.Sell:
			result.Sold = result.Sold.Add(t.TotalAmount)
		}
	}
	result.ExpectedCash = result.Deposits.Sub(result.Bought).Add(result.Sold)

	outstanding := make(map[string]types.Quantity, len(listedShares))
	var stocks []types.Stock
	if err := db.Find(&stocks).Error; err != nil {
		return result, fmt.Errorf("load stocks: %w", err)
	}
	for _, s := range stocks {
		outstanding[s.Symbol] += s.AvailableShares
	}
	var positions []types.Position
	if err := db.Find(&positions).Error; err != nil {
		return result, fmt.Errorf("load positions: %w", err)
	}
	for _, p := range positions {
		outstanding[p.Symbol] += p.TotalShares
	}
	for symbol, listed := range listedShares {
		if drift := outstanding[symbol] - listed; drift != 0 {
			result.ShareDrift[symbol] = drift
		}
	}

	return result, nil
}
