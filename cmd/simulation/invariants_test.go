package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/summit-api/internal/ledger"
	"github.com/ksred/summit-api/internal/testutil"
	"github.com/ksred/summit-api/internal/trading"
	"github.com/ksred/summit-api/internal/types"
)

func TestAuditLedgerAfterTrading(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewStore(t)
	ledgers := ledger.NewService(st, ledger.Options{})
	trades := trading.NewService(st, trading.Options{})

	_, err := trades.ListStock(ctx, trading.ListStockRequest{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: types.MustParseMoney("150"), AvailableShares: 100})
	require.NoError(t, err)
	opening := types.MustParseMoney("1000")
	a, err := ledgers.OpenAccount(ctx, ledger.OpenAccountRequest{Owner: "alice", Type: types.Checking, InitialDeposit: &opening})
	require.NoError(t, err)
	b, err := ledgers.OpenAccount(ctx, ledger.OpenAccountRequest{Owner: "bob", Type: types.Savings})
	require.NoError(t, err)

	_, err = ledgers.Transfer(ctx, ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: types.MustParseMoney("100"), Description: "x"}, "alice")
	require.NoError(t, err)
	_, err = trades.Buy(ctx, trading.TradeRequest{AccountID: a.ID, Symbol: "AAPL", Quantity: 5}, "alice")
	require.NoError(t, err)
	_, err = trades.Sell(ctx, trading.TradeRequest{AccountID: a.ID, Symbol: "AAPL", Quantity: 2}, "alice")
	require.NoError(t, err)

	listed := map[string]types.Quantity{"AAPL": 100}
	result, err := auditLedger(st.DB(), listed)
	require.NoError(t, err)
	assert.Empty(t, result.violations())
	testutil.AssertMoney(t, "1000", result.Deposits)
	testutil.AssertMoney(t, "750", result.Bought)
	testutil.AssertMoney(t, "300", result.Sold)
	testutil.AssertMoney(t, "550", result.Cash)

	// money appearing outside the engines is caught
	require.NoError(t, st.DB().Model(&types.Account{}).Where("id = ?", b.ID).Update("balance", "-5.0000").Error)
	require.NoError(t, st.DB().Model(&types.Stock{}).Where("symbol = ?", "AAPL").Update("available_shares", 90).Error)
	result, err = auditLedger(st.DB(), listed)
	require.NoError(t, err)
	assert.Len(t, result.violations(), 3)
	assert.Equal(t, types.Quantity(-7), result.ShareDrift["AAPL"])
}

func TestRouteStatsCalculate(t *testing.T) {
	rs := &routeStats{name: "Buy"}
	for i := 100; i >= 1; i-- {
		rs.addDuration(time.Duration(i)*time.Millisecond, i%10 == 0, false)
	}

	min, max, mean, median, p95, p99 := rs.calculate()
	assert.Equal(t, time.Millisecond, min)
	assert.Equal(t, 100*time.Millisecond, max)
	assert.Equal(t, 50500*time.Microsecond, mean)
	assert.Equal(t, 51*time.Millisecond, median)
	assert.Equal(t, 95*time.Millisecond, p95)
	assert.Equal(t, 99*time.Millisecond, p99)
	assert.Equal(t, 10, rs.rejections)

	empty := &routeStats{}
	min, _, _, _, _, p99 = empty.calculate()
	assert.Zero(t, min)
	assert.Zero(t, p99)
}
