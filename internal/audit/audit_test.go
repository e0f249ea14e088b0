package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/summit-api/internal/audit"
	"github.com/ksred/summit-api/internal/ledger"
	"github.com/ksred/summit-api/internal/store"
	"github.com/ksred/summit-api/internal/testutil"
	"github.com/ksred/summit-api/internal/trading"
	"github.com/ksred/summit-api/internal/types"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	carol = "carol@example.com"
)

type fixture struct {
	st      *store.Database
	audit   *audit.Service
	ledger  *ledger.Service
	trading *trading.Service
}

func newFixture(t *testing.T, opts audit.Options) *fixture {
	t.Helper()
	st := testutil.NewStore(t)
	clock := testutil.NewClock()
	refs := testutil.References()
	return &fixture{
		st:      st,
		audit:   audit.NewService(st, opts),
		ledger:  ledger.NewService(st, ledger.Options{References: refs, Clock: clock.Now}),
		trading: trading.NewService(st, trading.Options{References: refs, Clock: clock.Now}),
	}
}

func (f *fixture) deposit(t *testing.T, accountID uint, amount string, identity string) *types.Transaction {
	t.Helper()
	txn, err := f.ledger.Deposit(context.Background(), ledger.DepositRequest{AccountID: accountID, Amount: types.MustParseMoney(amount)}, identity)
	require.NoError(t, err)
	return txn
}

func (f *fixture) buy(t *testing.T, accountID uint, symbol string, qty int64, identity string) *types.StockTransaction {
	t.Helper()
	trade, err := f.trading.Buy(context.Background(), trading.TradeRequest{AccountID: accountID, Symbol: symbol, Quantity: types.Quantity(qty)}, identity)
	require.NoError(t, err)
	return trade
}

func TestLimit(t *testing.T) {
	svc := audit.NewService(nil, audit.Options{})
	assert.Equal(t, 20, svc.Limit(0))
	assert.Equal(t, 20, svc.Limit(-5))
	assert.Equal(t, 7, svc.Limit(7))
	assert.Equal(t, 100, svc.Limit(101))

	small := audit.NewService(nil, audit.Options{DefaultLimit: 50, MaxLimit: 10})
	assert.Equal(t, 10, small.Limit(0))
}

func TestPortfolio(t *testing.T) {
	f := newFixture(t, audit.Options{})
	ctx := context.Background()

	checking := testutil.CreateAccount(t, f.st, alice, types.Checking, "0")
	savings := testutil.CreateAccount(t, f.st, alice, types.Savings, "0")
	theirs := testutil.CreateAccount(t, f.st, bob, types.Checking, "0")
	testutil.CreateStock(t, f.st, "AAPL", "Apple Inc.", "150.00", 100)
	testutil.CreateStock(t, f.st, "MSFT", "Microsoft", "300.00", 100)
	testutil.CreatePosition(t, f.st, savings.ID, "AAPL", 2, "100.00")
	testutil.CreatePosition(t, f.st, checking.ID, "MSFT", 3, "310.00")
	testutil.CreatePosition(t, f.st, checking.ID, "AAPL", 10, "140.00")
	testutil.CreatePosition(t, f.st, theirs.ID, "AAPL", 1, "1.00")

	entries, err := f.audit.Portfolio(ctx, alice)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, checking.ID, entries[0].AccountID)
	assert.Equal(t, "AAPL", entries[0].Symbol)
	assert.Equal(t, "Apple Inc.", entries[0].CompanyName)
	testutil.AssertMoney(t, "1500.00", entries[0].MarketValue)
	testutil.AssertMoney(t, "100.00", entries[0].UnrealizedPL)

	assert.Equal(t, "MSFT", entries[1].Symbol)
	testutil.AssertMoney(t, "900.00", entries[1].MarketValue)
	testutil.AssertMoney(t, "-30.00", entries[1].UnrealizedPL)

	assert.Equal(t, savings.ID, entries[2].AccountID)
	testutil.AssertMoney(t, "100.00", entries[2].UnrealizedPL)

	again, err := f.audit.Portfolio(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, entries, again)

	empty, err := f.audit.Portfolio(ctx, carol)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestPortfolioUnlistedStockValuedAtCost(t *testing.T) {
	f := newFixture(t, audit.Options{})
	a := testutil.CreateAccount(t, f.st, alice, types.Checking, "0")
	testutil.CreatePosition(t, f.st, a.ID, "GONE", 4, "12.50")

	entries, err := f.audit.Portfolio(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	testutil.AssertMoney(t, "50.00", entries[0].MarketValue)
	assert.True(t, entries[0].UnrealizedPL.IsZero())
}

func TestTransactionHistory(t *testing.T) {
	f := newFixture(t, audit.Options{DefaultLimit: 3, MaxLimit: 4})
	ctx := context.Background()

	a := testutil.CreateAccount(t, f.st, alice, types.Savings, "0")
	b := testutil.CreateAccount(t, f.st, bob, types.Checking, "0")
	var refs []string
	for _, amount := range []string{"1", "2", "3", "4", "5"} {
		refs = append(refs, f.deposit(t, a.ID, amount, alice).Reference)
	}
	f.deposit(t, b.ID, "99", bob)
	transfer, err := f.ledger.Transfer(ctx, ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: types.MustParseMoney("10"), Description: "rent"}, alice)
	require.NoError(t, err)

	history, err := f.audit.TransactionHistory(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, transfer.Reference, history[0].Reference)
	assert.Equal(t, refs[4], history[1].Reference)
	assert.Equal(t, refs[3], history[2].Reference)

	assert.Equal(t, types.Savings, history[0].FromAccountType)
	assert.Equal(t, types.Checking, history[0].ToAccountType)
	assert.Equal(t, types.Savings, history[1].ToAccountType)
	assert.Nil(t, history[1].FromAccountID)

	history, err = f.audit.TransactionHistory(ctx, alice, 1000)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	// the receiving side sees the transfer as well
	bobs, err := f.audit.TransactionHistory(ctx, bob, 10)
	require.NoError(t, err)
	require.Len(t, bobs, 2)
	assert.Equal(t, transfer.Reference, bobs[0].Reference)

	all, err := f.audit.AllRecentTransactions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, transfer.Reference, all[0].Reference)
}

func TestFindTransactionByReference(t *testing.T) {
	f := newFixture(t, audit.Options{})
	ctx := context.Background()

	a := testutil.CreateAccount(t, f.st, alice, types.Checking, "100")
	b := testutil.CreateAccount(t, f.st, bob, types.Checking, "0")
	transfer, err := f.ledger.Transfer(ctx, ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: types.MustParseMoney("10"), Description: "lunch"}, alice)
	require.NoError(t, err)

	got, err := f.audit.FindTransactionByReference(ctx, transfer.Reference, alice)
	require.NoError(t, err)
	assert.Equal(t, transfer.Reference, got.Reference)
	testutil.AssertMoney(t, "10", got.Amount)
	assert.Equal(t, "lunch", got.Description)
	assert.True(t, transfer.Timestamp.Equal(got.Timestamp))

	_, err = f.audit.FindTransactionByReference(ctx, transfer.Reference, bob)
	assert.NoError(t, err)

	_, err = f.audit.FindTransactionByReference(ctx, transfer.Reference, carol)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = f.audit.FindTransactionByReference(ctx, "TXN-20240601-NOPE", alice)
	assert.ErrorIs(t, err, types.ErrTransactionNotFound)

	admin, err := f.audit.LookupTransaction(ctx, transfer.Reference)
	require.NoError(t, err)
	assert.Equal(t, got, admin)

	_, err = f.audit.LookupTransaction(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestTradeHistoryAndLookup(t *testing.T) {
	f := newFixture(t, audit.Options{})
	ctx := context.Background()

	a := testutil.CreateAccount(t, f.st, alice, types.Checking, "10000")
	b := testutil.CreateAccount(t, f.st, bob, types.Checking, "10000")
	testutil.CreateStock(t, f.st, "AAPL", "Apple Inc.", "100", 100)

	first := f.buy(t, a.ID, "AAPL", 5, alice)
	f.buy(t, b.ID, "AAPL", 1, bob)
	sell, err := f.trading.Sell(ctx, trading.TradeRequest{AccountID: a.ID, Symbol: "AAPL", Quantity: 2}, alice)
	require.NoError(t, err)

	history, err := f.audit.TradeHistory(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, sell.Reference, history[0].Reference)
	assert.Equal(t, types.Sell, history[0].Side)
	require.NotNil(t, history[0].ProfitLoss)
	assert.True(t, history[0].ProfitLoss.IsZero())
	assert.Equal(t, "Apple Inc.", history[0].CompanyName)
	assert.Equal(t, types.Checking, history[0].AccountType)
	assert.Equal(t, first.Reference, history[1].Reference)
	assert.Nil(t, history[1].ProfitLoss)

	got, err := f.audit.FindTradeByReference(ctx, first.Reference, alice)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(5), got.Quantity)
	testutil.AssertMoney(t, "500", got.TotalAmount)

	_, err = f.audit.FindTradeByReference(ctx, first.Reference, bob)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	_, err = f.audit.FindTradeByReference(ctx, "STK-20240601-NOPE", alice)
	assert.ErrorIs(t, err, types.ErrTransactionNotFound)

	admin, err := f.audit.LookupTrade(ctx, first.Reference)
	require.NoError(t, err)
	assert.Equal(t, got, admin)

	all, err := f.audit.AllRecentTrades(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
