package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/summit-api/internal/audit"
	"github.com/ksred/summit-api/internal/database"
	"github.com/ksred/summit-api/internal/ledger"
	"github.com/ksred/summit-api/internal/store"
	"github.com/ksred/summit-api/internal/trading"
	"github.com/ksred/summit-api/internal/types"
)

const (
	minOperations = 50
	maxOperations = 250
	numWorkers    = 8
)

var listings = []trading.ListStockRequest{
	{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: types.MustParseMoney("189.25"), AvailableShares: 5000},
	{Symbol: "GOOGL", CompanyName: "Alphabet Inc.", CurrentPrice: types.MustParseMoney("141.80"), AvailableShares: 5000},
	{Symbol: "MSFT", CompanyName: "Microsoft Corporation", CurrentPrice: types.MustParseMoney("415.10"), AvailableShares: 3000},
	{Symbol: "AMZN", CompanyName: "Amazon.com Inc.", CurrentPrice: types.MustParseMoney("178.35"), AvailableShares: 4000},
	{Symbol: "META", CompanyName: "Meta Platforms Inc.", CurrentPrice: types.MustParseMoney("502.30"), AvailableShares: 2000},
}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	// engine operations log every commit; keep the run readable
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

type engines struct {
	ledger  *ledger.Service
	trading *trading.Service
	audit   *audit.Service
}

type customer struct {
	identity string
	accounts []uint
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Simulation failed")
	}
}

func run() error {
	ctx := context.Background()
	start := time.Now()

	db, err := database.NewDatabase("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewDatabase(db)
	eng := engines{
		ledger:  ledger.NewService(st, ledger.Options{}),
		trading: trading.NewService(st, trading.Options{}),
		audit:   audit.NewService(st, audit.Options{}),
	}

	listed := make(map[string]types.Quantity, len(listings))
	for _, l := range listings {
		if _, err := eng.trading.ListStock(ctx, l); err != nil {
			return fmt.Errorf("list %s: %w", l.Symbol, err)
		}
		listed[l.Symbol] = l.AvailableShares
	}

	customers, err := openAccounts(ctx, eng)
	if err != nil {
		return err
	}
	var directory []uint
	for _, c := range customers {
		directory = append(directory, c.accounts...)
	}

	stats := newSimulationStats()
	var wg sync.WaitGroup
	for i, c := range customers {
		wg.Add(1)
		go func(workerID int, c customer) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			ops := minOperations + rng.Intn(maxOperations-minOperations+1)
			runWorker(ctx, eng, stats, rng, c, directory, ops)
		}(i, c)
	}
	wg.Wait()

	result, err := auditLedger(db, listed)
	if err != nil {
		return err
	}
	printSummary(ctx, eng, customers, stats, result, time.Since(start))
	stats.printPerformanceStats()

	if violations := result.violations(); len(violations) > 0 {
		for _, v := range violations {
			log.Error().Msg(v)
		}
		return errors.New("ledger invariants violated")
	}
	return nil
}

func openAccounts(ctx context.Context, eng engines) ([]customer, error) {
	customers := make([]customer, 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		c := customer{identity: fmt.Sprintf("client%d@summit.local", i+1)}
		for _, kind := range []types.AccountType{types.Checking, types.Savings} {
			opening := types.MoneyFromInt(int64(5000 + 2500*i))
			account, err := eng.ledger.OpenAccount(ctx, ledger.OpenAccountRequest{
				Owner:          c.identity,
				Type:           kind,
				InitialDeposit: &opening,
			})
			if err != nil {
				return nil, fmt.Errorf("open account for %s: %w", c.identity, err)
			}
			c.accounts = append(c.accounts, account.ID)
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// runWorker issues random operations for one customer. Rejections are expected and counted.
func runWorker(ctx context.Context, eng engines, stats *simulationStats, rng *rand.Rand, c customer, directory []uint, ops int) {
	for i := 0; i < ops; i++ {
		account := c.accounts[rng.Intn(len(c.accounts))]
		symbol := listings[rng.Intn(len(listings))].Symbol
		qty := types.Quantity(rng.Intn(20) + 1)

		var op string
		var err error
		started := time.Now()
		switch r := rng.Intn(100); {
		case r < 15:
			op = "deposit"
			amount := types.MoneyFromInt(int64(rng.Intn(90000) + 100)).DivRound(100)
			_, err = eng.ledger.Deposit(ctx, ledger.DepositRequest{AccountID: account, Amount: amount}, c.identity)
		case r < 40:
			op = "transfer"
			amount := types.MoneyFromInt(int64(rng.Intn(250000) + 1)).DivRound(100)
			_, err = eng.ledger.Transfer(ctx, ledger.TransferRequest{
				FromAccountID: account,
				ToAccountID:   directory[rng.Intn(len(directory))],
				Amount:        amount,
				Description:   "simulated transfer",
			}, c.identity)
		case r < 75:
			op = "buy"
			_, err = eng.trading.Buy(ctx, trading.TradeRequest{AccountID: account, Symbol: symbol, Quantity: qty}, c.identity)
		default:
			op = "sell"
			_, err = eng.trading.Sell(ctx, trading.TradeRequest{AccountID: account, Symbol: symbol, Quantity: qty}, c.identity)
		}

		rejected := types.IsRejection(err)
		failed := err != nil && !rejected
		stats.routes[op].addDuration(time.Since(started), rejected, failed)
		if failed {
			log.Error().Err(err).Str("identity", c.identity).Str("operation", op).Msg("Operation failed")
		}
	}
}

func printSummary(ctx context.Context, eng engines, customers []customer, stats *simulationStats, result ledgerAudit, duration time.Duration) {
	calls, rejections, failures := stats.totals()

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("LEDGER SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Operation Statistics
--------------------
Total Operations: %d
Committed:        %d
Rejected:         %d
Failed:           %d
Deposits:         %s
Bought:           %s
Sold:             %s
Cash on Ledger:   %s
Duration:         %v

Portfolio Values
----------------
`, calls, calls-rejections-failures, rejections, failures,
		result.Deposits.Display(), result.Bought.Display(), result.Sold.Display(), result.Cash.Display(),
		duration.Round(time.Millisecond))

	for _, c := range customers {
		entries, err := eng.audit.Portfolio(ctx, c.identity)
		if err != nil {
			log.Error().Err(err).Str("identity", c.identity).Msg("Failed to value portfolio")
			continue
		}
		value, pl := types.Zero, types.Zero
		for _, e := range entries {
			value = value.Add(e.MarketValue)
			pl = pl.Add(e.UnrealizedPL)
		}
		fmt.Printf("%-24s %3d positions  %14s  (unrealized %s)\n", c.identity, len(entries), value.Display(), pl.Display())
	}

	fmt.Println("\nInvariant Audit")
	fmt.Println("---------------")
	if violations := result.violations(); len(violations) == 0 {
		fmt.Println("all invariants hold")
	} else {
		for _, v := range violations {
			fmt.Println("VIOLATION: " + v)
		}
	}
	fmt.Println("\n" + strings.Repeat("=", 80))
}
