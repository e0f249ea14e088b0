package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/summit-api/internal/metrics"
	"github.com/ksred/summit-api/internal/reference"
	"github.com/ksred/summit-api/internal/store"
	"github.com/ksred/summit-api/internal/types"
)

// Service applies cash mutations to accounts. Every mutation validates fully
// before its first write and commits its balance changes and record together.
type Service struct {
	store               store.Store
	references          reference.Generator
	now                 func() time.Time
	metrics             *metrics.Recorder
	savingsOnlyDeposits bool
	idempotencyTTL      time.Duration
}

// NewService creates a ledger service over the given store.
func NewService(st store.Store, opts Options) *Service {
	s := &Service{
		store:               st,
		references:          opts.References,
		now:                 opts.Clock,
		metrics:             opts.Metrics,
		savingsOnlyDeposits: opts.SavingsOnlyDeposits,
		idempotencyTTL:      opts.IdempotencyTTL,
	}
	if s.references == nil {
		s.references = reference.NewDefault()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = 24 * time.Hour
	}
	return s
}

// Deposit credits req.Amount to an account owned by identity.
// Checks, in order: positive amount, account exists, caller owns it, account not frozen.
func (s *Service) Deposit(ctx context.Context, req DepositRequest, identity string) (txn *types.Transaction, err error) {
	start := time.Now()
	logger := log.With().
		Str("service", "ledger").
		Str("operation", "deposit").
		Str("identity", identity).
		Uint("account_id", req.AccountID).
		Logger()
	defer func() { s.finish(logger, "deposit", start, err) }()

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be greater than zero", types.ErrInvalidAmount)
	}
	if !req.Amount.WithinScale() {
		return nil, fmt.Errorf("%w: deposit amount has fractions of a cent", types.ErrInvalidAmount)
	}

	keys := []string{store.AccountKey(req.AccountID)}
	if req.IdempotencyKey != "" {
		keys = append(keys, store.IdempotencyKey(identity, req.IdempotencyKey))
	}

	err = s.store.Atomically(ctx, keys, func(repo store.Repository) error {
		replay, err := s.replay(ctx, repo, identity, req.IdempotencyKey)
		if err != nil || replay != nil {
			txn = replay
			return err
		}

		account, err := repo.FindAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("%w: %d", types.ErrAccountNotFound, req.AccountID)
		}
		if err := s.checkOwner(ctx, repo, identity, account.ID); err != nil {
			return err
		}
		if s.savingsOnlyDeposits && account.Type != types.Savings {
			return fmt.Errorf("%w: deposits are only accepted into savings accounts", types.ErrInvalidRequest)
		}
		if account.Frozen {
			return fmt.Errorf("%w: account %d", types.ErrAccountFrozen, account.ID)
		}

		now := s.now()
		account.Balance = account.Balance.Add(req.Amount)
		account.UpdatedAt = now
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}

		txn, err = s.record(ctx, repo, types.DepositTransaction, nil, account.ID, req.Amount, depositDescription, now)
		if err != nil {
			return err
		}
		return s.remember(ctx, repo, identity, req.IdempotencyKey, txn.Reference, now)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Transfer moves req.Amount from an account owned by identity to any other account.
// Validation order is fixed; the first four checks run before any store access.
func (s *Service) Transfer(ctx context.Context, req TransferRequest, identity string) (txn *types.Transaction, err error) {
	start := time.Now()
	logger := log.With().
		Str("service", "ledger").
		Str("operation", "transfer").
		Str("identity", identity).
		Uint("from_account_id", req.FromAccountID).
		Uint("to_account_id", req.ToAccountID).
		Logger()
	defer func() { s.finish(logger, "transfer", start, err) }()

	if req.FromAccountID == 0 || req.ToAccountID == 0 {
		return nil, fmt.Errorf("%w: both source and destination accounts are required", types.ErrInvalidRequest)
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", types.ErrInvalidRequest)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be greater than zero", types.ErrInvalidAmount)
	}
	if !req.Amount.WithinScale() {
		return nil, fmt.Errorf("%w: transfer amount has fractions of a cent", types.ErrInvalidAmount)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", types.ErrInvalidRequest)
	}

	keys := []string{store.AccountKey(req.FromAccountID), store.AccountKey(req.ToAccountID)}
	if req.IdempotencyKey != "" {
		keys = append(keys, store.IdempotencyKey(identity, req.IdempotencyKey))
	}

	err = s.store.Atomically(ctx, keys, func(repo store.Repository) error {
		replay, err := s.replay(ctx, repo, identity, req.IdempotencyKey)
		if err != nil || replay != nil {
			txn = replay
			return err
		}

		from, err := repo.FindAccount(ctx, req.FromAccountID)
		if err != nil {
			return err
		}
		if from == nil {
			return fmt.Errorf("%w: %d", types.ErrAccountNotFound, req.FromAccountID)
		}
		to, err := repo.FindAccount(ctx, req.ToAccountID)
		if err != nil {
			return err
		}
		if to == nil {
			return fmt.Errorf("%w: %d", types.ErrAccountNotFound, req.ToAccountID)
		}

		if err := s.checkOwner(ctx, repo, identity, from.ID); err != nil {
			return err
		}
		if from.Frozen {
			return fmt.Errorf("%w: source account %d", types.ErrAccountFrozen, from.ID)
		}
		if to.Frozen {
			return fmt.Errorf("%w: destination account %d", types.ErrAccountFrozen, to.ID)
		}
		if from.Balance.LessThan(req.Amount) {
			return fmt.Errorf("%w: account %d", types.ErrInsufficientFunds, from.ID)
		}

		now := s.now()
		from.Balance = from.Balance.Sub(req.Amount)
		from.UpdatedAt = now
		to.Balance = to.Balance.Add(req.Amount)
		to.UpdatedAt = now
		if err := repo.SaveAccount(ctx, from); err != nil {
			return err
		}
		if err := repo.SaveAccount(ctx, to); err != nil {
			return err
		}

		fromID := from.ID
		txn, err = s.record(ctx, repo, types.TransferTransaction, &fromID, to.ID, req.Amount, description, now)
		if err != nil {
			return err
		}
		return s.remember(ctx, repo, identity, req.IdempotencyKey, txn.Reference, now)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetAccount returns the account with the given id.
func (s *Service) GetAccount(ctx context.Context, id uint) (*types.Account, error) {
	account, err := s.store.FindAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %d", types.ErrAccountNotFound, id)
	}
	return account, nil
}

// GetOwnedAccount returns the account only when identity owns it.
func (s *Service) GetOwnedAccount(ctx context.Context, id uint, identity string) (*types.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, s.store, identity, id); err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccountsForIdentity returns every account owned by identity, possibly none.
func (s *Service) GetAccountsForIdentity(ctx context.Context, identity string) ([]types.Account, error) {
	accounts, err := s.store.AccountsForIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []types.Account{}
	}
	return accounts, nil
}

// OpenAccount creates an account. A positive initial deposit is recorded as a deposit transaction.
func (s *Service) OpenAccount(ctx context.Context, req OpenAccountRequest) (account *types.Account, err error) {
	start := time.Now()
	logger := log.With().
		Str("service", "ledger").
		Str("operation", "open_account").
		Str("owner", req.Owner).
		Logger()
	defer func() { s.finish(logger, "open_account", start, err) }()

	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", types.ErrInvalidRequest)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", types.ErrInvalidRequest, req.Type)
	}
	initial := types.Zero
	if req.InitialDeposit != nil {
		initial = *req.InitialDeposit
	}
	if initial.IsNegative() {
		return nil, fmt.Errorf("%w: initial deposit must not be negative", types.ErrInvalidAmount)
	}
	if !initial.WithinScale() {
		return nil, fmt.Errorf("%w: initial deposit has fractions of a cent", types.ErrInvalidAmount)
	}

	err = s.store.Atomically(ctx, nil, func(repo store.Repository) error {
		now := s.now()
		account = &types.Account{
			Owner:     owner,
			Type:      req.Type,
			Balance:   initial,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreateAccount(ctx, account); err != nil {
			return err
		}
		if initial.IsPositive() {
			if _, err := s.record(ctx, repo, types.DepositTransaction, nil, account.ID, initial, initialDepositDescription, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SetFrozen sets or clears the frozen flag of an account.
func (s *Service) SetFrozen(ctx context.Context, id uint, frozen bool) (account *types.Account, err error) {
	start := time.Now()
	logger := log.With().
		Str("service", "ledger").
		Str("operation", "set_frozen").
		Uint("account_id", id).
		Bool("frozen", frozen).
		Logger()
	defer func() { s.finish(logger, "set_frozen", start, err) }()

	err = s.store.Atomically(ctx, []string{store.AccountKey(id)}, func(repo store.Repository) error {
		found, err := repo.FindAccount(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("%w: %d", types.ErrAccountNotFound, id)
		}
		found.Frozen = frozen
		found.UpdatedAt = s.now()
		account = found
		return repo.SaveAccount(ctx, found)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) checkOwner(ctx context.Context, resolver store.IdentityResolver, identity string, accountID uint) error {
	owned, err := resolver.AccountsForIdentity(ctx, identity)
	if err != nil {
		return err
	}
	for _, a := range owned {
		if a.ID == accountID {
			return nil
		}
	}
	return fmt.Errorf("%w to use account %d", types.ErrUnauthorized, accountID)
}

func (s *Service) record(ctx context.Context, repo store.Repository, kind types.TransactionType, from *uint, to uint, amount types.Money, description string, at time.Time) (*types.Transaction, error) {
	ref, err := s.references(reference.Transaction, at)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}

	txn := &types.Transaction{
		Reference:     ref,
		Type:          kind,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Description:   description,
		Timestamp:     at,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// replay returns the transaction a previous request with the same idempotency key produced, if any.
func (s *Service) replay(ctx context.Context, repo store.Repository, identity, key string) (*types.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	record, err := repo.FindIdempotencyRecord(ctx, identity, key, s.now())
	if err != nil || record == nil {
		return nil, err
	}
	if record.ResourceType != types.IdempotencyTransaction {
		return nil, fmt.Errorf("%w: idempotency key already used for a %s", types.ErrInvalidRequest, record.ResourceType)
	}

	txn, err := repo.FindTransactionByReference(ctx, record.Reference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrTransactionNotFound, record.Reference)
	}
	log.Debug().Str("service", "ledger").Str("idempotency_key", key).Str("reference", txn.Reference).Msg("replaying idempotent request")
	return txn, nil
}

func (s *Service) remember(ctx context.Context, repo store.Repository, identity, key, ref string, now time.Time) error {
	if key == "" {
		return nil
	}
	return repo.SaveIdempotencyRecord(ctx, &types.IdempotencyRecord{
		Identity:     identity,
		Key:          key,
		ResourceType: types.IdempotencyTransaction,
		Reference:    ref,
		ExpiresAt:    now.Add(s.idempotencyTTL),
	})
}

func (s *Service) finish(logger zerolog.Logger, operation string, start time.Time, err error) {
	s.metrics.Observe(operation, start, err)

	switch {
	case err == nil:
		logger.Info().Dur("duration", time.Since(start)).Msg(operation + " committed")
	case types.IsRejection(err):
		logger.Warn().Err(err).Msg(operation + " rejected")
	default:
		logger.Error().Err(err).Msg(operation + " failed")
	}
}
