package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"worldcup-betting/internal/metrics"
	"worldcup-betting/internal/model"
	"worldcup-betting/internal/repository"
)

// Rules are the fixed amounts every operation agrees on.
type Rules struct {
	BetCost      int64
	WelcomeBonus int64
}

// DefaultRules returns the documented defaults.
func DefaultRules() Rules {
	return Rules{BetCost: model.DefaultBetCost, WelcomeBonus: model.DefaultWelcomeBonus}
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// LedgerService is the read and append surface of the transactions log.
// Balances are always summed from entries.
type LedgerService struct {
	store Store
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(store Store) *LedgerService {
	return &LedgerService{store: store}
}

// Append durably records a single entry. Operations that write several
// entries use their own transaction instead.
func (s *LedgerService) Append(ctx context.Context, userID string, matchID *string, amount int64, kind model.EntryKind) (*model.LedgerEntry, error) {
	var entry *model.LedgerEntry
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		repos := repository.NewSet(tx)
		if _, err := repos.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		var err error
		entry, err = repos.Ledger.Append(ctx, userID, matchID, amount, kind)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	metrics.RecordEntry(string(kind), amount)
	return entry, nil
}

// Balance returns the sum of the user's entries.
func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	balance, err := repository.NewLedgerRepository(s.store).Balance(ctx, userID)
	if err != nil {
		return 0, classify(fmt.Errorf("balance of %s: %w", userID, err))
	}
	return balance, nil
}

// History returns the user's entries, newest first.
func (s *LedgerService) History(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	limit = clampLimit(limit, defaultHistoryLimit, maxHistoryLimit)
	entries, err := repository.NewLedgerRepository(s.store).GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, classify(err)
	}
	return entries, nil
}
