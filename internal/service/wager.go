package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/betting"
	"worldcup-betting/internal/metrics"
	"worldcup-betting/internal/model"
	"worldcup-betting/internal/pkg/lock"
	"worldcup-betting/internal/repository"
)

// PlaceResult tells whether a bet was created or had its team replaced.
type PlaceResult string

const (
	PlaceCreated PlaceResult = "created"
	PlaceUpdated PlaceResult = "updated"
)

// WagerService places and changes bets.
type WagerService struct {
	store Store
	locks *lock.KeyLock
	rules Rules
}

// NewWagerService creates a new WagerService instance.
func NewWagerService(store Store, locks *lock.KeyLock, rules Rules) *WagerService {
	return &WagerService{store: store, locks: locks, rules: rules}
}

// PlaceBet creates the user's bet on a match, debiting the bet cost, or
// replaces the team of the existing OPEN bet without a second debit.
//
// The lock check runs against the match row inside the same transaction as
// the write. The row is held FOR SHARE, so a settlement cannot commit
// between the check and the write.
func (s *WagerService) PlaceBet(ctx context.Context, userID, matchID, teamCode string) (PlaceResult, error) {
	teamCode = strings.TrimSpace(teamCode)
	if matchID == "" || teamCode == "" {
		return "", ErrInvalidSelection
	}

	var (
		result PlaceResult
		debit  *model.LedgerEntry
	)
	err := s.locks.WithLockContext(ctx, userID+"/"+matchID, func() error {
		return s.store.WithTx(ctx, func(tx pgx.Tx) error {
			repos := repository.NewSet(tx)

			match, err := repos.Matches.GetForShare(ctx, matchID)
			if err != nil {
				return err
			}
			if match.Settled() || betting.IsLocked(match) {
				return ErrLocked
			}
			if !match.HasTeam(teamCode) {
				return ErrInvalidSelection
			}
			if exists, err := repos.Users.Exists(ctx, userID); err != nil {
				return err
			} else if !exists {
				return repository.ErrUserNotFound
			}

			bet, created, err := repos.Bets.InsertIfAbsent(ctx, uuid.NewString(), userID, matchID, teamCode)
			if err != nil {
				return err
			}
			if created {
				debit, err = repos.Ledger.Append(ctx, userID, &bet.MatchID, -s.rules.BetCost, model.EntryBet)
				if err != nil {
					return err
				}
				result = PlaceCreated
				return nil
			}

			if _, err := repos.Bets.UpdateOpenSelection(ctx, userID, matchID, teamCode); err != nil {
				if errors.Is(err, repository.ErrBetNotOpen) {
					return ErrLocked
				}
				return err
			}
			result = PlaceUpdated
			return nil
		})
	})
	if err != nil {
		err = classify(err)
		metrics.RecordBet(rejectionLabel(err))
		log.Debug().Err(err).Str("user_id", userID).Str("match_id", matchID).Str("team", teamCode).Msg("Bet rejected")
		return "", err
	}

	metrics.RecordBet(string(result))
	if debit != nil {
		metrics.RecordEntry(string(debit.Kind), debit.Amount)
	}
	log.Info().
		Str("user_id", userID).
		Str("match_id", matchID).
		Str("team", teamCode).
		Str("result", string(result)).
		Msg("Bet placed")
	return result, nil
}

// Bets returns the user's bets, newest first.
func (s *WagerService) Bets(ctx context.Context, userID string) ([]*model.Bet, error) {
	bets, err := repository.NewBetRepository(s.store).ListByUser(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return bets, nil
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrInvalidSelection):
		return "invalid_selection"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
