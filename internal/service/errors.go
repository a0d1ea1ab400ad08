// Package service implements the betting ledger's operations on top of the
// repositories: the ledger store, wager book, settlement engine, sync
// coordinator, accounts and read models.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"worldcup-betting/internal/pkg/lock"
	"worldcup-betting/internal/repository"
)

// Errors returned by the services. Transport layers map these to responses.
var (
	ErrNotFound         = errors.New("not found")
	ErrLocked           = errors.New("match is locked")
	ErrInvalidSelection = errors.New("invalid team selection")
	ErrConflict         = errors.New("conflicting concurrent update")
	ErrStorage          = errors.New("storage failure")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("forbidden")
)

// PostgreSQL error codes treated as a lost race rather than a failure.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Store is the database handle services run against. *db.Pool satisfies it.
type Store interface {
	repository.DBTX
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// classify maps an error from the storage layer onto the service taxonomy.
// Errors already in the taxonomy pass through unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrLocked),
		errors.Is(err, ErrInvalidSelection),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrStorage),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrForbidden):
		return err
	case errors.Is(err, repository.ErrMatchNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrBetNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrAlreadySettled),
		errors.Is(err, repository.ErrBetNotOpen),
		errors.Is(err, lock.ErrLockTimeout):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func clampLimit(limit, fallback, maxLimit int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxLimit)
}
