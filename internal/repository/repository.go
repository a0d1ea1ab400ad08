// Package repository provides the PostgreSQL data access layer.
// Every repository can be bound to a pgx.Tx so that a service can compose
// several writes into one atomic unit.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrBetNotFound     = errors.New("bet not found")
	ErrBetNotOpen      = errors.New("bet is not open")
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadySettled  = errors.New("match already settled")
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is implemented by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Set groups the repositories bound to the same connection or transaction.
type Set struct {
	Users    *UserRepository
	Ledger   *LedgerRepository
	Matches  *MatchRepository
	Bets     *BetRepository
	Sessions *SessionRepository
}

// NewSet binds every repository to db.
func NewSet(db DBTX) *Set {
	return &Set{
		Users:    NewUserRepository(db),
		Ledger:   NewLedgerRepository(db),
		Matches:  NewMatchRepository(db),
		Bets:     NewBetRepository(db),
		Sessions: NewSessionRepository(db),
	}
}
