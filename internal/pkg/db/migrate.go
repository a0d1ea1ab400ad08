package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Executor is the subset of pgx used to apply the schema.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

// migrations are applied in order; every statement is idempotent.
var migrations = []migration{
	{
		name: "users",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				provider_subject TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "matches",
		sql: `
			CREATE TABLE IF NOT EXISTS matches (
				id TEXT PRIMARY KEY,
				team_a TEXT NOT NULL,
				team_b TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				status VARCHAR(20) NOT NULL,
				winner_team TEXT,
				settled_at TIMESTAMPTZ,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_matches_unsettled ON matches(status) WHERE settled_at IS NULL;
		`,
	},
	{
		name: "bets",
		sql: `
			CREATE TABLE IF NOT EXISTS bets (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				match_id TEXT NOT NULL REFERENCES matches(id),
				team_code TEXT NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT bets_user_match_unique UNIQUE (user_id, match_id)
			);
			CREATE INDEX IF NOT EXISTS idx_bets_match ON bets(match_id);
		`,
	},
	{
		name: "transactions",
		sql: `
			CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				match_id TEXT REFERENCES matches(id),
				amount BIGINT NOT NULL,
				kind VARCHAR(32) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_transactions_match_kind ON transactions(match_id, kind);
		`,
	},
	{
		name: "sessions",
		sql: `
			CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				expires_at TIMESTAMPTZ NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
		`,
	},
}

// Migrate applies the schema statements in order through conn.
func Migrate(ctx context.Context, conn Executor) error {
	log.Info().Int("count", len(migrations)).Msg("Running database migrations...")

	for _, m := range migrations {
		if _, err := conn.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
		log.Debug().Str("migration", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// Migrate applies the schema inside one transaction.
func (p *Pool) Migrate(ctx context.Context) error {
	return p.WithTx(ctx, func(tx pgx.Tx) error {
		return Migrate(ctx, tx)
	})
}
