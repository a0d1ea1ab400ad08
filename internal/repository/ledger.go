package repository

import (
	"context"
	"fmt"
	"time"

	"worldcup-betting/internal/model"
)

// LedgerRepository persists the append-only transactions table.
// Rows are only ever inserted; nothing here updates or deletes an entry.
type LedgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const entryColumns = `id, user_id, match_id, amount, kind, created_at`

func scanEntry(row scanner) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.MatchID,
		&e.Amount,
		&e.Kind,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *LedgerRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*model.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// Append inserts a new entry and returns it with its id and timestamp.
func (r *LedgerRepository) Append(ctx context.Context, userID string, matchID *string, amount int64, kind model.EntryKind) (*model.LedgerEntry, error) {
	query := `
		INSERT INTO transactions (user_id, match_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + entryColumns

	e, err := scanEntry(r.db.QueryRow(ctx, query, userID, matchID, amount, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return e, nil
}

// Balance sums every entry of the user. A user without entries has balance 0.
func (r *LedgerRepository) Balance(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1`

	var balance int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}
	return balance, nil
}

// GetByUserID retrieves entries for a user, newest first.
func (r *LedgerRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`
	return r.queryEntries(ctx, query, userID, limit)
}

// GetByMatchID retrieves every entry attributed to a match in insertion order.
func (r *LedgerRepository) GetByMatchID(ctx context.Context, matchID string) ([]*model.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM transactions
		WHERE match_id = $1
		ORDER BY id
	`
	return r.queryEntries(ctx, query, matchID)
}

// SumByMatchAndKind totals the entries of one kind for a match.
func (r *LedgerRepository) SumByMatchAndKind(ctx context.Context, matchID string, kind model.EntryKind) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE match_id = $1 AND kind = $2
	`

	var sum int64
	if err := r.db.QueryRow(ctx, query, matchID, kind).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return sum, nil
}

// CountByUserAndKind counts a user's entries of one kind.
func (r *LedgerRepository) CountByUserAndKind(ctx context.Context, userID string, kind model.EntryKind) (int, error) {
	const query = `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND kind = $2`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, kind).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// GetTopBalances ranks users by their derived balance.
func (r *LedgerRepository) GetTopBalances(ctx context.Context, limit int) ([]*model.BalanceRank, error) {
	const query = `
		SELECT u.id, u.name, COALESCE(SUM(t.amount), 0) AS balance
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
		GROUP BY u.id, u.name
		ORDER BY balance DESC, u.id
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top balances: %w", err)
	}
	defer rows.Close()

	var ranks []*model.BalanceRank
	for rows.Next() {
		var rank model.BalanceRank
		if err := rows.Scan(&rank.UserID, &rank.Name, &rank.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance rank: %w", err)
		}
		ranks = append(ranks, &rank)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance ranks: %w", err)
	}
	return ranks, nil
}

// NetFilter selects users by the sign of their daily net result.
type NetFilter int

const (
	NetAll NetFilter = iota
	NetWinners
	NetLosers
)

// GetDailyNet returns users' net betting result for the calendar day
// containing date, in date's location. Winners are ordered by largest profit,
// losers by largest loss.
func (r *LedgerRepository) GetDailyNet(ctx context.Context, date time.Time, filter NetFilter, limit int) ([]*model.DailyRank, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	const query = `
		SELECT t.user_id, u.name, COALESCE(SUM(t.amount), 0) AS net_profit
		FROM transactions t
		JOIN users u ON t.user_id = u.id
		WHERE t.kind = ANY($1)
		  AND t.created_at >= $2
		  AND t.created_at < $3
		GROUP BY t.user_id, u.name
		HAVING $4 = 0
		    OR ($4 = 1 AND SUM(t.amount) > 0)
		    OR ($4 = 2 AND SUM(t.amount) < 0)
		ORDER BY CASE WHEN $4 = 2 THEN SUM(t.amount) ELSE -SUM(t.amount) END, t.user_id
		LIMIT $5
	`

	rows, err := r.db.Query(ctx, query, model.BettingEntryKinds(), startOfDay, endOfDay, int(filter), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*model.DailyRank
	for rows.Next() {
		var rank model.DailyRank
		if err := rows.Scan(&rank.UserID, &rank.Name, &rank.NetProfit); err != nil {
			return nil, fmt.Errorf("failed to scan daily rank: %w", err)
		}
		stats = append(stats, &rank)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}
	return stats, nil
}
