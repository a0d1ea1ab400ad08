package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"worldcup-betting/internal/model"
)

// BetRepository handles bet data persistence.
type BetRepository struct {
	db DBTX
}

// NewBetRepository creates a new BetRepository instance.
func NewBetRepository(db DBTX) *BetRepository {
	return &BetRepository{db: db}
}

const betColumns = `id, user_id, match_id, team_code, status, created_at, updated_at`

func scanBet(row scanner) (*model.Bet, error) {
	var b model.Bet
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.MatchID,
		&b.TeamCode,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BetRepository) queryBets(ctx context.Context, query string, args ...any) ([]*model.Bet, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}
	defer rows.Close()

	var bets []*model.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}
	return bets, nil
}

// InsertIfAbsent creates an OPEN bet unless the user already has one for the
// match. created is false when the (user, match) row already existed; in that
// case the returned bet is nil.
func (r *BetRepository) InsertIfAbsent(ctx context.Context, id, userID, matchID, teamCode string) (*model.Bet, bool, error) {
	query := `
		INSERT INTO bets (id, user_id, match_id, team_code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'OPEN', NOW(), NOW())
		ON CONFLICT (user_id, match_id) DO NOTHING
		RETURNING ` + betColumns

	bet, err := scanBet(r.db.QueryRow(ctx, query, id, userID, matchID, teamCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert bet: %w", err)
	}
	return bet, true, nil
}

// UpdateOpenSelection changes the team of the user's OPEN bet on a match.
// Returns ErrBetNotOpen if there is no OPEN bet to change.
func (r *BetRepository) UpdateOpenSelection(ctx context.Context, userID, matchID, teamCode string) (*model.Bet, error) {
	query := `
		UPDATE bets
		SET team_code = $3, updated_at = NOW()
		WHERE user_id = $1 AND match_id = $2 AND status = 'OPEN'
		RETURNING ` + betColumns

	bet, err := scanBet(r.db.QueryRow(ctx, query, userID, matchID, teamCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBetNotOpen
		}
		return nil, fmt.Errorf("failed to update bet: %w", err)
	}
	return bet, nil
}

// Get retrieves the user's bet on a match.
func (r *BetRepository) Get(ctx context.Context, userID, matchID string) (*model.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE user_id = $1 AND match_id = $2`

	bet, err := scanBet(r.db.QueryRow(ctx, query, userID, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBetNotFound
		}
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	return bet, nil
}

// ListByMatchForUpdate locks and returns every bet on a match in placement order.
func (r *BetRepository) ListByMatchForUpdate(ctx context.Context, matchID string) ([]*model.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE match_id = $1
		ORDER BY created_at, id
		FOR UPDATE
	`
	return r.queryBets(ctx, query, matchID)
}

// ListByUser returns a user's bets, newest first.
func (r *BetRepository) ListByUser(ctx context.Context, userID string) ([]*model.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	return r.queryBets(ctx, query, userID)
}

// SetStatus moves an OPEN bet to a final status.
// Returns ErrBetNotOpen if the bet is missing or already final.
func (r *BetRepository) SetStatus(ctx context.Context, id string, status model.BetStatus) error {
	const query = `
		UPDATE bets
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'OPEN'
	`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set bet status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBetNotOpen
	}
	return nil
}
