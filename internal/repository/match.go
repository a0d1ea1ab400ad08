package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"worldcup-betting/internal/model"
)

// MatchRepository handles match data persistence.
type MatchRepository struct {
	db DBTX
}

// NewMatchRepository creates a new MatchRepository instance.
func NewMatchRepository(db DBTX) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchColumns = `id, team_a, team_b, start_time, status, winner_team, settled_at, updated_at`

func scanMatch(row scanner) (*model.Match, error) {
	var m model.Match
	err := row.Scan(
		&m.ID,
		&m.TeamA,
		&m.TeamB,
		&m.StartTime,
		&m.Status,
		&m.WinnerTeam,
		&m.SettledAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MatchRepository) queryMatches(ctx context.Context, query string, args ...any) ([]*model.Match, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

func (r *MatchRepository) getOne(ctx context.Context, query, id string) (*model.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// Upsert inserts the match or overwrites its feed-owned columns.
// settled_at is never written here, so a settled match stays settled
// whatever the feed reports later. inserted is true for a new row.
func (r *MatchRepository) Upsert(ctx context.Context, p *model.MatchPatch) (bool, error) {
	const query = `
		INSERT INTO matches (id, team_a, team_b, start_time, status, winner_team, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			team_a = EXCLUDED.team_a,
			team_b = EXCLUDED.team_b,
			start_time = EXCLUDED.start_time,
			status = EXCLUDED.status,
			winner_team = EXCLUDED.winner_team,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`

	var inserted bool
	err := r.db.QueryRow(ctx, query, p.ID, p.TeamA, p.TeamB, p.StartTime, p.Status, p.WinnerTeam).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert match %s: %w", p.ID, err)
	}
	return inserted, nil
}

// GetByID retrieves a match without locking it.
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*model.Match, error) {
	return r.getOne(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

// GetForUpdate reads the match and holds an exclusive row lock until the
// surrounding transaction ends. Must be called inside a transaction.
func (r *MatchRepository) GetForUpdate(ctx context.Context, id string) (*model.Match, error) {
	return r.getOne(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

// GetForShare reads the match under a shared row lock. Bet placements on the
// same match do not block each other, but settlement waits for them.
func (r *MatchRepository) GetForShare(ctx context.Context, id string) (*model.Match, error) {
	return r.getOne(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR SHARE`, id)
}

// List returns every match ordered by kickoff.
func (r *MatchRepository) List(ctx context.Context) ([]*model.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY start_time, id`
	return r.queryMatches(ctx, query)
}

// ListSettleable returns the unsettled matches that have reached a terminal status.
func (r *MatchRepository) ListSettleable(ctx context.Context) ([]*model.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE settled_at IS NULL
		  AND status IN ('COMPLETED', 'NO_RESULT')
		ORDER BY start_time, id
	`
	return r.queryMatches(ctx, query)
}

// MarkSettled stamps settled_at. Returns ErrAlreadySettled when another
// settlement got there first.
func (r *MatchRepository) MarkSettled(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE matches
		SET settled_at = $2, updated_at = NOW()
		WHERE id = $1 AND settled_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark match settled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadySettled
	}
	return nil
}
