package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/betting"
	"worldcup-betting/internal/events"
	"worldcup-betting/internal/metrics"
	"worldcup-betting/internal/pkg/lock"
	"worldcup-betting/internal/repository"
)

// SettlementOutcome reports what a settle call did. Settled is false for
// no-op calls and Reason says why.
type SettlementOutcome struct {
	MatchID    string             `json:"matchId"`
	Settled    bool               `json:"settled"`
	Reason     string             `json:"reason,omitempty"`
	Resolution betting.Resolution `json:"resolution,omitempty"`
	WinnerTeam string             `json:"winnerTeam,omitempty"`
	BetCount   int                `json:"betCount"`
	Winners    int                `json:"winners"`
	Pool       int64              `json:"pool"`
	Share      int64              `json:"share"`
	Remainder  int64              `json:"remainder"`
	Entries    int                `json:"entries"`
	SettledAt  *time.Time         `json:"settledAt,omitempty"`
}

// SettlementService settles matches exactly once.
type SettlementService struct {
	store     Store
	locks     *lock.KeyLock
	publisher events.Publisher
	rules     Rules
	now       func() time.Time
}

// NewSettlementService creates a new SettlementService instance.
// A nil publisher disables settlement events.
func NewSettlementService(store Store, locks *lock.KeyLock, publisher events.Publisher, rules Rules) *SettlementService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &SettlementService{
		store:     store,
		locks:     locks,
		publisher: publisher,
		rules:     rules,
		now:       time.Now,
	}
}

// Settle converts the stored outcome of a terminal match into bet statuses
// and ledger entries. Every write for the match commits in one transaction
// together with settled_at, so the call is either fully applied or not at all.
// Calling it again for a settled match returns a no-op outcome.
func (s *SettlementService) Settle(ctx context.Context, matchID string) (*SettlementOutcome, error) {
	var (
		plan      betting.Plan
		settledAt time.Time
	)

	err := s.locks.WithLockContext(ctx, "settle/"+matchID, func() error {
		return s.store.WithTx(ctx, func(tx pgx.Tx) error {
			repos := repository.NewSet(tx)

			match, err := repos.Matches.GetForUpdate(ctx, matchID)
			if err != nil {
				return err
			}
			if match.Settled() {
				plan = betting.PlanSettlement(match, nil, s.rules.BetCost)
				return nil
			}

			bets, err := repos.Bets.ListByMatchForUpdate(ctx, matchID)
			if err != nil {
				return err
			}

			plan = betting.PlanSettlement(match, bets, s.rules.BetCost)
			if !plan.Settle {
				return nil
			}

			for _, tr := range plan.Transitions {
				if err := repos.Bets.SetStatus(ctx, tr.BetID, tr.Status); err != nil {
					return fmt.Errorf("bet %s: %w", tr.BetID, err)
				}
			}
			for _, c := range plan.Credits {
				if _, err := repos.Ledger.Append(ctx, c.UserID, &matchID, c.Amount, c.Kind); err != nil {
					return err
				}
			}

			settledAt = s.now()
			return repos.Matches.MarkSettled(ctx, matchID, settledAt)
		})
	})
	if err != nil {
		err = classify(err)
		metrics.RecordSettlement("error", 0)
		log.Error().Err(err).Str("match_id", matchID).Msg("Settlement failed")
		return nil, err
	}

	outcome := outcomeFromPlan(plan)
	if !plan.Settle {
		metrics.RecordSettlement(plan.Reason, 0)
		log.Debug().Str("match_id", matchID).Str("reason", plan.Reason).Msg("Settlement skipped")
		return outcome, nil
	}

	outcome.SettledAt = &settledAt
	metrics.RecordSettlement(string(plan.Resolution), plan.Remainder)
	for _, c := range plan.Credits {
		metrics.RecordEntry(string(c.Kind), c.Amount)
	}

	log.Info().
		Str("match_id", matchID).
		Str("resolution", string(plan.Resolution)).
		Str("winner", plan.WinnerTeam).
		Int("bets", plan.BetCount).
		Int("winners", plan.Winners).
		Int64("share", plan.Share).
		Int64("remainder", plan.Remainder).
		Int("entries", len(plan.Credits)).
		Msg("Match settled")

	s.publish(ctx, outcome)
	return outcome, nil
}

// publish runs after commit. A failure is logged; the settlement stands.
func (s *SettlementService) publish(ctx context.Context, o *SettlementOutcome) {
	e := events.MatchSettled{
		MatchID:    o.MatchID,
		Resolution: string(o.Resolution),
		WinnerTeam: o.WinnerTeam,
		BetCount:   o.BetCount,
		Winners:    o.Winners,
		Pool:       o.Pool,
		Share:      o.Share,
		Remainder:  o.Remainder,
		Entries:    o.Entries,
		SettledAt:  *o.SettledAt,
	}
	if err := s.publisher.PublishMatchSettled(ctx, e); err != nil {
		log.Warn().Err(err).Str("match_id", o.MatchID).Msg("Failed to publish settlement event")
	}
}

func outcomeFromPlan(p betting.Plan) *SettlementOutcome {
	return &SettlementOutcome{
		MatchID:    p.MatchID,
		Settled:    p.Settle,
		Reason:     p.Reason,
		Resolution: p.Resolution,
		WinnerTeam: p.WinnerTeam,
		BetCount:   p.BetCount,
		Winners:    p.Winners,
		Pool:       p.Pool,
		Share:      p.Share,
		Remainder:  p.Remainder,
		Entries:    len(p.Credits),
	}
}
