package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/feed"
	"worldcup-betting/internal/metrics"
	"worldcup-betting/internal/model"
	"worldcup-betting/internal/repository"
)

// Settler settles one match. *SettlementService implements it.
type Settler interface {
	Settle(ctx context.Context, matchID string) (*SettlementOutcome, error)
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	Received int               `json:"received"`
	Inserted int               `json:"inserted"`
	Updated  int               `json:"updated"`
	Skipped  int               `json:"skipped"`
	Settled  []string          `json:"settled"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// SyncService merges feed data into the stored matches and settles every
// match that is terminal and not yet settled.
type SyncService struct {
	store    Store
	provider feed.Provider
	settler  Settler
}

// NewSyncService creates a new SyncService instance.
func NewSyncService(store Store, provider feed.Provider, settler Settler) *SyncService {
	return &SyncService{store: store, provider: provider, settler: settler}
}

// Run fetches the feed and applies it. The fetch completes before any
// transaction starts.
func (s *SyncService) Run(ctx context.Context) (*SyncReport, error) {
	start := time.Now()

	patches, err := s.provider.Fetch(ctx)
	if err != nil {
		metrics.RecordSync(time.Since(start), false)
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	report, err := s.ApplyFeedUpdate(ctx, patches)
	metrics.RecordSync(time.Since(start), err == nil && len(report.Failed) == 0)
	return report, err
}

// ApplyFeedUpdate upserts the patches in one transaction, then scans for
// terminal unsettled matches and settles each. A failed settlement is
// recorded in the report and retried on the next run; it does not stop the
// others. Re-running with the same input changes nothing.
func (s *SyncService) ApplyFeedUpdate(ctx context.Context, patches []model.MatchPatch) (*SyncReport, error) {
	report := &SyncReport{Received: len(patches), Settled: []string{}}

	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		matches := repository.NewMatchRepository(tx)
		for i := range patches {
			p := &patches[i]
			if err := validatePatch(p); err != nil {
				report.Skipped++
				log.Warn().Err(err).Str("match_id", p.ID).Msg("Skipping invalid feed match")
				continue
			}
			inserted, err := matches.Upsert(ctx, p)
			if err != nil {
				return err
			}
			if inserted {
				report.Inserted++
			} else {
				report.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return report, classify(err)
	}

	pending, err := repository.NewMatchRepository(s.store).ListSettleable(ctx)
	if err != nil {
		return report, classify(err)
	}

	for _, m := range pending {
		outcome, err := s.settler.Settle(ctx, m.ID)
		if err != nil {
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[m.ID] = err.Error()
			continue
		}
		if outcome.Settled {
			report.Settled = append(report.Settled, m.ID)
		}
	}

	log.Info().
		Int("received", report.Received).
		Int("inserted", report.Inserted).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Int("settled", len(report.Settled)).
		Int("failed", len(report.Failed)).
		Msg("Feed sync applied")

	return report, nil
}

func validatePatch(p *model.MatchPatch) error {
	p.ID = strings.TrimSpace(p.ID)
	p.TeamA = strings.TrimSpace(p.TeamA)
	p.TeamB = strings.TrimSpace(p.TeamB)

	switch {
	case p.ID == "":
		return errors.New("missing id")
	case p.TeamA == "" || p.TeamB == "":
		return errors.New("missing team")
	case p.TeamA == p.TeamB:
		return fmt.Errorf("team %s plays itself", p.TeamA)
	case !p.Status.Valid():
		return fmt.Errorf("unknown status %q", p.Status)
	case p.StartTime.IsZero():
		return errors.New("missing start time")
	}
	if p.WinnerTeam != nil && strings.TrimSpace(*p.WinnerTeam) == "" {
		p.WinnerTeam = nil
	}
	return nil
}
