package service

import (
	"context"
	"time"

	"worldcup-betting/internal/model"
	"worldcup-betting/internal/repository"
)

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

// RankingService handles leaderboard queries. All figures are summed from
// the ledger at query time.
type RankingService struct {
	ledger   *repository.LedgerRepository
	timezone *time.Location
	now      func() time.Time
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(store Store, timezone *time.Location) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &RankingService{
		ledger:   repository.NewLedgerRepository(store),
		timezone: timezone,
		now:      time.Now,
	}
}

// GetTopUsers retrieves the top users by balance.
func (s *RankingService) GetTopUsers(ctx context.Context, limit int) ([]*model.BalanceRank, error) {
	ranks, err := s.ledger.GetTopBalances(ctx, clampLimit(limit, defaultRankingLimit, maxRankingLimit))
	if err != nil {
		return nil, classify(err)
	}
	return ranks, nil
}

// GetDailyWinners retrieves today's users with the largest betting profit.
// "Today" is the calendar day in the configured timezone.
func (s *RankingService) GetDailyWinners(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.daily(ctx, s.today(), repository.NetWinners, limit)
}

// GetDailyLosers retrieves today's users with the largest betting loss.
func (s *RankingService) GetDailyLosers(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.daily(ctx, s.today(), repository.NetLosers, limit)
}

// GetDailyStatsForDate retrieves every user's betting result for date.
func (s *RankingService) GetDailyStatsForDate(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	return s.daily(ctx, date.In(s.timezone), repository.NetAll, limit)
}

func (s *RankingService) daily(ctx context.Context, date time.Time, filter repository.NetFilter, limit int) ([]*model.DailyRank, error) {
	ranks, err := s.ledger.GetDailyNet(ctx, date, filter, clampLimit(limit, defaultRankingLimit, maxRankingLimit))
	if err != nil {
		return nil, classify(err)
	}
	return ranks, nil
}

func (s *RankingService) today() time.Time {
	return s.now().In(s.timezone)
}

// Leaderboard is the combined leaderboard payload.
type Leaderboard struct {
	Top          []*model.BalanceRank `json:"top"`
	DailyWinners []*model.DailyRank   `json:"dailyWinners"`
	DailyLosers  []*model.DailyRank   `json:"dailyLosers"`
	Date         string               `json:"date"`
	Timezone     string               `json:"timezone"`
}

// GetLeaderboard assembles the overall and daily rankings.
func (s *RankingService) GetLeaderboard(ctx context.Context, limit int) (*Leaderboard, error) {
	top, err := s.GetTopUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	winners, err := s.GetDailyWinners(ctx, limit)
	if err != nil {
		return nil, err
	}
	losers, err := s.GetDailyLosers(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &Leaderboard{
		Top:          nonNil(top),
		DailyWinners: nonNil(winners),
		DailyLosers:  nonNil(losers),
		Date:         s.today().Format(time.DateOnly),
		Timezone:     s.timezone.String(),
	}, nil
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
