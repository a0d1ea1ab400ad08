package service

import (
	"context"
	"time"

	"worldcup-betting/internal/betting"
	"worldcup-betting/internal/model"
	"worldcup-betting/internal/repository"
)

// UserView is the signed-in user with the derived balance.
type UserView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Balance int64  `json:"balance"`
}

// RulesView advertises the betting rules to clients.
type RulesView struct {
	BetCost      int64  `json:"betCost"`
	WelcomeBonus int64  `json:"welcomeBonus"`
	LockAt       string `json:"lockAt"`
	Timezone     string `json:"timezone"`
}

// Bootstrap is the initial client payload.
type Bootstrap struct {
	Auth           bool           `json:"auth"`
	GoogleClientID string         `json:"googleClientId"`
	User           *UserView      `json:"user"`
	Rules          RulesView      `json:"rules"`
	Matches        []*model.Match `json:"matches"`
	Bets           []*model.Bet   `json:"bets"`
}

// BootstrapService builds the bootstrap payload.
type BootstrapService struct {
	store          Store
	rules          Rules
	timezone       *time.Location
	googleClientID string
}

// NewBootstrapService creates a new BootstrapService instance.
func NewBootstrapService(store Store, rules Rules, timezone *time.Location, googleClientID string) *BootstrapService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &BootstrapService{store: store, rules: rules, timezone: timezone, googleClientID: googleClientID}
}

// Bootstrap returns every match, and for a signed-in user their bets and
// balance. user may be nil.
func (s *BootstrapService) Bootstrap(ctx context.Context, user *model.User) (*Bootstrap, error) {
	repos := repository.NewSet(s.store)

	matches, err := repos.Matches.List(ctx)
	if err != nil {
		return nil, classify(err)
	}

	out := &Bootstrap{
		GoogleClientID: s.googleClientID,
		Rules: RulesView{
			BetCost:      s.rules.BetCost,
			WelcomeBonus: s.rules.WelcomeBonus,
			LockAt:       betting.LockAt,
			Timezone:     s.timezone.String(),
		},
		Matches: nonNil(matches),
		Bets:    []*model.Bet{},
	}
	if user == nil {
		return out, nil
	}

	bets, err := repos.Bets.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, classify(err)
	}
	balance, err := repos.Ledger.Balance(ctx, user.ID)
	if err != nil {
		return nil, classify(err)
	}

	out.Auth = true
	out.User = &UserView{ID: user.ID, Name: user.Name, Email: user.Email, Balance: balance}
	out.Bets = nonNil(bets)
	return out, nil
}
