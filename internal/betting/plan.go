package betting

import "worldcup-betting/internal/model"

// Reasons reported when a settlement attempt does nothing.
const (
	ReasonAlreadySettled = "already settled"
	ReasonNotReady       = "not ready"
)

// Resolution is the path a settlement takes.
type Resolution string

const (
	ResolutionRefund Resolution = "refund"
	ResolutionPayout Resolution = "payout"
)

// Transition moves one OPEN bet to its final status.
type Transition struct {
	BetID  string
	UserID string
	Status model.BetStatus
}

// Credit is a ledger entry the settlement must append.
type Credit struct {
	UserID string
	BetID  string
	Amount int64
	Kind   model.EntryKind
}

// Plan is everything a settlement writes for one match. When Settle is
// false the plan is a no-op and Reason explains why.
type Plan struct {
	MatchID     string
	Settle      bool
	Reason      string
	Resolution  Resolution
	WinnerTeam  string
	BetCount    int
	Winners     int
	Pool        int64
	Share       int64
	Remainder   int64
	Transitions []Transition
	Credits     []Credit
}

// TotalCredited sums the amounts of all credits in the plan.
func (p *Plan) TotalCredited() int64 {
	var total int64
	for _, c := range p.Credits {
		total += c.Amount
	}
	return total
}

// PlanSettlement decides what settling match requires given every bet placed on it.
//
//	settled                        -> no-op, "already settled"
//	NO_RESULT                      -> refund every stake, all bets REFUNDED
//	COMPLETED with a winner        -> split pool among winners, others LOST
//	SCHEDULED, LIVE, no winner yet -> no-op, "not ready"
func PlanSettlement(match *model.Match, bets []*model.Bet, betCost int64) Plan {
	plan := Plan{MatchID: match.ID, BetCount: len(bets)}

	if match.Settled() {
		plan.Reason = ReasonAlreadySettled
		return plan
	}

	switch {
	case match.Status == model.MatchNoResult:
		planRefund(&plan, bets, betCost)
	case match.Status == model.MatchCompleted && match.WinnerTeam != nil && *match.WinnerTeam != "":
		planPayout(&plan, bets, betCost, *match.WinnerTeam)
	default:
		plan.Reason = ReasonNotReady
	}
	return plan
}

func planRefund(plan *Plan, bets []*model.Bet, betCost int64) {
	plan.Settle = true
	plan.Resolution = ResolutionRefund
	plan.Pool = Pool(len(bets), betCost)
	plan.Transitions = make([]Transition, 0, len(bets))
	plan.Credits = make([]Credit, 0, len(bets))

	for _, bet := range bets {
		plan.Transitions = append(plan.Transitions, Transition{BetID: bet.ID, UserID: bet.UserID, Status: model.BetRefunded})
		plan.Credits = append(plan.Credits, Credit{UserID: bet.UserID, BetID: bet.ID, Amount: betCost, Kind: model.EntryRefund})
	}
}

func planPayout(plan *Plan, bets []*model.Bet, betCost int64, winner string) {
	plan.Settle = true
	plan.Resolution = ResolutionPayout
	plan.WinnerTeam = winner

	for _, bet := range bets {
		if bet.TeamCode == winner {
			plan.Winners++
		}
	}

	plan.Pool = Pool(len(bets), betCost)
	plan.Share = WinnerShare(len(bets), betCost, plan.Winners)
	plan.Remainder = Remainder(len(bets), betCost, plan.Winners)
	plan.Transitions = make([]Transition, 0, len(bets))
	plan.Credits = make([]Credit, 0, plan.Winners)

	for _, bet := range bets {
		if bet.TeamCode != winner {
			plan.Transitions = append(plan.Transitions, Transition{BetID: bet.ID, UserID: bet.UserID, Status: model.BetLost})
			continue
		}
		plan.Transitions = append(plan.Transitions, Transition{BetID: bet.ID, UserID: bet.UserID, Status: model.BetWon})
		if plan.Share > 0 {
			plan.Credits = append(plan.Credits, Credit{UserID: bet.UserID, BetID: bet.ID, Amount: plan.Share, Kind: model.EntryPayout})
		}
	}
}
