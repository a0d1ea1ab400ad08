package betting

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"worldcup-betting/internal/model"
)

func strPtr(s string) *string { return &s }

func newMatch(status model.MatchStatus, winner *string) *model.Match {
	return &model.Match{
		ID:         "m1",
		TeamA:      "IND",
		TeamB:      "AUS",
		StartTime:  time.Date(2026, 6, 11, 14, 0, 0, 0, time.UTC),
		Status:     status,
		WinnerTeam: winner,
	}
}

func newBets(teams ...string) []*model.Bet {
	bets := make([]*model.Bet, 0, len(teams))
	for i, team := range teams {
		bets = append(bets, &model.Bet{
			ID:       fmt.Sprintf("b%d", i),
			UserID:   fmt.Sprintf("u%d", i),
			MatchID:  "m1",
			TeamCode: team,
			Status:   model.BetOpen,
		})
	}
	return bets
}

func TestIsLocked(t *testing.T) {
	tests := []struct {
		status   model.MatchStatus
		expected bool
	}{
		{model.MatchScheduled, false},
		{model.MatchLive, true},
		{model.MatchCompleted, true},
		{model.MatchNoResult, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocked(newMatch(tt.status, nil)))
		})
	}
}

func TestWinnerShare(t *testing.T) {
	tests := []struct {
		name      string
		bets      int
		winners   int
		share     int64
		remainder int64
	}{
		{"single winner takes pool", 2, 1, 200, 0},
		{"even split", 3, 2, 150, 0},
		{"floor division keeps remainder", 5, 3, 166, 2},
		{"uneven split", 10, 3, 333, 1},
		{"no winners", 4, 0, 0, 400},
		{"no bets", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.share, WinnerShare(tt.bets, 100, tt.winners))
			assert.Equal(t, tt.remainder, Remainder(tt.bets, 100, tt.winners))
		})
	}
}

func TestPlanSettlement_AlreadySettled(t *testing.T) {
	match := newMatch(model.MatchCompleted, strPtr("IND"))
	settledAt := time.Now()
	match.SettledAt = &settledAt

	plan := PlanSettlement(match, newBets("IND", "AUS"), 100)

	assert.False(t, plan.Settle)
	assert.Equal(t, ReasonAlreadySettled, plan.Reason)
	assert.Empty(t, plan.Credits)
	assert.Empty(t, plan.Transitions)
}

func TestPlanSettlement_NotReady(t *testing.T) {
	tests := []struct {
		name  string
		match *model.Match
	}{
		{"scheduled", newMatch(model.MatchScheduled, nil)},
		{"live", newMatch(model.MatchLive, nil)},
		{"completed without winner", newMatch(model.MatchCompleted, nil)},
		{"completed with empty winner", newMatch(model.MatchCompleted, strPtr(""))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanSettlement(tt.match, newBets("IND"), 100)
			assert.False(t, plan.Settle)
			assert.Equal(t, ReasonNotReady, plan.Reason)
			assert.Empty(t, plan.Credits)
		})
	}
}

func TestPlanSettlement_TwoUserScenario(t *testing.T) {
	plan := PlanSettlement(newMatch(model.MatchCompleted, strPtr("IND")), newBets("IND", "AUS"), 100)

	require.True(t, plan.Settle)
	assert.Equal(t, ResolutionPayout, plan.Resolution)
	assert.Equal(t, int64(200), plan.Pool)
	assert.Equal(t, int64(200), plan.Share)
	assert.Equal(t, 1, plan.Winners)

	require.Len(t, plan.Credits, 1)
	assert.Equal(t, Credit{UserID: "u0", BetID: "b0", Amount: 200, Kind: model.EntryPayout}, plan.Credits[0])

	require.Len(t, plan.Transitions, 2)
	assert.Equal(t, model.BetWon, plan.Transitions[0].Status)
	assert.Equal(t, model.BetLost, plan.Transitions[1].Status)
}

func TestPlanSettlement_NoResultRefunds(t *testing.T) {
	plan := PlanSettlement(newMatch(model.MatchNoResult, nil), newBets("IND", "AUS"), 100)

	require.True(t, plan.Settle)
	assert.Equal(t, ResolutionRefund, plan.Resolution)
	require.Len(t, plan.Credits, 2)
	for _, c := range plan.Credits {
		assert.Equal(t, int64(100), c.Amount)
		assert.Equal(t, model.EntryRefund, c.Kind)
	}
	for _, tr := range plan.Transitions {
		assert.Equal(t, model.BetRefunded, tr.Status)
	}
}

func TestPlanSettlement_WinnerNotPlaying(t *testing.T) {
	plan := PlanSettlement(newMatch(model.MatchCompleted, strPtr("BRA")), newBets("IND", "AUS"), 100)

	require.True(t, plan.Settle)
	assert.Zero(t, plan.Winners)
	assert.Empty(t, plan.Credits)
	assert.Equal(t, int64(200), plan.Remainder)
}

func drawBets(t *rapid.T) []*model.Bet {
	n := rapid.IntRange(0, 40).Draw(t, "betCount")
	teams := make([]string, n)
	for i := range teams {
		teams[i] = rapid.SampledFrom([]string{"IND", "AUS"}).Draw(t, fmt.Sprintf("team%d", i))
	}
	return newBets(teams...)
}

// TestRefundProperty: for NO_RESULT every bet is REFUNDED and refunds sum to count * cost.
func TestRefundProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bets := drawBets(t)
		betCost := rapid.Int64Range(1, 10_000).Draw(t, "betCost")

		plan := PlanSettlement(newMatch(model.MatchNoResult, nil), bets, betCost)

		if !plan.Settle {
			t.Fatalf("NO_RESULT must settle")
		}
		if got, want := plan.TotalCredited(), int64(len(bets))*betCost; got != want {
			t.Fatalf("refund total = %d, want %d", got, want)
		}
		if len(plan.Transitions) != len(bets) {
			t.Fatalf("transitions = %d, want %d", len(plan.Transitions), len(bets))
		}
		for _, tr := range plan.Transitions {
			if tr.Status != model.BetRefunded {
				t.Fatalf("bet %s status = %s, want REFUNDED", tr.BetID, tr.Status)
			}
		}
	})
}

// TestPayoutProperty: payouts sum to floor(pool/winners)*winners, never exceed the pool,
// winners are WON and everyone else LOST.
func TestPayoutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bets := drawBets(t)
		betCost := rapid.Int64Range(1, 10_000).Draw(t, "betCost")
		winner := rapid.SampledFrom([]string{"IND", "AUS"}).Draw(t, "winner")

		plan := PlanSettlement(newMatch(model.MatchCompleted, &winner), bets, betCost)

		if !plan.Settle {
			t.Fatalf("COMPLETED with winner must settle")
		}

		winners := 0
		for _, b := range bets {
			if b.TeamCode == winner {
				winners++
			}
		}
		pool := int64(len(bets)) * betCost

		var want int64
		if winners > 0 {
			want = (pool / int64(winners)) * int64(winners)
		}
		if got := plan.TotalCredited(); got != want || got > pool {
			t.Fatalf("payout total = %d, want %d (pool %d)", got, want, pool)
		}
		if winners == 0 && len(plan.Credits) != 0 {
			t.Fatalf("no winners must produce no credits")
		}
		if plan.TotalCredited()+plan.Remainder != pool {
			t.Fatalf("credits %d + remainder %d != pool %d", plan.TotalCredited(), plan.Remainder, pool)
		}

		byBet := make(map[string]model.BetStatus, len(plan.Transitions))
		for _, tr := range plan.Transitions {
			byBet[tr.BetID] = tr.Status
		}
		for _, b := range bets {
			expected := model.BetLost
			if b.TeamCode == winner {
				expected = model.BetWon
			}
			if byBet[b.ID] != expected {
				t.Fatalf("bet %s status = %s, want %s", b.ID, byBet[b.ID], expected)
			}
		}
	})
}

// TestSettledPlanIsNoopProperty: any settled match yields an empty plan regardless of status.
func TestSettledPlanIsNoopProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		status := rapid.SampledFrom([]model.MatchStatus{
			model.MatchScheduled, model.MatchLive, model.MatchCompleted, model.MatchNoResult,
		}).Draw(t, "status")
		match := newMatch(status, strPtr("IND"))
		settledAt := time.Now()
		match.SettledAt = &settledAt

		plan := PlanSettlement(match, drawBets(t), 100)
		if plan.Settle || len(plan.Credits) != 0 || len(plan.Transitions) != 0 {
			t.Fatalf("settled match produced work: %+v", plan)
		}
	})
}
