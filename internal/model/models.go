// Package model defines the data models for the world cup betting ledger.
package model

import "time"

// User represents a player account. Balance is never stored on the user;
// it is always derived from the ledger.
type User struct {
	ID              string    `db:"id" json:"id"`
	ProviderSubject string    `db:"provider_subject" json:"-"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// LedgerEntry is an immutable signed-amount record in the transactions table.
type LedgerEntry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	MatchID   *string   `db:"match_id" json:"matchId,omitempty"`
	Amount    int64     `db:"amount" json:"amount"`
	Kind      EntryKind `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// EntryKind categorizes ledger entries.
type EntryKind string

// Ledger entry kinds.
const (
	EntryWelcomeBonus EntryKind = "welcome_bonus" // Credited once on account creation
	EntryBet          EntryKind = "bet_entry"     // Stake debited on bet placement
	EntryPayout       EntryKind = "payout"        // Winner share of the pool
	EntryRefund       EntryKind = "refund"        // Stake returned on NO_RESULT
)

// MatchStatus is the externally supplied state of a match.
type MatchStatus string

// Match statuses reported by the feed.
const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchLive      MatchStatus = "LIVE"
	MatchCompleted MatchStatus = "COMPLETED"
	MatchNoResult  MatchStatus = "NO_RESULT"
)

// IsTerminal reports whether no further outcome-relevant change is expected.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchCompleted || s == MatchNoResult
}

// Valid reports whether s is one of the known statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchLive, MatchCompleted, MatchNoResult:
		return true
	default:
		return false
	}
}

// Match is a fixture between two teams.
// SettledAt non-nil means settlement already ran and must never run again.
type Match struct {
	ID         string      `db:"id" json:"id"`
	TeamA      string      `db:"team_a" json:"teamA"`
	TeamB      string      `db:"team_b" json:"teamB"`
	StartTime  time.Time   `db:"start_time" json:"startTime"`
	Status     MatchStatus `db:"status" json:"status"`
	WinnerTeam *string     `db:"winner_team" json:"winnerTeam"`
	SettledAt  *time.Time  `db:"settled_at" json:"settledAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// HasTeam reports whether code is one of the two teams playing.
func (m *Match) HasTeam(code string) bool {
	return code != "" && (code == m.TeamA || code == m.TeamB)
}

// Settled reports whether the match has been settled.
func (m *Match) Settled() bool {
	return m.SettledAt != nil
}

// MatchPatch is a match record as supplied by the feed.
type MatchPatch struct {
	ID         string      `json:"id"`
	TeamA      string      `json:"teamA"`
	TeamB      string      `json:"teamB"`
	StartTime  time.Time   `json:"startTime"`
	Status     MatchStatus `json:"status"`
	WinnerTeam *string     `json:"winnerTeam"`
}

// BetStatus is the lifecycle state of a bet.
type BetStatus string

// Bet statuses. Only settlement moves a bet out of OPEN.
const (
	BetOpen     BetStatus = "OPEN"
	BetWon      BetStatus = "WON"
	BetLost     BetStatus = "LOST"
	BetRefunded BetStatus = "REFUNDED"
)

// Bet is a user's pick for a match. There is at most one bet per (user, match).
type Bet struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	MatchID   string    `db:"match_id" json:"matchId"`
	TeamCode  string    `db:"team_code" json:"teamCode"`
	Status    BetStatus `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Session binds a browser cookie to a user until ExpiresAt.
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// BalanceRank is a leaderboard row.
type BalanceRank struct {
	UserID  string `db:"user_id" json:"userId"`
	Name    string `db:"name" json:"name"`
	Balance int64  `db:"balance" json:"balance"`
}

// DailyRank is a user's net ledger movement for one calendar day.
type DailyRank struct {
	UserID    string `db:"user_id" json:"userId"`
	Name      string `db:"name" json:"name"`
	NetProfit int64  `db:"net_profit" json:"netProfit"`
}

// Default amounts in the smallest currency unit.
const (
	DefaultBetCost      int64 = 100
	DefaultWelcomeBonus int64 = 100
)

// BettingEntryKinds returns the kinds that count towards daily rankings.
// Welcome bonuses are excluded.
func BettingEntryKinds() []string {
	return []string{string(EntryBet), string(EntryPayout), string(EntryRefund)}
}
