// Package betting implements the pure pari-mutuel rules: when a match is
// locked, how a pool is split, and what a settlement must write.
// Nothing in this package performs I/O.
package betting

import "worldcup-betting/internal/model"

// LockAt is the rule advertised to clients for when bets close.
const LockAt = "MATCH_STATUS_LIVE"

// IsLocked reports whether bets on the match may no longer be created or changed.
// Callers must evaluate it against the match row read inside the same
// transaction as the bet write.
func IsLocked(match *model.Match) bool {
	switch match.Status {
	case model.MatchLive, model.MatchCompleted, model.MatchNoResult:
		return true
	default:
		return false
	}
}
