package betting

// Pool returns the total stake collected for a match.
func Pool(betCount int, betCost int64) int64 {
	return int64(betCount) * betCost
}

// WinnerShare returns the amount credited to each winning bet.
// The pool is divided with floor division; any remainder stays with the house
// and is never credited to anyone. With no winners the share is zero and the
// whole pool is retained.
func WinnerShare(betCount int, betCost int64, winnerCount int) int64 {
	if winnerCount <= 0 {
		return 0
	}
	return Pool(betCount, betCost) / int64(winnerCount)
}

// Remainder returns the part of the pool that floor division leaves undistributed.
func Remainder(betCount int, betCost int64, winnerCount int) int64 {
	if winnerCount <= 0 {
		return Pool(betCount, betCost)
	}
	return Pool(betCount, betCost) - WinnerShare(betCount, betCost, winnerCount)*int64(winnerCount)
}
