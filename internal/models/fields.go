package models

// Attribute names of the stored aggregate rows. The aggregator writes them
// and the analytics layer reads them; keeping the vocabulary in one place
// stops the two sides drifting apart.
const (
	// UserStats (USER#{address} / STATS)
	FieldTotalSwapCount    = "total_swap_count"
	FieldTotalLendingCount = "total_lending_count"
	FieldTotalEarnCount    = "total_earn_count"
	FieldTotalXP           = "total_xp"
	FieldFirstActive       = "first_active_timestamp"
	FieldLastActive        = "last_active_timestamp"

	// PeriodicGeneralStats (STAT#{type}#{start} / GENERAL)
	FieldSwapCount     = "swap_count"
	FieldLendingCount  = "lending_count"
	FieldEarnCount     = "earn_count"
	FieldDappEntrances = "dapp_entrances"
	FieldActiveUsers   = "active_users"
	FieldNewUsers      = "new_users"

	// PeriodicCategoryStats (STAT#{type}#{start} / SWAP#... LENDING#... EARN#...)
	FieldCount = "count"

	// LeaderboardEntry (LEADERBOARD#{week} / USER#{address})
	FieldXP          = "xp"
	FieldXPTimestamp = "xp_timestamp"
)
