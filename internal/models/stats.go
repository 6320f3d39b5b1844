package models

// Query types accepted by the analytics endpoint.
const (
	QueryTotalUsers            = "total_users"
	QueryPeriodicUserStats     = "periodic_user_stats"
	QueryTotalActivityStats    = "total_activity_stats"
	QueryPeriodicActivityStats = "periodic_activity_stats"
	QueryTotalSwapStats        = "total_swap_stats"
	QueryPeriodicSwapStats     = "periodic_swap_stats"
	QueryTotalLendingStats     = "total_lending_stats"
	QueryPeriodicLendingStats  = "periodic_lending_stats"
	QueryTotalEarnStats        = "total_earn_stats"
	QueryPeriodicEarnStats     = "periodic_earn_stats"
	QueryLeaderboard           = "leaderboard"
	QueryUserLeaderboardEntry  = "user_leaderboard_entry"
)

// Leaderboard scopes.
const (
	ScopeGlobal = "global"
	ScopeWeekly = "weekly"
)

// QueryRequest is the flat analytics request body. Which fields matter
// depends on the queryType: periodic queries take period_type plus either
// period_start_date (one bucket) or limit (time series); leaderboard takes
// scope and limit; user_leaderboard_entry takes user_address.
type QueryRequest struct {
	QueryType       string `json:"queryType"`
	PeriodType      string `json:"period_type,omitempty"`
	PeriodStartDate string `json:"period_start_date,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Scope           string `json:"scope,omitempty"`
	UserAddress     string `json:"user_address,omitempty"`
}

type TotalUsersStats struct {
	TotalUsers int64 `json:"total_users"`
}

type TotalActivityStats struct {
	TotalTransactions int64 `json:"total_transactions"`
	SwapCount         int64 `json:"swap_count"`
	LendingCount      int64 `json:"lending_count"`
	EarnCount         int64 `json:"earn_count"`
	DappEntrances     int64 `json:"dapp_entrances"`
	TotalUsers        int64 `json:"total_users"`
}

type UserPeriodStats struct {
	PeriodStart string `json:"period_start"`
	NewUsers    int64  `json:"new_users"`
	ActiveUsers int64  `json:"active_users"`
}

type ActivityPeriodStats struct {
	PeriodStart               string  `json:"period_start"`
	TotalTransactions         int64   `json:"total_transactions"`
	SwapCount                 int64   `json:"swap_count"`
	LendingCount              int64   `json:"lending_count"`
	EarnCount                 int64   `json:"earn_count"`
	DappEntrances             int64   `json:"dapp_entrances"`
	ActiveUsers               int64   `json:"active_users"`
	TransactionsPerActiveUser float64 `json:"transactions_per_active_user"`
}

// SwapStats covers both the all-time and single-period swap breakdown;
// PeriodStart is empty on the all-time shape.
type SwapStats struct {
	PeriodStart     string           `json:"period_start,omitempty"`
	TotalSwapCount  int64            `json:"total_swap_count"`
	SwapRoutes      map[string]int64 `json:"swap_routes"`
	CrossChainCount int64            `json:"cross_chain_count"`
	SameChainCount  int64            `json:"same_chain_count"`
}

type LendingMarketCount struct {
	Chain  string `json:"chain"`
	Market string `json:"market"`
	Count  int64  `json:"count"`
}

type LendingStats struct {
	PeriodStart       string               `json:"period_start,omitempty"`
	TotalLendingCount int64                `json:"total_lending_count"`
	Breakdown         []LendingMarketCount `json:"breakdown"`
}

type EarnStats struct {
	PeriodStart     string           `json:"period_start,omitempty"`
	TotalEarnCount  int64            `json:"total_earn_count"`
	ByChain         map[string]int64 `json:"by_chain"`
	ByProtocol      map[string]int64 `json:"by_protocol"`
	ByChainProtocol map[string]int64 `json:"by_chain_protocol"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserAddress string `json:"user_address"`
	XP          int64  `json:"xp"`
}

type Leaderboard struct {
	Scope string             `json:"scope"`
	Week  string             `json:"week,omitempty"`
	Items []LeaderboardEntry `json:"items"`
}

type UserLeaderboardEntry struct {
	UserAddress   string `json:"user_address"`
	GlobalTotalXP int64  `json:"global_total_xp"`
	WeeklyXP      int64  `json:"weekly_xp"`
}
