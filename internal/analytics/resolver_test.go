package analytics

import (
	"context"
	"testing"
	"time"

	"dapp-metrics/internal/keys"
	"dapp-metrics/internal/models"
	"dapp-metrics/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
	addrC = "0x3333333333333333333333333333333333333333"
)

// fixedNow anchors series and weekly-board lookups: Friday 2025-08-29,
// ISO week 2025-W35.
var fixedNow = time.Date(2025, 8, 29, 12, 0, 0, 0, time.UTC)

func newTestResolver() (*Resolver, *store.MemoryStore) {
	st := store.NewMemoryStore()
	r := New(st, logrus.New(), WithClock(func() time.Time { return fixedNow }))
	return r, st
}

func seed(t *testing.T, st *store.MemoryStore, muts ...store.Mutation) {
	t.Helper()
	require.NoError(t, st.Commit(context.Background(), muts))
}

func addField(pk, sk, field string, delta int64) store.Mutation {
	return store.Add{Key: store.Key{PK: pk, SK: sk}, Field: field, Delta: delta}
}

func TestTotalUsers(t *testing.T) {
	r, st := newTestResolver()
	allPK := keys.StatPK("all", "ALL")
	seed(t, st, addField(allPK, keys.GeneralSK, models.FieldNewUsers, 42))

	out, err := r.Resolve(context.Background(), models.QueryRequest{QueryType: models.QueryTotalUsers})
	require.NoError(t, err)
	assert.Equal(t, &models.TotalUsersStats{TotalUsers: 42}, out)
}

func TestTotalUsersEmptyStore(t *testing.T) {
	r, _ := newTestResolver()

	out, err := r.Resolve(context.Background(), models.QueryRequest{QueryType: models.QueryTotalUsers})
	require.NoError(t, err)
	assert.Equal(t, &models.TotalUsersStats{TotalUsers: 0}, out)
}

func TestTotalActivityStats(t *testing.T) {
	r, st := newTestResolver()
	allPK := keys.StatPK("all", "ALL")
	seed(t, st,
		addField(allPK, keys.GeneralSK, models.FieldSwapCount, 10),
		addField(allPK, keys.GeneralSK, models.FieldLendingCount, 5),
		addField(allPK, keys.GeneralSK, models.FieldEarnCount, 3),
		addField(allPK, keys.GeneralSK, models.FieldDappEntrances, 100),
		addField(allPK, keys.GeneralSK, models.FieldNewUsers, 7),
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{QueryType: models.QueryTotalActivityStats})
	require.NoError(t, err)
	assert.Equal(t, &models.TotalActivityStats{
		TotalTransactions: 18,
		SwapCount:         10,
		LendingCount:      5,
		EarnCount:         3,
		DappEntrances:     100,
		TotalUsers:        7,
	}, out)
}

func TestPeriodicActivityStatsSingleBucket(t *testing.T) {
	r, st := newTestResolver()
	pk := keys.StatPK("daily", "2025-08-28")
	seed(t, st,
		addField(pk, keys.GeneralSK, models.FieldSwapCount, 10),
		addField(pk, keys.GeneralSK, models.FieldLendingCount, 5),
		addField(pk, keys.GeneralSK, models.FieldActiveUsers, 5),
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType:       models.QueryPeriodicActivityStats,
		PeriodType:      "daily",
		PeriodStartDate: "2025-08-28",
	})
	require.NoError(t, err)

	stats, ok := out.(*models.ActivityPeriodStats)
	require.True(t, ok)
	assert.Equal(t, "2025-08-28", stats.PeriodStart)
	assert.Equal(t, int64(15), stats.TotalTransactions)
	assert.InDelta(t, 3.0, stats.TransactionsPerActiveUser, 1e-9)
}

func TestPeriodicActivityStatsZeroActiveUsers(t *testing.T) {
	r, st := newTestResolver()
	pk := keys.StatPK("daily", "2025-08-28")
	seed(t, st, addField(pk, keys.GeneralSK, models.FieldDappEntrances, 9))

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType:       models.QueryPeriodicActivityStats,
		PeriodType:      "daily",
		PeriodStartDate: "2025-08-28",
	})
	require.NoError(t, err)

	stats := out.(*models.ActivityPeriodStats)
	assert.Zero(t, stats.TransactionsPerActiveUser)
	assert.Equal(t, int64(9), stats.DappEntrances)
}

func TestPeriodicUserStatsSeries(t *testing.T) {
	r, st := newTestResolver()
	seed(t, st,
		addField(keys.StatPK("daily", "2025-08-29"), keys.GeneralSK, models.FieldNewUsers, 3),
		addField(keys.StatPK("daily", "2025-08-27"), keys.GeneralSK, models.FieldNewUsers, 1),
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType:  models.QueryPeriodicUserStats,
		PeriodType: "daily",
		Limit:      3,
	})
	require.NoError(t, err)

	series, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, series, 3)

	// Most recent first, gaps filled with zero rows.
	first := series[0].(*models.UserPeriodStats)
	assert.Equal(t, "2025-08-29", first.PeriodStart)
	assert.Equal(t, int64(3), first.NewUsers)

	second := series[1].(*models.UserPeriodStats)
	assert.Equal(t, "2025-08-28", second.PeriodStart)
	assert.Zero(t, second.NewUsers)

	third := series[2].(*models.UserPeriodStats)
	assert.Equal(t, "2025-08-27", third.PeriodStart)
	assert.Equal(t, int64(1), third.NewUsers)
}

func TestPeriodicSeriesDefaultLimit(t *testing.T) {
	r, _ := newTestResolver()

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType:  models.QueryPeriodicUserStats,
		PeriodType: "daily",
	})
	require.NoError(t, err)
	assert.Len(t, out.([]any), 7)
}

func TestPeriodicBadPeriodType(t *testing.T) {
	r, _ := newTestResolver()

	for _, pt := range []string{"", "hourly", "all"} {
		_, err := r.Resolve(context.Background(), models.QueryRequest{
			QueryType:  models.QueryPeriodicActivityStats,
			PeriodType: pt,
		})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, "period_type=%q", pt)
		assert.Contains(t, verr.Fields, "period_type")
	}
}

func TestTotalSwapStats(t *testing.T) {
	r, st := newTestResolver()
	allPK := keys.StatPK("all", "ALL")
	seed(t, st,
		addField(allPK, keys.GeneralSK, models.FieldSwapCount, 12),
		addField(allPK, keys.SwapRouteSK("ethereum", "polygon"), models.FieldCount, 7),
		addField(allPK, keys.SwapRouteSK("bsc", "bsc"), models.FieldCount, 5),
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{QueryType: models.QueryTotalSwapStats})
	require.NoError(t, err)

	stats := out.(*models.SwapStats)
	assert.Empty(t, stats.PeriodStart)
	assert.Equal(t, int64(12), stats.TotalSwapCount)
	assert.Equal(t, map[string]int64{"ethereum,polygon": 7, "bsc,bsc": 5}, stats.SwapRoutes)
	assert.Equal(t, int64(7), stats.CrossChainCount)
	assert.Equal(t, int64(5), stats.SameChainCount)
}

func TestPeriodicSwapStatsTotalFromRoutes(t *testing.T) {
	r, st := newTestResolver()
	pk := keys.StatPK("weekly", "2025-W35")
	seed(t, st,
		addField(pk, keys.SwapRouteSK("sui", "sui"), models.FieldCount, 2),
		addField(pk, keys.SwapRouteSK("base", "arbitrum"), models.FieldCount, 3),
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType:       models.QueryPeriodicSwapStats,
		PeriodType:      "weekly",
		PeriodStartDate: "2025-W35",
	})
	require.NoError(t, err)

	stats := out.(*models.SwapStats)
	assert.Equal(t, "2025-W35", stats.PeriodStart)
	assert.Equal(t, int64(5), stats.TotalSwapCount)
}

func TestSwapStatsSkipsUndecodableRows(t *testing.T) {
	r, st := newTestResolver()
	allPK := keys.StatPK("all", "ALL")
	seed(t, st,
		addField(allPK, keys.SwapRouteSK("ethereum", "polygon"), models.FieldCount, 4),
		// No comma separator: decoder must reject, resolver must move on.
		addField(allPK, "SWAP#broken", models.FieldCount, 99),
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{QueryType: models.QueryTotalSwapStats})
	require.NoError(t, err)

	stats := out.(*models.SwapStats)
	assert.Equal(t, map[string]int64{"ethereum,polygon": 4}, stats.SwapRoutes)
	assert.Equal(t, int64(4), stats.CrossChainCount)
}

func TestTotalLendingStats(t *testing.T) {
	r, st := newTestResolver()
	allPK := keys.StatPK("all", "ALL")
	seed(t, st,
		addField(allPK, keys.GeneralSK, models.FieldLendingCount, 9),
		addField(allPK, keys.LendingMarketSK("ethereum", "aave-v3"), models.FieldCount, 6),
		addField(allPK, keys.LendingMarketSK("base", "compound"), models.FieldCount, 3),
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{QueryType: models.QueryTotalLendingStats})
	require.NoError(t, err)

	stats := out.(*models.LendingStats)
	assert.Equal(t, int64(9), stats.TotalLendingCount)
	assert.ElementsMatch(t, []models.LendingMarketCount{
		{Chain: "ethereum", Market: "aave-v3", Count: 6},
		{Chain: "base", Market: "compound", Count: 3},
	}, stats.Breakdown)
}

func TestTotalEarnStatsBreakdowns(t *testing.T) {
	r, st := newTestResolver()
	allPK := keys.StatPK("all", "ALL")
	seed(t, st,
		addField(allPK, keys.GeneralSK, models.FieldEarnCount, 10),
		addField(allPK, keys.EarnVaultSK("base", "morpho"), models.FieldCount, 6),
		addField(allPK, keys.EarnVaultSK("base", "yearn"), models.FieldCount, 3),
		addField(allPK, keys.EarnVaultSK("ethereum", "morpho"), models.FieldCount, 1),
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{QueryType: models.QueryTotalEarnStats})
	require.NoError(t, err)

	stats := out.(*models.EarnStats)
	assert.Equal(t, int64(10), stats.TotalEarnCount)
	assert.Equal(t, map[string]int64{"base": 9, "ethereum": 1}, stats.ByChain)
	assert.Equal(t, map[string]int64{"morpho": 7, "yearn": 3}, stats.ByProtocol)
	assert.Equal(t, map[string]int64{
		"base#morpho":     6,
		"base#yearn":      3,
		"ethereum#morpho": 1,
	}, stats.ByChainProtocol)
}

func TestGlobalLeaderboard(t *testing.T) {
	r, st := newTestResolver()
	seed(t, st,
		store.AddScore{Index: keys.GlobalBoard, Member: addrA, Delta: 300},
		store.AddScore{Index: keys.GlobalBoard, Member: addrB, Delta: 500},
		store.AddScore{Index: keys.GlobalBoard, Member: addrC, Delta: 100},
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType: models.QueryLeaderboard,
		Scope:     models.ScopeGlobal,
	})
	require.NoError(t, err)

	board := out.(*models.Leaderboard)
	assert.Equal(t, models.ScopeGlobal, board.Scope)
	assert.Empty(t, board.Week)
	require.Len(t, board.Items, 3)
	assert.Equal(t, models.LeaderboardEntry{Rank: 1, UserAddress: addrB, XP: 500}, board.Items[0])
	assert.Equal(t, models.LeaderboardEntry{Rank: 2, UserAddress: addrA, XP: 300}, board.Items[1])
	assert.Equal(t, models.LeaderboardEntry{Rank: 3, UserAddress: addrC, XP: 100}, board.Items[2])
}

func TestLeaderboardLimitTruncates(t *testing.T) {
	r, st := newTestResolver()
	seed(t, st,
		store.AddScore{Index: keys.GlobalBoard, Member: addrA, Delta: 300},
		store.AddScore{Index: keys.GlobalBoard, Member: addrB, Delta: 500},
		store.AddScore{Index: keys.GlobalBoard, Member: addrC, Delta: 100},
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType: models.QueryLeaderboard,
		Scope:     models.ScopeGlobal,
		Limit:     2,
	})
	require.NoError(t, err)

	board := out.(*models.Leaderboard)
	require.Len(t, board.Items, 2)
	assert.Equal(t, addrB, board.Items[0].UserAddress)
}

func TestWeeklyLeaderboardUsesCurrentWeek(t *testing.T) {
	r, st := newTestResolver()
	seed(t, st,
		store.AddScore{Index: keys.WeeklyBoard("2025-W35"), Member: addrA, Delta: 150},
		store.AddScore{Index: keys.WeeklyBoard("2025-W34"), Member: addrB, Delta: 999},
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType: models.QueryLeaderboard,
		Scope:     models.ScopeWeekly,
	})
	require.NoError(t, err)

	board := out.(*models.Leaderboard)
	assert.Equal(t, "2025-W35", board.Week)
	require.Len(t, board.Items, 1)
	assert.Equal(t, addrA, board.Items[0].UserAddress)
}

func TestLeaderboardBadScope(t *testing.T) {
	r, _ := newTestResolver()

	_, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType: models.QueryLeaderboard,
		Scope:     "monthly",
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "scope")
}

func TestUserLeaderboardEntry(t *testing.T) {
	r, st := newTestResolver()
	seed(t, st,
		addField(keys.UserPK(addrA), keys.StatsSK, models.FieldTotalXP, 450),
		store.AddScore{Index: keys.WeeklyBoard("2025-W35"), Member: addrA, Delta: 150},
	)

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType:   models.QueryUserLeaderboardEntry,
		UserAddress: addrA,
	})
	require.NoError(t, err)
	assert.Equal(t, &models.UserLeaderboardEntry{
		UserAddress:   addrA,
		GlobalTotalXP: 450,
		WeeklyXP:      150,
	}, out)
}

func TestUserLeaderboardEntryUnknownUser(t *testing.T) {
	r, _ := newTestResolver()

	out, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType:   models.QueryUserLeaderboardEntry,
		UserAddress: addrB,
	})
	require.NoError(t, err)
	assert.Equal(t, &models.UserLeaderboardEntry{UserAddress: addrB}, out)
}

func TestUserLeaderboardEntryMissingAddress(t *testing.T) {
	r, _ := newTestResolver()

	_, err := r.Resolve(context.Background(), models.QueryRequest{
		QueryType: models.QueryUserLeaderboardEntry,
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "user_address")
}

func TestUnknownQueryType(t *testing.T) {
	r, _ := newTestResolver()

	_, err := r.Resolve(context.Background(), models.QueryRequest{QueryType: "volume_by_hour"})
	assert.ErrorIs(t, err, ErrUnsupportedQuery)
}
