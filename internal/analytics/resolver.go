// Package analytics is the read path of the metrics engine. Every query is a
// side-effect-free composition of point reads, partition range reads, and
// score-index reads; derived ratios are computed on the fly and composite
// dimensions are decoded back into structured fields.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dapp-metrics/internal/keys"
	"dapp-metrics/internal/models"
	"dapp-metrics/internal/period"
	"dapp-metrics/internal/store"

	"github.com/sirupsen/logrus"
)

// ErrUnsupportedQuery is returned for an unrecognized queryType discriminant.
var ErrUnsupportedQuery = errors.New("unsupported query type")

// Series limits, matching the dashboard's chart windows.
const (
	defaultSeriesLimit = 7
	maxSeriesLimit     = 90
)

// Leaderboard limits.
const (
	defaultBoardLimit = 100
	maxBoardLimit     = 1000
)

// Resolver serves all analytics query types from the store.
type Resolver struct {
	store store.Store
	log   *logrus.Logger
	now   func() time.Time
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock overrides the clock used to anchor "most recent" series buckets
// and the current leaderboard week.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func New(st store.Store, log *logrus.Logger, opts ...Option) *Resolver {
	r := &Resolver{store: st, log: log, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve dispatches one query. Point queries return a single object, series
// queries a slice ordered most-recent-first.
func (r *Resolver) Resolve(ctx context.Context, req models.QueryRequest) (any, error) {
	switch req.QueryType {
	case models.QueryTotalUsers:
		return r.totalUsers(ctx)
	case models.QueryTotalActivityStats:
		return r.totalActivityStats(ctx)
	case models.QueryPeriodicUserStats:
		return r.periodic(ctx, req, func(ctx context.Context, pt, start string) (any, error) {
			return r.userStatsFor(ctx, pt, start)
		})
	case models.QueryPeriodicActivityStats:
		return r.periodic(ctx, req, func(ctx context.Context, pt, start string) (any, error) {
			return r.activityStatsFor(ctx, pt, start)
		})
	case models.QueryTotalSwapStats:
		return r.swapStats(ctx, period.TypeAll, period.AllTime, true)
	case models.QueryPeriodicSwapStats:
		return r.periodic(ctx, req, func(ctx context.Context, pt, start string) (any, error) {
			return r.swapStats(ctx, pt, start, false)
		})
	case models.QueryTotalLendingStats:
		return r.lendingStats(ctx, period.TypeAll, period.AllTime, true)
	case models.QueryPeriodicLendingStats:
		return r.periodic(ctx, req, func(ctx context.Context, pt, start string) (any, error) {
			return r.lendingStats(ctx, pt, start, false)
		})
	case models.QueryTotalEarnStats:
		return r.earnStats(ctx, period.TypeAll, period.AllTime, true)
	case models.QueryPeriodicEarnStats:
		return r.periodic(ctx, req, func(ctx context.Context, pt, start string) (any, error) {
			return r.earnStats(ctx, pt, start, false)
		})
	case models.QueryLeaderboard:
		return r.leaderboard(ctx, req.Scope, req.Limit)
	case models.QueryUserLeaderboardEntry:
		return r.userLeaderboardEntry(ctx, req.UserAddress)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedQuery, req.QueryType)
	}
}

// periodic runs fn either for a single named bucket or for the limit most
// recent buckets of the requested period type.
func (r *Resolver) periodic(ctx context.Context, req models.QueryRequest, fn func(ctx context.Context, pt, start string) (any, error)) (any, error) {
	if !period.ValidType(req.PeriodType) {
		return nil, &models.ValidationError{Fields: []string{"period_type"}}
	}

	if req.PeriodStartDate != "" {
		return fn(ctx, req.PeriodType, req.PeriodStartDate)
	}

	starts, err := period.Past(req.PeriodType, clamp(req.Limit, defaultSeriesLimit, maxSeriesLimit), r.now())
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(starts))
	for _, start := range starts {
		entry, err := fn(ctx, req.PeriodType, start)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func clamp(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// generalRow fetches the GENERAL counters row for a bucket, zero-valued when
// the bucket has seen no traffic.
func (r *Resolver) generalRow(ctx context.Context, periodType, start string) (store.Item, error) {
	it, err := r.store.Get(ctx, store.Key{PK: keys.StatPK(periodType, start), SK: keys.GeneralSK})
	if errors.Is(err, store.ErrNotFound) {
		return store.Item{Attrs: map[string]string{}}, nil
	}
	if err != nil {
		return store.Item{}, fmt.Errorf("general stats %s/%s: %w", periodType, start, err)
	}
	return it, nil
}

func (r *Resolver) totalUsers(ctx context.Context) (*models.TotalUsersStats, error) {
	it, err := r.generalRow(ctx, period.TypeAll, period.AllTime)
	if err != nil {
		return nil, err
	}
	return &models.TotalUsersStats{TotalUsers: it.Int(models.FieldNewUsers)}, nil
}

func (r *Resolver) totalActivityStats(ctx context.Context) (*models.TotalActivityStats, error) {
	it, err := r.generalRow(ctx, period.TypeAll, period.AllTime)
	if err != nil {
		return nil, err
	}
	swaps := it.Int(models.FieldSwapCount)
	lending := it.Int(models.FieldLendingCount)
	earn := it.Int(models.FieldEarnCount)
	return &models.TotalActivityStats{
		TotalTransactions: swaps + lending + earn,
		SwapCount:         swaps,
		LendingCount:      lending,
		EarnCount:         earn,
		DappEntrances:     it.Int(models.FieldDappEntrances),
		TotalUsers:        it.Int(models.FieldNewUsers),
	}, nil
}

func (r *Resolver) userStatsFor(ctx context.Context, periodType, start string) (*models.UserPeriodStats, error) {
	it, err := r.generalRow(ctx, periodType, start)
	if err != nil {
		return nil, err
	}
	return &models.UserPeriodStats{
		PeriodStart: start,
		NewUsers:    it.Int(models.FieldNewUsers),
		ActiveUsers: it.Int(models.FieldActiveUsers),
	}, nil
}

func (r *Resolver) activityStatsFor(ctx context.Context, periodType, start string) (*models.ActivityPeriodStats, error) {
	it, err := r.generalRow(ctx, periodType, start)
	if err != nil {
		return nil, err
	}
	swaps := it.Int(models.FieldSwapCount)
	lending := it.Int(models.FieldLendingCount)
	earn := it.Int(models.FieldEarnCount)
	active := it.Int(models.FieldActiveUsers)
	total := swaps + lending + earn

	var perUser float64
	if active > 0 {
		perUser = float64(total) / float64(active)
	}
	return &models.ActivityPeriodStats{
		PeriodStart:               start,
		TotalTransactions:         total,
		SwapCount:                 swaps,
		LendingCount:              lending,
		EarnCount:                 earn,
		DappEntrances:             it.Int(models.FieldDappEntrances),
		ActiveUsers:               active,
		TransactionsPerActiveUser: perUser,
	}, nil
}

// swapStats builds the route breakdown for one bucket. The all-time shape
// reports the GENERAL swap_count as its total; periodic shapes report the sum
// of their routes.
func (r *Resolver) swapStats(ctx context.Context, periodType, start string, allTime bool) (*models.SwapStats, error) {
	pk := keys.StatPK(periodType, start)
	items, err := r.store.QueryPrefix(ctx, pk, keys.SwapRoutePrefix)
	if err != nil {
		return nil, fmt.Errorf("swap breakdown %s: %w", pk, err)
	}

	stats := &models.SwapStats{SwapRoutes: map[string]int64{}}
	if !allTime {
		stats.PeriodStart = start
	}

	var sum int64
	for _, it := range items {
		route, err := keys.ParseSwapRouteSK(it.Key.SK)
		if err != nil {
			r.log.WithError(err).WithField("sk", it.Key.SK).Warn("skipping undecodable swap route row")
			continue
		}
		count := it.Int(models.FieldCount)
		stats.SwapRoutes[route.String()] = count
		if route.CrossChain() {
			stats.CrossChainCount += count
		} else {
			stats.SameChainCount += count
		}
		sum += count
	}

	if allTime {
		general, err := r.generalRow(ctx, periodType, start)
		if err != nil {
			return nil, err
		}
		stats.TotalSwapCount = general.Int(models.FieldSwapCount)
	} else {
		stats.TotalSwapCount = sum
	}
	return stats, nil
}

func (r *Resolver) lendingStats(ctx context.Context, periodType, start string, allTime bool) (*models.LendingStats, error) {
	pk := keys.StatPK(periodType, start)
	items, err := r.store.QueryPrefix(ctx, pk, keys.LendingMarketPrefix)
	if err != nil {
		return nil, fmt.Errorf("lending breakdown %s: %w", pk, err)
	}

	stats := &models.LendingStats{Breakdown: []models.LendingMarketCount{}}
	if !allTime {
		stats.PeriodStart = start
	}

	var sum int64
	for _, it := range items {
		market, err := keys.ParseLendingMarketSK(it.Key.SK)
		if err != nil {
			r.log.WithError(err).WithField("sk", it.Key.SK).Warn("skipping undecodable lending market row")
			continue
		}
		count := it.Int(models.FieldCount)
		stats.Breakdown = append(stats.Breakdown, models.LendingMarketCount{
			Chain:  market.Chain,
			Market: market.Market,
			Count:  count,
		})
		sum += count
	}

	if allTime {
		general, err := r.generalRow(ctx, periodType, start)
		if err != nil {
			return nil, err
		}
		stats.TotalLendingCount = general.Int(models.FieldLendingCount)
	} else {
		stats.TotalLendingCount = sum
	}
	return stats, nil
}

func (r *Resolver) earnStats(ctx context.Context, periodType, start string, allTime bool) (*models.EarnStats, error) {
	pk := keys.StatPK(periodType, start)
	items, err := r.store.QueryPrefix(ctx, pk, keys.EarnVaultPrefix)
	if err != nil {
		return nil, fmt.Errorf("earn breakdown %s: %w", pk, err)
	}

	stats := &models.EarnStats{
		ByChain:         map[string]int64{},
		ByProtocol:      map[string]int64{},
		ByChainProtocol: map[string]int64{},
	}
	if !allTime {
		stats.PeriodStart = start
	}

	var sum int64
	for _, it := range items {
		vault, err := keys.ParseEarnVaultSK(it.Key.SK)
		if err != nil {
			r.log.WithError(err).WithField("sk", it.Key.SK).Warn("skipping undecodable earn vault row")
			continue
		}
		count := it.Int(models.FieldCount)
		stats.ByChain[vault.Chain] += count
		stats.ByProtocol[vault.Protocol] += count
		stats.ByChainProtocol[vault.Chain+"#"+vault.Protocol] = count
		sum += count
	}

	if allTime {
		general, err := r.generalRow(ctx, periodType, start)
		if err != nil {
			return nil, err
		}
		stats.TotalEarnCount = general.Int(models.FieldEarnCount)
	} else {
		stats.TotalEarnCount = sum
	}
	return stats, nil
}

func (r *Resolver) leaderboard(ctx context.Context, scope string, limit int) (*models.Leaderboard, error) {
	if scope != models.ScopeGlobal && scope != models.ScopeWeekly {
		return nil, &models.ValidationError{Fields: []string{"scope"}}
	}
	limit = clamp(limit, defaultBoardLimit, maxBoardLimit)

	board := &models.Leaderboard{Scope: scope, Items: []models.LeaderboardEntry{}}
	index := keys.GlobalBoard
	if scope == models.ScopeWeekly {
		board.Week = period.Week(r.now())
		index = keys.WeeklyBoard(board.Week)
	}

	entries, err := r.store.TopScores(ctx, index, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", index, err)
	}
	for i, e := range entries {
		board.Items = append(board.Items, models.LeaderboardEntry{
			Rank:        i + 1,
			UserAddress: e.Member,
			XP:          e.Score,
		})
	}
	return board, nil
}

func (r *Resolver) userLeaderboardEntry(ctx context.Context, address string) (*models.UserLeaderboardEntry, error) {
	if address == "" {
		return nil, &models.ValidationError{Fields: []string{"user_address"}}
	}

	entry := &models.UserLeaderboardEntry{UserAddress: address}

	it, err := r.store.Get(ctx, store.Key{PK: keys.UserPK(address), SK: keys.StatsSK})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("user stats %s: %w", address, err)
	}
	if err == nil {
		entry.GlobalTotalXP = it.Int(models.FieldTotalXP)
	}

	weekly, err := r.store.Score(ctx, keys.WeeklyBoard(period.Week(r.now())), address)
	if err != nil {
		return nil, fmt.Errorf("weekly xp %s: %w", address, err)
	}
	entry.WeeklyXP = weekly
	return entry, nil
}
