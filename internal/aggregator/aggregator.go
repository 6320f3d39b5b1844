// Package aggregator is the write path of the metrics engine. For every
// incoming event it validates the payload, consults the new-user oracle,
// derives the affected period buckets, assembles the full counter write set,
// and commits it through the store as one atomic batch.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dapp-metrics/internal/archive"
	"dapp-metrics/internal/keys"
	"dapp-metrics/internal/models"
	"dapp-metrics/internal/period"
	"dapp-metrics/internal/store"

	"github.com/sirupsen/logrus"
)

// ErrUnsupportedEvent is returned for an unrecognized eventType discriminant.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// XP awarded per qualifying event kind.
const (
	XPSwap    = 50
	XPLending = 100
	XPEarn    = 100
)

// Aggregator ingests user-activity events into the keyed store.
type Aggregator struct {
	store   store.Store
	archive archive.Writer // optional, best-effort raw-event feed
	log     *logrus.Logger
	now     func() time.Time
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithArchive attaches a raw-event archive written after each successful
// commit. Archive failures are logged and never fail the ingest.
func WithArchive(w archive.Writer) Option {
	return func(a *Aggregator) { a.archive = w }
}

// WithClock overrides the ingestion clock, used by entrance events and the
// leaderboard week. Tests inject a fixed clock here.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(st store.Store, log *logrus.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{store: st, log: log, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ingest routes one parsed (eventType, payload) tuple to its processor.
func (a *Aggregator) Ingest(ctx context.Context, eventType string, payload json.RawMessage) error {
	switch eventType {
	case models.EventEntrance:
		return a.processEntrance(ctx)
	case models.EventSwap:
		var p models.SwapPayload
		if err := unmarshalPayload(payload, &p); err != nil {
			return err
		}
		return a.processSwap(ctx, &p)
	case models.EventLending:
		var p models.LendingPayload
		if err := unmarshalPayload(payload, &p); err != nil {
			return err
		}
		return a.processLending(ctx, &p)
	case models.EventEarn:
		var p models.EarnPayload
		if err := unmarshalPayload(payload, &p); err != nil {
			return err
		}
		return a.processEarn(ctx, &p)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedEvent, eventType)
	}
}

func unmarshalPayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return &models.ValidationError{Fields: []string{"payload"}}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &models.ValidationError{Fields: []string{"payload"}}
	}
	return nil
}

// processEntrance bumps dapp_entrances on every period bucket. Entrance
// events are anonymous: no user row, no record, no leaderboard.
func (a *Aggregator) processEntrance(ctx context.Context) error {
	buckets := period.BucketsFor(a.now())

	muts := make([]store.Mutation, 0, 4)
	for _, b := range buckets.List() {
		muts = append(muts, store.Add{
			Key:   store.Key{PK: keys.StatPK(b.Type, b.Start), SK: keys.GeneralSK},
			Field: models.FieldDappEntrances,
			Delta: 1,
		})
	}

	if err := a.store.Commit(ctx, muts); err != nil {
		return fmt.Errorf("commit entrance: %w", err)
	}
	return nil
}

func (a *Aggregator) processSwap(ctx context.Context, p *models.SwapPayload) error {
	ts, err := p.Validate()
	if err != nil {
		return err
	}
	ev := eventFacts{
		kind:            models.EventSwap,
		address:         p.UserAddress,
		ts:              ts,
		totalCountField: models.FieldTotalSwapCount,
		countField:      models.FieldSwapCount,
		xp:              XPSwap,
		recordSK:        keys.SwapRecordSK(p.Timestamp, p.TxHash),
		categorySK:      keys.SwapRouteSK(p.SourceChain, p.DestinationChain),
	}
	return a.process(ctx, ev, p, archive.Row{
		EventType:        models.EventSwap,
		UserAddress:      p.UserAddress,
		TxHash:           p.TxHash,
		Protocol:         p.Protocol,
		SourceChain:      p.SourceChain,
		DestinationChain: p.DestinationChain,
		AmountIn:         p.AmountIn,
		AmountOut:        p.AmountOut,
		EventTime:        ts,
	})
}

func (a *Aggregator) processLending(ctx context.Context, p *models.LendingPayload) error {
	ts, err := p.Validate()
	if err != nil {
		return err
	}
	ev := eventFacts{
		kind:            models.EventLending,
		address:         p.UserAddress,
		ts:              ts,
		totalCountField: models.FieldTotalLendingCount,
		countField:      models.FieldLendingCount,
		xp:              XPLending,
		recordSK:        keys.LendingRecordSK(p.Timestamp, p.TxHash),
		categorySK:      keys.LendingMarketSK(p.Chain, p.MarketName),
	}
	return a.process(ctx, ev, p, archive.Row{
		EventType:   models.EventLending,
		UserAddress: p.UserAddress,
		TxHash:      p.TxHash,
		Protocol:    p.Protocol,
		Action:      p.Action,
		Chain:       p.Chain,
		Market:      p.MarketName,
		Amount:      p.Amount,
		EventTime:   ts,
	})
}

func (a *Aggregator) processEarn(ctx context.Context, p *models.EarnPayload) error {
	ts, err := p.Validate()
	if err != nil {
		return err
	}
	ev := eventFacts{
		kind:            models.EventEarn,
		address:         p.UserAddress,
		ts:              ts,
		totalCountField: models.FieldTotalEarnCount,
		countField:      models.FieldEarnCount,
		xp:              XPEarn,
		recordSK:        keys.EarnRecordSK(p.Timestamp, p.TxHash),
		categorySK:      keys.EarnVaultSK(p.Chain, p.Protocol),
	}
	return a.process(ctx, ev, p, archive.Row{
		EventType:   models.EventEarn,
		UserAddress: p.UserAddress,
		TxHash:      p.TxHash,
		Protocol:    p.Protocol,
		Action:      p.Action,
		Chain:       p.Chain,
		Vault:       p.VaultName,
		Amount:      p.Amount,
		EventTime:   ts,
	})
}

// eventFacts is the kind-independent shape of one user-scoped event.
type eventFacts struct {
	kind            string
	address         string
	ts              time.Time
	totalCountField string
	countField      string
	xp              int64
	recordSK        string
	categorySK      string
}

func (a *Aggregator) process(ctx context.Context, ev eventFacts, payload any, row archive.Row) error {
	isNew, lastActive, err := a.userState(ctx, ev.address)
	if err != nil {
		return fmt.Errorf("user state lookup for %s: %w", ev.address, err)
	}

	record, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", ev.kind, err)
	}

	muts := a.buildWriteSet(ev, isNew, lastActive, record)
	if err := a.store.Commit(ctx, muts); err != nil {
		return fmt.Errorf("commit %s event: %w", ev.kind, err)
	}

	a.log.WithFields(logrus.Fields{
		"event": ev.kind,
		"user":  ev.address,
		"new":   isNew,
	}).Debug("event committed")

	if a.archive != nil {
		if err := a.archive.Insert(ctx, &row); err != nil {
			a.log.WithError(err).WithField("event", ev.kind).Warn("archive insert failed")
		}
	}
	return nil
}

// userState is the new-user oracle: a point read performed before the
// commit. It is intentionally not part of the atomic batch; two concurrent
// first-events from one address can both observe "new" and double-count
// new_users (accepted trade-off, see DESIGN.md).
func (a *Aggregator) userState(ctx context.Context, address string) (isNew bool, lastActive time.Time, err error) {
	it, err := a.store.Get(ctx, store.Key{PK: keys.UserPK(address), SK: keys.StatsSK})
	if errors.Is(err, store.ErrNotFound) {
		return true, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}

	raw := it.Str(models.FieldLastActive)
	if raw == "" {
		return false, time.Time{}, nil
	}
	t, perr := time.Parse(time.RFC3339, raw)
	if perr != nil {
		// Treat an unreadable timestamp as no prior activity rather than
		// failing the event.
		a.log.WithField("user", address).Warn("unparseable last_active_timestamp, ignoring")
		return false, time.Time{}, nil
	}
	return false, t, nil
}

// buildWriteSet assembles every mutation a single event implies. The caller
// commits the result as one all-or-nothing batch.
func (a *Aggregator) buildWriteSet(ev eventFacts, isNew bool, lastActive time.Time, record []byte) []store.Mutation {
	tsISO := ev.ts.UTC().Format(time.RFC3339)
	userKey := store.Key{PK: keys.UserPK(ev.address), SK: keys.StatsSK}
	buckets := period.BucketsFor(ev.ts)

	var lastBuckets period.Buckets
	if !lastActive.IsZero() {
		lastBuckets = period.BucketsFor(lastActive)
	}

	muts := []store.Mutation{
		// Immutable event record; no-op on retried delivery of the same tx.
		store.PutIfAbsent{Key: store.Key{PK: keys.UserPK(ev.address), SK: ev.recordSK}, Value: record},

		// UserStats upsert.
		store.Add{Key: userKey, Field: ev.totalCountField, Delta: 1},
		store.Add{Key: userKey, Field: models.FieldTotalXP, Delta: ev.xp},
		store.Set{Key: userKey, Field: models.FieldLastActive, Value: tsISO},
		store.SetIfAbsent{Key: userKey, Field: models.FieldFirstActive, Value: tsISO},
	}

	for _, b := range buckets.List() {
		generalKey := store.Key{PK: keys.StatPK(b.Type, b.Start), SK: keys.GeneralSK}
		muts = append(muts, store.Add{Key: generalKey, Field: ev.countField, Delta: 1})

		// A user is active in a bucket only on their first event inside it.
		if isNew || (!lastActive.IsZero() && lastBuckets.ByType(b.Type) != b.Start) {
			muts = append(muts, store.Add{Key: generalKey, Field: models.FieldActiveUsers, Delta: 1})
		}
		if isNew {
			muts = append(muts, store.Add{Key: generalKey, Field: models.FieldNewUsers, Delta: 1})
		}

		muts = append(muts, store.Add{
			Key:   store.Key{PK: keys.StatPK(b.Type, b.Start), SK: ev.categorySK},
			Field: models.FieldCount,
			Delta: 1,
		})
	}

	// Leaderboard: the per-week entry row plus the two score indexes that
	// serve ranked reads.
	week := period.Week(ev.ts)
	boardKey := store.Key{PK: keys.LeaderboardPK(week), SK: keys.UserSK(ev.address)}
	muts = append(muts,
		store.Add{Key: boardKey, Field: models.FieldXP, Delta: ev.xp},
		store.Set{Key: boardKey, Field: models.FieldXPTimestamp, Value: tsISO},
		store.AddScore{Index: keys.WeeklyBoard(week), Member: ev.address, Delta: ev.xp},
		store.AddScore{Index: keys.GlobalBoard, Member: ev.address, Delta: ev.xp},
	)

	return muts
}
