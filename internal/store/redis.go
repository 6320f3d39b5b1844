package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis key prefixes. Items are hashes, immutable records are plain string
// values, partition membership lives in a set so prefix reads do not need
// SCAN, and score indexes are sorted sets.
const (
	itemPrefix  = "item:"
	partPrefix  = "part:"
	boardPrefix = "board:"
)

// RedisStore implements Store on a single Redis instance. A Commit batch is
// queued on one TxPipeline (MULTI/EXEC), so the batch applies atomically;
// counter adds use HIncrBy and therefore never lose concurrent updates.
type RedisStore struct {
	client *redis.Client
	log    *logrus.Logger
}

func NewRedisStore(client *redis.Client, log *logrus.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client, log: log}, nil
}

func itemKey(k Key) string         { return itemPrefix + k.PK + "|" + k.SK }
func partKey(pk string) string     { return partPrefix + pk }
func boardKey(index string) string { return boardPrefix + index }

func (s *RedisStore) Commit(ctx context.Context, muts []Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	indexed := make(map[Key]struct{}, len(muts))
	index := func(k Key) {
		if _, ok := indexed[k]; ok {
			return
		}
		indexed[k] = struct{}{}
		pipe.SAdd(ctx, partKey(k.PK), k.SK)
	}

	for _, m := range muts {
		switch m := m.(type) {
		case Add:
			pipe.HIncrBy(ctx, itemKey(m.Key), m.Field, m.Delta)
			index(m.Key)
		case Set:
			pipe.HSet(ctx, itemKey(m.Key), m.Field, m.Value)
			index(m.Key)
		case SetIfAbsent:
			pipe.HSetNX(ctx, itemKey(m.Key), m.Field, m.Value)
			index(m.Key)
		case PutIfAbsent:
			pipe.SetNX(ctx, itemKey(m.Key), m.Value, 0)
			index(m.Key)
		case AddScore:
			pipe.ZIncrBy(ctx, boardKey(m.Index), float64(m.Delta), m.Member)
		default:
			return fmt.Errorf("unknown mutation type %T", m)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("commit batch of %d mutations: %w", len(muts), err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) (Item, error) {
	attrs, err := s.client.HGetAll(ctx, itemKey(key)).Result()
	if err != nil {
		return Item{}, fmt.Errorf("get %s|%s: %w", key.PK, key.SK, err)
	}
	if len(attrs) == 0 {
		return Item{}, ErrNotFound
	}
	return Item{Key: key, Attrs: attrs}, nil
}

func (s *RedisStore) Has(ctx context.Context, key Key) (bool, error) {
	n, err := s.client.Exists(ctx, itemKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s|%s: %w", key.PK, key.SK, err)
	}
	return n > 0, nil
}

func (s *RedisStore) QueryPrefix(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	sks, err := s.client.SMembers(ctx, partKey(pk)).Result()
	if err != nil {
		return nil, fmt.Errorf("partition index %s: %w", pk, err)
	}

	matched := sks[:0]
	for _, sk := range sks {
		if strings.HasPrefix(sk, skPrefix) {
			matched = append(matched, sk)
		}
	}
	sort.Strings(matched)
	if len(matched) == 0 {
		return []Item{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(matched))
	for i, sk := range matched {
		cmds[i] = pipe.HGetAll(ctx, itemKey(Key{PK: pk, SK: sk}))
	}
	// Exec reports the first per-command error; salvage the rows that read
	// cleanly and only fail when nothing did.
	_, execErr := pipe.Exec(ctx)

	items := make([]Item, 0, len(matched))
	for i, cmd := range cmds {
		if err := cmd.Err(); err != nil {
			if s.log != nil {
				s.log.WithError(err).WithField("sk", matched[i]).Warn("skipping unreadable row in range read")
			}
			continue
		}
		attrs := cmd.Val()
		if len(attrs) == 0 {
			continue
		}
		items = append(items, Item{Key: Key{PK: pk, SK: matched[i]}, Attrs: attrs})
	}
	if len(items) == 0 && execErr != nil {
		return nil, fmt.Errorf("range read %s %s*: %w", pk, skPrefix, execErr)
	}
	return items, nil
}

func (s *RedisStore) TopScores(ctx context.Context, index string, limit int64) ([]ScoreEntry, error) {
	if limit < 1 {
		return []ScoreEntry{}, nil
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, boardKey(index), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("top scores %s: %w", index, err)
	}
	out := make([]ScoreEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, ScoreEntry{Member: member, Score: int64(z.Score)})
	}
	return out, nil
}

func (s *RedisStore) Score(ctx context.Context, index, member string) (int64, error) {
	score, err := s.client.ZScore(ctx, boardKey(index), member).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("score %s %s: %w", index, member, err)
	}
	return int64(score), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
