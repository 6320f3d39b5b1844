// Package toggles holds runtime operational switches in Redis, so ingestion
// can be paused or resumed without a redeploy.
package toggles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

// IngestEnabled gates the metrics ingestion endpoint. Absent means enabled.
const IngestEnabled = "ingest_enabled"

const (
	indexKey    = "toggles:index"
	valuePrefix = "toggles:"
)

var ErrNotFound = errors.New("toggle not found")

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// Toggle is one named boolean switch.
type Toggle struct {
	Name      string    `json:"name"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid toggle name")
	}
	return nil
}

// Set creates or updates a switch. The value and the index membership land in
// one MULTI/EXEC so List never sees a half-written toggle.
func (s *Store) Set(ctx context.Context, name string, value bool) (*Toggle, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	tg := &Toggle{Name: name, Value: value, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(tg)
	if err != nil {
		return nil, fmt.Errorf("marshal toggle: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, toggleKey(name), b, 0)
	pipe.SAdd(ctx, indexKey, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("set toggle: %w", err)
	}

	return tg, nil
}

func (s *Store) Get(ctx context.Context, name string) (*Toggle, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, toggleKey(name)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get toggle: %w", err)
	}

	var tg Toggle
	if err := json.Unmarshal([]byte(val), &tg); err != nil {
		return nil, fmt.Errorf("unmarshal toggle: %w", err)
	}
	return &tg, nil
}

// Enabled reads one switch, falling back when it is absent or unreadable.
// Gate checks must not take the service down with them.
func (s *Store) Enabled(ctx context.Context, name string, fallback bool) bool {
	tg, err := s.Get(ctx, name)
	if err != nil {
		return fallback
	}
	return tg.Value
}

func (s *Store) List(ctx context.Context) ([]*Toggle, error) {
	names, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list toggles index: %w", err)
	}
	if len(names) == 0 {
		return []*Toggle{}, nil
	}

	redisKeys := make([]string, 0, len(names))
	for _, n := range names {
		if err := ValidateName(n); err != nil {
			continue
		}
		redisKeys = append(redisKeys, toggleKey(n))
	}
	if len(redisKeys) == 0 {
		return []*Toggle{}, nil
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget toggles: %w", err)
	}

	out := make([]*Toggle, 0, len(vals))
	for _, v := range vals {
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var tg Toggle
		if err := json.Unmarshal([]byte(raw), &tg); err != nil {
			continue
		}
		out = append(out, &tg)
	}

	return out, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, toggleKey(name))
	pipe.SRem(ctx, indexKey, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete toggle: %w", err)
	}

	return nil
}

func toggleKey(name string) string {
	return valuePrefix + name
}
