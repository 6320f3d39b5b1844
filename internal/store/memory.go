package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store with the same semantics as the Redis
// implementation. Commit applies under one lock, so batches are atomic with
// respect to every other operation. Intended for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	items   map[Key]map[string]string
	records map[Key][]byte
	boards  map[string]map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[Key]map[string]string),
		records: make(map[Key][]byte),
		boards:  make(map[string]map[string]int64),
	}
}

func (s *MemoryStore) Commit(_ context.Context, muts []Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range muts {
		switch m := m.(type) {
		case Add:
			attrs := s.attrs(m.Key)
			cur, _ := strconv.ParseInt(attrs[m.Field], 10, 64)
			attrs[m.Field] = strconv.FormatInt(cur+m.Delta, 10)
		case Set:
			s.attrs(m.Key)[m.Field] = m.Value
		case SetIfAbsent:
			attrs := s.attrs(m.Key)
			if _, ok := attrs[m.Field]; !ok {
				attrs[m.Field] = m.Value
			}
		case PutIfAbsent:
			if _, ok := s.records[m.Key]; !ok {
				s.records[m.Key] = append([]byte(nil), m.Value...)
			}
		case AddScore:
			board := s.boards[m.Index]
			if board == nil {
				board = make(map[string]int64)
				s.boards[m.Index] = board
			}
			board[m.Member] += m.Delta
		}
	}
	return nil
}

func (s *MemoryStore) attrs(k Key) map[string]string {
	attrs := s.items[k]
	if attrs == nil {
		attrs = make(map[string]string)
		s.items[k] = attrs
	}
	return attrs
}

func (s *MemoryStore) Get(_ context.Context, key Key) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs, ok := s.items[key]
	if !ok || len(attrs) == 0 {
		return Item{}, ErrNotFound
	}
	cp := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return Item{Key: key, Attrs: cp}, nil
}

func (s *MemoryStore) Has(_ context.Context, key Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; ok {
		return true, nil
	}
	attrs, ok := s.items[key]
	return ok && len(attrs) > 0, nil
}

// Record returns a stored immutable record, for test assertions.
func (s *MemoryStore) Record(key Key) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.records[key]
	return b, ok
}

func (s *MemoryStore) QueryPrefix(_ context.Context, pk, skPrefix string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Item
	for k, attrs := range s.items {
		if k.PK != pk || !strings.HasPrefix(k.SK, skPrefix) || len(attrs) == 0 {
			continue
		}
		cp := make(map[string]string, len(attrs))
		for f, v := range attrs {
			cp[f] = v
		}
		out = append(out, Item{Key: k, Attrs: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.SK < out[j].Key.SK })
	if out == nil {
		out = []Item{}
	}
	return out, nil
}

func (s *MemoryStore) TopScores(_ context.Context, index string, limit int64) ([]ScoreEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := s.boards[index]
	out := make([]ScoreEntry, 0, len(board))
	for member, score := range board {
		out = append(out, ScoreEntry{Member: member, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	if limit >= 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Score(_ context.Context, index, member string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boards[index][member], nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
