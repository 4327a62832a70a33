package store

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryStore is an in-process Store implementation used by tests (and
// available for single-process local runs without Redis). It honors TTLs
// and wildcard Subscribe patterns the same way RedisStore does, so code
// exercised against it behaves the same way against the real backing store.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string]memValue
	sets  map[string]map[string]struct{}
	hsets map[string]map[string]string

	subMu sync.Mutex
	subs  []memSub
}

type memValue struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

type memSub struct {
	pattern string
	handler func(Message)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]memValue),
		sets:  make(map[string]map[string]struct{}),
		hsets: make(map[string]map[string]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	if !v.expiresAt.IsZero() && time.Now().After(v.expiresAt) {
		delete(m.data, key)
		return "", false, nil
	}
	return v.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.data[key] = memValue{value: value, expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) SAdd(_ context.Context, setKey, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setKey]
	if !ok {
		set = make(map[string]struct{})
		m.sets[setKey] = set
	}
	set[member] = struct{}{}
	return nil
}

func (m *MemoryStore) SRem(_ context.Context, setKey, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.sets[setKey]; ok {
		delete(set, member)
	}
	return nil
}

func (m *MemoryStore) SMembers(_ context.Context, setKey string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setKey]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	return out, nil
}

func (m *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hsets[key]
	if !ok {
		h = make(map[string]string)
		m.hsets[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hsets[key]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Publish(_ context.Context, channel, payload string) error {
	m.subMu.Lock()
	subs := make([]memSub, len(m.subs))
	copy(subs, m.subs)
	m.subMu.Unlock()

	for _, sub := range subs {
		if matched, _ := path.Match(sub.pattern, channel); matched {
			sub.handler(Message{Channel: channel, Payload: payload})
		}
	}
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, pattern string, handler func(Message)) error {
	m.subMu.Lock()
	m.subs = append(m.subs, memSub{pattern: pattern, handler: handler})
	m.subMu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (m *MemoryStore) Close() error { return nil }
