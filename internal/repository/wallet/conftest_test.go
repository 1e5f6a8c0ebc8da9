package wallet

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nexusacademy/creditguard/internal/db"
)

// memStore is an in-memory stand-in for the database, enough state to
// exercise the ledger's read-compare-write cycles.
type memStore struct {
	mu     sync.Mutex
	kv     map[string][]byte
	hashes map[string]map[string]string

	getErr  error
	hsetErr error
}

func newMemStore() *memStore {
	return &memStore{
		kv:     make(map[string][]byte),
		hashes: make(map[string]map[string]string),
	}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *memStore) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := int64(0)
	if data, ok := m.kv[key]; ok {
		current, _ = strconv.ParseInt(string(data), 10, 64)
	}
	current += val
	m.kv[key] = []byte(strconv.FormatInt(current, 10))
	return current, nil
}

func (m *memStore) Expire(_ context.Context, _ string, _ time.Duration, _ bool) error {
	return nil
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hsetErr != nil {
		return m.hsetErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for key := range m.hashes {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *memStore) journalCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for key := range m.hashes {
		if strings.HasPrefix(key, "test:journal:"+userID+":") {
			count++
		}
	}
	return count
}

func newTestLedger(t *testing.T, freeDaily int64) (*Ledger, *memStore) {
	t.Helper()
	ms := newMemStore()
	ledger := New(ms, "test:", freeDaily, 48*time.Hour, 24*time.Hour)
	return ledger, ms
}

func mustCredit(t *testing.T, ledger *Ledger, userID string, amount int64) {
	t.Helper()
	if _, err := ledger.Credit(context.Background(), userID, amount, "test grant"); err != nil {
		t.Fatalf("credit: %v", err)
	}
}
