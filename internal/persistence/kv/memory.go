package kv

import (
	"context"
	"sync"
)

// Memory keeps values in a map. It backs tests and throwaway runs.
type Memory struct {
	mu   sync.RWMutex
	vals map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{vals: map[string][]byte{}}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	m.vals[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.vals, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
