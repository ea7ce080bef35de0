package kv

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// In memory implementation of Store below

type MemoryStore struct {
	mutex   sync.RWMutex
	entries map[string]memoryEntry

	TimeNow func() time.Time
}

type memoryEntry struct {
	value    []byte
	metadata json.RawMessage
	expires  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		TimeNow: time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, _, err := s.GetWithMetadata(ctx, key)
	return value, err
}

func (s *MemoryStore) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if !entry.expires.IsZero() && !entry.expires.After(s.TimeNow()) {
		return nil, nil, ErrNotFound
	}

	return entry.value, entry.metadata, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry := memoryEntry{
		value:    append([]byte(nil), value...),
		metadata: append(json.RawMessage(nil), opts.Metadata...),
	}
	if opts.TTL > 0 {
		entry.expires = s.TimeNow().Add(opts.TTL)
	}
	s.entries[key] = entry

	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
