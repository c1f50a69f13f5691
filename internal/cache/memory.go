package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/david/scholar-match/internal/models"
)

type memoryEntry struct {
	key       string
	set       models.MatchSet
	expiresAt time.Time
}

// MemoryStore is a bounded in-process Store with least-recently-used eviction.
// Capacity <= 0 means unbounded; ttl <= 0 means entries never expire.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	entries  map[string]*list.Element
	now      func() time.Time
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (models.MatchSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.lookup(key)
	if !ok {
		return models.MatchSet{}, ErrMiss
	}
	s.order.MoveToFront(el)
	return cloneSet(el.Value.(*memoryEntry).set), nil
}

func (s *MemoryStore) PutIfAbsent(ctx context.Context, key string, set models.MatchSet) (models.MatchSet, bool, error) {
	if key == "" {
		return models.MatchSet{}, false, ErrKeyEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.lookup(key); ok {
		s.order.MoveToFront(el)
		return cloneSet(el.Value.(*memoryEntry).set), false, nil
	}

	entry := &memoryEntry{key: key, set: cloneSet(set)}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key] = s.order.PushFront(entry)

	for s.capacity > 0 && s.order.Len() > s.capacity {
		s.removeElement(s.order.Back())
	}
	return cloneSet(set), true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.removeElement(el)
	}
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// lookup returns the live element for key, dropping it if expired. Caller holds mu.
func (s *MemoryStore) lookup(key string) (*list.Element, bool) {
	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.removeElement(el)
		return nil, false
	}
	return el, true
}

func (s *MemoryStore) removeElement(el *list.Element) {
	s.order.Remove(el)
	delete(s.entries, el.Value.(*memoryEntry).key)
}
