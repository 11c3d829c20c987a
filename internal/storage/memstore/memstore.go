package memstore

import (
	"container/list"
	"sync"

	"github.com/pv/algoviz-go/internal/storage"
	"github.com/pv/algoviz-go/internal/trace"
)

const defaultCapacity = 256

// Store: ограниченный по размеру LRU-кэш трасс в памяти.
type Store struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // в начале самая свежая запись
	entries  map[int64]*list.Element
	hits     int64
	misses   int64
}

type entry struct {
	key   storage.Key
	trace trace.Trace
}

var _ storage.TraceStore = (*Store)(nil)

// New создаёт кэш. При capacity <= 0 берётся значение по умолчанию.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Store{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[int64]*list.Element, capacity),
	}
}

func (s *Store) Get(key storage.Key) (trace.Trace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.entries[key.Hash]
	if !ok {
		s.misses++
		return trace.Trace{}, false
	}
	e := el.Value.(*entry)
	// Коллизия hash: считаем промахом.
	if e.key.Algorithm != key.Algorithm || e.key.Input != key.Input {
		s.misses++
		return trace.Trace{}, false
	}
	s.order.MoveToFront(el)
	s.hits++
	return e.trace, true
}

func (s *Store) Put(key storage.Key, tr trace.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[key.Hash]; ok {
		el.Value = &entry{key: key, trace: tr}
		s.order.MoveToFront(el)
		return
	}
	s.entries[key.Hash] = s.order.PushFront(&entry{key: key, trace: tr})
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*entry).key.Hash)
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Stats возвращает число попаданий и промахов.
func (s *Store) Stats() (hits, misses int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}
