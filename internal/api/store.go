package api

import (
	"container/list"
	"sync"
)

const DefaultStoreCapacity = 1024

// DecodeStore keeps finished decode responses for later retrieval. When
// full, the oldest entry is evicted.
type DecodeStore struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

func NewDecodeStore(capacity int) *DecodeStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &DecodeStore{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (s *DecodeStore) Put(resp DecodeResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[resp.ID]; ok {
		el.Value = resp
		return
	}
	s.entries[resp.ID] = s.order.PushBack(resp)
	for s.order.Len() > s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(DecodeResponse).ID)
	}
}

func (s *DecodeStore) Get(id string) (DecodeResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.entries[id]
	if !ok {
		return DecodeResponse{}, false
	}
	return el.Value.(DecodeResponse), true
}

func (s *DecodeStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.entries[id]
	if !ok {
		return false
	}
	s.order.Remove(el)
	delete(s.entries, id)
	return true
}

func (s *DecodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
