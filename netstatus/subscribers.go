package netstatus

import (
	"slices"
	"sync"

	"github.com/velmie/tillsync"
)

type subscribers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(tillsync.Status)
}

func (s *subscribers) add(fn func(tillsync.Status)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func(tillsync.Status))
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn

	var once sync.Once

	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) notify(status tillsync.Status) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	fns := make([]func(tillsync.Status), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.fns[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}
