package board

import (
	"errors"
	"sync"
	"time"
)

var ErrBoardNotFound = errors.New("board not found")

// Store keeps boards in memory. Boards idle for longer than ttl are
// dropped on the next Create or Sweep; a zero ttl keeps them forever.
type Store struct {
	mu     sync.Mutex
	boards map[string]*Board
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		boards: make(map[string]*Board),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Store) Create() *Board {
	b := New()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.boards[b.ID] = b
	return b
}

func (s *Store) Get(id string) (*Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok || s.expired(b) {
		delete(s.boards, id)
		return nil, ErrBoardNotFound
	}
	return b, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[id]; !ok {
		return ErrBoardNotFound
	}
	delete(s.boards, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.boards)
}

// Sweep drops expired boards and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	n := 0
	for id, b := range s.boards {
		if s.expired(b) {
			delete(s.boards, id)
			n++
		}
	}
	return n
}

func (s *Store) expired(b *Board) bool {
	return s.ttl > 0 && s.now().Sub(b.LastUpdated()) > s.ttl
}
