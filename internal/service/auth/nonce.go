package auth

import (
	"strconv"
	"sync"
)

// NonceStore keeps the last accepted nonce per identity. Check and
// advance happen under one lock: of N concurrent requests bearing the
// same nonce, exactly one wins.
type NonceStore struct {
	mu   sync.Mutex
	last map[string]uint64
}

func NewNonceStore() *NonceStore {
	return &NonceStore{last: make(map[string]uint64)}
}

// Advance accepts the nonce only if it is numerically greater than the
// last accepted one for the identity, and stores it atomically. The
// first nonce an identity ever presents may be any number, zero
// included. A non-numeric nonce is never accepted.
func (s *NonceStore) Advance(identity, nonce string) bool {
	n, err := strconv.ParseUint(nonce, 10, 64)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, seen := s.last[identity]; seen && n <= last {
		return false
	}
	s.last[identity] = n
	return true
}
