package authzserver

import (
	"sync"
)

type memoryCodeStore struct {
	grants map[string]*CodeGrant
	lock   sync.RWMutex
}

// NewMemoryCodeStore returns a process-lifetime in-memory code store. The
// login handler is the only writer; the token endpoint and the callback page
// only read.
func NewMemoryCodeStore() CodeStore {
	return &memoryCodeStore{
		grants: make(map[string]*CodeGrant),
	}
}

func (s *memoryCodeStore) PutGrant(grant *CodeGrant) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.grants[grant.Code]; exists {
		return ErrDuplicateCode
	}
	s.grants[grant.Code] = grant
	return nil
}

func (s *memoryCodeStore) GetGrant(code string) (*CodeGrant, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	grant, ok := s.grants[code]
	if !ok {
		return nil, ErrNotFound
	}
	return grant, nil
}

func (s *memoryCodeStore) DeleteGrant(code string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.grants, code)
	return nil
}
