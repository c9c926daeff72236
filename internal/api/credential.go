package api

import (
	"sync"
	"time"
)

// Credential is the authenticated state of one session. It is a value: the
// store replaces it wholesale on login, refresh and balance updates.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is no longer valid at now.
// A token expiring exactly at now is expired.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// CredentialStore holds the current credential. Only Session mutates it;
// everyone else gets copies through Load.
//
// gen identifies the logical session. It changes on login, restore and
// invalidate but not on refresh, so an operation that started under one
// session cannot write into another.
type CredentialStore struct {
	mu   sync.RWMutex
	cred *Credential
	gen  uint64
}

// Load returns a copy of the current credential.
func (s *CredentialStore) Load() (Credential, bool) {
	c, _, ok := s.snapshot()
	return c, ok
}

func (s *CredentialStore) snapshot() (Credential, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return Credential{}, s.gen, false
	}
	return *s.cred, s.gen, true
}

// replace starts a new logical session holding c.
func (s *CredentialStore) replace(c Credential) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cred = &c
	return s.gen
}

// update replaces the credential of session gen with fn applied to a copy of
// it. It reports false, changing nothing, if gen is no longer current.
func (s *CredentialStore) update(gen uint64, fn func(Credential) Credential) (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil || s.gen != gen {
		return Credential{}, false
	}
	next := fn(*s.cred)
	s.cred = &next
	return next, true
}

// clear ends session gen. gen 0 ends whatever session is current.
func (s *CredentialStore) clear(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil || (gen != 0 && s.gen != gen) {
		return false
	}
	s.cred = nil
	s.gen++
	return true
}
