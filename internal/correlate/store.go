// Package correlate holds the in-memory correlation store linking message
// instances across Discord, Telegram, and the webhook relay identity.
package correlate

import (
	"sync"

	"chatbridge/internal/domain"
)

// key is the platform-qualified identity of one correlation half. Author
// fields are deliberately excluded: lookups match on identity only.
type key struct {
	platform domain.Platform
	id       string
}

func refKey(ref domain.MessageRef) key {
	return key{platform: ref.Platform, id: ref.ID}
}

// Store maps each correlated message to its counterpart on the other
// platform. Both directions of a pair are inserted, so a single map
// realizes all four directional tables (discord→telegram,
// telegram→discord, relay→telegram, telegram→relay): the platform in the
// key keeps the id spaces apart.
//
// Discord gateway handlers and the Telegram poll loop run on separate
// goroutines; the mutex is the single serialization point for mapping
// state. Nothing is persisted — entries die with the process.
type Store struct {
	mu    sync.Mutex
	pairs map[key]domain.MessageRef
}

func NewStore() *Store {
	return &Store{pairs: make(map[key]domain.MessageRef)}
}

// Record inserts both directions of a correlation. Recording over an
// existing source id silently overwrites (last write wins).
func (s *Store) Record(source, dest domain.MessageRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[refKey(source)] = dest
	s.pairs[refKey(dest)] = source
}

// Lookup returns the correlated counterpart of ref, if any.
func (s *Store) Lookup(ref domain.MessageRef) (domain.MessageRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctr, ok := s.pairs[refKey(ref)]
	return ctr, ok
}

// Remove deletes the correlation containing ref and returns the
// counterpart that was removed. Both halves go together: the reverse
// entry is deleted only when it still points back at ref, so an entry
// that was overwritten by a later Record is left alone. Removing an
// unknown ref is a no-op.
func (s *Store) Remove(ref domain.MessageRef) (domain.MessageRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := refKey(ref)
	ctr, ok := s.pairs[k]
	if !ok {
		return domain.MessageRef{}, false
	}
	delete(s.pairs, k)

	if back, ok := s.pairs[refKey(ctr)]; ok && refKey(back) == k {
		delete(s.pairs, refKey(ctr))
	}
	return ctr, true
}

// Len reports the number of mapping entries (two per intact pair).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pairs)
}
