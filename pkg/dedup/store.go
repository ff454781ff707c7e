// Package dedup keeps track of mentions the bot has already replied to, so a
// mention delivered twice (webhook redelivery, overlapping poll windows) never
// produces a second public reply. Records are kept for 24 hours and evicted
// lazily on every read or write.
package dedup

import (
	"sync"
	"time"
)

const (
	// Retention window. A record older than this is expired; the retention
	// window and the Last24h stats bucket deliberately coincide.
	Retention = 24 * time.Hour

	snippetMax = 280
)

type Record struct {
	MentionID  string
	Actor      string
	Snippet    string
	InsertedAt time.Time
}

type Stats struct {
	Total    int `json:"total"`
	LastHour int `json:"lastHour"`
	Last24h  int `json:"last24h"`
}

// Store is the in-memory processed-mention store. It lives for the process
// lifetime and forgets everything on restart; mentions still inside the
// retention window may be re-processed after a restart. Use the sqlite-backed
// variant when that matters.
type Store struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Has evicts expired records, then reports whether id has been processed.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	_, ok := s.records[id]
	return ok
}

// Insert stores a record stamped with the current time. Inserting an id that
// is already present overwrites the existing record (last write wins).
func (s *Store) Insert(id, actor, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.records[id] = Record{
		MentionID:  id,
		Actor:      actor,
		Snippet:    truncate(text, snippetMax),
		InsertedAt: s.now(),
	}
}

// Stats evicts expired records, then counts the remainder by age bucket.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	now := s.now()
	st := Stats{Total: len(s.records)}
	for _, r := range s.records {
		age := now.Sub(r.InsertedAt)
		if age < time.Hour {
			st.LastHour++
		}
		if age < Retention {
			st.Last24h++
		}
	}
	return st
}

func (s *Store) evictLocked() {
	now := s.now()
	for id, r := range s.records {
		if now.Sub(r.InsertedAt) > Retention {
			delete(s.records, id)
		}
	}
}

// truncate clips to n runes so a multi-byte rune at the boundary is never
// split into invalid UTF-8.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
