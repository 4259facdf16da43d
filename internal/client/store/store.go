// Package store holds the in-memory note collection of the current session.
package store

import (
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// NoteStore is the authoritative, ordered collection of persisted notes.
// Identifiers are unique. Concurrent writers are serialized; the last one to
// acquire the lock wins.
type NoteStore struct {
	mu    sync.RWMutex
	notes []models.Note
}

func New() *NoteStore {
	return &NoteStore{}
}

// ReplaceAll swaps the whole collection, keeping server order. Drafts are
// dropped and duplicate ids keep their first occurrence.
func (s *NoteStore) ReplaceAll(notes []models.Note) {
	next := make([]models.Note, 0, len(notes))
	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if n.IsDraft() {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		next = append(next, n.Clone())
	}

	s.mu.Lock()
	s.notes = next
	s.mu.Unlock()
}

// Upsert replaces the note with the same id in place, or prepends it when
// absent. A draft is refused and false is returned.
func (s *NoteStore) Upsert(n models.Note) bool {
	if n.IsDraft() {
		return false
	}
	n = n.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notes {
		if s.notes[i].ID == n.ID {
			s.notes[i] = n
			return true
		}
	}
	s.notes = append([]models.Note{n}, s.notes...)
	return true
}

// Remove deletes the note with id; absent ids are ignored.
func (s *NoteStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes = append(s.notes[:i:i], s.notes[i+1:]...)
			return
		}
	}
}

// All returns a copy of the collection in display order.
func (s *NoteStore) All() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.Clone()
	}
	return out
}

func (s *NoteStore) Get(id string) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notes {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return models.Note{}, false
}

func (s *NoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}
