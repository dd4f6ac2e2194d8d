package deeplink

import "sync"

// Slot holds at most one CallbackRecord: the most recent one. It lets a
// frontend that missed the pushed event pull the callback on demand.
// The zero value is empty and ready to use.
type Slot struct {
	mu  sync.Mutex
	rec *CallbackRecord
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Store replaces the held record. Last write wins.
func (s *Slot) Store(rec CallbackRecord) {
	s.mu.Lock()
	s.rec = &rec
	s.mu.Unlock()
}

// Load returns the held record without clearing it.
func (s *Slot) Load() (CallbackRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return CallbackRecord{}, false
	}
	return *s.rec, true
}

// Take returns the held record and empties the slot.
func (s *Slot) Take() (CallbackRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return CallbackRecord{}, false
	}
	rec := *s.rec
	s.rec = nil
	return rec, true
}

// Clear empties the slot.
func (s *Slot) Clear() {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
}
