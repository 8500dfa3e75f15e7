package storage

import (
	"fmt"
	"log"
	"time"
)

// DefaultDebounce is the minimum quiet time between a change and its save.
const DefaultDebounce = 5 * time.Second

// Store holds the live payload values and persists them through a Log at
// most once per debounce window.
//
// A failed save keeps the values dirty and restarts the debounce window, so
// the write is retried after another full window rather than dropped.
type Store struct {
	log        *Log
	values     [NumValues]uint16
	dirty      bool
	lastChange time.Time
	debounce   time.Duration
}

// NewStore creates a store over l.
func NewStore(l *Log, debounce time.Duration) *Store {
	return &Store{log: l, debounce: debounce}
}

// Load recovers the newest record and repairs out-of-range setpoints.
// Repaired values are marked dirty so they are rewritten.
func (s *Store) Load(now time.Time) bool {
	values, found := s.log.Load()
	s.values = values
	s.dirty = false
	if repaired := s.repairSetpoints(now); repaired > 0 {
		log.Printf("storage: reset %d out-of-range setpoint(s) to defaults", repaired)
	}
	return found
}

// Log returns the underlying slot log.
func (s *Store) Log() *Log {
	return s.log
}

// Values returns a copy of all payload values.
func (s *Store) Values() [NumValues]uint16 {
	return s.values
}

// Value returns payload value i.
func (s *Store) Value(i int) (uint16, error) {
	if i < 0 || i >= NumValues {
		return 0, fmt.Errorf("%w: %d", ErrIndex, i)
	}
	return s.values[i], nil
}

// SetValue sets payload value i and marks it for persistence.
func (s *Store) SetValue(i int, v uint16, now time.Time) error {
	if i < 0 || i >= NumValues {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	s.values[i] = v
	s.touch(now)
	s.repairSetpoints(now)
	return nil
}

// Increment adds one to payload value i and returns the new value.
func (s *Store) Increment(i int, now time.Time) (uint16, error) {
	if i < 0 || i >= NumValues {
		return 0, fmt.Errorf("%w: %d", ErrIndex, i)
	}
	s.values[i]++
	s.touch(now)
	s.repairSetpoints(now)
	return s.values[i], nil
}

// Dirty reports whether unsaved changes exist.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Tick saves pending changes once the debounce window has passed.
func (s *Store) Tick(now time.Time) error {
	if !s.dirty || now.Sub(s.lastChange) < s.debounce {
		return nil
	}
	return s.save(now)
}

// SaveNow saves pending changes immediately, e.g. on shutdown.
func (s *Store) SaveNow(now time.Time) error {
	if !s.dirty {
		return nil
	}
	return s.save(now)
}

func (s *Store) save(now time.Time) error {
	if err := s.log.Save(s.values); err != nil {
		s.lastChange = now
		log.Printf("storage: save failed, will retry in %v: %v", s.debounce, err)
		return err
	}
	s.dirty = false
	return nil
}

func (s *Store) touch(now time.Time) {
	s.dirty = true
	s.lastChange = now
}
