// Package slab provides a generation-checked slot store.
//
// A Store hands out IDs for inserted values. Removing a value frees its slot
// for reuse and bumps the slot generation, so an ID kept past its removal
// is rejected instead of resolving to whatever occupies the slot next.
package slab

import "fmt"

// ID identifies a value in a Store.
// The low 32 bits hold the slot index, the high 32 bits its generation.
// The zero ID is never issued.
type ID uint64

// InvalidID is the zero ID.
const InvalidID ID = 0

func makeID(index, generation uint32) ID {
	return ID(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index of the ID.
func (id ID) Index() uint32 {
	return uint32(id)
}

// Generation returns the slot generation of the ID.
func (id ID) Generation() uint32 {
	return uint32(id >> 32)
}

// IsValid returns true if the ID is not the zero ID.
func (id ID) IsValid() bool {
	return id != InvalidID
}

// String returns a string representation of the ID.
func (id ID) String() string {
	return fmt.Sprintf("%d#%d", id.Index(), id.Generation())
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Store maps IDs to values of type T.
//
// Store is not safe for concurrent use.
type Store[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// New creates an empty store.
func New[T any]() *Store[T] {
	return &Store[T]{}
}

// Insert stores v and returns its ID.
// The most recently freed slot is reused first.
func (s *Store[T]) Insert(v T) ID {
	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = uint32(len(s.slots))
		s.slots = append(s.slots, slot[T]{generation: 1})
	}

	sl := &s.slots[index]
	sl.value = v
	sl.occupied = true
	s.count++

	return makeID(index, sl.generation)
}

// lookup returns the occupied slot for id, or nil.
func (s *Store[T]) lookup(id ID) *slot[T] {
	index := id.Index()
	if int(index) >= len(s.slots) {
		return nil
	}
	sl := &s.slots[index]
	if !sl.occupied || sl.generation != id.Generation() {
		return nil
	}
	return sl
}

// Get returns the value stored under id.
func (s *Store[T]) Get(id ID) (T, bool) {
	if sl := s.lookup(id); sl != nil {
		return sl.value, true
	}
	var zero T
	return zero, false
}

// Set replaces the value of a live id.
// Returns false if id is not live.
func (s *Store[T]) Set(id ID, v T) bool {
	sl := s.lookup(id)
	if sl == nil {
		return false
	}
	sl.value = v
	return true
}

// Contains returns true if id is live.
func (s *Store[T]) Contains(id ID) bool {
	return s.lookup(id) != nil
}

// Remove deletes id and returns its value.
func (s *Store[T]) Remove(id ID) (T, bool) {
	var zero T
	sl := s.lookup(id)
	if sl == nil {
		return zero, false
	}

	v := sl.value
	sl.value = zero
	sl.occupied = false
	sl.generation++
	if sl.generation == 0 {
		sl.generation = 1
	}
	s.free = append(s.free, id.Index())
	s.count--

	return v, true
}

// Len returns the number of live values.
func (s *Store[T]) Len() int {
	return s.count
}

// Clear removes every value and forgets all slots.
// The store behaves as freshly created afterwards and will reissue the
// same IDs, so IDs obtained before Clear must be dropped by the caller.
func (s *Store[T]) Clear() {
	clear(s.slots)
	s.slots = s.slots[:0]
	s.free = s.free[:0]
	s.count = 0
}

// Range calls fn for each live value in slot order until fn returns false.
func (s *Store[T]) Range(fn func(id ID, v T) bool) {
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.occupied {
			continue
		}
		if !fn(makeID(uint32(i), sl.generation), sl.value) {
			return
		}
	}
}
