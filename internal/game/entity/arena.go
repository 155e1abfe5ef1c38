// Package entity provides a generational arena for game entities addressed by
// stable index/generation handles.
package entity

import "fmt"

// ID is a stable handle to a slot in an Arena. The zero ID never resolves.
type ID struct {
	index      uint32
	generation uint32
}

// IsZero reports whether id is the zero handle.
func (id ID) IsZero() bool {
	return id.generation == 0
}

// String returns the handle as "<index>v<generation>".
func (id ID) String() string {
	return fmt.Sprintf("%dv%d", id.index, id.generation)
}

type slot[T any] struct {
	generation uint32
	live       bool
	value      T
}

// Arena stores values of type T in reusable slots. Removing a value bumps the
// slot generation so handles issued before the removal never resolve again.
//
// Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns its handle.
//
// Postcondition: Get(returned ID) resolves to v until Remove is called.
func (a *Arena[T]) Insert(v T) ID {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.live = true
		s.value = v
		return ID{index: idx, generation: s.generation}
	}
	a.slots = append(a.slots, slot[T]{generation: 1, live: true, value: v})
	return ID{index: uint32(len(a.slots) - 1), generation: 1}
}

// Get returns a pointer to the value for id. The pointer is invalidated by
// the next Insert.
//
// Postcondition: Returns (nil, false) for zero, stale, or unknown handles.
func (a *Arena[T]) Get(id ID) (*T, bool) {
	if id.IsZero() || int(id.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[id.index]
	if !s.live || s.generation != id.generation {
		return nil, false
	}
	return &s.value, true
}

// Contains reports whether id currently resolves.
func (a *Arena[T]) Contains(id ID) bool {
	_, ok := a.Get(id)
	return ok
}

// Remove deletes the value for id.
//
// Postcondition: Returns false if id did not resolve; otherwise id and every
// copy of it are stale.
func (a *Arena[T]) Remove(id ID) bool {
	if !a.Contains(id) {
		return false
	}
	s := &a.slots[id.index]
	var zero T
	s.value = zero
	s.live = false
	s.generation++
	if s.generation == 0 {
		// wrapped; retire the slot rather than reissue generation 0
		a.live--
		return true
	}
	a.free = append(a.free, id.index)
	a.live--
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.live
}

// Each calls fn for every live value in slot order until fn returns false.
// fn must not insert into or remove from the arena.
func (a *Arena[T]) Each(fn func(ID, *T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !fn(ID{index: uint32(i), generation: s.generation}, &s.value) {
			return
		}
	}
}
