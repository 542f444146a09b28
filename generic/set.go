package generic

import (
	"cmp"
	"slices"
)

type Void struct{}

// Set is an unordered collection of unique comparable items. The zero value is not usable, use NewSet.
type Set[T comparable] struct {
	items map[T]Void
}

func NewSet[T comparable](items ...T) Set[T] {
	s := Set[T]{items: make(map[T]Void, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts item, returning true if it was not already present.
func (s Set[T]) Add(item T) bool {
	if _, found := s.items[item]; found {
		return false
	}
	s.items[item] = Void{}
	return true
}

// Contains returns true only if every one of items is in the set.
func (s Set[T]) Contains(items ...T) bool {
	for _, item := range items {
		if _, found := s.items[item]; !found {
			return false
		}
	}
	return true
}

func (s Set[T]) Count() int {
	return len(s.items)
}

func (s Set[T]) Remove(item T) bool {
	if _, found := s.items[item]; !found {
		return false
	}
	delete(s.items, item)
	return true
}

// Each calls f for every item until f returns false. Iteration order is unspecified.
func (s Set[T]) Each(f func(T) bool) {
	for item := range s.items {
		if !f(item) {
			return
		}
	}
}

func (s Set[T]) ToSlice() []T {
	slice := make([]T, 0, len(s.items))
	for item := range s.items {
		slice = append(slice, item)
	}
	return slice
}

// Sorted returns the items of an ordered set as a sorted slice.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	slice := s.ToSlice()
	slices.Sort(slice)
	return slice
}
