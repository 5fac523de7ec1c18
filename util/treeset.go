// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

// TreeSet is an ordered set with the same persistent internals as TreeMap.
// It is a value type: copying a TreeSet copies the handle, and the copies
// share structure until mutated.
type TreeSet[K any] struct {
	m TreeMap[K, struct{}]
}

// NewTreeSet returns an empty set ordered by compare.
func NewTreeSet[K any](compare func(a, b K) int) TreeSet[K] {
	return TreeSet[K]{m: NewTreeMap[K, struct{}](compare)}
}

// Len returns the number of elements in the set.
func (s *TreeSet[K]) Len() int {
	return s.m.Len()
}

// Add inserts k into the set.
func (s *TreeSet[K]) Add(k K) {
	s.m.Put(k, struct{}{})
}

// Contains returns true if k is in the set.
func (s *TreeSet[K]) Contains(k K) bool {
	_, ok := s.m.Get(k)
	return ok
}

// Delete removes k from the set, if present.
func (s *TreeSet[K]) Delete(k K) {
	s.m.Delete(k)
}

// Iter invokes iter for each element in ascending order. If iter returns
// true, iteration stops and Iter returns true.
func (s *TreeSet[K]) Iter(iter func(K) bool) bool {
	return s.m.Iter(func(k K, _ struct{}) bool {
		return iter(k)
	})
}

// Union inserts every element of other into s.
func (s *TreeSet[K]) Union(other TreeSet[K]) {
	other.Iter(func(k K) bool {
		s.Add(k)
		return false
	})
}

// Clone returns an independent handle on the same contents.
func (s *TreeSet[K]) Clone() TreeSet[K] {
	return TreeSet[K]{m: s.m.Clone()}
}

// Slice returns the elements in ascending order.
func (s *TreeSet[K]) Slice() []K {
	sl := make([]K, 0, s.Len())
	s.Iter(func(k K) bool {
		sl = append(sl, k)
		return false
	})
	return sl
}
