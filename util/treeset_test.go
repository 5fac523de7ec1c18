// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"math/rand"
	"sort"
	"testing"
)

func TestTreeSetAddContains(t *testing.T) {
	s := NewTreeSet[int](intCompare)
	if s.Contains(1) {
		t.Fatal("expected empty set")
	}
	s.Add(1)
	s.Add(2)
	s.Add(1)
	if s.Len() != 2 {
		t.Fatalf("expected len 2, got %d", s.Len())
	}
	if !s.Contains(1) || !s.Contains(2) || s.Contains(3) {
		t.Fatal("membership does not match inserts")
	}
	s.Delete(1)
	s.Delete(42) // absent
	if s.Contains(1) || s.Len() != 1 {
		t.Fatal("expected 1 to be removed")
	}
}

func TestTreeSetIterOrder(t *testing.T) {
	s := NewTreeSet[int](intCompare)
	for _, k := range rand.New(rand.NewSource(1)).Perm(256) {
		s.Add(k)
	}
	got := s.Slice()
	if len(got) != 256 {
		t.Fatalf("expected 256 elements, got %d", len(got))
	}
	if !sort.IntsAreSorted(got) {
		t.Fatal("expected ascending iteration order")
	}

	stopped := s.Iter(func(k int) bool {
		return k == 10
	})
	if !stopped {
		t.Fatal("expected iteration to stop early")
	}
}

func TestTreeSetUnion(t *testing.T) {
	s1 := NewTreeSet[int](intCompare)
	s2 := NewTreeSet[int](intCompare)
	for i := 0; i < 10; i++ {
		s1.Add(i)
	}
	for i := 5; i < 15; i++ {
		s2.Add(i)
	}
	s1.Union(s2)
	if s1.Len() != 15 {
		t.Fatalf("expected union of 15 elements, got %d", s1.Len())
	}
	if s2.Len() != 10 {
		t.Fatalf("union must not mutate its argument, got %d", s2.Len())
	}
}

func TestTreeSetCloneIsIndependent(t *testing.T) {
	s := NewTreeSet[int](intCompare)
	for i := 0; i < 100; i++ {
		s.Add(i)
	}
	cp := s.Clone()
	cp.Delete(50)
	cp.Add(1000)
	if !s.Contains(50) || s.Contains(1000) {
		t.Fatal("clone mutations leaked into the original")
	}
	if s.Len() != 100 || cp.Len() != 100 {
		t.Fatalf("expected 100 elements on both sides, got %d and %d", s.Len(), cp.Len())
	}
}
