// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cc

import (
	"testing"

	"github.com/tenet-prover/tenet/term"
)

func TestNewStateDefaults(t *testing.T) {
	st := NewState(nil)

	if st.GMT() != 0 {
		t.Fatalf("expected a fresh clock, got %d", st.GMT())
	}
	if st.Frozen() || st.Inconsistent() {
		t.Fatal("fresh states are neither frozen nor inconsistent")
	}
	if !st.GetRoot(term.True).Equal(term.True) {
		t.Fatal("expected true to be its own representative")
	}
	if !st.InSingletonEqc(term.True) || !st.InSingletonEqc(term.False) {
		t.Fatal("expected the truth constants to start as singletons")
	}

	roots := st.Roots(false)
	if len(roots) != 2 {
		t.Fatalf("expected exactly the truth constants, got %v", roots)
	}
	if len(st.Roots(true)) != 0 {
		t.Fatal("a fresh state has no non-singleton classes")
	}
	if err := st.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
}

func TestStateCloneIsolation(t *testing.T) {
	reg := testRegistry(t)
	ctx := testContext(t, reg)
	st := NewState(nil)
	before := st.Clone()

	eng := New(ctx, st, WithRelations(reg))
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	ctx.DeclareLocal("hab", term.MkEq(a, b))
	eng.Add(term.MkEq(a, b), term.NewLocal("hab"))

	if !st.GetRoot(a).Equal(st.GetRoot(b)) {
		t.Fatal("expected the merge to land in the live state")
	}
	if before.GetRoot(a).Equal(before.GetRoot(b)) {
		t.Fatal("the snapshot must not observe later merges")
	}
	if before.GMT() != 0 {
		t.Fatalf("expected the snapshot clock to stay at 0, got %d", before.GMT())
	}
	if err := before.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
	if err := st.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
}

func TestEqcEnumeration(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	c := term.NewLocal("c")
	d := term.NewLocal("d")
	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	hcd := hypothesis(t, eng, "hcd", term.MkEq(c, d))
	eng.Add(term.MkEq(a, b), hab)
	eng.Add(term.MkEq(c, d), hcd)

	st := eng.State()
	nonSingleton := st.Roots(true)
	if len(nonSingleton) != 2 {
		t.Fatalf("expected two merged classes, got %v", nonSingleton)
	}
	for _, root := range st.Roots(false) {
		members := st.Eqc(root)
		if len(members) == 0 {
			t.Fatalf("expected %v to enumerate its class", root)
		}
		foundSelf := false
		for _, m := range members {
			if !st.GetRoot(m).Equal(root) {
				t.Fatalf("member %v of %v reports representative %v", m, root, st.GetRoot(m))
			}
			if m.Equal(root) {
				foundSelf = true
			}
		}
		if !foundSelf {
			t.Fatalf("expected %v to be a member of its own class", root)
		}
		if st.InSingletonEqc(root) != (len(members) == 1) {
			t.Fatalf("singleton report for %v disagrees with its class size %d", root, len(members))
		}
	}
	ensureInvariant(t, eng)
}

func TestNextCyclesStayClosed(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	c := term.NewLocal("c")
	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	hbc := hypothesis(t, eng, "hbc", term.MkEq(b, c))
	eng.Add(term.MkEq(a, b), hab)
	eng.Add(term.MkEq(b, c), hbc)

	st := eng.State()
	seen := 0
	var cur term.Term = a
	for {
		seen++
		if seen > 3 {
			t.Fatal("next cycle does not close over the class")
		}
		cur = st.GetNext(cur)
		if cur.Equal(a) {
			break
		}
	}
	if seen != 3 {
		t.Fatalf("expected a cycle of 3 members, got %d", seen)
	}
}

func TestHeterogeneousFlagPerClass(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	c := term.NewLocal("c")
	d := term.NewLocal("d")
	heq := hypothesis(t, eng, "heq", term.MkHEq(a, b))
	hcd := hypothesis(t, eng, "hcd", term.MkEq(c, d))
	eng.Add(term.MkHEq(a, b), heq)
	eng.Add(term.MkEq(c, d), hcd)

	st := eng.State()
	if !st.InHeterogeneousEqc(a) || !st.InHeterogeneousEqc(b) {
		t.Fatal("expected the heterogeneous flag to cover the whole class")
	}
	if st.InHeterogeneousEqc(c) || st.InHeterogeneousEqc(d) {
		t.Fatal("homogeneous merges must not set the heterogeneous flag")
	}
	ensureInvariant(t, eng)
}

func TestFreezeKeepsPartitions(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	eng.Add(term.MkEq(a, b), hab)

	st := eng.State()
	root := st.GetRoot(a)
	st.FreezePartitions()

	if !st.Frozen() {
		t.Fatal("expected the state to report frozen")
	}
	if !st.GetRoot(a).Equal(root) || !st.GetRoot(b).Equal(root) {
		t.Fatal("freezing must not disturb representatives")
	}
	if err := st.CheckInvariant(); err != nil {
		t.Fatal(err)
	}
}
