// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cc

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/tenet-prover/tenet/config"
	"github.com/tenet-prover/tenet/logging"
	loggingtest "github.com/tenet-prover/tenet/logging/test"
	"github.com/tenet-prover/tenet/metrics"
	"github.com/tenet-prover/tenet/relation"
	"github.com/tenet-prover/tenet/term"
	"github.com/tenet-prover/tenet/types"
)

func testSignature(t *testing.T) *types.Signature {
	t.Helper()
	nat := term.NewConst("nat")
	list := term.NewConst("list")
	sig := types.NewSignature()
	sig.MustDeclare(types.Decl{Name: "nat", Type: term.Sort(1)})
	sig.MustDeclare(types.Decl{Name: "list", Type: term.Sort(1)})
	sig.MustDeclare(types.Decl{Name: "zero", Type: nat, Constructor: true})
	sig.MustDeclare(types.Decl{Name: "succ", Type: term.NewArrow(nat, nat), Constructor: true})
	sig.MustDeclare(types.Decl{Name: "nil", Type: list, Constructor: true})
	sig.MustDeclare(types.Decl{Name: "cons", Type: term.NewArrow(nat, term.NewArrow(list, list)), Constructor: true})
	sig.MustDeclare(types.Decl{Name: "f", Type: term.NewArrow(nat, nat)})
	sig.MustDeclare(types.Decl{Name: "g", Type: term.NewArrow(nat, term.NewArrow(nat, nat))})
	sig.MustDeclare(types.Decl{Name: "related", Type: term.NewArrow(nat, term.NewArrow(nat, term.Prop))})
	return sig
}

func testRegistry(t *testing.T) *relation.Registry {
	t.Helper()
	reg := relation.NewRegistry()
	err := reg.Register(relation.Info{
		Name:      "related",
		Arity:     2,
		LhsPos:    0,
		RhsPos:    1,
		SymmLemma: "related.symm",
		ReflLemma: "related.refl",
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func testContext(t *testing.T, reg *relation.Registry) *types.Context {
	t.Helper()
	ctx := types.NewContext(testSignature(t), types.WithRelations(reg))
	nat := term.NewConst("nat")
	list := term.NewConst("list")
	for _, n := range []string{"a", "b", "c", "d"} {
		ctx.DeclareLocal(n, nat)
	}
	ctx.DeclareLocal("xs", list)
	ctx.DeclareLocal("ys", list)
	ctx.DeclareLocal("p", term.Prop)
	ctx.DeclareLocal("q", term.Prop)
	return ctx
}

func testEngine(t *testing.T, opts ...Option) *CC {
	t.Helper()
	reg := testRegistry(t)
	ctx := testContext(t, reg)
	return New(ctx, nil, append([]Option{WithRelations(reg)}, opts...)...)
}

// hypothesis declares a named proof of prop in the engine's context and
// returns the local standing for it.
func hypothesis(t *testing.T, c *CC, name string, prop term.Term) term.Term {
	t.Helper()
	c.Context().DeclareLocal(name, prop)
	return term.NewLocal(name)
}

// requireEqProof extracts a proof of e1 = e2 and replays it through the
// proof checker.
func requireEqProof(t *testing.T, c *CC, e1, e2 term.Term) {
	t.Helper()
	pf, ok := c.GetEqProof(e1, e2)
	if !ok {
		t.Fatalf("no equality proof for %v and %v", e1, e2)
	}
	prop, err := c.Context().CheckProof(pf)
	if err != nil {
		t.Fatalf("proof of %v = %v does not check: %v", e1, e2, err)
	}
	if !prop.Equal(term.MkEq(e1, e2)) {
		t.Fatalf("expected a proof of %v, got %v", term.MkEq(e1, e2), prop)
	}
}

func requireHEqProof(t *testing.T, c *CC, e1, e2 term.Term) {
	t.Helper()
	pf, ok := c.GetHEqProof(e1, e2)
	if !ok {
		t.Fatalf("no heterogeneous proof for %v and %v", e1, e2)
	}
	prop, err := c.Context().CheckProof(pf)
	if err != nil {
		t.Fatalf("proof of %v == %v does not check: %v", e1, e2, err)
	}
	if !prop.Equal(term.MkHEq(e1, e2)) {
		t.Fatalf("expected a proof of %v, got %v", term.MkHEq(e1, e2), prop)
	}
}

func ensureInvariant(t *testing.T, c *CC) {
	t.Helper()
	if err := c.CheckInvariant(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func TestAddEqualityTransitivity(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	c := term.NewLocal("c")
	d := term.NewLocal("d")
	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	hbc := hypothesis(t, eng, "hbc", term.MkEq(b, c))

	eng.Add(term.MkEq(a, b), hab)
	eng.Add(term.MkEq(b, c), hbc)

	for _, pair := range [][2]term.Term{{a, b}, {b, c}, {a, c}, {c, a}} {
		if !eng.IsEqv(pair[0], pair[1]) {
			t.Fatalf("expected %v and %v to be equivalent", pair[0], pair[1])
		}
	}
	if !eng.GetRoot(a).Equal(eng.GetRoot(c)) {
		t.Fatal("expected a and c to share a representative")
	}
	if eng.IsEqv(a, d) {
		t.Fatal("d was never merged")
	}
	if got := len(eng.State().Eqc(a)); got != 3 {
		t.Fatalf("expected a class of 3 members, got %d", got)
	}
	if !eng.State().InSingletonEqc(d) {
		t.Fatal("expected d to remain a singleton")
	}

	requireEqProof(t, eng, a, c)
	requireEqProof(t, eng, c, a)
	requireEqProof(t, eng, a, a)
	ensureInvariant(t, eng)
}

func TestCongruenceDetection(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	f := term.NewConst("f")
	g := term.NewConst("g")
	fa := term.NewApp(f, a)
	fb := term.NewApp(f, b)
	gaa := term.NewApp(g, a, a)
	gbb := term.NewApp(g, b, b)

	eng.Internalize(fa, false)
	eng.Internalize(fb, false)
	eng.Internalize(gaa, false)
	eng.Internalize(gbb, false)
	if eng.IsEqv(fa, fb) {
		t.Fatal("f a and f b must stay apart before any fact is added")
	}

	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	eng.Add(term.MkEq(a, b), hab)

	if !eng.IsEqv(fa, fb) {
		t.Fatal("expected f a = f b by congruence")
	}
	if !eng.IsEqv(gaa, gbb) {
		t.Fatal("expected g a a = g b b by iterated congruence")
	}
	requireEqProof(t, eng, fa, fb)
	requireEqProof(t, eng, gaa, gbb)
	requireEqProof(t, eng, gbb, gaa)
	ensureInvariant(t, eng)
}

func TestSymmetricRelationNormalization(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	related := term.NewConst("related")
	rab := term.NewApp(related, a, b)
	rba := term.NewApp(related, b, a)

	eng.Internalize(rab, false)
	eng.Internalize(rba, false)

	if !eng.IsEqv(rab, rba) {
		t.Fatal("expected operand-swapped applications of a symmetric relation to merge")
	}
	if eng.Proved(rab) {
		t.Fatal("nothing asserted the relation holds")
	}
	requireEqProof(t, eng, rab, rba)
	requireEqProof(t, eng, rba, rab)
	ensureInvariant(t, eng)
}

func TestTruthPropagation(t *testing.T) {
	var facts []term.Term
	var proofs []term.Term
	collect := func(fact, proof term.Term) {
		facts = append(facts, fact)
		proofs = append(proofs, proof)
	}

	eng := testEngine(t, WithOnPropagate(collect))
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	related := term.NewConst("related")
	rab := term.NewApp(related, a, b)

	eng.Internalize(rab, true)
	if eng.Proved(rab) {
		t.Fatal("internalization alone must not prove the relation")
	}

	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	eng.Add(term.MkEq(a, b), hab)

	if !eng.Proved(rab) {
		t.Fatal("expected related a b to follow from a = b and reflexivity")
	}
	if len(facts) != 1 || !facts[0].Equal(rab) {
		t.Fatalf("expected exactly related a b to propagate, got %v", facts)
	}
	prop, err := eng.Context().CheckProof(proofs[0])
	if err != nil {
		t.Fatalf("propagated proof does not check: %v", err)
	}
	if !prop.Equal(rab) {
		t.Fatalf("expected a proof of %v, got %v", rab, prop)
	}
	ensureInvariant(t, eng)
}

func TestNegativePropagation(t *testing.T) {
	var facts []term.Term
	var proofs []term.Term
	collect := func(fact, proof term.Term) {
		facts = append(facts, fact)
		proofs = append(proofs, proof)
	}

	eng := testEngine(t, WithOnPropagate(collect))
	p := term.NewLocal("p")
	q := term.NewLocal("q")
	iff := term.NewApp(term.NewConst(term.IffName), p, q)
	hiff := hypothesis(t, eng, "hiff", iff)
	hnp := hypothesis(t, eng, "hnp", term.MkNot(p))

	eng.Add(iff, hiff)
	eng.Add(term.MkNot(p), hnp)

	if !eng.IsEqv(q, term.False) {
		t.Fatal("expected q to land in the class of false")
	}
	if len(facts) != 1 || !facts[0].Equal(term.MkNot(q)) {
		t.Fatalf("expected exactly not q to propagate, got %v", facts)
	}
	prop, err := eng.Context().CheckProof(proofs[0])
	if err != nil {
		t.Fatalf("propagated proof does not check: %v", err)
	}
	if !prop.Equal(term.MkNot(q)) {
		t.Fatalf("expected a proof of %v, got %v", term.MkNot(q), prop)
	}
	ensureInvariant(t, eng)
}

func TestIffMergesPropositions(t *testing.T) {
	eng := testEngine(t)
	p := term.NewLocal("p")
	q := term.NewLocal("q")
	iff := term.NewApp(term.NewConst(term.IffName), p, q)
	hiff := hypothesis(t, eng, "hiff", iff)

	eng.Add(iff, hiff)

	if !eng.IsEqv(p, q) {
		t.Fatal("expected iff operands to merge")
	}
	requireEqProof(t, eng, p, q)

	hp := hypothesis(t, eng, "hp", p)
	eng.Add(p, hp)
	if !eng.Proved(q) {
		t.Fatal("expected q to be proved once p holds")
	}
	requireEqProof(t, eng, q, term.True)
	ensureInvariant(t, eng)
}

func TestNegatedEquality(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	hne := hypothesis(t, eng, "hne", term.MkNot(term.MkEq(a, b)))

	eng.Add(term.MkNot(term.MkEq(a, b)), hne)

	if !eng.IsNotEqv(a, b) {
		t.Fatal("expected a and b to be known distinct")
	}
	if eng.IsEqv(a, b) {
		t.Fatal("a and b must not be equivalent")
	}
	if eng.State().Inconsistent() {
		t.Fatal("a disequality alone is consistent")
	}
	requireEqProof(t, eng, term.MkEq(a, b), term.False)
	ensureInvariant(t, eng)
}

func TestInconsistencyFromContradiction(t *testing.T) {
	eng := testEngine(t)
	p := term.NewLocal("p")
	hp := hypothesis(t, eng, "hp", p)
	hnp := hypothesis(t, eng, "hnp", term.MkNot(p))

	eng.Add(p, hp)
	if eng.State().Inconsistent() {
		t.Fatal("a single fact cannot be contradictory")
	}
	eng.Add(term.MkNot(p), hnp)
	if !eng.State().Inconsistent() {
		t.Fatal("expected p and not p to yield an inconsistent state")
	}

	pf, ok := eng.GetInconsistencyProof()
	if !ok {
		t.Fatal("expected an inconsistency proof")
	}
	prop, err := eng.Context().CheckProof(pf)
	if err != nil {
		t.Fatalf("inconsistency proof does not check: %v", err)
	}
	if !prop.Equal(term.False) {
		t.Fatalf("expected a proof of false, got %v", prop)
	}

	// Everything internalized collapses once the state is inconsistent.
	a := term.NewLocal("a")
	zero := term.NewConst("zero")
	eng.Internalize(a, false)
	eng.Internalize(zero, false)
	if !eng.IsEqv(a, zero) {
		t.Fatal("expected vacuous equivalence in an inconsistent state")
	}

	// Further additions are ignored.
	gmt := eng.GMT()
	hq := hypothesis(t, eng, "hq", term.NewLocal("q"))
	eng.Add(term.NewLocal("q"), hq)
	if eng.GMT() != gmt {
		t.Fatal("expected add to be a no-op on an inconsistent state")
	}
}

func TestConstructorInjectivity(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	xs := term.NewLocal("xs")
	ys := term.NewLocal("ys")
	cons := term.NewConst("cons")
	e1 := term.NewApp(cons, a, xs)
	e2 := term.NewApp(cons, b, ys)
	h := hypothesis(t, eng, "h", term.MkEq(e1, e2))

	eng.Add(term.MkEq(e1, e2), h)

	if eng.State().Inconsistent() {
		t.Fatal("equal applications of one constructor are consistent")
	}
	if !eng.IsEqv(a, b) {
		t.Fatal("expected the head arguments to merge by injectivity")
	}
	if !eng.IsEqv(xs, ys) {
		t.Fatal("expected the tail arguments to merge by injectivity")
	}
	requireEqProof(t, eng, a, b)
	requireEqProof(t, eng, xs, ys)
	ensureInvariant(t, eng)
}

func TestMergeKeepsLargerConstructorClassRoot(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	c := term.NewLocal("c")
	d := term.NewLocal("d")
	succ := term.NewConst("succ")
	s1 := term.NewApp(succ, a)
	s2 := term.NewApp(succ, b)

	hc := hypothesis(t, eng, "hc", term.MkEq(c, s1))
	hd := hypothesis(t, eng, "hd", term.MkEq(d, s1))
	eng.Add(term.MkEq(c, s1), hc)
	eng.Add(term.MkEq(d, s1), hd)

	// Both roots are constructor applications, so the size of the
	// classes decides the surviving root.
	h := hypothesis(t, eng, "h", term.MkEq(s1, s2))
	eng.Add(term.MkEq(s1, s2), h)

	st := eng.State()
	if !st.GetRoot(s2).Equal(s1) {
		t.Fatalf("expected the larger class to absorb the smaller one, got root %v", st.GetRoot(s2))
	}
	if got := len(st.Eqc(s1)); got != 4 {
		t.Fatalf("expected a merged class of 4 members, got %d", got)
	}
	if !eng.IsEqv(a, b) {
		t.Fatal("expected the arguments to merge by injectivity")
	}
	requireEqProof(t, eng, c, s2)
	ensureInvariant(t, eng)
}

func TestConstructorDisjointness(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	xs := term.NewLocal("xs")
	cons := term.NewConst("cons")
	nil_ := term.NewConst("nil")
	e := term.NewApp(cons, a, xs)
	h := hypothesis(t, eng, "h", term.MkEq(e, nil_))

	eng.Add(term.MkEq(e, nil_), h)

	if !eng.State().Inconsistent() {
		t.Fatal("expected distinct constructors to contradict")
	}
	pf, ok := eng.GetInconsistencyProof()
	if !ok {
		t.Fatal("expected an inconsistency proof")
	}
	prop, err := eng.Context().CheckProof(pf)
	if err != nil {
		t.Fatalf("inconsistency proof does not check: %v", err)
	}
	if !prop.Equal(term.False) {
		t.Fatalf("expected a proof of false, got %v", prop)
	}
	if !eng.IsEqv(a, xs) {
		t.Fatal("expected vacuous equivalence in an inconsistent state")
	}
}

func TestLiteralDisequality(t *testing.T) {
	eng := testEngine(t)
	one := term.Int("1")
	two := term.Int("2")
	h := hypothesis(t, eng, "h", term.MkEq(one, two))

	eng.Add(term.MkEq(one, two), h)

	if !eng.State().Inconsistent() {
		t.Fatal("expected distinct literals to contradict")
	}
	pf, ok := eng.GetInconsistencyProof()
	if !ok {
		t.Fatal("expected an inconsistency proof")
	}
	prop, err := eng.Context().CheckProof(pf)
	if err != nil {
		t.Fatalf("inconsistency proof does not check: %v", err)
	}
	if !prop.Equal(term.False) {
		t.Fatalf("expected a proof of false, got %v", prop)
	}
}

func TestFirstOrderApproximation(t *testing.T) {
	reg := testRegistry(t)
	ctx := testContext(t, reg)
	conf := config.Default()
	conf.FOFns = []string{"g"}
	eng := New(ctx, NewState(conf), WithRelations(reg))

	a := term.NewLocal("a")
	b := term.NewLocal("b")
	c := term.NewLocal("c")
	g := term.NewConst("g")
	gab := term.NewApp(g, a, b)
	gcb := term.NewApp(g, c, b)

	eng.Internalize(gab, false)
	eng.Internalize(gcb, false)
	hac := hypothesis(t, eng, "hac", term.MkEq(a, c))
	eng.Add(term.MkEq(a, c), hac)

	if !eng.IsEqv(gab, gcb) {
		t.Fatal("expected full applications to merge by congruence")
	}
	requireEqProof(t, eng, gab, gcb)
	// Partial applications of a first-order symbol are not tracked.
	if eng.IsEqv(term.NewApp(g, a), term.NewApp(g, c)) {
		t.Fatal("partial applications must stay invisible under the first-order approximation")
	}
	ensureInvariant(t, eng)

	// The default engine tracks every partial application.
	ho := testEngine(t)
	ho.Internalize(gab, false)
	ho.Internalize(gcb, false)
	hac2 := hypothesis(t, ho, "hac", term.MkEq(a, c))
	ho.Add(term.MkEq(a, c), hac2)
	if !ho.IsEqv(term.NewApp(g, a), term.NewApp(g, c)) {
		t.Fatal("expected partial applications to merge without the approximation")
	}
	requireEqProof(t, ho, term.NewApp(g, a), term.NewApp(g, c))
	ensureInvariant(t, ho)
}

func TestFrozenPartitions(t *testing.T) {
	var facts []term.Term
	var proofs []term.Term
	collect := func(fact, proof term.Term) {
		facts = append(facts, fact)
		proofs = append(proofs, proof)
	}

	eng := testEngine(t, WithOnPropagate(collect))
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	c := term.NewLocal("c")
	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	eng.Add(term.MkEq(a, b), hab)

	eng.State().FreezePartitions()
	if !eng.State().Frozen() {
		t.Fatal("expected the state to report frozen")
	}
	if !eng.IsEqv(a, b) {
		t.Fatal("freezing must not lose equivalences")
	}
	if _, ok := eng.GetEqProof(a, b); ok {
		t.Fatal("frozen states do not produce proofs")
	}

	// New merges keep frozen representatives in place.
	frozenRoot := eng.GetRoot(a)
	hbc := hypothesis(t, eng, "hbc", term.MkEq(b, c))
	eng.Add(term.MkEq(b, c), hbc)
	if !eng.IsEqv(a, c) {
		t.Fatal("expected frozen states to keep merging")
	}
	if !eng.GetRoot(c).Equal(frozenRoot) {
		t.Fatal("expected the frozen representative to survive the merge")
	}

	// Truth still propagates, with proofs elided.
	p := term.NewLocal("p")
	q := term.NewLocal("q")
	iff := term.NewApp(term.NewConst(term.IffName), p, q)
	hiff := hypothesis(t, eng, "hiff", iff)
	hp := hypothesis(t, eng, "hp", p)
	eng.Add(iff, hiff)
	eng.Add(p, hp)
	if !eng.Proved(q) {
		t.Fatal("expected q to be proved in the frozen state")
	}
	if len(facts) != 1 || !facts[0].Equal(q) {
		t.Fatalf("expected exactly q to propagate, got %v", facts)
	}
	if proofs[0] != nil {
		t.Fatalf("frozen propagation must elide proofs, got %v", proofs[0])
	}
	ensureInvariant(t, eng)
}

func TestFrozenInconsistencyHasNoProof(t *testing.T) {
	eng := testEngine(t)
	eng.State().FreezePartitions()

	a := term.NewLocal("a")
	xs := term.NewLocal("xs")
	e := term.NewApp(term.NewConst("cons"), a, xs)
	h := hypothesis(t, eng, "h", term.MkEq(e, term.NewConst("nil")))
	eng.Add(term.MkEq(e, term.NewConst("nil")), h)

	if !eng.State().Inconsistent() {
		t.Fatal("expected the disjointness contradiction to be detected")
	}
	if _, ok := eng.GetInconsistencyProof(); ok {
		t.Fatal("frozen states do not produce inconsistency proofs")
	}
}

func TestHeterogeneousProofs(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	h := hypothesis(t, eng, "h", term.MkHEq(a, b))

	eng.Add(term.MkHEq(a, b), h)

	if !eng.IsEqv(a, b) {
		t.Fatal("expected heterogeneous equality to merge the operands")
	}
	if !eng.InHeterogeneousEqc(a) {
		t.Fatal("expected the class to be marked heterogeneous")
	}
	requireHEqProof(t, eng, a, b)
	requireHEqProof(t, eng, b, a)
	requireEqProof(t, eng, a, b)

	pf, ok := eng.GetProof(a, b)
	if !ok {
		t.Fatal("expected a proof in the class flavor")
	}
	prop, err := eng.Context().CheckProof(pf)
	if err != nil {
		t.Fatal(err)
	}
	if !prop.Equal(term.MkHEq(a, b)) {
		t.Fatalf("expected the natural flavor to be heterogeneous, got %v", prop)
	}

	pf, ok = eng.GetProofOfKind(a, b, KindEq)
	if !ok {
		t.Fatal("expected a homogeneous proof on request")
	}
	prop, err = eng.Context().CheckProof(pf)
	if err != nil {
		t.Fatal(err)
	}
	if !prop.Equal(term.MkEq(a, b)) {
		t.Fatalf("expected a homogeneous proof, got %v", prop)
	}
	ensureInvariant(t, eng)
}

func TestSubsingletonPropagation(t *testing.T) {
	eng := testEngine(t)
	p := term.NewLocal("p")
	h1 := hypothesis(t, eng, "h1", p)
	h2 := hypothesis(t, eng, "h2", p)

	eng.Internalize(h1, false)
	eng.Internalize(h2, false)

	if !eng.IsEqv(h1, h2) {
		t.Fatal("expected two proofs of one proposition to merge")
	}
	requireEqProof(t, eng, h1, h2)
	ensureInvariant(t, eng)
}

func TestCloneIsIndependent(t *testing.T) {
	reg := testRegistry(t)
	ctx := testContext(t, reg)
	eng1 := New(ctx, nil, WithRelations(reg))

	a := term.NewLocal("a")
	b := term.NewLocal("b")
	c := term.NewLocal("c")
	ctx.DeclareLocal("hab", term.MkEq(a, b))
	ctx.DeclareLocal("hbc", term.MkEq(b, c))
	eng1.Add(term.MkEq(a, b), term.NewLocal("hab"))

	eng2 := New(ctx, eng1.State().Clone(), WithRelations(reg))
	eng2.Add(term.MkEq(b, c), term.NewLocal("hbc"))

	if !eng2.IsEqv(a, c) {
		t.Fatal("expected the clone to extend the partition")
	}
	if eng1.IsEqv(a, c) {
		t.Fatal("the original must not observe merges in the clone")
	}
	if !eng1.IsEqv(a, b) {
		t.Fatal("the original partition must survive cloning")
	}
	if eng1.GMT() == eng2.GMT() {
		t.Fatal("expected the clone to advance its own clock")
	}
	requireEqProof(t, eng2, a, c)
	requireEqProof(t, eng1, a, b)
	ensureInvariant(t, eng1)
	ensureInvariant(t, eng2)
}

func TestMergeOrderConfluence(t *testing.T) {
	pairs := map[string][2]string{
		"ab": {"a", "b"},
		"bc": {"b", "c"},
		"cd": {"c", "d"},
	}
	orders := []struct {
		note  string
		order []string
	}{
		{"chain forward", []string{"ab", "bc", "cd"}},
		{"chain backward", []string{"cd", "bc", "ab"}},
		{"bridge last", []string{"ab", "cd", "bc"}},
	}

	for _, tc := range orders {
		t.Run(tc.note, func(t *testing.T) {
			eng := testEngine(t)
			for i, key := range tc.order {
				lhs := term.NewLocal(pairs[key][0])
				rhs := term.NewLocal(pairs[key][1])
				h := hypothesis(t, eng, fmt.Sprintf("h%d", i), term.MkEq(lhs, rhs))
				eng.Add(term.MkEq(lhs, rhs), h)
			}
			a := term.NewLocal("a")
			d := term.NewLocal("d")
			if !eng.IsEqv(a, d) {
				t.Fatal("expected the endpoints to join regardless of order")
			}
			if got := len(eng.State().Eqc(a)); got != 4 {
				t.Fatalf("expected one class of 4 members, got %d", got)
			}
			if got := len(eng.State().Roots(true)); got != 1 {
				t.Fatalf("expected a single non-singleton class, got %d", got)
			}
			requireEqProof(t, eng, a, d)
			ensureInvariant(t, eng)
		})
	}
}

func TestModificationTimes(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	f := term.NewConst("f")
	fa := term.NewApp(f, a)

	eng.Internalize(fa, false)
	if eng.GMT() != 0 {
		t.Fatalf("expected the clock to start at 0, got %d", eng.GMT())
	}
	if eng.GetMT(fa) != 0 {
		t.Fatalf("expected f a to carry the initial timestamp, got %d", eng.GetMT(fa))
	}

	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	eng.Add(term.MkEq(a, b), hab)

	if eng.GMT() != 1 {
		t.Fatalf("expected each add to tick the clock once, got %d", eng.GMT())
	}
	if eng.GetMT(fa) != 1 {
		t.Fatalf("expected the parent of a merged term to be restamped, got %d", eng.GetMT(fa))
	}
	if eng.GetMT(eng.GetRoot(a)) != 1 {
		t.Fatalf("expected the merged representative to be restamped, got %d", eng.GetMT(eng.GetRoot(a)))
	}
	if eng.GetMT(f) != 0 {
		t.Fatalf("expected untouched terms to keep their timestamp, got %d", eng.GetMT(f))
	}
	ensureInvariant(t, eng)
}

func TestMetricsInstrumentation(t *testing.T) {
	m := metrics.New()
	eng := testEngine(t, WithMetrics(m))
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	f := term.NewConst("f")
	fa := term.NewApp(f, a)
	fb := term.NewApp(f, b)

	eng.Internalize(fa, false)
	eng.Internalize(fb, false)
	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	eng.Add(term.MkEq(a, b), hab)
	requireEqProof(t, eng, fa, fb)

	if got := m.Counter(metrics.CCMerge).Value().(uint64); got < 2 {
		t.Fatalf("expected at least 2 merges, got %d", got)
	}
	if got := m.Counter(metrics.CCCongruenceHit).Value().(uint64); got < 1 {
		t.Fatalf("expected at least 1 congruence hit, got %d", got)
	}
	all := m.All()
	for _, key := range []string{
		"timer_" + metrics.CCInternalize + "_ns",
		"timer_" + metrics.CCAdd + "_ns",
		"timer_" + metrics.CCProofBuild + "_ns",
		"histogram_" + metrics.CCProofLength,
		"histogram_" + metrics.CCEqcSize,
		"counter_" + metrics.CCMerge,
	} {
		if _, ok := all[key]; !ok {
			t.Fatalf("expected %v to be recorded", key)
		}
	}
}

func TestInternalizeSkipsUntrackedTerms(t *testing.T) {
	logger := loggingtest.New()
	logger.SetLevel(logging.Debug)
	eng := testEngine(t, WithLogger(logger))
	f := term.NewConst("f")
	withMeta := term.NewApp(f, term.Meta{Name: "m"})

	eng.Internalize(withMeta, false)
	if eng.IsEqv(withMeta, withMeta) {
		t.Fatal("terms containing metavariables must not be internalized")
	}
	found := false
	for _, entry := range logger.Entries() {
		if entry.Level == logging.Debug && strings.Contains(entry.Message, "metavariables") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the skipped term to be logged at debug level")
	}

	eng.Internalize(term.Sort(1), false)
	if !eng.State().GetRoot(term.Sort(1)).Equal(term.Sort(1)) {
		t.Fatal("expected an untracked term to be its own representative")
	}
	ensureInvariant(t, eng)
}

func TestDumpOutput(t *testing.T) {
	eng := testEngine(t)
	a := term.NewLocal("a")
	b := term.NewLocal("b")
	f := term.NewConst("f")
	eng.Internalize(term.NewApp(f, a), false)
	eng.Internalize(term.NewApp(f, b), false)
	hab := hypothesis(t, eng, "hab", term.MkEq(a, b))
	eng.Add(term.MkEq(a, b), hab)

	var buf bytes.Buffer
	eng.DumpEqcs(&buf, false)
	if !strings.Contains(buf.String(), "Root") {
		t.Fatalf("expected a class table, got %q", buf.String())
	}

	buf.Reset()
	eng.DumpParents(&buf)
	if !strings.Contains(buf.String(), "Parents") {
		t.Fatalf("expected a parents table, got %q", buf.String())
	}

	buf.Reset()
	eng.DumpCongruences(&buf)
	if !strings.Contains(buf.String(), "Representative") {
		t.Fatalf("expected a congruence table, got %q", buf.String())
	}
}
