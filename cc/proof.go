// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cc

import (
	"errors"
	"fmt"

	"github.com/tenet-prover/tenet/congr"
	"github.com/tenet-prover/tenet/metrics"
	"github.com/tenet-prover/tenet/term"
	"github.com/tenet-prover/tenet/util"
)

var errFrozenProofs = errors.New("proofs are not retained in a frozen state")

// chainStep is one proof-forest edge on a reconstruction path, oriented in
// the direction of travel.
type chainStep struct {
	from, to term.Term
	h        todoProof
	flipped  bool
	heqEdge  bool
}

// getEqProofCore synthesizes a proof that e1 equals e2, heterogeneously
// when asHeq is set. The two forest chains are walked to their meet point
// and the edge justifications along the way are expanded and composed by
// transitivity. Congruence and reflexive-application edges are
// reconstructed here rather than stored, so the forest itself stays small.
func (c *CC) getEqProofCore(e1, e2 term.Term, asHeq bool) (term.Term, error) {
	if c.state.frozen {
		return nil, errFrozenProofs
	}
	if term.HasMeta(e1) || term.HasMeta(e2) {
		return nil, fmt.Errorf("no proof: %v or %v contains metavariables", e1, e2)
	}
	if c.ctx.IsDefEq(e1, e2) {
		if asHeq {
			return mkHEqRefl(e1), nil
		}
		return mkEqRefl(e1), nil
	}
	n1, ok1 := c.state.entry(e1)
	n2, ok2 := c.state.entry(e2)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("no proof: %v and %v are not both internalized", e1, e2)
	}
	if !n1.root.Equal(n2.root) {
		return nil, fmt.Errorf("no proof: %v and %v are in distinct classes", e1, e2)
	}
	timer := c.metrics.Timer(metrics.CCProofBuild)
	timer.Start()
	defer timer.Stop()

	rootEntry, _ := c.state.entry(n1.root)
	classHeq := rootEntry.heqProofs

	// Chain from e1 to the root. dist records how many steps of path1
	// reach each visited node.
	var path1 []chainStep
	dist := util.NewHashMap[term.Term, int](termEq, termHash)
	dist.Put(e1, 0)
	cur := e1
	for {
		n, ok := c.state.entry(cur)
		if !ok || n.target == nil {
			break
		}
		path1 = append(path1, chainStep{from: cur, to: n.target, h: n.proof, flipped: n.flipped, heqEdge: n.heqEdge})
		cur = n.target
		dist.Put(cur, len(path1))
	}

	// Chain from e2 until it meets path1. Steps are pre-oriented from
	// target to source, ready for the return leg of the composition.
	var path2 []chainStep
	meet := -1
	cur = e2
	for {
		if d, ok := dist.Get(cur); ok {
			meet = d
			break
		}
		n, ok := c.state.entry(cur)
		if !ok || n.target == nil {
			return nil, fmt.Errorf("no proof: forest chains of %v and %v do not meet", e1, e2)
		}
		path2 = append(path2, chainStep{from: n.target, to: cur, h: n.proof, flipped: !n.flipped, heqEdge: n.heqEdge})
		cur = n.target
	}
	path1 = path1[:meet]

	var pf term.Term
	steps := 0
	compose := func(s chainStep) error {
		seg, err := c.mkProof(s, classHeq)
		if err != nil {
			return err
		}
		pf = mkTransStep(pf, seg, classHeq)
		steps++
		return nil
	}
	for _, s := range path1 {
		if err := compose(s); err != nil {
			return nil, err
		}
	}
	for i := len(path2) - 1; i >= 0; i-- {
		if err := compose(path2[i]); err != nil {
			return nil, err
		}
	}
	c.metrics.Histogram(metrics.CCProofLength).Update(int64(steps))
	if pf == nil {
		if asHeq {
			return mkHEqRefl(e1), nil
		}
		return mkEqRefl(e1), nil
	}
	if classHeq && !asHeq {
		pf = mkEqOfHEq(pf)
	} else if !classHeq && asHeq {
		pf = mkHEqOfEq(pf)
	}
	return pf, nil
}

// mkProof expands one edge justification into an explicit proof from
// s.from to s.to, in the heterogeneous flavor when the class demands it.
// Congruence and eq-true markers orient themselves by the endpoints, so
// the flip flag only applies to stored assertion proofs.
func (c *CC) mkProof(s chainStep, classHeq bool) (term.Term, error) {
	var pf term.Term
	var isHeq bool
	switch s.h.kind {
	case proofCongr:
		var err error
		pf, isHeq, err = c.mkCongrProof(s.from, s.to)
		if err != nil {
			return nil, err
		}
	case proofEqTrue:
		var err error
		pf, err = c.mkEqTrueProof(s.from, s.to)
		if err != nil {
			return nil, err
		}
	default:
		if s.h.pf == nil {
			return nil, fmt.Errorf("no proof recorded between %v and %v", s.from, s.to)
		}
		pf = s.h.pf
		isHeq = s.heqEdge
		if classHeq && !isHeq {
			pf = mkHEqOfEq(pf)
			isHeq = true
		}
		if s.flipped {
			if isHeq {
				pf = mkHEqSymm(pf)
			} else {
				pf = mkEqSymm(pf)
			}
		}
	}
	if classHeq && !isHeq {
		pf = mkHEqOfEq(pf)
	}
	return pf, nil
}

// mkCongrProof reconstructs the proof behind a congruence edge. Symmetric
// relation applications whose operands matched crosswise need a
// commutativity step first; everything else reduces to a structural
// congruence chain.
func (c *CC) mkCongrProof(e1, e2 term.Term) (term.Term, bool, error) {
	pf, handled, err := c.mkSymmCongrProof(e1, e2)
	if err != nil {
		return nil, false, err
	}
	if handled {
		return pf, false, nil
	}
	return c.mkCongrProofCore(e1, e2)
}

func (c *CC) mkSymmCongrProof(e1, e2 term.Term) (term.Term, bool, error) {
	i1, a, b, ok1 := c.rels.AsSymmRelation(e1)
	i2, x, y, ok2 := c.rels.AsSymmRelation(e2)
	if !ok1 || !ok2 || i1.Name != i2.Name || !binarySymm(i1) || !binarySymm(i2) {
		return nil, false, nil
	}
	rel := term.Const{Name: i1.Name}
	if c.sameClass(a, x) && c.sameClass(b, y) {
		pf, err := c.spineCongrProof(rel, rel, []term.Term{a, b}, []term.Term{x, y}, nil)
		if err != nil {
			return nil, false, err
		}
		return pf, true, nil
	}
	if c.sameClass(a, y) && c.sameClass(b, x) {
		comm := term.NewApp(term.Const{Name: term.CommEqName}, rel, a, b)
		rest, err := c.spineCongrProof(rel, rel, []term.Term{b, a}, []term.Term{x, y}, nil)
		if err != nil {
			return nil, false, err
		}
		return mkTransStep(comm, rest, false), true, nil
	}
	return nil, false, nil
}

func (c *CC) mkCongrProofCore(e1, e2 term.Term) (term.Term, bool, error) {
	a1, ok1 := e1.(*term.App)
	a2, ok2 := e2.(*term.App)
	if !ok1 || !ok2 {
		return nil, false, fmt.Errorf("no congruence between non-applications %v and %v", e1, e2)
	}
	if c.congrConclusionIsHEq(e1, e2) {
		return c.mkHCongrProof(a1, a2)
	}
	if n, ok := c.state.entry(e1); ok && n.fo {
		args1, args2 := term.AppArgs(a1), term.AppArgs(a2)
		if len(args1) != len(args2) {
			return nil, false, fmt.Errorf("no congruence: %v and %v have different arities", e1, e2)
		}
		pf, err := c.spineCongrProof(term.AppFn(a1), term.AppFn(a2), args1, args2, c.instanceKinds(a1, len(args1)))
		return pf, false, err
	}
	var kinds []congr.ArgKind
	if ks := c.instanceKinds(a1, term.NumArgs(a1)); ks != nil && ks[len(ks)-1] == congr.ArgCast {
		kinds = []congr.ArgKind{congr.ArgCast}
	}
	pf, err := c.spineCongrProof(a1.Fn(), a2.Fn(), []term.Term{a1.Arg()}, []term.Term{a2.Arg()}, kinds)
	return pf, false, err
}

// spineCongrProof chains congruence steps over two equal-length argument
// spines, proving fn1 args1 = fn2 args2. Identical pieces contribute no
// step; erased instance arguments fall back to subsingleton elimination.
func (c *CC) spineCongrProof(fn1, fn2 term.Term, args1, args2 []term.Term, kinds []congr.ArgKind) (term.Term, error) {
	var pf term.Term
	if !fn1.Equal(fn2) {
		h, err := c.getEqProofCore(fn1, fn2, false)
		if err != nil {
			return nil, err
		}
		pf = h
	}
	prefix := fn1
	for i := range args1 {
		var argPf term.Term
		if !args1[i].Equal(args2[i]) {
			cast := kinds != nil && kinds[i] == congr.ArgCast
			h, err := c.argEqProof(args1[i], args2[i], cast)
			if err != nil {
				return nil, err
			}
			argPf = h
		}
		switch {
		case pf == nil && argPf == nil:
		case pf == nil:
			pf = mkCongrArg(prefix, argPf)
		case argPf == nil:
			pf = mkCongrFun(pf, args1[i])
		default:
			pf = mkCongr(pf, argPf)
		}
		prefix = term.NewApp(prefix, args1[i])
	}
	if pf == nil {
		pf = mkEqRefl(prefix)
	}
	return pf, nil
}

// argEqProof proves one argument pair equal, preferring the forest and
// falling back to subsingleton elimination for erased instance arguments.
func (c *CC) argEqProof(a, b term.Term, cast bool) (term.Term, error) {
	if c.sameClass(a, b) {
		return c.getEqProofCore(a, b, false)
	}
	if cast {
		ta, err := c.ctx.InferType(a)
		if err != nil {
			return nil, err
		}
		tb, err := c.ctx.InferType(b)
		if err != nil {
			return nil, err
		}
		if c.ctx.IsDefEq(ta, tb) {
			return term.NewApp(term.Const{Name: term.SubsingletonElimName}, a, b), nil
		}
	}
	return nil, fmt.Errorf("no equation between %v and %v", a, b)
}

// mkHCongrProof handles one application level whose pieces are related
// only up to heterogeneous equality.
func (c *CC) mkHCongrProof(e1, e2 *term.App) (term.Term, bool, error) {
	fnPf, err := c.getEqProofCore(e1.Fn(), e2.Fn(), true)
	if err != nil {
		return nil, false, err
	}
	var argPf term.Term
	if c.sameClass(e1.Arg(), e2.Arg()) {
		argPf, err = c.getEqProofCore(e1.Arg(), e2.Arg(), true)
		if err != nil {
			return nil, false, err
		}
	} else {
		argPf = term.NewApp(term.Const{Name: term.SubsingletonHElimName}, e1.Arg(), e2.Arg())
	}
	return term.NewApp(term.Const{Name: term.HCongrName}, fnPf, argPf), true, nil
}

// mkEqTrueProof proves the edge equating a reflexive relation application
// with true. Either endpoint may be the application.
func (c *CC) mkEqTrueProof(from, to term.Term) (term.Term, error) {
	e := from
	flip := false
	if term.IsTrue(e) {
		e = to
		flip = true
	}
	info, lhs, rhs, ok := c.rels.AsReflRelation(e)
	if !ok {
		return nil, fmt.Errorf("%v is not a reflexive relation application", e)
	}
	refl, err := c.rels.ReflProof(info.Name, lhs)
	if err != nil {
		return nil, err
	}
	var holds term.Term
	if lhs.Equal(rhs) {
		holds = refl
	} else {
		h, err := c.getEqProofCore(lhs, rhs, false)
		if err != nil {
			return nil, err
		}
		// Transport R lhs lhs along lhs = rhs.
		holds = mkEqMP(mkCongrArg(term.NewApp(term.Const{Name: info.Name}, lhs), h), refl)
	}
	pf := mkEqTrueIntro(holds)
	if flip {
		pf = mkEqSymm(pf)
	}
	return pf, nil
}

func (c *CC) sameClass(a, b term.Term) bool {
	na, ok1 := c.state.entry(a)
	nb, ok2 := c.state.entry(b)
	return ok1 && ok2 && na.root.Equal(nb.root)
}

func mkTransStep(acc, seg term.Term, heq bool) term.Term {
	if acc == nil {
		return seg
	}
	if heq {
		return term.NewApp(term.Const{Name: term.HEqTransName}, acc, seg)
	}
	return term.NewApp(term.Const{Name: term.EqTransName}, acc, seg)
}

func termEq(a, b term.Term) bool { return a.Equal(b) }

func termHash(t term.Term) uint64 { return t.Hash() }

func mkEqRefl(e term.Term) term.Term { return term.NewApp(term.Const{Name: term.EqReflName}, e) }

func mkHEqRefl(e term.Term) term.Term { return term.NewApp(term.Const{Name: term.HEqReflName}, e) }

func mkEqSymm(h term.Term) term.Term { return term.NewApp(term.Const{Name: term.EqSymmName}, h) }

func mkHEqSymm(h term.Term) term.Term { return term.NewApp(term.Const{Name: term.HEqSymmName}, h) }

func mkHEqOfEq(h term.Term) term.Term { return term.NewApp(term.Const{Name: term.HEqOfEqName}, h) }

func mkEqOfHEq(h term.Term) term.Term { return term.NewApp(term.Const{Name: term.EqOfHEqName}, h) }

func mkEqMP(h1, h2 term.Term) term.Term {
	return term.NewApp(term.Const{Name: term.EqMPName}, h1, h2)
}

func mkCongr(h1, h2 term.Term) term.Term {
	return term.NewApp(term.Const{Name: term.CongrName}, h1, h2)
}

func mkCongrArg(f, h term.Term) term.Term {
	return term.NewApp(term.Const{Name: term.CongrArgName}, f, h)
}

func mkCongrFun(h, a term.Term) term.Term {
	return term.NewApp(term.Const{Name: term.CongrFunName}, h, a)
}

func mkPropext(h term.Term) term.Term {
	return term.NewApp(term.Const{Name: term.PropextName}, h)
}

func mkEqTrueIntro(h term.Term) term.Term {
	return term.NewApp(term.Const{Name: term.EqTrueIntroName}, h)
}

func mkEqFalseIntro(h term.Term) term.Term {
	return term.NewApp(term.Const{Name: term.EqFalseIntroName}, h)
}

func falseElim(motive, h term.Term) term.Term {
	return term.NewApp(term.Const{Name: term.FalseRecName}, motive, h)
}
