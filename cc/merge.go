// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cc

import (
	"strconv"

	"github.com/tenet-prover/tenet/metrics"
	"github.com/tenet-prover/tenet/term"
	"github.com/tenet-prover/tenet/util"
)

func (c *CC) pushTodo(lhs, rhs term.Term, proof todoProof, heq bool) {
	c.todo = append(c.todo, todoEntry{lhs: lhs, rhs: rhs, proof: proof, heq: heq})
}

func (c *CC) addEqvCore(lhs, rhs term.Term, proof todoProof, addedProp term.Term, heq bool) {
	c.pushTodo(lhs, rhs, proof, heq)
	c.processTodo(addedProp)
}

// processTodo drains the pending equation worklist to a fixed point. The
// worklist is a stack, so congruences triggered by a merge are processed
// before the remaining consequences of earlier ones. Once the state turns
// inconsistent the remaining items are discarded; every query is already
// settled at that point.
func (c *CC) processTodo(addedProp term.Term) {
	for len(c.todo) > 0 {
		if c.state.inconsistent {
			c.todo = c.todo[:0]
			return
		}
		last := len(c.todo) - 1
		item := c.todo[last]
		c.todo = c.todo[:last]
		c.addEqvStep(item.lhs, item.rhs, item.proof, addedProp, item.heq)
	}
}

// addEqvStep merges the classes of e1 and e2, justified by proof H. The
// subsumed class is re-rooted onto the new edge, its parents are rekeyed,
// and any consequences (congruences, constructor facts, boolean facts,
// subsingleton equations, contradictions) are queued or reported.
func (c *CC) addEqvStep(e1, e2 term.Term, h todoProof, addedProp term.Term, heqProof bool) {
	n1, ok1 := c.state.entry(e1)
	n2, ok2 := c.state.entry(e2)
	if !ok1 || !ok2 {
		return
	}
	if n1.root.Equal(n2.root) {
		return
	}
	r1, _ := c.state.entry(n1.root)
	r2, _ := c.state.entry(n2.root)
	e1Root := n1.root
	e2Root := n2.root
	flipped := false

	// The root of the combined class is e2Root. Interpreted values and
	// constructor applications must stay at the root; at equal priority
	// the larger class absorbs the smaller one.
	switch {
	case r1.interpreted != r2.interpreted:
		flipped = r1.interpreted
	case r1.constructor != r2.constructor:
		flipped = r1.constructor
	default:
		flipped = r1.size > r2.size
	}
	if flipped {
		e1, e2 = e2, e1
		e1Root, e2Root = e2Root, e1Root
		r1, r2 = r2, r1
	}

	valueInconsistency := false
	if r1.interpreted && r2.interpreted {
		if term.IsTrue(e1Root) || term.IsTrue(e2Root) {
			// Merging the true and false classes. The merge still runs
			// to completion so the contradiction proof is reachable
			// through the forest.
			c.state.inconsistent = true
		} else {
			valueInconsistency = true
		}
	}
	constructorEq := r1.constructor && r2.constructor

	// The chains e1 -> .. -> e1Root and e2 -> .. -> e2Root become
	// e1Root -> .. -> e1 -> e2 -> .. -> e2Root.
	c.invertTrans(e1)
	ne1, _ := c.state.entry(e1)
	ne1.target = e2
	ne1.proof = h
	ne1.flipped = flipped
	ne1.heqEdge = heqProof
	c.state.entries.Put(e1, ne1)

	// The congruence keys of the subsumed class's parents are about to
	// change. Drop them before any root moves, reinsert them after.
	c.removeParents(e1Root)

	propagate := term.IsTrue(e2Root) || term.IsFalse(e2Root)
	var toPropagate []term.Term
	it := e1
	for {
		n, _ := c.state.entry(it)
		if propagate && n.toPropagate {
			toPropagate = append(toPropagate, it)
			n.toPropagate = false
		}
		n.root = e2Root
		c.state.entries.Put(it, n)
		it = n.next
		if it.Equal(e1) {
			break
		}
	}

	c.reinsertParents(e1Root)

	// Splice the next cycles and move the class bookkeeping onto the
	// surviving root.
	or1, _ := c.state.entry(e1Root)
	or2, _ := c.state.entry(e2Root)
	or1.next, or2.next = or2.next, or1.next
	or2.size += or1.size
	or2.heqProofs = or2.heqProofs || or1.heqProofs || heqProof
	or2.mt = c.state.gmt
	c.state.entries.Put(e1Root, or1)
	c.state.entries.Put(e2Root, or2)

	c.metrics.Counter(metrics.CCMerge).Incr()
	c.metrics.Histogram(metrics.CCEqcSize).Update(int64(or2.size))

	// Hand the subsumed root's parent occurrences to the new root, so a
	// later merge touching this class rekeys them as well.
	if ps1, ok := c.state.parents.Get(e1Root); ok {
		ps2, ok := c.state.parents.Get(e2Root)
		if !ok {
			ps2 = util.NewTreeSet[parentOcc](parentOccCompare)
		}
		ps2.Union(ps1)
		c.state.parents.Delete(e1Root)
		c.state.parents.Put(e2Root, ps2)
	}

	if constructorEq {
		c.propagateConstructorEq(e1Root, e2Root)
	}
	if valueInconsistency {
		c.propagateValueInconsistency(e1Root, e2Root)
	}

	c.updateMT(e2Root)
	c.checkNewSubsingletonEq(e1Root, e2Root)

	for _, p := range toPropagate {
		fact, proof, ok := c.propagatedFact(p, e2Root, addedProp)
		if !ok {
			continue
		}
		c.metrics.Counter(metrics.CCPropagatedFacts).Incr()
		if c.onPropagate != nil {
			c.onPropagate(fact, proof)
		}
	}
}

// invertTrans reverses the proof-forest chain from e up to its current
// root, leaving e without an outgoing edge. Each reversed edge keeps its
// proof and negates its orientation flag.
func (c *CC) invertTrans(e term.Term) {
	var (
		prev    term.Term
		prevPf  todoProof
		prevFl  bool
		prevHEq bool
	)
	cur := e
	for {
		n, ok := c.state.entry(cur)
		if !ok {
			return
		}
		next, nextPf, nextFl, nextHEq := n.target, n.proof, n.flipped, n.heqEdge
		if prev != nil {
			n.target = prev
			n.proof = prevPf
			n.flipped = !prevFl
			n.heqEdge = prevHEq
		} else {
			n.target = nil
			n.proof = todoProof{}
			n.flipped = false
			n.heqEdge = false
		}
		c.state.entries.Put(cur, n)
		if next == nil {
			return
		}
		prev, prevPf, prevFl, prevHEq = cur, nextPf, nextFl, nextHEq
		cur = next
	}
}

// removeParents deletes the congruence table slots keyed through members
// of the class rooted at e. The keys are recomputed from the roots still
// in effect, so this must run before those roots change.
func (c *CC) removeParents(e term.Term) {
	ps, ok := c.state.parents.Get(e)
	if !ok {
		return
	}
	ps.Iter(func(occ parentOcc) bool {
		app, ok := occ.parent.(*term.App)
		if !ok {
			return false
		}
		if occ.symm {
			if info, lhs, rhs, ok := c.rels.AsSymmRelation(app); ok {
				c.state.symmCongruences.Delete(c.mkSymmCongrKey(info.Name, lhs, rhs))
			}
			return false
		}
		c.state.congruences.Delete(c.mkCongrKey(app))
		return false
	})
}

// reinsertParents recomputes the congruence keys of the parents of the
// class previously rooted at e. A parent whose new key collides with
// another application queues the corresponding merge; this is where a
// proven a = b turns into f(a) = f(b).
func (c *CC) reinsertParents(e term.Term) {
	ps, ok := c.state.parents.Get(e)
	if !ok {
		return
	}
	ps.Iter(func(occ parentOcc) bool {
		app, ok := occ.parent.(*term.App)
		if !ok {
			return false
		}
		if occ.symm {
			c.addSymmCongruenceTable(app)
		} else {
			c.addCongruenceTable(app)
		}
		return false
	})
}

// updateMT stamps every ancestor reachable through parent occurrences
// with the current round counter.
func (c *CC) updateMT(e term.Term) {
	root := c.state.GetRoot(e)
	ps, ok := c.state.parents.Get(root)
	if !ok {
		return
	}
	ps.Iter(func(occ parentOcc) bool {
		n, ok := c.state.entry(occ.parent)
		if !ok {
			return false
		}
		if n.mt < c.state.gmt {
			n.mt = c.state.gmt
			c.state.entries.Put(occ.parent, n)
			c.updateMT(occ.parent)
		}
		return false
	})
}

// propagateConstructorEq exploits that datatype constructors are injective
// and disjoint. Equal applications of one constructor yield per-field
// equations; equal applications of different constructors refute the
// state.
func (c *CC) propagateConstructorEq(e1, e2 term.Term) {
	c1, ok1 := c.ctx.ConstructorApp(e1)
	c2, ok2 := c.ctx.ConstructorApp(e2)
	if !ok1 || !ok2 {
		return
	}
	if c1.Name == c2.Name {
		args1 := term.AppArgs(e1)
		args2 := term.AppArgs(e2)
		if len(args1) != len(args2) {
			return
		}
		d, ok := c.ctx.Signature().Lookup(c1.Name)
		if !ok {
			return
		}
		if c.state.frozen {
			for i := d.NumParams; i < len(args1); i++ {
				c.pushTodo(args1[i], args2[i], todoProof{}, false)
			}
			return
		}
		h, err := c.getEqProofCore(e1, e2, false)
		if err != nil {
			c.logger.Debug("cc: dropping constructor injectivity for %v: %v", e1, err)
			return
		}
		for i := d.NumParams; i < len(args1); i++ {
			pf := term.NewApp(term.Const{Name: term.CtorInjName}, term.Int(strconv.Itoa(i)), h)
			c.pushTodo(args1[i], args2[i], assertProof(pf), false)
		}
		return
	}

	d1, ok1 := c.ctx.Signature().Lookup(c1.Name)
	d2, ok2 := c.ctx.Signature().Lookup(c2.Name)
	if !ok1 || !ok2 || term.NumArgs(e1) != d1.Arity() || term.NumArgs(e2) != d2.Arity() {
		// Without full applications there is no disjointness proof.
		// The contradiction is still recorded.
		c.state.inconsistent = true
		return
	}
	if c.state.frozen {
		c.pushTodo(term.True, term.False, todoProof{}, false)
		return
	}
	eqPf, err := c.getEqProofCore(e1, e2, false)
	if err != nil {
		c.logger.Debug("cc: dropping constructor disjointness for %v: %v", e1, err)
		c.state.inconsistent = true
		return
	}
	nePf := term.NewApp(term.Const{Name: term.CtorNeName}, e1, e2)
	c.pushTodo(term.True, term.False, assertProof(falseElim(term.MkEq(term.True, term.False), mkEqMP(nePf, eqPf))), false)
}

// propagateValueInconsistency handles a merge of two classes rooted at
// distinct interpreted values. For literals the refutation is pushed as a
// proven true = false merge; roots that are merely marked interpreted
// carry no disequality proof, so only the flag is set.
func (c *CC) propagateValueInconsistency(e1, e2 term.Term) {
	if !term.IsLit(e1) || !term.IsLit(e2) || c.state.frozen {
		c.state.inconsistent = true
		return
	}
	eqPf, err := c.getEqProofCore(e1, e2, false)
	if err != nil {
		c.logger.Debug("cc: dropping value disequality for %v and %v: %v", e1, e2, err)
		c.state.inconsistent = true
		return
	}
	nePf := term.NewApp(term.Const{Name: term.LitNeName}, e1, e2)
	c.pushTodo(term.True, term.False, assertProof(falseElim(term.MkEq(term.True, term.False), mkEqMP(nePf, eqPf))), false)
}

// pushSubsingletonEq queues the equation between two inhabitants of one
// subsingleton type. When the types are only propositionally equal the
// equation must be heterogeneous.
func (c *CC) pushSubsingletonEq(a, b term.Term) {
	ta, err1 := c.ctx.InferType(a)
	tb, err2 := c.ctx.InferType(b)
	if err1 != nil || err2 != nil {
		return
	}
	if c.ctx.IsDefEq(ta, tb) {
		pf := term.NewApp(term.Const{Name: term.SubsingletonElimName}, a, b)
		c.pushTodo(a, b, assertProof(pf), false)
		return
	}
	pf := term.NewApp(term.Const{Name: term.SubsingletonHElimName}, a, b)
	c.pushTodo(a, b, assertProof(pf), true)
}

// checkNewSubsingletonEq migrates the subsingleton representative indexed
// under a subsumed root to the surviving root, equating representatives
// when both classes carried one.
func (c *CC) checkNewSubsingletonEq(oldRoot, newRoot term.Term) {
	oldRep, ok := c.state.subsingletonReps.Get(oldRoot)
	if !ok {
		return
	}
	c.state.subsingletonReps.Delete(oldRoot)
	if newRep, ok := c.state.subsingletonReps.Get(newRoot); ok {
		c.pushSubsingletonEq(oldRep, newRep)
		return
	}
	c.state.subsingletonReps.Put(newRoot, oldRep)
}

// propagatedFact renders the boolean fact for a class member that landed
// in the true or false class. The asserted proposition itself is not
// reported back. Frozen states report facts without proofs.
func (c *CC) propagatedFact(p, root, addedProp term.Term) (term.Term, term.Term, bool) {
	if addedProp != nil && p.Equal(addedProp) {
		return nil, nil, false
	}
	var fact term.Term
	if term.IsTrue(root) {
		fact = p
	} else {
		fact = term.MkNot(p)
	}
	if c.state.frozen {
		return fact, nil, true
	}
	h, err := c.getEqProofCore(p, root, false)
	if err != nil {
		c.logger.Debug("cc: dropping propagation of %v: %v", fact, err)
		return nil, nil, false
	}
	if term.IsTrue(root) {
		return fact, term.NewApp(term.Const{Name: term.OfEqTrueName}, h), true
	}
	return fact, term.NewApp(term.Const{Name: term.NotOfEqFalseName}, h), true
}
