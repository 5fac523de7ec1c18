// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cc

import (
	"fmt"

	"github.com/tenet-prover/tenet/congr"
	"github.com/tenet-prover/tenet/metrics"
	"github.com/tenet-prover/tenet/relation"
	"github.com/tenet-prover/tenet/term"
	"github.com/tenet-prover/tenet/util"
)

// internalizeCore registers e and its relevant subterms. Terms containing
// metavariables are skipped entirely, sorts and bound indices carry no
// equational content, and the bodies of function literals are never
// visited. Propositional arrows are traversed on both sides; any other
// function type is registered without descending.
func (c *CC) internalizeCore(e term.Term, toplevel, toPropagate bool) {
	if term.HasMeta(e) {
		c.logger.Debug("cc: skipping %v: contains metavariables", e)
		return
	}
	switch t := e.(type) {
	case term.Sort, term.Bound, term.Meta:
		return
	case term.Const, term.Local, term.Int, term.Str:
		c.mkEntry(e, toPropagate)
	case *term.Lambda:
		c.mkEntry(e, false)
	case *term.Pi:
		if t.IsArrow() && c.ctx.IsProp(t.Domain()) && c.ctx.IsProp(t.Body()) {
			c.internalizeCore(t.Domain(), toplevel, toPropagate)
			c.internalizeCore(t.Body(), toplevel, toPropagate)
		}
		if c.ctx.IsProp(e) {
			c.mkEntry(e, false)
		}
	case *term.App:
		c.internalizeApp(t, toplevel, toPropagate)
	}
}

func (c *CC) internalizeApp(e *term.App, toplevel, toPropagate bool) {
	lapp := isLogicalApp(e)
	c.mkEntry(e, toPropagate && !lapp)
	if toplevel {
		if lapp {
			// Operands of a top-level fact keep propagating.
			toPropagate = true
		} else {
			toplevel = false
		}
	} else {
		toPropagate = false
	}

	// Propositional connectives stay out of the congruence tables; their
	// operands are visited as facts in their own right.
	if lapp {
		for _, arg := range term.AppArgs(e) {
			c.internalizeCore(arg, toplevel, toPropagate)
		}
		return
	}

	if info, lhs, rhs, ok := c.rels.AsSymmRelation(e); ok && binarySymm(info) {
		c.internalizeCore(lhs, false, false)
		c.internalizeCore(rhs, false, false)
		c.addOccurrence(e, lhs, true)
		c.addOccurrence(e, rhs, true)
		c.addSymmCongruenceTable(e)
	}

	if _, err := c.lemmas.LemmaFor(e); err != nil {
		// Without a congruence lemma the pieces are still tracked, but
		// congruences through this application are not detected.
		c.logger.Debug("cc: no congruence lemma for %v: %v", e, err)
		c.internalizeCore(e.Fn(), false, false)
		c.internalizeCore(e.Arg(), false, false)
		return
	}

	if fn := term.AppFn(e); c.useFO(fn) {
		// First-order approximation: occurrences are recorded at full
		// arity only and partial applications are not tracked.
		c.setFO(e)
		c.internalizeCore(fn, false, false)
		c.addOccurrence(e, fn, false)
		for _, arg := range term.AppArgs(e) {
			c.internalizeCore(arg, false, false)
			c.addOccurrence(e, arg, false)
		}
	} else {
		c.internalizeCore(e.Fn(), false, false)
		c.internalizeCore(e.Arg(), false, false)
		c.addOccurrence(e, e.Fn(), false)
		c.addOccurrence(e, e.Arg(), false)
	}
	c.addCongruenceTable(e)
}

// mkEntry creates the union-find record for e if none exists yet. A later
// internalization can still upgrade the propagation flag of an existing
// record.
func (c *CC) mkEntry(e term.Term, toPropagate bool) {
	if toPropagate && !c.ctx.IsProp(e) {
		toPropagate = false
	}
	if n, ok := c.state.entry(e); ok {
		if toPropagate && !n.toPropagate {
			n.toPropagate = true
			c.state.entries.Put(e, n)
		}
		return
	}
	constructor := false
	if _, ok := c.ctx.ConstructorApp(e); ok {
		constructor = true
	}
	c.state.mkEntryCore(e, toPropagate, c.isInterpretedValue(e), constructor)
	c.processSubsingletonElem(e)
}

func (c *CC) isInterpretedValue(e term.Term) bool {
	if term.IsTrue(e) || term.IsFalse(e) {
		return true
	}
	return c.state.values && term.IsLit(e)
}

func (c *CC) useFO(fn term.Term) bool {
	if c.state.allHO || len(c.state.foFns) == 0 {
		return false
	}
	cst, ok := fn.(term.Const)
	return ok && c.state.foFns[cst.Name]
}

func (c *CC) setFO(e term.Term) {
	if n, ok := c.state.entry(e); ok && !n.fo {
		n.fo = true
		c.state.entries.Put(e, n)
	}
}

// isLogicalApp detects fully applied propositional connectives.
func isLogicalApp(e *term.App) bool {
	cst, ok := term.AppFn(e).(term.Const)
	if !ok {
		return false
	}
	switch cst.Name {
	case term.AndName, term.OrName:
		return term.NumArgs(e) == 2
	case term.NotName:
		return term.NumArgs(e) == 1
	}
	return false
}

// binarySymm restricts the symmetric table to plain binary relations. A
// relation carrying extra parameters cannot be keyed by its operand pair
// alone, since the erased parameters could differ.
func binarySymm(info relation.Info) bool {
	return info.Arity == 2 && info.LhsPos == 0 && info.RhsPos == 1
}

// addOccurrence records that parent contains child at a congruence
// relevant position. Occurrences are indexed by the child's class root and
// carry the table the parent occupies for this occurrence.
func (c *CC) addOccurrence(parent, child term.Term, symm bool) {
	root := c.state.GetRoot(child)
	ps, ok := c.state.parents.Get(root)
	if !ok {
		ps = util.NewTreeSet[parentOcc](parentOccCompare)
	}
	ps.Add(parentOcc{parent: parent, symm: symm})
	c.state.parents.Put(root, ps)
}

// mkCongrKey fingerprints an application from the current class roots of
// its pieces. First-order applications are keyed on the full argument
// list; everything else is keyed one application level at a time, so
// congruent partial applications are detected as well. Instance-implicit
// arguments are erased from the key when the configuration ignores
// instances and the congruence lemma marks them cast-eligible.
func (c *CC) mkCongrKey(e *term.App) congrKey {
	n, _ := c.state.entry(e)
	if n.fo {
		fn := term.AppFn(e)
		args := term.AppArgs(e)
		kinds := c.instanceKinds(e, len(args))
		k := congrKey{fo: true, fn: c.state.GetRoot(fn), args: make([]term.Term, 0, len(args))}
		for i, arg := range args {
			if kinds != nil && kinds[i] == congr.ArgCast {
				continue
			}
			k.args = append(k.args, c.state.GetRoot(arg))
		}
		k.hash = congrKeyHash(true, k.fn, k.args)
		return k
	}
	k := congrKey{fn: c.state.GetRoot(e.Fn())}
	nargs := term.NumArgs(e)
	if kinds := c.instanceKinds(e, nargs); kinds == nil || kinds[nargs-1] != congr.ArgCast {
		k.args = []term.Term{c.state.GetRoot(e.Arg())}
	}
	k.hash = congrKeyHash(false, k.fn, k.args)
	return k
}

// instanceKinds returns the argument kinds of the spine lemma when
// instance erasure applies, and nil otherwise.
func (c *CC) instanceKinds(e *term.App, nargs int) []congr.ArgKind {
	if !c.state.ignoreInstances {
		return nil
	}
	lemma, err := c.lemmas.LemmaFor(e)
	if err != nil || len(lemma.ArgKinds) != nargs {
		return nil
	}
	return lemma.ArgKinds
}

func (c *CC) mkSymmCongrKey(rel string, lhs, rhs term.Term) symmKey {
	l := c.state.GetRoot(lhs)
	r := c.state.GetRoot(rhs)
	if term.QuickCompare(l, r) > 0 {
		l, r = r, l
	}
	return symmKey{rel: rel, lhs: l, rhs: r, hash: symmKeyHash(rel, l, r)}
}

// addCongruenceTable registers the fingerprint of e in the plain table. A
// collision with an existing occupant is a detected congruence and queues
// a merge whose proof is synthesized on demand.
func (c *CC) addCongruenceTable(e *term.App) {
	k := c.mkCongrKey(e)
	if old, ok := c.state.congruences.Get(k); ok {
		if old.Equal(e) {
			return
		}
		n, _ := c.state.entry(e)
		n.cgRoot = old
		c.state.entries.Put(e, n)
		c.pushTodo(e, old, congrMark, c.congrConclusionIsHEq(e, old))
		c.metrics.Counter(metrics.CCCongruenceHit).Incr()
		return
	}
	c.state.congruences.Put(k, e)
	c.resetCgRoot(e)
}

// addSymmCongruenceTable registers the operand-normalized fingerprint of a
// symmetric relation application, so r(x, y) collides with r(y, x).
func (c *CC) addSymmCongruenceTable(e *term.App) {
	info, lhs, rhs, ok := c.rels.AsSymmRelation(e)
	if !ok {
		return
	}
	k := c.mkSymmCongrKey(info.Name, lhs, rhs)
	if old, ok := c.state.symmCongruences.Get(k); ok {
		if old.Equal(e) {
			return
		}
		n, _ := c.state.entry(e)
		n.cgRoot = old
		c.state.entries.Put(e, n)
		c.pushTodo(e, old, congrMark, false)
		c.metrics.Counter(metrics.CCCongruenceHit).Incr()
		return
	}
	c.state.symmCongruences.Put(k, e)
	c.resetCgRoot(e)
	c.checkEqTrue(e)
}

func (c *CC) resetCgRoot(e *term.App) {
	n, _ := c.state.entry(e)
	if !n.cgRoot.Equal(e) {
		n.cgRoot = e
		c.state.entries.Put(e, n)
	}
}

// congrConclusionIsHEq decides whether the equation between two congruent
// applications must be heterogeneous: either the lemma says so, or the two
// types are not definitionally equal.
func (c *CC) congrConclusionIsHEq(e1, e2 term.Term) bool {
	if lemma, err := c.lemmas.LemmaFor(e1); err == nil && lemma.HEqResult {
		return true
	}
	t1, err1 := c.ctx.InferType(e1)
	t2, err2 := c.ctx.InferType(e2)
	if err1 != nil || err2 != nil {
		return false
	}
	return !c.ctx.IsDefEq(t1, t2)
}

// checkEqTrue merges a reflexive relation application with true once its
// operands land in one class.
func (c *CC) checkEqTrue(e *term.App) {
	_, lhs, rhs, ok := c.rels.AsReflRelation(e)
	if !ok {
		return
	}
	if c.IsEqv(e, term.True) {
		return
	}
	if !c.state.GetRoot(lhs).Equal(c.state.GetRoot(rhs)) {
		return
	}
	c.pushTodo(e, term.True, eqTrueMark, false)
}

// processSubsingletonElem unifies e with the canonical inhabitant of its
// type when the type is a subsingleton. The representative map is keyed by
// the class root of the type, so inhabitants of types already known equal
// share one representative.
func (c *CC) processSubsingletonElem(e term.Term) {
	typ, err := c.ctx.InferType(e)
	if err != nil {
		return
	}
	if !c.ctx.IsSubsingleton(typ) {
		return
	}
	c.internalizeCore(typ, false, false)
	root := c.state.GetRoot(typ)
	if rep, ok := c.state.subsingletonReps.Get(root); ok {
		c.pushSubsingletonEq(e, rep)
		return
	}
	c.state.subsingletonReps.Put(root, e)
}

func errNonApplicationSlot(rep term.Term) error {
	return fmt.Errorf("congruence table slot held by non-application %v", rep)
}

func errUntrackedSlot(rep term.Term) error {
	return fmt.Errorf("congruence table slot held by untracked term %v", rep)
}

func errStaleSlot(rep term.Term) error {
	return fmt.Errorf("stale congruence table key for %v", rep)
}

func (c *CC) checkCongrSlot(k congrKey, rep term.Term) error {
	app, ok := rep.(*term.App)
	if !ok {
		return errNonApplicationSlot(rep)
	}
	if _, ok := c.state.entry(rep); !ok {
		return errUntrackedSlot(rep)
	}
	if congrKeyCompare(c.mkCongrKey(app), k) != 0 {
		return errStaleSlot(rep)
	}
	return nil
}

func (c *CC) checkSymmSlot(k symmKey, rep term.Term) error {
	app, ok := rep.(*term.App)
	if !ok {
		return errNonApplicationSlot(rep)
	}
	info, lhs, rhs, ok := c.rels.AsSymmRelation(app)
	if !ok {
		return errNonApplicationSlot(rep)
	}
	if _, ok := c.state.entry(rep); !ok {
		return errUntrackedSlot(rep)
	}
	if symmKeyCompare(c.mkSymmCongrKey(info.Name, lhs, rhs), k) != 0 {
		return errStaleSlot(rep)
	}
	return nil
}
