// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"strconv"

	"github.com/tenet-prover/tenet/term"
)

// CheckProof validates a proof term and returns the proposition it proves.
//
// Proofs emitted by the closure engine are built from a closed combinator
// vocabulary (eq.refl, eq.trans, congr, ...). Each combinator has a fixed
// typing rule implemented here. Terms outside the vocabulary, such as the
// hypotheses supplied by the caller, are checked by ordinary type inference.
func (c *Context) CheckProof(p term.Term) (term.Term, error) {
	head := term.AppFn(p)
	args := term.AppArgs(p)
	cst, ok := head.(term.Const)
	if !ok {
		return c.checkOpaque(p)
	}

	switch cst.Name {
	case term.EqReflName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		return term.MkEq(args[0], args[0]), nil

	case term.EqSymmName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		return term.MkEq(b, a), nil

	case term.EqTransName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		b2, d, err := c.checkEq(args[1])
		if err != nil {
			return nil, err
		}
		if !c.propMatch(b, b2) {
			return nil, fmt.Errorf("eq.trans: middle terms differ: %v vs %v", b, b2)
		}
		return term.MkEq(a, d), nil

	case term.EqMPName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		hp, err := c.CheckProof(args[1])
		if err != nil {
			return nil, err
		}
		if !c.propMatch(hp, a) {
			return nil, fmt.Errorf("eq.mp: %v does not prove %v", args[1], a)
		}
		return b, nil

	case term.CongrName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		f, g, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[1])
		if err != nil {
			return nil, err
		}
		return term.MkEq(term.NewApp(f, a), term.NewApp(g, b)), nil

	case term.CongrArgName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[1])
		if err != nil {
			return nil, err
		}
		return term.MkEq(term.NewApp(args[0], a), term.NewApp(args[0], b)), nil

	case term.CongrFunName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		f, g, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		return term.MkEq(term.NewApp(f, args[1]), term.NewApp(g, args[1])), nil

	case term.HCongrName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		f, g, err := c.checkHEq(args[0])
		if err != nil {
			return nil, err
		}
		a, b, err := c.checkHEq(args[1])
		if err != nil {
			return nil, err
		}
		return term.MkHEq(term.NewApp(f, a), term.NewApp(g, b)), nil

	case term.HEqReflName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		return term.MkHEq(args[0], args[0]), nil

	case term.HEqSymmName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkHEq(args[0])
		if err != nil {
			return nil, err
		}
		return term.MkHEq(b, a), nil

	case term.HEqTransName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		a, b, err := c.checkHEq(args[0])
		if err != nil {
			return nil, err
		}
		b2, d, err := c.checkHEq(args[1])
		if err != nil {
			return nil, err
		}
		if !c.propMatch(b, b2) {
			return nil, fmt.Errorf("heq.trans: middle terms differ: %v vs %v", b, b2)
		}
		return term.MkHEq(a, d), nil

	case term.HEqOfEqName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		return term.MkHEq(a, b), nil

	case term.EqOfHEqName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkHEq(args[0])
		if err != nil {
			return nil, err
		}
		return term.MkEq(a, b), nil

	case term.IffReflName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		return term.MkIff(args[0], args[0]), nil

	case term.IffSymmName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkIff(args[0])
		if err != nil {
			return nil, err
		}
		return term.MkIff(b, a), nil

	case term.PropextName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkIff(args[0])
		if err != nil {
			return nil, err
		}
		return term.MkEq(a, b), nil

	case term.EqTrueIntroName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		prop, err := c.CheckProof(args[0])
		if err != nil {
			return nil, err
		}
		return term.MkEq(prop, term.True), nil

	case term.EqFalseIntroName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		prop, err := c.CheckProof(args[0])
		if err != nil {
			return nil, err
		}
		inner, ok := term.AsNot(prop)
		if !ok {
			return nil, fmt.Errorf("eq_false_intro: expected a proof of a negation, got %v", prop)
		}
		return term.MkEq(inner, term.False), nil

	case term.OfEqTrueName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		if !term.IsTrue(b) {
			return nil, fmt.Errorf("of_eq_true: expected a proof of _ = true, got %v = %v", a, b)
		}
		return a, nil

	case term.NotOfEqFalseName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		if !term.IsFalse(b) {
			return nil, fmt.Errorf("not_of_eq_false: expected a proof of _ = false, got %v = %v", a, b)
		}
		return term.MkNot(a), nil

	case term.TrueNeFalseName:
		if err := arity(cst.Name, args, 1); err != nil {
			return nil, err
		}
		a, b, err := c.checkEq(args[0])
		if err != nil {
			return nil, err
		}
		if !term.IsTrue(a) || !term.IsFalse(b) {
			return nil, fmt.Errorf("expected a proof of true = false, got %v = %v", a, b)
		}
		return term.False, nil

	case term.FalseRecName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		prop, err := c.CheckProof(args[1])
		if err != nil {
			return nil, err
		}
		if !term.IsFalse(prop) {
			return nil, fmt.Errorf("false.rec: %v does not prove false", args[1])
		}
		return args[0], nil

	case term.LitNeName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		if !term.IsLit(args[0]) || !term.IsLit(args[1]) {
			return nil, fmt.Errorf("lit_ne: expected literals, got %v and %v", args[0], args[1])
		}
		if args[0].Equal(args[1]) {
			return nil, fmt.Errorf("lit_ne: literals are identical: %v", args[0])
		}
		return term.MkEq(term.MkEq(args[0], args[1]), term.False), nil

	case term.CtorInjName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		return c.checkCtorInj(args[0], args[1])

	case term.CtorNeName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		return c.checkCtorNe(args[0], args[1])

	case term.CommEqName:
		if err := arity(cst.Name, args, 3); err != nil {
			return nil, err
		}
		rel, ok := args[0].(term.Const)
		if !ok || c.rels == nil || !c.rels.IsSymmetric(rel.Name) {
			return nil, fmt.Errorf("comm_eq: %v is not a symmetric relation", args[0])
		}
		lhs := term.NewApp(rel, args[1], args[2])
		rhs := term.NewApp(rel, args[2], args[1])
		return term.MkEq(lhs, rhs), nil

	case term.SubsingletonElimName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		ta, tb, err := c.inferBoth(args[0], args[1])
		if err != nil {
			return nil, err
		}
		if !c.IsSubsingleton(ta) {
			return nil, fmt.Errorf("subsingleton.elim: %v is not a subsingleton type", ta)
		}
		if !c.IsDefEq(ta, tb) {
			return nil, fmt.Errorf("subsingleton.elim: types differ: %v vs %v", ta, tb)
		}
		return term.MkEq(args[0], args[1]), nil

	case term.SubsingletonHElimName:
		if err := arity(cst.Name, args, 2); err != nil {
			return nil, err
		}
		ta, tb, err := c.inferBoth(args[0], args[1])
		if err != nil {
			return nil, err
		}
		if !c.IsSubsingleton(ta) || !c.IsSubsingleton(tb) {
			return nil, fmt.Errorf("subsingleton.helim: %v and %v must both be subsingleton types", ta, tb)
		}
		return term.MkHEq(args[0], args[1]), nil
	}

	// Reflexivity lemmas of registered relations prove R a a.
	if c.rels != nil && len(args) == 1 {
		if rel, ok := c.rels.RelationOfReflLemma(cst.Name); ok {
			return term.NewApp(term.Const{Name: rel}, args[0], args[0]), nil
		}
	}

	return c.checkOpaque(p)
}

func (c *Context) checkOpaque(p term.Term) (term.Term, error) {
	prop, ok := c.ProofOf(p)
	if !ok {
		return nil, fmt.Errorf("%v is not a proof", p)
	}
	return prop, nil
}

func (c *Context) checkEq(h term.Term) (term.Term, term.Term, error) {
	prop, err := c.CheckProof(h)
	if err != nil {
		return nil, nil, err
	}
	a, b, ok := binaryApp(prop, term.EqName)
	if !ok {
		return nil, nil, fmt.Errorf("expected a proof of an equality, got %v", prop)
	}
	return a, b, nil
}

func (c *Context) checkHEq(h term.Term) (term.Term, term.Term, error) {
	prop, err := c.CheckProof(h)
	if err != nil {
		return nil, nil, err
	}
	a, b, ok := binaryApp(prop, term.HEqName)
	if !ok {
		return nil, nil, fmt.Errorf("expected a proof of a heterogeneous equality, got %v", prop)
	}
	return a, b, nil
}

func (c *Context) checkIff(h term.Term) (term.Term, term.Term, error) {
	prop, err := c.CheckProof(h)
	if err != nil {
		return nil, nil, err
	}
	a, b, ok := binaryApp(prop, term.IffName)
	if !ok {
		return nil, nil, fmt.Errorf("expected a proof of an iff, got %v", prop)
	}
	return a, b, nil
}

func (c *Context) checkCtorInj(idx, h term.Term) (term.Term, error) {
	i, err := litIndex(idx)
	if err != nil {
		return nil, err
	}
	a, b, err := c.checkEq(h)
	if err != nil {
		return nil, err
	}
	ca, okA := c.ConstructorApp(a)
	cb, okB := c.ConstructorApp(b)
	if !okA || !okB || ca.Name != cb.Name {
		return nil, fmt.Errorf("ctor_inj: %v and %v are not applications of the same constructor", a, b)
	}
	argsA, argsB := term.AppArgs(a), term.AppArgs(b)
	if len(argsA) != len(argsB) {
		return nil, fmt.Errorf("ctor_inj: arity mismatch between %v and %v", a, b)
	}
	d, _ := c.sig.Lookup(ca.Name)
	if i < d.NumParams || i >= len(argsA) {
		return nil, fmt.Errorf("ctor_inj: field index %d out of range for %v", i, ca.Name)
	}
	return term.MkEq(argsA[i], argsB[i]), nil
}

func (c *Context) checkCtorNe(a, b term.Term) (term.Term, error) {
	ca, okA := c.ConstructorApp(a)
	cb, okB := c.ConstructorApp(b)
	if !okA || !okB {
		return nil, fmt.Errorf("ctor_ne: %v and %v must be constructor applications", a, b)
	}
	if ca.Name == cb.Name {
		return nil, fmt.Errorf("ctor_ne: %v and %v share the constructor %v", a, b, ca.Name)
	}
	da, _ := c.sig.Lookup(ca.Name)
	db, _ := c.sig.Lookup(cb.Name)
	if term.NumArgs(a) != da.Arity() || term.NumArgs(b) != db.Arity() {
		return nil, fmt.Errorf("ctor_ne: %v and %v must be fully applied", a, b)
	}
	return term.MkEq(term.MkEq(a, b), term.False), nil
}

func (c *Context) inferBoth(a, b term.Term) (term.Term, term.Term, error) {
	ta, err := c.InferType(a)
	if err != nil {
		return nil, nil, err
	}
	tb, err := c.InferType(b)
	if err != nil {
		return nil, nil, err
	}
	return ta, tb, nil
}

func (c *Context) propMatch(a, b term.Term) bool {
	return a.Equal(b) || c.IsDefEq(a, b)
}

func binaryApp(t term.Term, rel string) (term.Term, term.Term, bool) {
	cst, ok := term.AppFn(t).(term.Const)
	if !ok || cst.Name != rel {
		return nil, nil, false
	}
	args := term.AppArgs(t)
	if len(args) != 2 {
		return nil, nil, false
	}
	return args[0], args[1], true
}

func litIndex(t term.Term) (int, error) {
	n, ok := t.(term.Int)
	if !ok {
		return 0, fmt.Errorf("expected a field index, got %v", t)
	}
	i, err := strconv.Atoi(string(n))
	if err != nil {
		return 0, fmt.Errorf("invalid field index %v", n)
	}
	return i, nil
}

func arity(name string, args []term.Term, n int) error {
	if len(args) != n {
		return fmt.Errorf("%v expects %d arguments, got %d", name, n, len(args))
	}
	return nil
}
