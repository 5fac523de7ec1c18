// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"strconv"

	"github.com/tenet-prover/tenet/term"
)

// RelationInfo resolves relation metadata for the proof checker. The
// relation package provides the canonical implementation.
type RelationInfo interface {
	// IsSymmetric returns true if rel names a registered symmetric binary
	// relation.
	IsSymmetric(rel string) bool
	// RelationOfReflLemma returns the relation proved reflexive by the
	// named lemma.
	RelationOfReflLemma(lemma string) (string, bool)
}

// Context implements type inference and definitional comparisons over a
// signature plus a set of typed free variables.
type Context struct {
	sig     *Signature
	mode    Transparency
	rels    RelationInfo
	locals  map[string]term.Term
	nextVar int
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithTransparency sets the unfolding mode used by Whnf and IsDefEq.
func WithTransparency(m Transparency) ContextOption {
	return func(c *Context) {
		c.mode = m
	}
}

// WithRelations supplies relation metadata to the proof checker.
func WithRelations(r RelationInfo) ContextOption {
	return func(c *Context) {
		c.rels = r
	}
}

// NewContext returns a Context over sig.
func NewContext(sig *Signature, opts ...ContextOption) *Context {
	c := &Context{
		sig:    sig,
		mode:   TransparencyAll,
		locals: map[string]term.Term{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Signature returns the underlying signature.
func (c *Context) Signature() *Signature {
	return c.sig
}

// DeclareLocal assigns a type to the named free variable, replacing any
// previous typing.
func (c *Context) DeclareLocal(name string, typ term.Term) {
	c.locals[name] = typ
}

// LocalType returns the declared type of the named free variable.
func (c *Context) LocalType(name string) (term.Term, bool) {
	typ, ok := c.locals[name]
	return typ, ok
}

// InferType returns the type of t. Propositions built from the builtin
// relation heads (eq, heq, iff, ne) are typed directly so callers do not
// need polymorphic declarations for them.
func (c *Context) InferType(t term.Term) (term.Term, error) {
	switch x := t.(type) {
	case term.Sort:
		return term.Sort(int(x) + 1), nil
	case term.Const:
		if typ, ok := builtinConstType(x.Name); ok {
			return typ, nil
		}
		if d, ok := c.sig.Lookup(x.Name); ok {
			return d.Type, nil
		}
		return nil, fmt.Errorf("undeclared constant %v", x.Name)
	case term.Local:
		if typ, ok := c.locals[x.Name]; ok {
			return typ, nil
		}
		return nil, fmt.Errorf("undeclared local %v", x.Name)
	case term.Bound:
		return nil, fmt.Errorf("cannot infer type of loose bound variable %v", x)
	case term.Meta:
		return nil, fmt.Errorf("cannot infer type of metavariable %v", x)
	case term.Int:
		return term.NewConst(term.IntTypeName), nil
	case term.Str:
		return term.NewConst(term.StrTypeName), nil
	case *term.App:
		if typ, ok := builtinAppType(x); ok {
			return typ, nil
		}
		fnType, err := c.InferType(x.Fn())
		if err != nil {
			return nil, err
		}
		pi, ok := c.Whnf(fnType).(*term.Pi)
		if !ok {
			return nil, fmt.Errorf("%v has non-function type %v", x.Fn(), fnType)
		}
		argType, err := c.InferType(x.Arg())
		if err != nil {
			return nil, err
		}
		if !c.IsDefEq(pi.Domain(), argType) {
			return nil, fmt.Errorf("type mismatch applying %v: expected %v, got %v", x.Fn(), pi.Domain(), argType)
		}
		return term.Instantiate(pi.Body(), x.Arg()), nil
	case *term.Lambda:
		l := c.freshLocal(x.Domain())
		defer c.dropLocal(l)
		bodyType, err := c.InferType(term.Instantiate(x.Body(), l))
		if err != nil {
			return nil, err
		}
		return term.NewPi(x.Binder(), x.Domain(), term.Abstract(bodyType, l)), nil
	case *term.Pi:
		ds, err := c.inferSort(x.Domain())
		if err != nil {
			return nil, err
		}
		l := c.freshLocal(x.Domain())
		defer c.dropLocal(l)
		bs, err := c.inferSort(term.Instantiate(x.Body(), l))
		if err != nil {
			return nil, err
		}
		// Propositions are impredicative.
		if bs == 0 {
			return term.Sort(0), nil
		}
		if ds > bs {
			return ds, nil
		}
		return bs, nil
	}
	return nil, fmt.Errorf("cannot infer type of %v", t)
}

// Whnf returns the weak head normal form of t. Beta redexes are always
// reduced; definitions unfold according to the transparency mode.
func (c *Context) Whnf(t term.Term) term.Term {
	for {
		switch x := t.(type) {
		case term.Const:
			v, ok := c.unfold(x.Name)
			if !ok {
				return t
			}
			t = v
		case *term.App:
			switch h := term.AppFn(x).(type) {
			case *term.Lambda:
				args := term.AppArgs(x)
				t = term.NewApp(term.Instantiate(h.Body(), args[0]), args[1:]...)
			case term.Const:
				v, ok := c.unfold(h.Name)
				if !ok {
					return t
				}
				t = term.NewApp(v, term.AppArgs(x)...)
			default:
				return t
			}
		default:
			return t
		}
	}
}

// IsDefEq returns true if a and b are equal up to reduction.
func (c *Context) IsDefEq(a, b term.Term) bool {
	if a.Equal(b) {
		return true
	}
	a, b = c.Whnf(a), c.Whnf(b)
	if a.Equal(b) {
		return true
	}
	switch x := a.(type) {
	case *term.App:
		y, ok := b.(*term.App)
		return ok && c.IsDefEq(x.Fn(), y.Fn()) && c.IsDefEq(x.Arg(), y.Arg())
	case *term.Lambda:
		y, ok := b.(*term.Lambda)
		return ok && c.IsDefEq(x.Domain(), y.Domain()) && c.IsDefEq(x.Body(), y.Body())
	case *term.Pi:
		y, ok := b.(*term.Pi)
		return ok && c.IsDefEq(x.Domain(), y.Domain()) && c.IsDefEq(x.Body(), y.Body())
	}
	return false
}

// IsProp returns true if t is a proposition.
func (c *Context) IsProp(t term.Term) bool {
	typ, err := c.InferType(t)
	if err != nil {
		return false
	}
	s, ok := c.Whnf(typ).(term.Sort)
	return ok && s == 0
}

// ProofOf returns the proposition proved by p, if p is a proof of a
// proposition typeable in this context.
func (c *Context) ProofOf(p term.Term) (term.Term, bool) {
	typ, err := c.InferType(p)
	if err != nil {
		return nil, false
	}
	if !c.IsProp(typ) {
		return nil, false
	}
	return typ, true
}

// IsSubsingleton returns true if the type typ has at most one inhabitant up
// to equality. Propositions are subsingletons by proof irrelevance; other
// type formers qualify when their declaration marks them so.
func (c *Context) IsSubsingleton(typ term.Term) bool {
	if c.IsProp(typ) {
		return true
	}
	if cst, ok := term.AppFn(c.Whnf(typ)).(term.Const); ok {
		if d, ok := c.sig.Lookup(cst.Name); ok {
			return d.Subsingleton
		}
	}
	return false
}

// ConstructorApp returns the constructor head of t if t is headed by a
// declared datatype constructor.
func (c *Context) ConstructorApp(t term.Term) (term.Const, bool) {
	cst, ok := term.AppFn(t).(term.Const)
	if !ok {
		return term.Const{}, false
	}
	d, ok := c.sig.Lookup(cst.Name)
	if !ok || !d.Constructor {
		return term.Const{}, false
	}
	return cst, true
}

func (c *Context) inferSort(t term.Term) (term.Sort, error) {
	typ, err := c.InferType(t)
	if err != nil {
		return 0, err
	}
	s, ok := c.Whnf(typ).(term.Sort)
	if !ok {
		return 0, fmt.Errorf("%v is not a type", t)
	}
	return s, nil
}

func (c *Context) unfold(name string) (term.Term, bool) {
	d, ok := c.sig.Lookup(name)
	if !ok || d.Value == nil {
		return nil, false
	}
	switch c.mode {
	case TransparencyAll:
		return d.Value, true
	case TransparencyReducible:
		if d.Reducible {
			return d.Value, true
		}
	}
	return nil, false
}

func (c *Context) freshLocal(typ term.Term) term.Local {
	c.nextVar++
	l := term.Local{Name: "_x!" + strconv.Itoa(c.nextVar)}
	c.locals[l.Name] = typ
	return l
}

func (c *Context) dropLocal(l term.Local) {
	delete(c.locals, l.Name)
}

func builtinConstType(name string) (term.Term, bool) {
	switch name {
	case term.TrueName, term.FalseName:
		return term.Prop, true
	case term.NotName:
		return term.NewArrow(term.Prop, term.Prop), true
	case term.AndName, term.OrName, term.IffName:
		return term.NewArrow(term.Prop, term.NewArrow(term.Prop, term.Prop)), true
	case term.IntTypeName, term.StrTypeName:
		return term.Sort(1), true
	}
	return nil, false
}

// builtinAppType types full applications of the polymorphic builtin
// relations. Partial applications fall through to the generic rule.
func builtinAppType(t *term.App) (term.Term, bool) {
	cst, ok := term.AppFn(t).(term.Const)
	if !ok {
		return nil, false
	}
	switch cst.Name {
	case term.EqName, term.HEqName, term.IffName, term.NeName:
		if term.NumArgs(t) == 2 {
			return term.Prop, true
		}
	}
	return nil, false
}
