// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package congr builds congruence lemmas: per-argument descriptions of the
// equalities needed to conclude that two applications of the same function
// are equal.
package congr

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tenet-prover/tenet/term"
	"github.com/tenet-prover/tenet/types"
)

const lemmaCacheSize = 512

// ArgKind classifies one argument position of a congruence lemma.
type ArgKind int

const (
	// ArgFixed requires the argument to be identical on both sides. Used
	// for arguments that later argument types or the result type depend
	// on.
	ArgFixed ArgKind = iota
	// ArgEq takes a plain equality premise for the position.
	ArgEq
	// ArgHEq takes a heterogeneous equality premise for the position.
	ArgHEq
	// ArgCast takes no premise: the arguments inhabit a subsingleton type
	// and are identified by elimination.
	ArgCast
)

func (k ArgKind) String() string {
	switch k {
	case ArgFixed:
		return "fixed"
	case ArgEq:
		return "eq"
	case ArgHEq:
		return "heq"
	case ArgCast:
		return "cast"
	default:
		return fmt.Sprintf("<illegal arg kind %d>", int(k))
	}
}

// Lemma describes how to prove f a_1 ... a_n = f b_1 ... b_n from
// positionwise premises.
type Lemma struct {
	// Fn is the function head the lemma applies to.
	Fn term.Term
	// NArgs is the number of argument positions covered.
	NArgs int
	// ArgKinds holds one kind per argument position.
	ArgKinds []ArgKind
	// HEqResult is true if the conclusion is a heterogeneous equality.
	HEqResult bool
	// HCongr is true if the lemma is the heterogeneous fallback, taking
	// heterogeneous premises at every non-fixed position.
	HCongr bool
}

// Builder computes congruence lemmas over a typing context. Results are
// cached keyed by function, arity and the context's transparency mode.
type Builder struct {
	ctx   *types.Context
	mode  types.Transparency
	cache *lru.Cache[cacheKey, *Lemma]
}

type cacheKey struct {
	fn    string
	nargs int
	mode  types.Transparency
}

// NewBuilder returns a Builder over ctx. The transparency mode is part of
// the cache key so builders sharing a context stay coherent.
func NewBuilder(ctx *types.Context, mode types.Transparency) *Builder {
	cache, _ := lru.New[cacheKey, *Lemma](lemmaCacheSize)
	return &Builder{
		ctx:   ctx,
		mode:  mode,
		cache: cache,
	}
}

// LemmaFor returns the congruence lemma for the head of the application e.
func (b *Builder) LemmaFor(e term.Term) (*Lemma, error) {
	if term.NumArgs(e) == 0 {
		return nil, fmt.Errorf("%v is not an application", e)
	}
	return b.Lemma(term.AppFn(e), term.NumArgs(e))
}

// Lemma returns the congruence lemma for fn applied to nargs arguments.
func (b *Builder) Lemma(fn term.Term, nargs int) (*Lemma, error) {
	key, cachable := b.key(fn, nargs)
	if cachable {
		if lemma, ok := b.cache.Get(key); ok {
			return lemma, nil
		}
	}
	lemma, err := b.build(fn, nargs)
	if err != nil {
		return nil, err
	}
	if cachable {
		b.cache.Add(key, lemma)
	}
	return lemma, nil
}

func (b *Builder) key(fn term.Term, nargs int) (cacheKey, bool) {
	switch fn := fn.(type) {
	case term.Const:
		return cacheKey{fn: "c:" + fn.Name, nargs: nargs, mode: b.mode}, true
	case term.Local:
		return cacheKey{fn: "l:" + fn.Name, nargs: nargs, mode: b.mode}, true
	default:
		return cacheKey{}, false
	}
}

// build walks the Pi telescope of fn's type, classifying each argument
// position. Positions that later types depend on are fixed. Positions whose
// own type depends on an earlier varying position force the heterogeneous
// fallback: every varying position takes a heterogeneous premise and the
// conclusion becomes heterogeneous.
func (b *Builder) build(fn term.Term, nargs int) (*Lemma, error) {
	fnType, err := b.ctx.InferType(fn)
	if err != nil {
		return nil, fmt.Errorf("no congruence lemma for %v: %w", fn, err)
	}

	domains := make([]term.Term, 0, nargs)
	rest := fnType
	for range nargs {
		pi, ok := b.ctx.Whnf(rest).(*term.Pi)
		if !ok {
			return nil, fmt.Errorf("no congruence lemma for %v at arity %d: type %v is not a function", fn, nargs, rest)
		}
		domains = append(domains, pi.Domain())
		rest = pi.Body()
	}

	// dependedOn[i] is true if a later domain or the result type mentions
	// argument i. Within domains[j], argument i appears as Bound(j-i-1);
	// within rest, as Bound(nargs-i-1).
	dependedOn := make([]bool, nargs)
	for i := range nargs {
		for j := i + 1; j < nargs; j++ {
			if termDependsOn(domains[j], j-i-1) {
				dependedOn[i] = true
				break
			}
		}
		if !dependedOn[i] && termDependsOn(rest, nargs-i-1) {
			dependedOn[i] = true
		}
	}

	var binders []types.BinderKind
	if cst, ok := fn.(term.Const); ok {
		if d, ok := b.ctx.Signature().Lookup(cst.Name); ok {
			binders = d.Binders
		}
	}

	lemma := &Lemma{
		Fn:       fn,
		NArgs:    nargs,
		ArgKinds: make([]ArgKind, nargs),
	}
	for i := range nargs {
		switch {
		case i < len(binders) && binders[i] == types.BinderInstImplicit && b.ctx.IsSubsingleton(domains[i]):
			lemma.ArgKinds[i] = ArgCast
			if dependedOn[i] {
				// A later type or the result varies with the erased
				// instance, so premises and conclusion go heterogeneous.
				lemma.HCongr = true
			}
		case dependedOn[i]:
			lemma.ArgKinds[i] = ArgFixed
		case dependsOnVarying(domains[i], i, lemma.ArgKinds):
			lemma.HCongr = true
			lemma.ArgKinds[i] = ArgHEq
		default:
			lemma.ArgKinds[i] = ArgEq
		}
	}
	if lemma.HCongr {
		// The heterogeneous fallback takes heterogeneous premises at every
		// varying position.
		for i, kind := range lemma.ArgKinds {
			if kind == ArgEq {
				lemma.ArgKinds[i] = ArgHEq
			}
		}
		lemma.HEqResult = true
	}
	return lemma, nil
}

// dependsOnVarying reports whether domain mentions an earlier position whose
// argument can differ between the two sides. kinds holds the classifications
// of positions before i.
func dependsOnVarying(domain term.Term, i int, kinds []ArgKind) bool {
	for j := range i {
		if kinds[j] == ArgFixed {
			continue
		}
		if termDependsOn(domain, i-j-1) {
			return true
		}
	}
	return false
}

// termDependsOn reports whether t mentions Bound(depth), accounting for
// binders inside t.
func termDependsOn(t term.Term, depth int) bool {
	switch x := t.(type) {
	case term.Bound:
		return int(x) == depth
	case *term.App:
		return termDependsOn(x.Fn(), depth) || termDependsOn(x.Arg(), depth)
	case *term.Lambda:
		return termDependsOn(x.Domain(), depth) || termDependsOn(x.Body(), depth+1)
	case *term.Pi:
		return termDependsOn(x.Domain(), depth) || termDependsOn(x.Body(), depth+1)
	default:
		return false
	}
}
