// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package relation implements the registry mapping relation names to the
// lemma metadata the closure engine queries: operand positions, symmetry,
// reflexivity and transitivity.
package relation

import (
	"fmt"
	"maps"
	"slices"

	"github.com/tenet-prover/tenet/internal/levenshtein"
	"github.com/tenet-prover/tenet/term"
)

// Info describes a registered binary relation.
type Info struct {
	// Name is the head constant of the relation.
	Name string
	// Arity is the number of arguments in a full application.
	Arity int
	// LhsPos and RhsPos are the argument positions of the two operands.
	LhsPos int
	RhsPos int
	// SymmLemma names the lemma proving symmetry, empty if the relation is
	// not known symmetric.
	SymmLemma string
	// ReflLemma names the lemma proving reflexivity, empty if the relation
	// is not known reflexive. Applied to one operand it proves R a a.
	ReflLemma string
	// TransLemma names the lemma proving transitivity, empty if unknown.
	TransLemma string
}

// IsSymm returns true if the relation has a symmetry lemma.
func (i Info) IsSymm() bool { return i.SymmLemma != "" }

// IsRefl returns true if the relation has a reflexivity lemma.
func (i Info) IsRefl() bool { return i.ReflLemma != "" }

// Registry stores relation metadata. The builtin equivalences (eq, heq,
// iff) and ne are registered on construction.
type Registry struct {
	relations  map[string]Info
	reflLemmas map[string]string
}

// NewRegistry returns a registry with the builtin relations registered.
func NewRegistry() *Registry {
	r := &Registry{
		relations:  map[string]Info{},
		reflLemmas: map[string]string{},
	}
	for _, info := range []Info{
		{Name: term.EqName, Arity: 2, LhsPos: 0, RhsPos: 1, SymmLemma: term.EqSymmName, ReflLemma: term.EqReflName, TransLemma: term.EqTransName},
		{Name: term.HEqName, Arity: 2, LhsPos: 0, RhsPos: 1, SymmLemma: term.HEqSymmName, ReflLemma: term.HEqReflName, TransLemma: term.HEqTransName},
		{Name: term.IffName, Arity: 2, LhsPos: 0, RhsPos: 1, SymmLemma: term.IffSymmName, ReflLemma: term.IffReflName},
		{Name: term.NeName, Arity: 2, LhsPos: 0, RhsPos: 1, SymmLemma: "ne.symm"},
	} {
		if err := r.Register(info); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a relation to the registry. Registering a name twice is an
// error.
func (r *Registry) Register(info Info) error {
	if info.Name == "" {
		return fmt.Errorf("relation requires a name")
	}
	if _, ok := r.relations[info.Name]; ok {
		return fmt.Errorf("relation %v is already registered", info.Name)
	}
	if info.Arity < 2 {
		return fmt.Errorf("relation %v requires arity >= 2, got %d", info.Name, info.Arity)
	}
	if info.LhsPos == info.RhsPos || info.LhsPos >= info.Arity || info.RhsPos >= info.Arity || info.LhsPos < 0 || info.RhsPos < 0 {
		return fmt.Errorf("relation %v has invalid operand positions %d, %d", info.Name, info.LhsPos, info.RhsPos)
	}
	if info.ReflLemma != "" {
		if rel, ok := r.reflLemmas[info.ReflLemma]; ok {
			return fmt.Errorf("reflexivity lemma %v is already claimed by %v", info.ReflLemma, rel)
		}
		r.reflLemmas[info.ReflLemma] = info.Name
	}
	r.relations[info.Name] = info
	return nil
}

// Info returns the metadata registered for name.
func (r *Registry) Info(name string) (Info, bool) {
	info, ok := r.relations[name]
	return info, ok
}

// SymmInfo returns the metadata for name if the relation is symmetric.
func (r *Registry) SymmInfo(name string) (Info, bool) {
	info, ok := r.relations[name]
	if !ok || !info.IsSymm() {
		return Info{}, false
	}
	return info, true
}

// ReflInfo returns the metadata for name if the relation is reflexive.
func (r *Registry) ReflInfo(name string) (Info, bool) {
	info, ok := r.relations[name]
	if !ok || !info.IsRefl() {
		return Info{}, false
	}
	return info, true
}

// Lookup is like Info but returns an error naming the closest registered
// relations when name is unknown.
func (r *Registry) Lookup(name string) (Info, error) {
	if info, ok := r.relations[name]; ok {
		return info, nil
	}
	proposals := slices.Compact(levenshtein.ClosestStrings(3, name, maps.Keys(r.relations)))
	switch len(proposals) {
	case 0:
		return Info{}, fmt.Errorf("relation %v undefined", name)
	case 1:
		return Info{}, fmt.Errorf("relation %v undefined, did you mean %v?", name, proposals[0])
	default:
		return Info{}, fmt.Errorf("relation %v undefined, did you mean one of %v?", name, proposals)
	}
}

// IsSymmetric returns true if name is a registered symmetric relation. It
// implements the relation queries of the proof checker.
func (r *Registry) IsSymmetric(name string) bool {
	_, ok := r.SymmInfo(name)
	return ok
}

// RelationOfReflLemma returns the relation proved reflexive by the named
// lemma.
func (r *Registry) RelationOfReflLemma(lemma string) (string, bool) {
	rel, ok := r.reflLemmas[lemma]
	return rel, ok
}

// AsBinaryRelation matches t against the registered relations, returning
// the metadata and the two operands when t is a full application of one.
func (r *Registry) AsBinaryRelation(t term.Term) (Info, term.Term, term.Term, bool) {
	cst, ok := term.AppFn(t).(term.Const)
	if !ok {
		return Info{}, nil, nil, false
	}
	info, ok := r.relations[cst.Name]
	if !ok {
		return Info{}, nil, nil, false
	}
	args := term.AppArgs(t)
	if len(args) != info.Arity {
		return Info{}, nil, nil, false
	}
	return info, args[info.LhsPos], args[info.RhsPos], true
}

// AsSymmRelation is like AsBinaryRelation restricted to symmetric
// relations.
func (r *Registry) AsSymmRelation(t term.Term) (Info, term.Term, term.Term, bool) {
	info, lhs, rhs, ok := r.AsBinaryRelation(t)
	if !ok || !info.IsSymm() {
		return Info{}, nil, nil, false
	}
	return info, lhs, rhs, true
}

// AsReflRelation is like AsBinaryRelation restricted to reflexive
// relations.
func (r *Registry) AsReflRelation(t term.Term) (Info, term.Term, term.Term, bool) {
	info, lhs, rhs, ok := r.AsBinaryRelation(t)
	if !ok || !info.IsRefl() {
		return Info{}, nil, nil, false
	}
	return info, lhs, rhs, true
}

// ReflProof synthesizes the trivial proof of R a a for a reflexive
// relation.
func (r *Registry) ReflProof(name string, operand term.Term) (term.Term, error) {
	info, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !info.IsRefl() {
		return nil, fmt.Errorf("relation %v is not reflexive", name)
	}
	return term.NewApp(term.NewConst(info.ReflLemma), operand), nil
}
