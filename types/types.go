// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package types implements the typing services behind the closure engine:
// signatures of declared constants, type inference, weak head normalization,
// definitional comparison, and checking of proof terms.
package types

import (
	"fmt"

	"github.com/tenet-prover/tenet/term"
)

// BinderKind classifies how an argument is passed at a binder.
type BinderKind int

const (
	// BinderDefault marks an explicit argument.
	BinderDefault BinderKind = iota
	// BinderImplicit marks an implicit argument, typically a type.
	BinderImplicit
	// BinderInstImplicit marks an argument resolved by instance synthesis.
	BinderInstImplicit
)

// Transparency selects which definitions Whnf unfolds.
type Transparency int

const (
	// TransparencyAll unfolds every definition that has a value.
	TransparencyAll Transparency = iota
	// TransparencyReducible unfolds definitions marked reducible.
	TransparencyReducible
	// TransparencyNone performs beta reduction only.
	TransparencyNone
)

func (t Transparency) String() string {
	switch t {
	case TransparencyAll:
		return "all"
	case TransparencyReducible:
		return "reducible"
	case TransparencyNone:
		return "none"
	default:
		return fmt.Sprintf("<illegal transparency %d>", int(t))
	}
}

// TransparencyFromString parses a transparency mode name. The empty string
// parses as TransparencyAll.
func TransparencyFromString(s string) (Transparency, error) {
	switch s {
	case "", "all":
		return TransparencyAll, nil
	case "reducible":
		return TransparencyReducible, nil
	case "none":
		return TransparencyNone, nil
	default:
		return 0, fmt.Errorf("invalid transparency %q", s)
	}
}

// Decl describes a declared constant.
type Decl struct {
	// Name of the constant.
	Name string
	// Type of the constant. Required.
	Type term.Term
	// Value is the definition body, nil for axioms and opaque constants.
	Value term.Term
	// Reducible definitions unfold under TransparencyReducible.
	Reducible bool
	// Binders classifies the leading Pi binders of Type. Unlisted binders
	// default to BinderDefault.
	Binders []BinderKind
	// Constructor marks the constant as a datatype constructor, enabling
	// injectivity and disjointness reasoning.
	Constructor bool
	// NumParams is the number of leading arguments of a constructor that
	// are datatype parameters rather than fields.
	NumParams int
	// Subsingleton marks a type former whose types have at most one
	// inhabitant.
	Subsingleton bool
}

// Arity returns the length of the leading Pi telescope of the declared type.
func (d Decl) Arity() int {
	var n int
	t := d.Type
	for {
		pi, ok := t.(*term.Pi)
		if !ok {
			return n
		}
		n++
		t = pi.Body()
	}
}

// Binder returns the binder kind of argument position i.
func (d Decl) Binder(i int) BinderKind {
	if i < len(d.Binders) {
		return d.Binders[i]
	}
	return BinderDefault
}

// Signature is a table of declared constants.
type Signature struct {
	decls map[string]Decl
}

// NewSignature returns an empty signature.
func NewSignature() *Signature {
	return &Signature{decls: map[string]Decl{}}
}

// Declare adds d to the signature. Redeclaring a name is an error.
func (s *Signature) Declare(d Decl) error {
	if d.Name == "" {
		return fmt.Errorf("declaration requires a name")
	}
	if d.Type == nil {
		return fmt.Errorf("declaration of %v requires a type", d.Name)
	}
	if _, ok := s.decls[d.Name]; ok {
		return fmt.Errorf("%v is already declared", d.Name)
	}
	if d.NumParams < 0 || d.NumParams > d.Arity() {
		return fmt.Errorf("declaration of %v has invalid parameter count", d.Name)
	}
	s.decls[d.Name] = d
	return nil
}

// MustDeclare is like Declare but panics on error.
func (s *Signature) MustDeclare(d Decl) {
	if err := s.Declare(d); err != nil {
		panic(err)
	}
}

// Lookup returns the declaration of name.
func (s *Signature) Lookup(name string) (Decl, bool) {
	d, ok := s.decls[name]
	return d, ok
}

// Names returns the declared names in unspecified order.
func (s *Signature) Names() []string {
	names := make([]string, 0, len(s.decls))
	for name := range s.decls {
		names = append(names, name)
	}
	return names
}
