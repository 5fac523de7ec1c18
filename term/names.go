// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term

// Names of the builtin constants recognized across the module. The proof
// checker gives each of these a fixed typing rule; everything else is looked
// up in the signature.
const (
	TrueName  = "true"
	FalseName = "false"
	NotName   = "not"
	AndName   = "and"
	OrName    = "or"

	EqName  = "eq"
	HEqName = "heq"
	IffName = "iff"
	NeName  = "ne"

	EqReflName  = "eq.refl"
	EqSymmName  = "eq.symm"
	EqTransName = "eq.trans"
	EqMPName    = "eq.mp"

	HEqReflName  = "heq.refl"
	HEqSymmName  = "heq.symm"
	HEqTransName = "heq.trans"

	IffReflName = "iff.refl"
	IffSymmName = "iff.symm"

	CongrName     = "congr"
	CongrArgName  = "congr_arg"
	CongrFunName  = "congr_fun"
	HCongrName    = "hcongr"
	HEqOfEqName   = "heq_of_eq"
	EqOfHEqName   = "eq_of_heq"
	PropextName   = "propext"
	FalseRecName  = "false.rec"
	CommEqName    = "comm_eq"
	LitNeName     = "lit_ne"
	CtorInjName   = "ctor_inj"
	CtorNeName    = "ctor_ne"
	SubsingletonElimName  = "subsingleton.elim"
	SubsingletonHElimName = "subsingleton.helim"

	EqTrueIntroName  = "eq_true_intro"
	EqFalseIntroName = "eq_false_intro"
	OfEqTrueName     = "of_eq_true"
	NotOfEqFalseName = "not_of_eq_false"
	TrueNeFalseName  = "false_of_true_eq_false"

	IntTypeName = "int"
	StrTypeName = "string"
)

// Frequently used atoms.
var (
	Prop  = Sort(0)
	True  = Const{Name: TrueName}
	False = Const{Name: FalseName}
)

// MkEq returns the proposition a = b.
func MkEq(a, b Term) Term {
	return NewApp(Const{Name: EqName}, a, b)
}

// MkHEq returns the heterogeneous proposition a == b.
func MkHEq(a, b Term) Term {
	return NewApp(Const{Name: HEqName}, a, b)
}

// MkIff returns the proposition a <-> b.
func MkIff(a, b Term) Term {
	return NewApp(Const{Name: IffName}, a, b)
}

// MkNot returns the proposition not a.
func MkNot(a Term) Term {
	return NewApp(Const{Name: NotName}, a)
}

// MkNe returns the proposition ne a b.
func MkNe(a, b Term) Term {
	return NewApp(Const{Name: NeName}, a, b)
}

// AsNot matches negated propositions, returning the proposition being
// denied. It recognizes not a, the unfolded form a -> false, and ne a b,
// which denies a = b.
func AsNot(t Term) (Term, bool) {
	if app, ok := t.(*App); ok {
		if fn, ok := app.fn.(Const); ok && fn.Name == NotName {
			return app.arg, true
		}
		if fn, ok := AppFn(app).(Const); ok && fn.Name == NeName && NumArgs(app) == 2 {
			args := AppArgs(app)
			return MkEq(args[0], args[1]), true
		}
	}
	if pi, ok := t.(*Pi); ok && pi.IsArrow() {
		if c, ok := pi.body.(Const); ok && c.Name == FalseName {
			return pi.domain, true
		}
	}
	return nil, false
}

// IsTrue returns true if t is the constant true.
func IsTrue(t Term) bool {
	c, ok := t.(Const)
	return ok && c.Name == TrueName
}

// IsFalse returns true if t is the constant false.
func IsFalse(t Term) bool {
	c, ok := t.(Const)
	return ok && c.Name == FalseName
}

// IsLit returns true if t is a literal whose disequality from other literals
// is decidable by inspection.
func IsLit(t Term) bool {
	switch t.(type) {
	case Int, Str:
		return true
	}
	return false
}
