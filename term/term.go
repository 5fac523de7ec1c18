// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package term declares the symbolic term language shared by the type
// context, the congruence lemma builder, and the closure engine.
//
// Terms are immutable. Composite terms cache a structural hash at
// construction time, so Hash is O(1) on applications and binders and cheap
// everywhere else. Two terms are interchangeable exactly when Equal returns
// true; pointer identity carries no meaning.
package term

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Term represents a node in the term language.
type Term interface {
	// Equal returns true if this term is structurally identical to other.
	Equal(other Term) bool
	// Hash returns a structural fingerprint of the term.
	Hash() uint64
	// String returns a human readable representation of the term.
	String() string
}

// Kind tags used to keep hashes of different term kinds apart.
const (
	tagSort byte = iota + 1
	tagConst
	tagLocal
	tagBound
	tagMeta
	tagInt
	tagStr
	tagApp
	tagLambda
	tagPi
)

// Sort is a universe. Sort(0) is the universe of propositions.
type Sort int

// Const is a reference to a declared constant.
type Const struct {
	Name string
}

// Local is a free variable bound by the enclosing context.
type Local struct {
	Name string
}

// Bound is a de Bruijn index referencing an enclosing binder.
type Bound int

// Meta is an unresolved metavariable. Terms containing metavariables are
// rejected by the closure engine.
type Meta struct {
	Name string
}

// Int is an arbitrary precision integer literal stored in canonical decimal
// form. Construct values with NewInt or IntFromString so that distinct
// strings always denote distinct integers.
type Int string

// Str is a string literal.
type Str string

// App is a function application. Applications are curried: f a b is
// represented as App(App(f, a), b).
type App struct {
	fn   Term
	arg  Term
	hash uint64
}

// Lambda is a function literal. The body references the bound variable as
// Bound(0).
type Lambda struct {
	binder string
	domain Term
	body   Term
	hash   uint64
}

// Pi is a function type, dependent if the body references Bound(0).
type Pi struct {
	binder string
	domain Term
	body   Term
	hash   uint64
}

// NewConst returns a reference to the named constant.
func NewConst(name string) Const {
	return Const{Name: name}
}

// NewLocal returns a free variable with the given name.
func NewLocal(name string) Local {
	return Local{Name: name}
}

// NewInt returns an integer literal.
func NewInt(v int64) Int {
	return Int(strconv.FormatInt(v, 10))
}

// IntFromString parses a decimal integer literal of arbitrary size.
func IntFromString(s string) (Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return "", fmt.Errorf("invalid integer literal %q", s)
	}
	return Int(v.String()), nil
}

// NewStr returns a string literal.
func NewStr(s string) Str {
	return Str(s)
}

// NewApp applies fn to the given arguments, currying left to right. With no
// arguments it returns fn unchanged.
func NewApp(fn Term, args ...Term) Term {
	for _, arg := range args {
		fn = &App{fn: fn, arg: arg, hash: hash2(tagApp, fn.Hash(), arg.Hash())}
	}
	return fn
}

// NewLambda returns a function literal. The binder name is for printing
// only; occurrences in body use Bound indices.
func NewLambda(binder string, domain, body Term) *Lambda {
	return &Lambda{binder: binder, domain: domain, body: body, hash: hash2(tagLambda, domain.Hash(), body.Hash())}
}

// NewPi returns a function type. The binder name is for printing only.
func NewPi(binder string, domain, body Term) *Pi {
	return &Pi{binder: binder, domain: domain, body: body, hash: hash2(tagPi, domain.Hash(), body.Hash())}
}

// NewArrow returns the non-dependent function type a -> b.
func NewArrow(a, b Term) *Pi {
	return NewPi("_", a, b)
}

// Fn returns the applied function.
func (t *App) Fn() Term { return t.fn }

// Arg returns the argument.
func (t *App) Arg() Term { return t.arg }

// Binder returns the display name of the bound variable.
func (t *Lambda) Binder() string { return t.binder }

// Domain returns the type of the bound variable.
func (t *Lambda) Domain() Term { return t.domain }

// Body returns the function body.
func (t *Lambda) Body() Term { return t.body }

// Binder returns the display name of the bound variable.
func (t *Pi) Binder() string { return t.binder }

// Domain returns the argument type.
func (t *Pi) Domain() Term { return t.domain }

// Body returns the result type.
func (t *Pi) Body() Term { return t.body }

// IsArrow returns true if the result type does not reference the bound
// variable.
func (t *Pi) IsArrow() bool {
	return !dependsOn(t.body, 0)
}

func (t Sort) Equal(other Term) bool {
	o, ok := other.(Sort)
	return ok && t == o
}

func (t Const) Equal(other Term) bool {
	o, ok := other.(Const)
	return ok && t.Name == o.Name
}

func (t Local) Equal(other Term) bool {
	o, ok := other.(Local)
	return ok && t.Name == o.Name
}

func (t Bound) Equal(other Term) bool {
	o, ok := other.(Bound)
	return ok && t == o
}

func (t Meta) Equal(other Term) bool {
	o, ok := other.(Meta)
	return ok && t.Name == o.Name
}

func (t Int) Equal(other Term) bool {
	o, ok := other.(Int)
	return ok && t == o
}

func (t Str) Equal(other Term) bool {
	o, ok := other.(Str)
	return ok && t == o
}

func (t *App) Equal(other Term) bool {
	o, ok := other.(*App)
	if !ok {
		return false
	}
	if t == o {
		return true
	}
	if t.hash != o.hash {
		return false
	}
	return t.fn.Equal(o.fn) && t.arg.Equal(o.arg)
}

func (t *Lambda) Equal(other Term) bool {
	o, ok := other.(*Lambda)
	if !ok {
		return false
	}
	if t == o {
		return true
	}
	if t.hash != o.hash {
		return false
	}
	return t.domain.Equal(o.domain) && t.body.Equal(o.body)
}

func (t *Pi) Equal(other Term) bool {
	o, ok := other.(*Pi)
	if !ok {
		return false
	}
	if t == o {
		return true
	}
	if t.hash != o.hash {
		return false
	}
	return t.domain.Equal(o.domain) && t.body.Equal(o.body)
}

func (t Sort) Hash() uint64    { return hash1(tagSort, uint64(t)) }
func (t Const) Hash() uint64   { return hashString(tagConst, t.Name) }
func (t Local) Hash() uint64   { return hashString(tagLocal, t.Name) }
func (t Bound) Hash() uint64   { return hash1(tagBound, uint64(t)) }
func (t Meta) Hash() uint64    { return hashString(tagMeta, t.Name) }
func (t Int) Hash() uint64     { return hashString(tagInt, string(t)) }
func (t Str) Hash() uint64     { return hashString(tagStr, string(t)) }
func (t *App) Hash() uint64    { return t.hash }
func (t *Lambda) Hash() uint64 { return t.hash }
func (t *Pi) Hash() uint64     { return t.hash }

func (t Sort) String() string {
	switch t {
	case 0:
		return "Prop"
	case 1:
		return "Type"
	default:
		return fmt.Sprintf("Type %d", int(t))
	}
}

func (t Const) String() string { return t.Name }
func (t Local) String() string { return t.Name }
func (t Bound) String() string { return "#" + strconv.Itoa(int(t)) }
func (t Meta) String() string  { return "?" + t.Name }
func (t Int) String() string   { return string(t) }
func (t Str) String() string   { return strconv.Quote(string(t)) }

func (t *App) String() string {
	var buf strings.Builder
	buf.WriteByte('(')
	buf.WriteString(AppFn(t).String())
	for _, arg := range AppArgs(t) {
		buf.WriteByte(' ')
		buf.WriteString(arg.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

func (t *Lambda) String() string {
	return fmt.Sprintf("(fun (%s : %s) => %s)", t.binder, t.domain, t.body)
}

func (t *Pi) String() string {
	if t.IsArrow() {
		return fmt.Sprintf("(%s -> %s)", t.domain, t.body)
	}
	return fmt.Sprintf("(Pi (%s : %s), %s)", t.binder, t.domain, t.body)
}

// AppFn returns the head of an application spine: for f a b it returns f.
// Non-applications are returned unchanged.
func AppFn(t Term) Term {
	for {
		app, ok := t.(*App)
		if !ok {
			return t
		}
		t = app.fn
	}
}

// AppArgs returns the arguments of an application spine in order: for f a b
// it returns [a, b]. Non-applications yield nil.
func AppArgs(t Term) []Term {
	n := NumArgs(t)
	if n == 0 {
		return nil
	}
	args := make([]Term, n)
	for app, ok := t.(*App); ok; app, ok = app.fn.(*App) {
		n--
		args[n] = app.arg
	}
	return args
}

// NumArgs returns the length of the application spine of t.
func NumArgs(t Term) int {
	var n int
	for app, ok := t.(*App); ok; app, ok = app.fn.(*App) {
		n++
	}
	return n
}

func hash1(tag byte, v uint64) uint64 {
	var buf [9]byte
	buf[0] = tag
	putUint64(buf[1:], v)
	return xxhash.Sum64(buf[:])
}

func hash2(tag byte, a, b uint64) uint64 {
	var buf [17]byte
	buf[0] = tag
	putUint64(buf[1:], a)
	putUint64(buf[9:], b)
	return xxhash.Sum64(buf[:])
}

func hashString(tag byte, s string) uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{tag})
	_, _ = d.WriteString(s)
	return d.Sum64()
}

func putUint64(b []byte, v uint64) {
	_ = b[7]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}
