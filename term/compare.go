// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term

import (
	"math/big"
	"strings"
)

// Compare returns an integer indicating whether two terms are less than,
// equal to, or greater than each other under a fixed structural order.
//
// If a is less than b, the return value is negative. If a is greater than b,
// the return value is positive. If a is equal to b, the return value is 0.
//
// Different kinds are ordered by kind. Within a kind, terms compare by name,
// numeric value, or recursively on children.
func Compare(a, b Term) int {
	if a == nil {
		if b == nil {
			return 0
		}
		return -1
	} else if b == nil {
		return 1
	}
	sortA := sortOrder(a)
	sortB := sortOrder(b)
	if sortA < sortB {
		return -1
	} else if sortB < sortA {
		return 1
	}
	switch a := a.(type) {
	case Sort:
		b := b.(Sort)
		return intCmp(int(a), int(b))
	case Const:
		b := b.(Const)
		return strings.Compare(a.Name, b.Name)
	case Local:
		b := b.(Local)
		return strings.Compare(a.Name, b.Name)
	case Bound:
		b := b.(Bound)
		return intCmp(int(a), int(b))
	case Meta:
		b := b.(Meta)
		return strings.Compare(a.Name, b.Name)
	case Int:
		b := b.(Int)
		return intLitCmp(a, b)
	case Str:
		b := b.(Str)
		return strings.Compare(string(a), string(b))
	case *App:
		b := b.(*App)
		if cmp := Compare(a.fn, b.fn); cmp != 0 {
			return cmp
		}
		return Compare(a.arg, b.arg)
	case *Lambda:
		b := b.(*Lambda)
		if cmp := Compare(a.domain, b.domain); cmp != 0 {
			return cmp
		}
		return Compare(a.body, b.body)
	case *Pi:
		b := b.(*Pi)
		if cmp := Compare(a.domain, b.domain); cmp != 0 {
			return cmp
		}
		return Compare(a.body, b.body)
	}
	return 0
}

// QuickCompare returns an arbitrary but fixed total order over terms that is
// cheaper than Compare on large terms: hashes are compared first and the
// structural order breaks ties. Use it for tree keys; use Compare when the
// order itself matters.
func QuickCompare(a, b Term) int {
	if a == nil || b == nil {
		return Compare(a, b)
	}
	ha, hb := a.Hash(), b.Hash()
	if ha < hb {
		return -1
	} else if hb < ha {
		return 1
	}
	return Compare(a, b)
}

func sortOrder(t Term) int {
	switch t.(type) {
	case Sort:
		return 0
	case Const:
		return 1
	case Local:
		return 2
	case Bound:
		return 3
	case Meta:
		return 4
	case Int:
		return 5
	case Str:
		return 6
	case *App:
		return 7
	case *Lambda:
		return 8
	case *Pi:
		return 9
	}
	return 10
}

func intCmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func intLitCmp(a, b Int) int {
	if a == b {
		return 0
	}
	x, okA := new(big.Int).SetString(string(a), 10)
	y, okB := new(big.Int).SetString(string(b), 10)
	if !okA || !okB {
		// Not canonical decimals; fall back to the raw strings.
		return strings.Compare(string(a), string(b))
	}
	return x.Cmp(y)
}
