// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package term

// Walk invokes f on t and, unless f returns true, on its children in
// pre-order.
func Walk(t Term, f func(Term) bool) {
	if f(t) {
		return
	}
	switch t := t.(type) {
	case *App:
		Walk(t.fn, f)
		Walk(t.arg, f)
	case *Lambda:
		Walk(t.domain, f)
		Walk(t.body, f)
	case *Pi:
		Walk(t.domain, f)
		Walk(t.body, f)
	}
}

// HasMeta returns true if t contains a metavariable.
func HasMeta(t Term) bool {
	var found bool
	Walk(t, func(x Term) bool {
		if _, ok := x.(Meta); ok {
			found = true
		}
		return found
	})
	return found
}

// Instantiate replaces Bound(0) in body with v and shifts the remaining
// bound variables down. The replacement v must be closed, which holds for
// every call site in this module: substituted arguments come from fully
// internalized terms.
func Instantiate(body Term, v Term) Term {
	return instantiate(body, v, 0)
}

func instantiate(t Term, v Term, depth int) Term {
	switch x := t.(type) {
	case Bound:
		if int(x) == depth {
			return v
		}
		if int(x) > depth {
			return x - 1
		}
		return x
	case *App:
		fn := instantiate(x.fn, v, depth)
		arg := instantiate(x.arg, v, depth)
		if fn == x.fn && arg == x.arg {
			return x
		}
		return NewApp(fn, arg)
	case *Lambda:
		domain := instantiate(x.domain, v, depth)
		body := instantiate(x.body, v, depth+1)
		if domain == x.domain && body == x.body {
			return x
		}
		return NewLambda(x.binder, domain, body)
	case *Pi:
		domain := instantiate(x.domain, v, depth)
		body := instantiate(x.body, v, depth+1)
		if domain == x.domain && body == x.body {
			return x
		}
		return NewPi(x.binder, domain, body)
	default:
		return t
	}
}

// Abstract replaces occurrences of the local l in body with Bound(0),
// shifting existing bound variables up. It is the inverse of Instantiate for
// closed replacement terms.
func Abstract(body Term, l Local) Term {
	return abstract(body, l, 0)
}

func abstract(t Term, l Local, depth int) Term {
	switch x := t.(type) {
	case Local:
		if x.Name == l.Name {
			return Bound(depth)
		}
		return x
	case Bound:
		if int(x) >= depth {
			return x + 1
		}
		return x
	case *App:
		fn := abstract(x.fn, l, depth)
		arg := abstract(x.arg, l, depth)
		if fn == x.fn && arg == x.arg {
			return x
		}
		return NewApp(fn, arg)
	case *Lambda:
		domain := abstract(x.domain, l, depth)
		body := abstract(x.body, l, depth+1)
		if domain == x.domain && body == x.body {
			return x
		}
		return NewLambda(x.binder, domain, body)
	case *Pi:
		domain := abstract(x.domain, l, depth)
		body := abstract(x.body, l, depth+1)
		if domain == x.domain && body == x.body {
			return x
		}
		return NewPi(x.binder, domain, body)
	default:
		return t
	}
}

// dependsOn reports whether t references the bound variable with the given
// depth.
func dependsOn(t Term, depth int) bool {
	switch x := t.(type) {
	case Bound:
		return int(x) == depth
	case *App:
		return dependsOn(x.fn, depth) || dependsOn(x.arg, depth)
	case *Lambda:
		return dependsOn(x.domain, depth) || dependsOn(x.body, depth+1)
	case *Pi:
		return dependsOn(x.domain, depth) || dependsOn(x.body, depth+1)
	default:
		return false
	}
}
