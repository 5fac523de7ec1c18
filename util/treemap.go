// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

// TreeMap is an ordered map with persistent internals. Nodes are immutable:
// mutating operations copy the path from the root down to the affected node
// and leave every other node shared. Clone is therefore O(1), and a handle
// obtained from Clone can be mutated without affecting the original.
//
// The zero value is not usable; construct instances with NewTreeMap.
type TreeMap[K, V any] struct {
	compare func(K, K) int
	root    *treeNode[K, V]
	size    int
}

type treeNode[K, V any] struct {
	key    K
	value  V
	height int
	left   *treeNode[K, V]
	right  *treeNode[K, V]
}

// NewTreeMap returns an empty map ordered by compare. The compare function
// must define a total order over keys: negative if a < b, zero if equal,
// positive if a > b.
func NewTreeMap[K, V any](compare func(a, b K) int) TreeMap[K, V] {
	return TreeMap[K, V]{compare: compare}
}

// Len returns the number of entries in the map.
func (t *TreeMap[K, V]) Len() int {
	return t.size
}

// Get returns the value stored for k.
func (t *TreeMap[K, V]) Get(k K) (V, bool) {
	n := t.root
	for n != nil {
		c := t.compare(k, n.key)
		switch {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n.value, true
		}
	}
	var zero V
	return zero, false
}

// Put inserts or replaces the value stored for k.
func (t *TreeMap[K, V]) Put(k K, v V) {
	root, added := t.insert(t.root, k, v)
	t.root = root
	if added {
		t.size++
	}
}

// Delete removes the entry stored for k, if any.
func (t *TreeMap[K, V]) Delete(k K) {
	root, removed := t.remove(t.root, k)
	if removed {
		t.root = root
		t.size--
	}
}

// Iter invokes iter for each entry in ascending key order. If iter returns
// true, iteration stops and Iter returns true.
func (t *TreeMap[K, V]) Iter(iter func(k K, v V) bool) bool {
	return t.root.iter(iter)
}

// Clone returns an independent handle on the same contents. The clone and
// the receiver share all nodes until either of them is mutated.
func (t *TreeMap[K, V]) Clone() TreeMap[K, V] {
	return TreeMap[K, V]{compare: t.compare, root: t.root, size: t.size}
}

func (t *TreeMap[K, V]) insert(n *treeNode[K, V], k K, v V) (*treeNode[K, V], bool) {
	if n == nil {
		return &treeNode[K, V]{key: k, value: v, height: 1}, true
	}
	cp := *n
	c := t.compare(k, n.key)
	var added bool
	switch {
	case c < 0:
		cp.left, added = t.insert(n.left, k, v)
	case c > 0:
		cp.right, added = t.insert(n.right, k, v)
	default:
		cp.value = v
		return &cp, false
	}
	return rebalance(&cp), added
}

func (t *TreeMap[K, V]) remove(n *treeNode[K, V], k K) (*treeNode[K, V], bool) {
	if n == nil {
		return nil, false
	}
	c := t.compare(k, n.key)
	cp := *n
	var removed bool
	switch {
	case c < 0:
		cp.left, removed = t.remove(n.left, k)
	case c > 0:
		cp.right, removed = t.remove(n.right, k)
	default:
		if cp.left == nil {
			return cp.right, true
		}
		if cp.right == nil {
			return cp.left, true
		}
		rest, min := removeMin(cp.right)
		cp.key, cp.value = min.key, min.value
		cp.right = rest
		removed = true
	}
	if !removed {
		return n, false
	}
	return rebalance(&cp), true
}

// removeMin detaches the leftmost node of the subtree. The returned min node
// is an original tree node and must not be mutated.
func removeMin[K, V any](n *treeNode[K, V]) (rest, min *treeNode[K, V]) {
	if n.left == nil {
		return n.right, n
	}
	cp := *n
	cp.left, min = removeMin(n.left)
	return rebalance(&cp), min
}

func (n *treeNode[K, V]) iter(iter func(K, V) bool) bool {
	if n == nil {
		return false
	}
	if n.left.iter(iter) {
		return true
	}
	if iter(n.key, n.value) {
		return true
	}
	return n.right.iter(iter)
}

func height[K, V any](n *treeNode[K, V]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func setHeight[K, V any](n *treeNode[K, V]) {
	lh, rh := height(n.left), height(n.right)
	if lh > rh {
		n.height = lh + 1
	} else {
		n.height = rh + 1
	}
}

// rotateRight promotes the left child. The argument must already be a private
// copy; the promoted child is copied here before it is mutated.
func rotateRight[K, V any](n *treeNode[K, V]) *treeNode[K, V] {
	l := *n.left
	n.left = l.right
	l.right = n
	setHeight(n)
	setHeight(&l)
	return &l
}

// rotateLeft promotes the right child. Same copying contract as rotateRight.
func rotateLeft[K, V any](n *treeNode[K, V]) *treeNode[K, V] {
	r := *n.right
	n.right = r.left
	r.left = n
	setHeight(n)
	setHeight(&r)
	return &r
}

func rebalance[K, V any](n *treeNode[K, V]) *treeNode[K, V] {
	setHeight(n)
	switch b := height(n.left) - height(n.right); {
	case b > 1:
		if height(n.left.left) < height(n.left.right) {
			l := *n.left
			n.left = rotateLeft(&l)
		}
		return rotateRight(n)
	case b < -1:
		if height(n.right.right) < height(n.right.left) {
			r := *n.right
			n.right = rotateRight(&r)
		}
		return rotateLeft(n)
	default:
		return n
	}
}
