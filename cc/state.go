// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cc

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/tenet-prover/tenet/config"
	"github.com/tenet-prover/tenet/term"
	"github.com/tenet-prover/tenet/util"
)

// proofKind discriminates how an equation on the pending queue or in the
// proof forest is justified.
type proofKind int

const (
	// proofAssert carries a proof term supplied by the caller.
	proofAssert proofKind = iota
	// proofCongr marks an equation detected through a congruence table.
	// Its proof is synthesized during reconstruction from the argument
	// classes, so congruent pairs never cost an explicit proof edge.
	proofCongr
	// proofEqTrue marks an equation with true detected by reflexivity of a
	// registered relation. Also synthesized during reconstruction.
	proofEqTrue
)

// todoProof is the justification slot of a queue entry or forest edge. The
// proof term pf is set for proofAssert only.
type todoProof struct {
	kind proofKind
	pf   term.Term
}

func assertProof(pf term.Term) todoProof {
	return todoProof{kind: proofAssert, pf: pf}
}

var (
	congrMark  = todoProof{kind: proofCongr}
	eqTrueMark = todoProof{kind: proofEqTrue}
)

// todoEntry is a pending equation awaiting a merge.
type todoEntry struct {
	lhs, rhs term.Term
	proof    todoProof
	heq      bool
}

// entry is the per-term record of the union-find forest.
type entry struct {
	// next chains the members of an equivalence class in a cycle.
	next term.Term
	// root is the class representative.
	root term.Term
	// cgRoot is the congruence representative, the application occupying
	// the congruence table slot this term fingerprints to.
	cgRoot term.Term

	// target, proof, flipped and heqEdge form the proof forest edge toward
	// the root. target is nil exactly at the root. flipped records that
	// proof justifies target = e rather than e = target, and heqEdge that
	// the proof is heterogeneous.
	target  term.Term
	proof   todoProof
	flipped bool
	heqEdge bool

	// toPropagate marks propositions whose truth must be reported once
	// their class reaches true or false.
	toPropagate bool
	// interpreted marks abstract values: true, false and literals.
	interpreted bool
	// constructor marks applications headed by a datatype constructor.
	constructor bool
	// heqProofs records at the root whether any edge in the class is
	// heterogeneous.
	heqProofs bool
	// fo marks applications internalized with the first-order
	// approximation, whose partial applications are not tracked.
	fo bool

	// size is the class size, meaningful at the root only.
	size int
	// mt is the modification time of the term, used to detect classes
	// untouched since a given round of propagation.
	mt uint64
}

// parentOcc is one occurrence of a child term inside an internalized
// application. symm selects the congruence table the parent occupies for
// this occurrence; the same parent can be registered in either.
type parentOcc struct {
	parent term.Term
	symm   bool
}

func parentOccCompare(a, b parentOcc) int {
	if c := term.QuickCompare(a.parent, b.parent); c != 0 {
		return c
	}
	return boolCompare(a.symm, b.symm)
}

// congrKey is the resolved fingerprint of an application: the class roots
// of its relevant pieces plus a precomputed hash. Keys occupy a table slot
// only while those roots are current; parents are removed from the tables
// before their children change root and reinserted after, so a stored key
// can always be recomputed for removal.
type congrKey struct {
	// fo distinguishes full-arity fingerprints of first-order
	// approximated applications from the per-application ones.
	fo   bool
	fn   term.Term
	args []term.Term
	hash uint64
}

func congrKeyCompare(a, b congrKey) int {
	if a.hash != b.hash {
		return uint64Compare(a.hash, b.hash)
	}
	if a.fo != b.fo {
		return boolCompare(a.fo, b.fo)
	}
	if len(a.args) != len(b.args) {
		return len(a.args) - len(b.args)
	}
	if c := term.QuickCompare(a.fn, b.fn); c != 0 {
		return c
	}
	for i := range a.args {
		if c := term.QuickCompare(a.args[i], b.args[i]); c != 0 {
			return c
		}
	}
	return 0
}

// symmKey is the fingerprint of a symmetric relation application: the
// relation name plus the operand class roots in canonical order, so that
// r(x, y) and r(y, x) land on the same slot.
type symmKey struct {
	rel  string
	lhs  term.Term
	rhs  term.Term
	hash uint64
}

func symmKeyCompare(a, b symmKey) int {
	if a.hash != b.hash {
		return uint64Compare(a.hash, b.hash)
	}
	if a.rel != b.rel {
		if a.rel < b.rel {
			return -1
		}
		return 1
	}
	if c := term.QuickCompare(a.lhs, b.lhs); c != 0 {
		return c
	}
	return term.QuickCompare(a.rhs, b.rhs)
}

func congrKeyHash(fo bool, fn term.Term, args []term.Term) uint64 {
	d := xxhash.New()
	if fo {
		_, _ = d.Write([]byte{1})
	} else {
		_, _ = d.Write([]byte{0})
	}
	hashTerm(d, fn)
	for _, a := range args {
		hashTerm(d, a)
	}
	return d.Sum64()
}

func symmKeyHash(rel string, lhs, rhs term.Term) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(rel)
	hashTerm(d, lhs)
	hashTerm(d, rhs)
	return d.Sum64()
}

func hashTerm(d *xxhash.Digest, t term.Term) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], t.Hash())
	_, _ = d.Write(buf[:])
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	}
	return 1
}

func uint64Compare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case b < a:
		return 1
	}
	return 0
}

// State holds every table of the closure: the union-find entries, the
// parent occurrence index, both congruence tables and the subsingleton
// representatives. All tables are persistent, so Clone is cheap and the
// clone is independent of the receiver.
//
// A State is not safe for concurrent use. Engines serving different
// speculative branches must each work on their own clone.
type State struct {
	entries          util.TreeMap[term.Term, entry]
	parents          util.TreeMap[term.Term, util.TreeSet[parentOcc]]
	congruences      util.TreeMap[congrKey, term.Term]
	symmCongruences  util.TreeMap[symmKey, term.Term]
	subsingletonReps util.TreeMap[term.Term, term.Term]

	// gmt counts the rounds of propagation. It increments once per added
	// fact, and entry modification times are stamped against it.
	gmt          uint64
	frozen       bool
	inconsistent bool

	conf            *config.Config
	ignoreInstances bool
	values          bool
	allHO           bool
	foFns           map[string]bool
}

// NewState returns an empty closure state. The canonical truth values are
// pre-internalized as interpreted terms, so merging any proposition into
// their classes is meaningful from the start. A nil conf assumes the
// default configuration.
func NewState(conf *config.Config) *State {
	if conf == nil {
		conf = config.Default()
	}
	s := &State{
		entries:          util.NewTreeMap[term.Term, entry](term.QuickCompare),
		parents:          util.NewTreeMap[term.Term, util.TreeSet[parentOcc]](term.QuickCompare),
		congruences:      util.NewTreeMap[congrKey, term.Term](congrKeyCompare),
		symmCongruences:  util.NewTreeMap[symmKey, term.Term](symmKeyCompare),
		subsingletonReps: util.NewTreeMap[term.Term, term.Term](term.QuickCompare),
		conf:             conf,
		ignoreInstances:  conf.IgnoreInstances != nil && *conf.IgnoreInstances,
		values:           conf.Values != nil && *conf.Values,
		allHO:            conf.AllHO != nil && *conf.AllHO,
	}
	if len(conf.FOFns) > 0 {
		s.foFns = make(map[string]bool, len(conf.FOFns))
		for _, name := range conf.FOFns {
			s.foFns[name] = true
		}
	}
	s.mkEntryCore(term.True, false, true, false)
	s.mkEntryCore(term.False, false, true, false)
	return s
}

// Config returns the configuration the state was created with.
func (s *State) Config() *config.Config {
	return s.conf
}

// Clone returns an independent copy of the state. The copy shares internal
// structure with the receiver, so cloning costs O(1) regardless of how many
// terms have been internalized, and later mutations of either copy never
// show through the other.
func (s *State) Clone() *State {
	cp := *s
	cp.entries = s.entries.Clone()
	cp.parents = s.parents.Clone()
	cp.congruences = s.congruences.Clone()
	cp.symmCongruences = s.symmCongruences.Clone()
	cp.subsingletonReps = s.subsingletonReps.Clone()
	return &cp
}

func (s *State) mkEntryCore(e term.Term, toPropagate, interpreted, constructor bool) {
	s.entries.Put(e, entry{
		next:        e,
		root:        e,
		cgRoot:      e,
		toPropagate: toPropagate,
		interpreted: interpreted,
		constructor: constructor,
		size:        1,
		mt:          s.gmt,
	})
}

func (s *State) entry(e term.Term) (entry, bool) {
	return s.entries.Get(e)
}

// GetRoot returns the representative of the class of e. Terms that were
// never internalized represent themselves.
func (s *State) GetRoot(e term.Term) term.Term {
	if n, ok := s.entries.Get(e); ok {
		return n.root
	}
	return e
}

// GetNext returns the next member of the class of e.
func (s *State) GetNext(e term.Term) term.Term {
	if n, ok := s.entries.Get(e); ok {
		return n.next
	}
	return e
}

// GetMT returns the modification time of e, the value of the global counter
// when e or one of its descendants last took part in a merge.
func (s *State) GetMT(e term.Term) uint64 {
	if n, ok := s.entries.Get(e); ok {
		return n.mt
	}
	return s.gmt
}

// GMT returns the global modification time, incremented once per added
// fact.
func (s *State) GMT() uint64 {
	return s.gmt
}

// IsCongrRoot returns true if e represents its congruence class in the
// tables.
func (s *State) IsCongrRoot(e term.Term) bool {
	if n, ok := s.entries.Get(e); ok {
		return e.Equal(n.cgRoot)
	}
	return true
}

// Inconsistent returns true once contradictory facts have been merged.
// The flag is never cleared.
func (s *State) Inconsistent() bool {
	return s.inconsistent
}

// Frozen returns true after FreezePartitions.
func (s *State) Frozen() bool {
	return s.frozen
}

// InSingletonEqc returns true if e is the only member of its class.
func (s *State) InSingletonEqc(e term.Term) bool {
	if n, ok := s.entries.Get(e); ok {
		return n.next.Equal(e)
	}
	return true
}

// InHeterogeneousEqc returns true if the class of e mixes homogeneous and
// heterogeneous equality proofs. Proofs extracted across such a class need
// cast steps at the seams.
func (s *State) InHeterogeneousEqc(e term.Term) bool {
	return s.hasHEqProofs(s.GetRoot(e))
}

func (s *State) hasHEqProofs(root term.Term) bool {
	n, ok := s.entries.Get(root)
	return ok && n.heqProofs
}

// Roots returns the class representatives, in term order. With
// nonsingletonOnly set, classes with a single member are omitted.
func (s *State) Roots(nonsingletonOnly bool) []term.Term {
	var roots []term.Term
	s.entries.Iter(func(e term.Term, n entry) bool {
		if e.Equal(n.root) && !(nonsingletonOnly && n.next.Equal(e)) {
			roots = append(roots, e)
		}
		return false
	})
	return roots
}

// Eqc returns the members of the equivalence class of e, starting at e.
func (s *State) Eqc(e term.Term) []term.Term {
	out := []term.Term{e}
	it := s.GetNext(e)
	for !it.Equal(e) {
		out = append(out, it)
		it = s.GetNext(it)
	}
	return out
}

// FreezePartitions puts the state in frozen mode: every class root is
// marked interpreted, so no two existing classes can merge without raising
// an inconsistency, and proof production is disabled. The mode trades
// proofs for cheap reachability queries and cannot be undone on this state;
// keep a Clone from before freezing if proofs are still needed.
func (s *State) FreezePartitions() {
	s.frozen = true
	var roots []term.Term
	s.entries.Iter(func(e term.Term, n entry) bool {
		if e.Equal(n.root) && !n.interpreted {
			roots = append(roots, e)
		}
		return false
	})
	for _, e := range roots {
		n, _ := s.entries.Get(e)
		n.interpreted = true
		s.entries.Put(e, n)
	}
}

// CheckInvariant verifies the structural invariants of the union-find
// forest: classes form exactly one next cycle with a correct size, proof
// forest chains terminate at the class root, the heterogeneous flag at each
// root agrees with the class edges, and congruence representatives stay
// within their class. It returns the first violation found.
func (s *State) CheckInvariant() error {
	var err error
	total := 0
	s.entries.Iter(func(e term.Term, n entry) bool {
		total++
		rootEnt, ok := s.entries.Get(n.root)
		if !ok {
			err = fmt.Errorf("root %v of %v has no entry", n.root, e)
			return true
		}
		if !rootEnt.root.Equal(n.root) {
			err = fmt.Errorf("root %v of %v is not its own root", n.root, e)
			return true
		}
		if (n.target == nil) != e.Equal(n.root) {
			err = fmt.Errorf("proof forest edge at %v disagrees with its root", e)
			return true
		}
		if !s.GetRoot(n.cgRoot).Equal(n.root) {
			err = fmt.Errorf("congruence representative %v of %v left the class", n.cgRoot, e)
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	counted := 0
	s.entries.Iter(func(e term.Term, n entry) bool {
		if !e.Equal(n.root) {
			return false
		}
		if err = s.checkEqc(e, n); err != nil {
			return true
		}
		counted += n.size
		return false
	})
	if err != nil {
		return err
	}
	if counted != total {
		return fmt.Errorf("class sizes sum to %d but %d terms are tracked", counted, total)
	}
	return nil
}

func (s *State) checkEqc(root term.Term, rootEnt entry) error {
	size := 0
	heq := false
	it := root
	for {
		n, ok := s.entries.Get(it)
		if !ok {
			return fmt.Errorf("class member %v of %v has no entry", it, root)
		}
		if !n.root.Equal(root) {
			return fmt.Errorf("class member %v of %v points at root %v", it, root, n.root)
		}
		if n.heqEdge {
			heq = true
		}
		if err := s.checkChain(it, root, rootEnt.size); err != nil {
			return err
		}
		size++
		if size > rootEnt.size {
			return fmt.Errorf("next cycle at %v exceeds the recorded size %d", root, rootEnt.size)
		}
		it = n.next
		if it.Equal(root) {
			break
		}
	}
	if size != rootEnt.size {
		return fmt.Errorf("class %v has %d members but records size %d", root, size, rootEnt.size)
	}
	if rootEnt.heqProofs != heq {
		return fmt.Errorf("heterogeneous flag at %v is %v but the class edges say %v", root, rootEnt.heqProofs, heq)
	}
	return nil
}

func (s *State) checkChain(from, root term.Term, bound int) error {
	it := from
	for steps := 0; ; steps++ {
		n, ok := s.entries.Get(it)
		if !ok {
			return fmt.Errorf("proof chain from %v reaches untracked term %v", from, it)
		}
		if n.target == nil {
			if !it.Equal(root) {
				return fmt.Errorf("proof chain from %v ends at %v instead of the root %v", from, it, root)
			}
			return nil
		}
		if steps >= bound {
			return fmt.Errorf("proof chain from %v does not terminate", from)
		}
		it = n.target
	}
}
