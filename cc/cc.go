// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cc implements a proof-producing congruence closure engine over
// the term language.
//
// The engine maintains equivalence classes of internalized terms under a
// stream of externally proven facts. Whenever two applications become
// congruent in their arguments the classes merge automatically, truth
// values propagate through asserted propositions, and every derived
// equality can be certified by a proof term in the combinator vocabulary
// accepted by types.CheckProof.
//
// All closure data lives in a State, which clones in O(1) with full
// structure sharing. The CC engine pairs one state with a type context and
// the relation and congruence lemma services; it is single-threaded by
// design, and speculative branches are served by cloning the state and
// running an engine per clone.
package cc

import (
	"github.com/tenet-prover/tenet/congr"
	"github.com/tenet-prover/tenet/logging"
	"github.com/tenet-prover/tenet/metrics"
	"github.com/tenet-prover/tenet/relation"
	"github.com/tenet-prover/tenet/term"
	"github.com/tenet-prover/tenet/types"
)

// Kind selects the flavor of equality proof to extract.
type Kind int

const (
	// KindEq requests a homogeneous equality proof.
	KindEq Kind = iota
	// KindHEq requests a heterogeneous equality proof.
	KindHEq
)

// CC drives a closure state forward. The zero value is not usable;
// construct engines with New.
type CC struct {
	ctx         *types.Context
	state       *State
	rels        *relation.Registry
	lemmas      *congr.Builder
	logger      logging.Logger
	metrics     metrics.Metrics
	onPropagate func(fact, proof term.Term)
	todo        []todoEntry
}

// Option configures an engine created by New.
type Option func(*CC)

// WithLogger sets the logger the engine reports skipped terms and
// reconstruction failures to.
func WithLogger(l logging.Logger) Option {
	return func(c *CC) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink for engine instrumentation.
func WithMetrics(m metrics.Metrics) Option {
	return func(c *CC) {
		c.metrics = m
	}
}

// WithRelations sets the relation registry consulted for symmetry and
// reflexivity. The type context should be built over the same registry so
// that proofs mentioning relation lemmas check.
func WithRelations(r *relation.Registry) Option {
	return func(c *CC) {
		c.rels = r
	}
}

// WithLemmas sets the congruence lemma builder. Engines sharing a builder
// share its lemma cache.
func WithLemmas(b *congr.Builder) Option {
	return func(c *CC) {
		c.lemmas = b
	}
}

// WithOnPropagate registers a handler for propagated truth facts. The
// handler receives the proposition and a proof of it, or a nil proof when
// the state is frozen.
func WithOnPropagate(fn func(fact, proof term.Term)) Option {
	return func(c *CC) {
		c.onPropagate = fn
	}
}

// New returns an engine over the given context and state. A nil state is
// replaced with a fresh default one.
func New(ctx *types.Context, state *State, opts ...Option) *CC {
	if state == nil {
		state = NewState(nil)
	}
	c := &CC{
		ctx:     ctx,
		state:   state,
		logger:  logging.NewNoOpLogger(),
		metrics: metrics.NoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rels == nil {
		c.rels = relation.NewRegistry()
	}
	if c.lemmas == nil {
		c.lemmas = congr.NewBuilder(ctx, state.conf.TransparencyMode())
	}
	return c
}

// State returns the closure state the engine operates on.
func (c *CC) State() *State {
	return c.state
}

// Context returns the type context.
func (c *CC) Context() *types.Context {
	return c.ctx
}

// Internalize registers e and its relevant subterms, merging any
// congruences discovered along the way. toplevel marks e as an asserted
// fact whose propositional structure takes part in truth propagation.
func (c *CC) Internalize(e term.Term, toplevel bool) {
	timer := c.metrics.Timer(metrics.CCInternalize)
	timer.Start()
	defer timer.Stop()
	c.internalizeCore(e, toplevel, toplevel && c.ctx.IsProp(e))
	c.processTodo(nil)
}

// Add merges the consequences of an externally proven fact. typ is the
// proposition proved by proof: equalities and heterogeneous equalities
// merge their operands, an iff merges the two propositions via
// propositional extensionality, a negation merges the denied proposition
// with false, and any other proposition is merged with true. Add is a
// no-op once the state is inconsistent.
func (c *CC) Add(typ, proof term.Term) {
	if c.state.inconsistent {
		return
	}
	timer := c.metrics.Timer(metrics.CCAdd)
	timer.Start()
	defer timer.Stop()

	c.state.gmt++
	c.todo = c.todo[:0]

	p := typ
	neg := false
	if inner, ok := term.AsNot(typ); ok {
		p, neg = inner, true
	}

	if info, lhs, rhs, ok := c.rels.AsBinaryRelation(p); ok && !neg {
		switch info.Name {
		case term.EqName, term.HEqName:
			c.internalizeCore(lhs, false, false)
			c.internalizeCore(rhs, false, false)
			c.addEqvCore(lhs, rhs, assertProof(proof), nil, info.Name == term.HEqName)
			return
		case term.IffName:
			c.internalizeCore(lhs, true, true)
			c.internalizeCore(rhs, true, true)
			c.addEqvCore(lhs, rhs, assertProof(mkPropext(proof)), nil, false)
			return
		}
	}

	if !c.ctx.IsProp(p) {
		c.logger.Debug("cc: ignoring fact %v: not a proposition", typ)
		return
	}
	c.internalizeCore(p, true, true)
	if neg {
		c.addEqvCore(p, term.False, assertProof(mkEqFalseIntro(proof)), p, false)
	} else {
		c.addEqvCore(p, term.True, assertProof(mkEqTrueIntro(proof)), p, false)
	}
}

// IsEqv returns true if e1 and e2 are known equal. Both must have been
// internalized. Once the state is inconsistent every equivalence holds
// vacuously.
func (c *CC) IsEqv(e1, e2 term.Term) bool {
	n1, ok1 := c.state.entry(e1)
	n2, ok2 := c.state.entry(e2)
	if !ok1 || !ok2 {
		return false
	}
	return c.state.inconsistent || n1.root.Equal(n2.root)
}

// IsNotEqv returns true if e1 and e2 are known distinct, that is, their
// equality has been merged with false.
func (c *CC) IsNotEqv(e1, e2 term.Term) bool {
	if c.IsEqv(term.MkEq(e1, e2), term.False) {
		return true
	}
	return c.IsEqv(term.MkHEq(e1, e2), term.False)
}

// Proved returns true if the proposition e is known to hold.
func (c *CC) Proved(e term.Term) bool {
	return c.IsEqv(e, term.True)
}

// GetRoot returns the representative of the class of e.
func (c *CC) GetRoot(e term.Term) term.Term {
	return c.state.GetRoot(e)
}

// GetNext returns the next member of the class of e.
func (c *CC) GetNext(e term.Term) term.Term {
	return c.state.GetNext(e)
}

// IsCongrRoot returns true if e represents its congruence class.
func (c *CC) IsCongrRoot(e term.Term) bool {
	return c.state.IsCongrRoot(e)
}

// InHeterogeneousEqc returns true if the class of e mixes homogeneous and
// heterogeneous proofs.
func (c *CC) InHeterogeneousEqc(e term.Term) bool {
	return c.state.InHeterogeneousEqc(e)
}

// GetMT returns the modification time of e.
func (c *CC) GetMT(e term.Term) uint64 {
	return c.state.GetMT(e)
}

// GMT returns the global modification time.
func (c *CC) GMT() uint64 {
	return c.state.GMT()
}

// GetEqProof returns a proof of e1 = e2 if both are internalized and known
// equal, and reports absence otherwise. Absence is also reported while the
// state is frozen, since frozen states do not track proofs.
func (c *CC) GetEqProof(e1, e2 term.Term) (term.Term, bool) {
	return c.proofOrAbsence(e1, e2, false)
}

// GetHEqProof returns a proof of e1 == e2, the heterogeneous variant of
// GetEqProof.
func (c *CC) GetHEqProof(e1, e2 term.Term) (term.Term, bool) {
	return c.proofOrAbsence(e1, e2, true)
}

// GetProof returns the natural proof flavor for the class of e1:
// heterogeneous when the class mixes proof kinds, homogeneous otherwise.
func (c *CC) GetProof(e1, e2 term.Term) (term.Term, bool) {
	return c.proofOrAbsence(e1, e2, c.state.InHeterogeneousEqc(e1))
}

// GetProofOfKind returns a proof of the requested kind.
func (c *CC) GetProofOfKind(e1, e2 term.Term, k Kind) (term.Term, bool) {
	return c.proofOrAbsence(e1, e2, k == KindHEq)
}

func (c *CC) proofOrAbsence(e1, e2 term.Term, asHeq bool) (term.Term, bool) {
	p, err := c.getEqProofCore(e1, e2, asHeq)
	if err != nil {
		c.logger.Debug("cc: no proof for %v and %v: %v", e1, e2, err)
		return nil, false
	}
	return p, true
}

// GetInconsistencyProof returns a proof of false once contradictory facts
// have been merged. Combined with false.rec it discharges any goal.
func (c *CC) GetInconsistencyProof() (term.Term, bool) {
	if !c.state.inconsistent || c.state.frozen {
		return nil, false
	}
	p, err := c.getEqProofCore(term.True, term.False, false)
	if err != nil {
		c.logger.Error("cc: inconsistency proof reconstruction failed: %v", err)
		return nil, false
	}
	return term.NewApp(term.Const{Name: term.TrueNeFalseName}, p), true
}

// CheckInvariant verifies the structural invariants of the state plus the
// coherence of both congruence tables: each slot must be owned by a
// congruence representative whose fingerprint still matches the slot key.
func (c *CC) CheckInvariant() error {
	if err := c.state.CheckInvariant(); err != nil {
		return err
	}
	var err error
	c.state.congruences.Iter(func(k congrKey, rep term.Term) bool {
		if err = c.checkCongrSlot(k, rep); err != nil {
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	c.state.symmCongruences.Iter(func(k symmKey, rep term.Term) bool {
		if err = c.checkSymmSlot(k, rep); err != nil {
			return true
		}
		return false
	})
	return err
}
