// Package consensus implements the single shared mutable structure in the
// coordination core: a dense array of interface and shared-ESS quantities,
// their previous-iteration snapshot, and the scaled dual multipliers that
// couple the TSO subproblem to each DSO subproblem (spec.md §3/§4.1).
//
// The source keeps this state as nested maps keyed by role, node, year, day,
// quantity, and instant. Per the design note in spec.md §9 this is flattened
// here into flat arrays indexed by (site, year, day, instant), one array per
// named slot, with ownership exclusive to the Store: callers only ever see
// borrowed values through Read/Write, never the backing arrays.
package consensus

import (
	"sync"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// Slot names one of the consensus quantities that participate in the ADMM
// coupling (spec.md §3): the interface voltage magnitude (TSO-owned) and the
// two role-owned copies each of interface PF and shared-ESS dispatch.
type Slot int

const (
	SlotV Slot = iota
	SlotPPFTso
	SlotQPFTso
	SlotPPFDso
	SlotQPFDso
	SlotPEssTso
	SlotQEssTso
	SlotPEssDso
	SlotQEssDso
	numSlots
)

// DualSlot names one scaled multiplier component. Each coupling (PF, ESS)
// has one dual per role per power component (spec.md §3: "one pair per
// coupling per operator ... each holding two components (p, q)").
type DualSlot int

const (
	DualPFTsoP DualSlot = iota
	DualPFTsoQ
	DualPFDsoP
	DualPFDsoQ
	DualEssTsoP
	DualEssTsoQ
	DualEssDsoP
	DualEssDsoQ
	numDualSlots
)

// Store holds the (current, previous, dual) triple for every
// (site, year, day, instant) cell. It is the only mutable structure shared
// across the coordination core (spec.md §5): a single sync.RWMutex enforces
// the single-writer-per-phase discipline — one goroutine writes at a time
// (the TSO step, then each DSO step in a fork-join group), any number may
// read concurrently once a phase's writes are done.
type Store struct {
	dims core.Dimensions

	mu       sync.RWMutex
	current  [numSlots][]float64
	previous [numSlots][]float64
	dual     [numDualSlots][]float64
}

// New allocates a zero-valued store over the given dimensions.
func New(dims core.Dimensions) *Store {
	s := &Store{dims: dims}
	n := dims.NumSites() * dims.NumYears() * dims.NumDays() * dims.NumInstants
	for i := range s.current {
		s.current[i] = make([]float64, n)
		s.previous[i] = make([]float64, n)
	}
	for i := range s.dual {
		s.dual[i] = make([]float64, n)
	}
	return s
}

func (s *Store) index(e, y, d, t int) int {
	dims := s.dims
	return ((e*dims.NumYears()+y)*dims.NumDays()+d)*dims.NumInstants + t
}

// Read returns the current value of the given slot at (e, y, d, t).
func (s *Store) Read(slot Slot, e, y, d, t int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current[slot][s.index(e, y, d, t)]
}

// Write sets the current value of the given slot at (e, y, d, t).
func (s *Store) Write(slot Slot, e, y, d, t int, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[slot][s.index(e, y, d, t)] = value
}

// ReadPrevious returns the value the given slot held as of the last
// SnapshotCurrentAsPrevious call.
func (s *Store) ReadPrevious(slot Slot, e, y, d, t int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previous[slot][s.index(e, y, d, t)]
}

// ReadDual returns the current value of a scaled multiplier.
func (s *Store) ReadDual(slot DualSlot, e, y, d, t int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dual[slot][s.index(e, y, d, t)]
}

// WriteDual sets the current value of a scaled multiplier.
func (s *Store) WriteDual(slot DualSlot, e, y, d, t int, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dual[slot][s.index(e, y, d, t)] = value
}

// AddDual adds delta to the current value of a scaled multiplier — the shape
// every ADMM dual update takes (spec.md §4.4 step 3/4: `λ += ρ·residual`).
func (s *Store) AddDual(slot DualSlot, e, y, d, t int, delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(e, y, d, t)
	s.dual[slot][i] += delta
}

// SnapshotCurrentAsPrevious copies every current slot into previous. Calling
// it twice with no intervening Write yields an identical previous state —
// the idempotence-of-snapshot law in spec.md §8.
func (s *Store) SnapshotCurrentAsPrevious() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.current {
		copy(s.previous[i], s.current[i])
	}
}

// Dims returns the dimensions the store was built over.
func (s *Store) Dims() core.Dimensions { return s.dims }
