// Copyright 2025 The optdiag Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package solve defines the solver oracle boundary consumed by the diagnose
// package, together with a bundled simplex-backed implementation.
//
// An Oracle creates Instances; an Instance holds exactly one model clone and
// is repeatedly mutated and re-solved by its owner. Implementations wrap a
// concrete LP/MIP backend.
package solve

import (
	"errors"

	"github.com/optdiag/optdiag/lpmodel"
)

// ErrOracleContract is returned when an oracle primitive is invoked in a way
// its contract forbids, e.g. fixing a variable the instance does not know.
var ErrOracleContract = errors.New("solver oracle contract violation")

// Oracle creates fresh, independent solver instances.
type Oracle interface {
	// Instantiate returns a new empty Instance. Every Instance is
	// independent of all others.
	Instantiate() (Instance, error)
}

// Instance is a single mutable solver workspace.
//
// An Instance is not safe for concurrent use; it is exclusively owned by the
// analysis invocation that created it.
type Instance interface {
	// CopyModel deep-copies `src` into the instance and returns the mapping
	// between the source's constraint identities and the clone's. It may be
	// called at most once per instance.
	CopyModel(src *lpmodel.Builder) (ConstraintMap, error)

	// Silence suppresses all solver output.
	Silence()

	// Solve runs the backend on the instance's current model state. Solver
	// outcomes (optimal, infeasible, unbounded, ...) are reported through
	// TerminationStatus and PrimalStatus, not through the returned error,
	// which is reserved for invocation failures.
	Solve() error

	// TerminationStatus returns the termination status of the last Solve.
	TerminationStatus() lpmodel.TerminationStatus

	// PrimalStatus returns the primal solution status of the last Solve.
	PrimalStatus() lpmodel.PrimalStatus

	// VariableValue returns the value of the variable in the last primal
	// solution. It fails if the last Solve produced no primal point.
	VariableValue(v lpmodel.VarIndex) (float64, error)

	// RelaxWithElastics installs nonnegative elastic variables on every
	// constraint of the clone, penalized in the objective with the given
	// coefficient, and returns the per-constraint elastic expression: one
	// term for an inequality, two (positive and negative deviation) for an
	// equality. Keys are clone-side constraint indices. It may be called at
	// most once per instance.
	RelaxWithElastics(penalty float64) (map[lpmodel.ConstrIndex]*lpmodel.LinearExpr, error)

	// SetObjective replaces the instance's objective. A nil expression
	// installs a pure feasibility objective.
	SetObjective(expr *lpmodel.LinearExpr, maximize bool)

	// Objective returns the instance's current objective expression and
	// sense.
	Objective() (*lpmodel.LinearExpr, bool)

	// FixToZero constrains the variable to exactly zero and reports whether
	// the variable had a finite lower bound beforehand.
	FixToZero(v lpmodel.VarIndex) (hadLower bool, err error)

	// UnfixWithBound removes a FixToZero fix, restoring a plain
	// nonnegativity lower bound when `hasLower` is true and leaving the
	// variable free otherwise.
	UnfixWithBound(v lpmodel.VarIndex, hasLower bool) error
}

// ConstraintMap is a bidirectional mapping between the constraint identities
// of a source model and those of its clone inside an Instance.
type ConstraintMap struct {
	toClone    map[lpmodel.ConstrIndex]lpmodel.ConstrIndex
	toOriginal map[lpmodel.ConstrIndex]lpmodel.ConstrIndex
}

// NewConstraintMap returns an empty ConstraintMap.
func NewConstraintMap() ConstraintMap {
	return ConstraintMap{
		toClone:    make(map[lpmodel.ConstrIndex]lpmodel.ConstrIndex),
		toOriginal: make(map[lpmodel.ConstrIndex]lpmodel.ConstrIndex),
	}
}

// Put records that the original constraint maps to the given clone
// constraint.
func (m ConstraintMap) Put(original, clone lpmodel.ConstrIndex) {
	m.toClone[original] = clone
	m.toOriginal[clone] = original
}

// Clone returns the clone-side index of an original constraint.
func (m ConstraintMap) Clone(original lpmodel.ConstrIndex) (lpmodel.ConstrIndex, bool) {
	c, ok := m.toClone[original]
	return c, ok
}

// Original returns the original index of a clone-side constraint. Clone
// constraints with no original, such as internally relaxed variable bounds,
// report false.
func (m ConstraintMap) Original(clone lpmodel.ConstrIndex) (lpmodel.ConstrIndex, bool) {
	o, ok := m.toOriginal[clone]
	return o, ok
}

// Len returns the number of mapped constraint pairs.
func (m ConstraintMap) Len() int {
	return len(m.toClone)
}
