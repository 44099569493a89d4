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

package lpmodel

// TerminationStatus describes why a solver stopped working on a model.
type TerminationStatus int

const (
	// TerminationNotSolved indicates the model has not been solved.
	TerminationNotSolved TerminationStatus = iota
	// TerminationOptimal indicates a provably optimal solution was found.
	TerminationOptimal
	// TerminationFeasible indicates the solver stopped with a feasible but
	// not necessarily optimal solution, e.g. on an iteration limit.
	TerminationFeasible
	// TerminationInfeasible indicates the model was proved primal infeasible.
	TerminationInfeasible
	// TerminationUnbounded indicates the model was proved primal unbounded
	// (equivalently, dual infeasible).
	TerminationUnbounded
	// TerminationInfeasibleOrUnbounded indicates the solver could not
	// distinguish primal infeasibility from unboundedness.
	TerminationInfeasibleOrUnbounded
	// TerminationOther covers statuses the model layer does not interpret,
	// such as numerical failures inside the solver.
	TerminationOther
)

func (t TerminationStatus) String() string {
	switch t {
	case TerminationNotSolved:
		return "NOT_SOLVED"
	case TerminationOptimal:
		return "OPTIMAL"
	case TerminationFeasible:
		return "FEASIBLE"
	case TerminationInfeasible:
		return "INFEASIBLE"
	case TerminationUnbounded:
		return "UNBOUNDED"
	case TerminationInfeasibleOrUnbounded:
		return "INFEASIBLE_OR_UNBOUNDED"
	default:
		return "OTHER"
	}
}

// IsInfeasible reports whether the status belongs to the infeasible family.
func (t TerminationStatus) IsInfeasible() bool {
	return t == TerminationInfeasible || t == TerminationInfeasibleOrUnbounded
}

// IsFeasible reports whether the status proves a feasible solution exists.
func (t TerminationStatus) IsFeasible() bool {
	return t == TerminationOptimal || t == TerminationFeasible
}

// IsUnbounded reports whether the status proves the model is primal
// unbounded.
func (t TerminationStatus) IsUnbounded() bool {
	return t == TerminationUnbounded
}

// PrimalStatus describes what kind of primal point, if any, a solve
// produced.
type PrimalStatus int

const (
	// PrimalUnknown indicates no statement about a primal point can be made.
	PrimalUnknown PrimalStatus = iota
	// PrimalFeasible indicates a primal feasible point is available.
	PrimalFeasible
	// PrimalNoSolution indicates no primal point exists or was found.
	PrimalNoSolution
)

func (p PrimalStatus) String() string {
	switch p {
	case PrimalFeasible:
		return "FEASIBLE_POINT"
	case PrimalNoSolution:
		return "NO_SOLUTION"
	default:
		return "UNKNOWN"
	}
}
