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

package diagnose

import (
	"fmt"

	"github.com/optdiag/optdiag/lpmodel"
)

// IssueKind tags the variant of an Issue.
type IssueKind int

const (
	// KindInfeasibleBounds marks a variable whose lower bound exceeds its
	// upper bound.
	KindInfeasibleBounds IssueKind = iota
	// KindInfeasibleIntegrality marks an integer or binary variable whose
	// bound interval contains no feasible integral value.
	KindInfeasibleIntegrality
	// KindInfeasibleConstraintRange marks a constraint whose left-hand-side
	// range, propagated from variable bounds, cannot meet its right-hand
	// side.
	KindInfeasibleConstraintRange
	// KindIrreducibleInfeasibleSubset marks a jointly infeasible constraint
	// set that becomes feasible when any single member is removed.
	KindIrreducibleInfeasibleSubset
)

// Issue is one reason the model is infeasible.
type Issue interface {
	IssueKind() IssueKind
	String() string
}

// InfeasibleBounds reports a variable with `lb > ub`.
type InfeasibleBounds struct {
	Var lpmodel.VarIndex
	LB  float64
	UB  float64
}

// IssueKind implements Issue.
func (InfeasibleBounds) IssueKind() IssueKind { return KindInfeasibleBounds }

func (i InfeasibleBounds) String() string {
	return fmt.Sprintf("variable %d has inconsistent bounds [%g, %g]", i.Var, i.LB, i.UB)
}

// InfeasibleIntegrality reports an integrality-restricted variable whose
// bound interval excludes every feasible integral value.
type InfeasibleIntegrality struct {
	Var  lpmodel.VarIndex
	LB   float64
	UB   float64
	Kind lpmodel.IntegralityKind
}

// IssueKind implements Issue.
func (InfeasibleIntegrality) IssueKind() IssueKind { return KindInfeasibleIntegrality }

func (i InfeasibleIntegrality) String() string {
	return fmt.Sprintf("%v variable %d has no feasible value in [%g, %g]", i.Kind, i.Var, i.LB, i.UB)
}

// InfeasibleConstraintRange reports a constraint whose left-hand side ranges
// over `[Lo,Hi]` given the variable bounds, which cannot satisfy
// `lhs Rel RHS`.
type InfeasibleConstraintRange struct {
	Ctr lpmodel.ConstrIndex
	Lo  float64
	Hi  float64
	Rel lpmodel.Relation
	RHS float64
}

// IssueKind implements Issue.
func (InfeasibleConstraintRange) IssueKind() IssueKind { return KindInfeasibleConstraintRange }

func (i InfeasibleConstraintRange) String() string {
	return fmt.Sprintf("constraint %d ranges over [%g, %g], violating lhs %v %g",
		i.Ctr, i.Lo, i.Hi, i.Rel, i.RHS)
}

// IrreducibleInfeasibleSubset reports one IIS: the listed constraints are
// jointly infeasible and removing any single one makes the rest feasible.
// Constraints are listed in the model's enumeration order.
type IrreducibleInfeasibleSubset struct {
	Constraints []lpmodel.ConstrIndex
}

// IssueKind implements Issue.
func (IrreducibleInfeasibleSubset) IssueKind() IssueKind { return KindIrreducibleInfeasibleSubset }

func (i IrreducibleInfeasibleSubset) String() string {
	return fmt.Sprintf("irreducible infeasible subset of %d constraints: %v",
		len(i.Constraints), i.Constraints)
}

// Outcome summarizes a whole Analyze invocation.
type Outcome int

const (
	// OutcomeNoIssues means every layer that ran found nothing.
	OutcomeNoIssues Outcome = iota
	// OutcomeIssuesFound means at least one Issue was recorded.
	OutcomeIssuesFound
	// OutcomeIISNotAttempted means the earlier layers were clean and the IIS
	// layer was skipped for an informational reason recorded in Note.
	OutcomeIISNotAttempted
	// OutcomeFailed means the diagnosis itself failed; issues recorded by
	// layers that completed beforehand are retained.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoIssues:
		return "NO_ISSUES"
	case OutcomeIssuesFound:
		return "ISSUES_FOUND"
	case OutcomeIISNotAttempted:
		return "IIS_NOT_ATTEMPTED"
	default:
		return "FAILED"
	}
}

// Result collects the issues of one Analyze invocation, grouped by kind and
// ordered by discovery. It is owned by the call that created it and is never
// mutated after Analyze returns.
type Result struct {
	Bounds      []InfeasibleBounds
	Integrality []InfeasibleIntegrality
	Ranges      []InfeasibleConstraintRange
	IIS         []IrreducibleInfeasibleSubset

	Outcome Outcome
	// Note explains informational outcomes such as a skipped IIS layer.
	Note string
}

// HasIssues reports whether any issue of any kind was recorded.
func (r *Result) HasIssues() bool {
	return len(r.Bounds)+len(r.Integrality)+len(r.Ranges)+len(r.IIS) > 0
}

// Issues returns every recorded issue, grouped by kind in layer order.
func (r *Result) Issues() []Issue {
	var out []Issue
	for _, i := range r.Bounds {
		out = append(out, i)
	}
	for _, i := range r.Integrality {
		out = append(out, i)
	}
	for _, i := range r.Ranges {
		out = append(out, i)
	}
	for _, i := range r.IIS {
		out = append(out, i)
	}
	return out
}
