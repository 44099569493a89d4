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
	"errors"
	"fmt"
	"sort"

	log "github.com/golang/glog"

	"github.com/optdiag/optdiag/lpmodel"
	"github.com/optdiag/optdiag/solve"
)

// ErrNumericalInstability is returned when the solver oracle behaves in a
// way the elastic or deletion filter cannot interpret; the IIS computation
// is abandoned.
var ErrNumericalInstability = errors.New("numerical instability during IIS resolution")

type resolverState int

const (
	stateNotStarted resolverState = iota
	stateRelaxed
	stateElasticFilter
	stateFrozen
	stateDeletionFilter
	stateDone
	stateFailed
)

// frozenConstraint is one constraint re-enforced by the elastic filter, in
// discovery order.
type frozenConstraint struct {
	ctr      lpmodel.ConstrIndex // clone-side
	elastic  lpmodel.VarIndex
	hadLower bool
}

// iisResolver finds one irreducible infeasible subset of an infeasible model
// by elastic filtering followed by deletion filtering, driving a private
// solver instance.
type iisResolver struct {
	inst solve.Instance
	cmap solve.ConstraintMap

	tolerance float64
	maxRounds int

	// elastics maps each still-relaxable clone constraint to its remaining
	// elastic term(s); order fixes a deterministic iteration sequence.
	elastics map[lpmodel.ConstrIndex]*lpmodel.LinearExpr
	order    []lpmodel.ConstrIndex
	frozen   []frozenConstraint

	// fullObj is the relaxed objective (original plus all penalty terms);
	// pureObj is the penalty terms alone, always minimized.
	fullObj *lpmodel.LinearExpr
	fullMax bool
	pureObj *lpmodel.LinearExpr
	onPure  bool

	state resolverState
}

// resolveIIS runs the full IIS computation for `m` against a fresh instance
// of the oracle and returns the members in the model's enumeration order. An
// empty result with no error means the elastic filter found no active
// constraints.
func resolveIIS(m *lpmodel.Builder, oracle solve.Oracle, tolerance float64, maxRounds int) ([]lpmodel.ConstrIndex, error) {
	r, err := newIISResolver(m, oracle, tolerance, maxRounds)
	if err != nil {
		return nil, err
	}
	if err := r.elasticFilter(); err != nil {
		r.state = stateFailed
		return nil, err
	}
	iis, err := r.deletionFilter()
	if err != nil {
		r.state = stateFailed
		return nil, err
	}
	r.state = stateDone
	return iis, nil
}

// newIISResolver clones the model into a fresh solver instance and installs
// the elastic relaxation.
func newIISResolver(m *lpmodel.Builder, oracle solve.Oracle, tolerance float64, maxRounds int) (*iisResolver, error) {
	inst, err := oracle.Instantiate()
	if err != nil {
		return nil, fmt.Errorf("instantiating solver: %w", err)
	}
	cmap, err := inst.CopyModel(m)
	if err != nil {
		return nil, fmt.Errorf("cloning model: %w", err)
	}
	inst.Silence()

	elastics, err := inst.RelaxWithElastics(1)
	if err != nil {
		return nil, fmt.Errorf("relaxing model: %w", err)
	}
	order := make([]lpmodel.ConstrIndex, 0, len(elastics))
	for c := range elastics {
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	pureObj := lpmodel.NewLinearExpr()
	for _, c := range order {
		pureObj.AddExpr(elastics[c], 1)
	}
	fullObj, fullMax := inst.Objective()

	if maxRounds <= 0 {
		maxRounds = len(elastics)
	}
	return &iisResolver{
		inst:      inst,
		cmap:      cmap,
		tolerance: tolerance,
		maxRounds: maxRounds,
		elastics:  elastics,
		order:     order,
		fullObj:   fullObj,
		fullMax:   fullMax,
		pureObj:   pureObj,
		state:     stateRelaxed,
	}, nil
}

// elasticFilter repeatedly solves the relaxed model and permanently
// re-enforces every constraint whose elastic variable is active, building
// the discovery-ordered frozen list that the deletion filter consumes.
func (r *iisResolver) elasticFilter() error {
	r.state = stateElasticFilter
	for round := 0; round < r.maxRounds; round++ {
		if err := r.inst.Solve(); err != nil {
			return fmt.Errorf("elastic filter solve: %w", err)
		}
		term := r.inst.TerminationStatus()
		if term.IsUnbounded() {
			// The original objective can be unbounded once constraints are
			// elastic; retry on the penalty terms alone.
			r.inst.SetObjective(r.pureObj, false)
			r.onPure = true
			if err := r.inst.Solve(); err != nil {
				return fmt.Errorf("elastic filter re-solve: %w", err)
			}
			term = r.inst.TerminationStatus()
		}
		if term.IsInfeasible() {
			// The fully elastic model is feasible by construction, so this
			// means every remaining relaxation is already pinned: no further
			// progress is possible.
			break
		}
		if !term.IsFeasible() {
			return fmt.Errorf("%w: unexpected status %v in elastic filter round %d",
				ErrNumericalInstability, term, round)
		}

		froze, err := r.freezeActive()
		if err != nil {
			return err
		}
		log.V(2).Infof("elastic filter round %d: froze %d constraint(s), %d still relaxed",
			round, froze, len(r.elastics))
		if froze == 0 {
			break
		}
	}
	if r.onPure {
		r.inst.SetObjective(r.fullObj, r.fullMax)
		r.onPure = false
	}
	r.state = stateFrozen
	return nil
}

// freezeActive scans every still-relaxed constraint and fixes the elastic
// variables found active beyond the tolerance, returning how many
// constraints were frozen this round.
func (r *iisResolver) freezeActive() (int, error) {
	froze := 0
	for _, c := range r.order {
		elastic, ok := r.elastics[c]
		if !ok {
			continue
		}
		terms := elastic.Terms()
		switch len(terms) {
		case 1:
			v, err := r.elasticValue(terms[0].Var)
			if err != nil {
				return froze, err
			}
			if v > r.tolerance {
				if err := r.freeze(c, terms[0].Var); err != nil {
					return froze, err
				}
				delete(r.elastics, c)
				froze++
			}
		case 2:
			v0, err := r.elasticValue(terms[0].Var)
			if err != nil {
				return froze, err
			}
			v1, err := r.elasticValue(terms[1].Var)
			if err != nil {
				return froze, err
			}
			switch {
			case v0 > r.tolerance && v1 > r.tolerance:
				return froze, fmt.Errorf(
					"%w: both deviation variables of constraint %d active (%g, %g)",
					ErrNumericalInstability, c, v0, v1)
			case v0 > r.tolerance:
				if err := r.freeze(c, terms[0].Var); err != nil {
					return froze, err
				}
				r.elastics[c] = lpmodel.ExprFromTerms(terms[1:2], 0)
				froze++
			case v1 > r.tolerance:
				if err := r.freeze(c, terms[1].Var); err != nil {
					return froze, err
				}
				r.elastics[c] = lpmodel.ExprFromTerms(terms[0:1], 0)
				froze++
			}
		default:
			// Not produced by this relaxation scheme; leave the constraint
			// relaxed and move on.
			log.Warningf("constraint %d carries %d elastic terms, skipping", c, len(terms))
		}
	}
	return froze, nil
}

func (r *iisResolver) elasticValue(v lpmodel.VarIndex) (float64, error) {
	val, err := r.inst.VariableValue(v)
	if err != nil {
		return 0, fmt.Errorf("reading elastic variable %d: %w", v, err)
	}
	return val, nil
}

// freeze re-enforces a constraint by fixing its elastic variable to zero and
// records it for the deletion filter.
func (r *iisResolver) freeze(c lpmodel.ConstrIndex, elastic lpmodel.VarIndex) error {
	hadLower, err := r.inst.FixToZero(elastic)
	if err != nil {
		return fmt.Errorf("fixing elastic variable %d of constraint %d: %w", elastic, c, err)
	}
	r.frozen = append(r.frozen, frozenConstraint{ctr: c, elastic: elastic, hadLower: hadLower})
	return nil
}

// deletionFilter frees the frozen constraints one at a time in discovery
// order, keeping exactly those whose enforcement is necessary for
// infeasibility, and returns the surviving original constraints in
// enumeration order.
func (r *iisResolver) deletionFilter() ([]lpmodel.ConstrIndex, error) {
	r.state = stateDeletionFilter
	candidates := make(map[lpmodel.ConstrIndex]bool)
	for _, f := range r.frozen {
		if err := r.inst.UnfixWithBound(f.elastic, f.hadLower); err != nil {
			return nil, fmt.Errorf("freeing constraint %d: %w", f.ctr, err)
		}
		if err := r.inst.Solve(); err != nil {
			return nil, fmt.Errorf("deletion filter solve: %w", err)
		}
		term := r.inst.TerminationStatus()
		switch {
		case term.IsInfeasible():
			// Still infeasible without it: not needed, leave it freed.
		case term.IsFeasible():
			// Freeing it restored feasibility, so it is necessary;
			// re-enforce it before probing the next one.
			candidates[f.ctr] = true
			if _, err := r.inst.FixToZero(f.elastic); err != nil {
				return nil, fmt.Errorf("re-fixing constraint %d: %w", f.ctr, err)
			}
		case term.IsUnbounded():
			// Unbounded is ambiguous here: decide on primal feasibility
			// under a feasibility-only objective.
			feasible, err := r.probeFeasibility()
			if err != nil {
				return nil, err
			}
			if !feasible {
				return nil, fmt.Errorf(
					"%w: unbounded probe of constraint %d found no feasible point",
					ErrNumericalInstability, f.ctr)
			}
			candidates[f.ctr] = true
			if _, err := r.inst.FixToZero(f.elastic); err != nil {
				return nil, fmt.Errorf("re-fixing constraint %d: %w", f.ctr, err)
			}
		default:
			return nil, fmt.Errorf("%w: unexpected status %v while probing constraint %d",
				ErrNumericalInstability, term, f.ctr)
		}
	}

	// Report original identities only; clone-side rows with no original,
	// such as internally relaxed variable bounds, stay out of the IIS.
	var iis []lpmodel.ConstrIndex
	for clone := range candidates {
		if orig, ok := r.cmap.Original(clone); ok {
			iis = append(iis, orig)
		}
	}
	sort.Slice(iis, func(i, j int) bool { return iis[i] < iis[j] })
	return iis, nil
}

// probeFeasibility re-solves under a feasibility-only objective, restoring
// the active objective and sense on every exit path.
func (r *iisResolver) probeFeasibility() (bool, error) {
	prevObj, prevMax := r.inst.Objective()
	r.inst.SetObjective(nil, false)
	defer r.inst.SetObjective(prevObj, prevMax)

	if err := r.inst.Solve(); err != nil {
		return false, fmt.Errorf("feasibility probe solve: %w", err)
	}
	return r.inst.PrimalStatus() == lpmodel.PrimalFeasible, nil
}
