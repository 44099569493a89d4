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

// Package diagnose explains why an optimization model has no feasible
// solution. Analyze runs three checks of increasing cost: variable bound
// consistency, constraint range propagation by interval arithmetic, and
// irreducible-infeasible-subset resolution against a solver oracle. The
// first layer that finds issues wins; later layers are skipped so the
// report stays as cheap and as local as the problem allows.
package diagnose

import (
	log "github.com/golang/glog"

	"github.com/optdiag/optdiag/lpmodel"
	"github.com/optdiag/optdiag/solve"
)

// DefaultTolerance is the activity threshold below which an elastic
// variable's value is treated as zero.
const DefaultTolerance = 1e-5

type options struct {
	tolerance float64
	maxRounds int
}

// Option configures Analyze.
type Option func(*options)

// WithTolerance overrides the elastic activity tolerance.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithMaxRounds caps the number of elastic filter rounds. Zero or negative
// means one round per relaxed constraint.
func WithMaxRounds(n int) Option {
	return func(o *options) { o.maxRounds = n }
}

// Analyze diagnoses the infeasibility of `m`. The bound and range layers
// inspect the model directly; the IIS layer additionally requires that
// `oracle` is non-nil and that the model's last recorded termination status
// is an infeasible one. The returned Result is non-nil even on error.
func Analyze(m *lpmodel.Builder, oracle solve.Oracle, opts ...Option) (*Result, error) {
	o := options{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{Outcome: OutcomeNoIssues}

	if err := m.Err(); err != nil {
		res.Outcome = OutcomeFailed
		res.Note = err.Error()
		return res, err
	}

	checkBounds(m, res)
	if len(res.Bounds) > 0 || len(res.Integrality) > 0 {
		res.Outcome = OutcomeIssuesFound
		return res, nil
	}

	propagateRanges(m, res)
	if len(res.Ranges) > 0 {
		res.Outcome = OutcomeIssuesFound
		return res, nil
	}

	if oracle == nil {
		res.Outcome = OutcomeIISNotAttempted
		res.Note = "no solver oracle supplied; irreducible infeasible subset not attempted"
		return res, nil
	}
	if !m.LastTermination().IsInfeasible() {
		res.Outcome = OutcomeIISNotAttempted
		res.Note = "last solve did not report infeasibility; irreducible infeasible subset not attempted"
		return res, nil
	}

	iis, err := resolveIIS(m, oracle, o.tolerance, o.maxRounds)
	if err != nil {
		log.Errorf("IIS resolution failed: %v", err)
		res.Outcome = OutcomeFailed
		res.Note = err.Error()
		return res, err
	}
	if len(iis) == 0 {
		res.Outcome = OutcomeNoIssues
		res.Note = "elastic filter found no active constraints; the model may be feasible within tolerance"
		return res, nil
	}
	res.IIS = append(res.IIS, IrreducibleInfeasibleSubset{Constraints: iis})
	res.Outcome = OutcomeIssuesFound
	return res, nil
}
