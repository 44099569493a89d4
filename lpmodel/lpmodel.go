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

// Package lpmodel offers a solver-independent API to build linear
// optimization models.
//
// The `Builder` struct owns arena-style tables of variables and constraints.
// The `Variable` and `Constraint` structs are references to entries in those
// tables and provide helpful methods for interacting with them. The
// `LinearExpr` struct provides helper methods for creating constraints and
// the objective from expressions with many variables and coefficients.
package lpmodel

import (
	"errors"
	"math"

	log "github.com/golang/glog"
)

// ErrMixedModels holds the error when elements added to a model belong to a
// different model.
var ErrMixedModels = errors.New("elements are not part of the same model")

type (
	// VarIndex is the index of a variable in the model's variable table.
	VarIndex int32
	// ConstrIndex is the index of a constraint in the model's row table.
	ConstrIndex int32
)

// IntegralityKind restricts the values a variable may take.
type IntegralityKind int

const (
	// Continuous places no integrality restriction on the variable.
	Continuous IntegralityKind = iota
	// Integer restricts the variable to integral values.
	Integer
	// Binary restricts the variable to the values 0 and 1.
	Binary
)

func (k IntegralityKind) String() string {
	switch k {
	case Integer:
		return "INTEGER"
	case Binary:
		return "BINARY"
	default:
		return "CONTINUOUS"
	}
}

// Relation is the relational kind of a linear constraint.
type Relation int

const (
	// Equal constrains the expression to equal the right-hand side.
	Equal Relation = iota
	// LessOrEqual constrains the expression to at most the right-hand side.
	LessOrEqual
	// GreaterOrEqual constrains the expression to at least the right-hand
	// side.
	GreaterOrEqual
)

func (r Relation) String() string {
	switch r {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	default:
		return "=="
	}
}

// Term is one `coefficient * variable` product of a linear expression.
type Term struct {
	Var   VarIndex
	Coeff float64
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	terms  []Term
	offset float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// ExprFromTerms creates a LinearExpr from raw terms and a constant offset.
// The terms are copied.
func ExprFromTerms(terms []Term, offset float64) *LinearExpr {
	e := &LinearExpr{terms: make([]Term, len(terms)), offset: offset}
	copy(e.terms, terms)
	return e
}

// Add adds the variable with coefficient 1 to the LinearExpr and returns
// itself.
func (l *LinearExpr) Add(v Variable) *LinearExpr {
	return l.AddTerm(v, 1)
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the variable with the given coefficient to the LinearExpr and
// returns itself.
func (l *LinearExpr) AddTerm(v Variable, coeff float64) *LinearExpr {
	l.terms = append(l.terms, Term{Var: v.ind, Coeff: coeff})
	return l
}

// AddSum adds the sum of the variables to the LinearExpr and returns itself.
func (l *LinearExpr) AddSum(vs ...Variable) *LinearExpr {
	for _, v := range vs {
		l.Add(v)
	}
	return l
}

// AddWeightedSum adds the variables with the corresponding coefficients to
// the LinearExpr and returns itself.
func (l *LinearExpr) AddWeightedSum(vs []Variable, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(vs) {
		log.Fatalf("vs and coeffs must be the same length: %v != %v", len(vs), len(coeffs))
	}
	for i, v := range vs {
		l.AddTerm(v, coeffs[i])
	}
	return l
}

// AddExpr adds `coeff` times the expression `o` to the LinearExpr and
// returns itself.
func (l *LinearExpr) AddExpr(o *LinearExpr, coeff float64) *LinearExpr {
	for _, t := range o.terms {
		l.terms = append(l.terms, Term{Var: t.Var, Coeff: t.Coeff * coeff})
	}
	l.offset += o.offset * coeff
	return l
}

// Terms returns the terms of the expression in insertion order. The returned
// slice must not be modified.
func (l *LinearExpr) Terms() []Term {
	return l.terms
}

// Offset returns the constant offset of the expression.
func (l *LinearExpr) Offset() float64 {
	return l.offset
}

// Clone returns a deep copy of the expression.
func (l *LinearExpr) Clone() *LinearExpr {
	return ExprFromTerms(l.terms, l.offset)
}

// Evaluate returns the value of the expression at the given point, indexed
// by VarIndex.
func (l *LinearExpr) Evaluate(point []float64) float64 {
	result := l.offset
	for _, t := range l.terms {
		result += point[t.Var] * t.Coeff
	}
	return result
}

type varData struct {
	name string
	lb   float64
	ub   float64
	kind IntegralityKind
}

type rowData struct {
	name string
	expr *LinearExpr
	rel  Relation
	rhs  float64
}

// Variable is a reference to a variable in the model.
type Variable struct {
	ind VarIndex
	mb  *Builder
}

// Index returns the index of the variable.
func (v Variable) Index() VarIndex {
	return v.ind
}

// Name returns the name of the variable.
func (v Variable) Name() string {
	return v.mb.vars[v.ind].name
}

// WithName sets the name of the variable.
func (v Variable) WithName(s string) Variable {
	v.mb.vars[v.ind].name = s
	return v
}

// LowerBound returns the lower bound of the variable.
func (v Variable) LowerBound() float64 {
	return v.mb.vars[v.ind].lb
}

// UpperBound returns the upper bound of the variable.
func (v Variable) UpperBound() float64 {
	return v.mb.vars[v.ind].ub
}

// Bounds returns the bound interval of the variable.
func (v Variable) Bounds() Interval {
	d := v.mb.vars[v.ind]
	return Interval{Lo: d.lb, Hi: d.ub}
}

// SetBounds replaces the bounds of the variable.
func (v Variable) SetBounds(lb, ub float64) Variable {
	v.mb.vars[v.ind].lb = lb
	v.mb.vars[v.ind].ub = ub
	return v
}

// Kind returns the integrality restriction of the variable.
func (v Variable) Kind() IntegralityKind {
	return v.mb.vars[v.ind].kind
}

// Constraint is a reference to a linear constraint in the model.
type Constraint struct {
	ind ConstrIndex
	mb  *Builder
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.mb.rows[c.ind].name
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	c.mb.rows[c.ind].name = s
	return c
}

// Expr returns the left-hand-side expression of the constraint. The returned
// expression must not be modified.
func (c Constraint) Expr() *LinearExpr {
	return c.mb.rows[c.ind].expr
}

// Relation returns the relational kind of the constraint.
func (c Constraint) Relation() Relation {
	return c.mb.rows[c.ind].rel
}

// RHS returns the right-hand-side bound value of the constraint.
func (c Constraint) RHS() float64 {
	return c.mb.rows[c.ind].rhs
}

// Builder holds a linear optimization model under construction together with
// the outcome of its most recent external solve.
type Builder struct {
	vars []varData
	rows []rowData

	objective    *LinearExpr
	maximize     bool
	hasObjective bool

	lastTerm   TerminationStatus
	lastPrimal PrimalStatus

	// err keeps the first construction error; later calls are no-ops for
	// error reporting.
	err error
}

// NewBuilder creates and returns a new empty model Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewVar creates a new continuous variable with the given bounds. Use
// `math.Inf` for unbounded ends.
func (mb *Builder) NewVar(lb, ub float64) Variable {
	return mb.newVar(lb, ub, Continuous)
}

// NewFreeVar creates a new continuous variable with bounds `[-Inf,+Inf]`.
func (mb *Builder) NewFreeVar() Variable {
	return mb.newVar(math.Inf(-1), math.Inf(1), Continuous)
}

// NewIntVar creates a new integer-restricted variable with the given bounds.
func (mb *Builder) NewIntVar(lb, ub float64) Variable {
	return mb.newVar(lb, ub, Integer)
}

// NewBinaryVar creates a new binary-restricted variable with bounds `[0,1]`.
func (mb *Builder) NewBinaryVar() Variable {
	return mb.newVar(0, 1, Binary)
}

func (mb *Builder) newVar(lb, ub float64, kind IntegralityKind) Variable {
	v := Variable{ind: VarIndex(len(mb.vars)), mb: mb}
	mb.vars = append(mb.vars, varData{lb: lb, ub: ub, kind: kind})
	return v
}

// NumVars returns the number of variables in the model.
func (mb *Builder) NumVars() int {
	return len(mb.vars)
}

// Var returns the reference to the variable at index `i`.
func (mb *Builder) Var(i VarIndex) Variable {
	return Variable{ind: i, mb: mb}
}

// NumConstraints returns the number of linear constraints in the model.
func (mb *Builder) NumConstraints() int {
	return len(mb.rows)
}

// Constraint returns the reference to the constraint at index `i`.
func (mb *Builder) Constraint(i ConstrIndex) Constraint {
	return Constraint{ind: i, mb: mb}
}

// AddEquality adds the constraint `expr == rhs`.
func (mb *Builder) AddEquality(expr *LinearExpr, rhs float64) Constraint {
	return mb.appendRow(expr, Equal, rhs)
}

// AddLessOrEqual adds the constraint `expr <= rhs`.
func (mb *Builder) AddLessOrEqual(expr *LinearExpr, rhs float64) Constraint {
	return mb.appendRow(expr, LessOrEqual, rhs)
}

// AddGreaterOrEqual adds the constraint `expr >= rhs`.
func (mb *Builder) AddGreaterOrEqual(expr *LinearExpr, rhs float64) Constraint {
	return mb.appendRow(expr, GreaterOrEqual, rhs)
}

func (mb *Builder) appendRow(expr *LinearExpr, rel Relation, rhs float64) Constraint {
	mb.checkElements(expr)
	c := Constraint{ind: ConstrIndex(len(mb.rows)), mb: mb}
	mb.rows = append(mb.rows, rowData{expr: expr.Clone(), rel: rel, rhs: rhs})
	return c
}

// checkElements records ErrMixedModels when the expression references a
// variable this model does not have.
func (mb *Builder) checkElements(expr *LinearExpr) {
	for _, t := range expr.terms {
		if int(t.Var) < 0 || int(t.Var) >= len(mb.vars) {
			if mb.err == nil {
				mb.err = ErrMixedModels
			}
			return
		}
	}
}

// Minimize sets the objective to minimize the given expression.
func (mb *Builder) Minimize(expr *LinearExpr) {
	mb.checkElements(expr)
	mb.objective = expr.Clone()
	mb.maximize = false
	mb.hasObjective = true
}

// Maximize sets the objective to maximize the given expression.
func (mb *Builder) Maximize(expr *LinearExpr) {
	mb.checkElements(expr)
	mb.objective = expr.Clone()
	mb.maximize = true
	mb.hasObjective = true
}

// Objective returns the objective expression and whether the objective is a
// maximization. A model without an objective returns an empty expression.
func (mb *Builder) Objective() (*LinearExpr, bool) {
	if !mb.hasObjective {
		return NewLinearExpr(), false
	}
	return mb.objective.Clone(), mb.maximize
}

// HasObjective reports whether an objective was set on the model.
func (mb *Builder) HasObjective() bool {
	return mb.hasObjective
}

// MarkSolved records the outcome of an external solve of this model, making
// it available to later analysis.
func (mb *Builder) MarkSolved(term TerminationStatus, primal PrimalStatus) {
	mb.lastTerm = term
	mb.lastPrimal = primal
}

// LastTermination returns the termination status recorded by the most recent
// MarkSolved call, or TerminationNotSolved.
func (mb *Builder) LastTermination() TerminationStatus {
	return mb.lastTerm
}

// LastPrimal returns the primal status recorded by the most recent
// MarkSolved call, or PrimalUnknown.
func (mb *Builder) LastPrimal() PrimalStatus {
	return mb.lastPrimal
}

// Err returns the first error recorded while building the model, if any.
func (mb *Builder) Err() error {
	return mb.err
}
