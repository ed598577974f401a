// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
//
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

package selector

import (
	"fmt"
	"math"
)

// Model is the description handed to an Engine: a set of boolean variables,
// constraints over them and an optional objective to maximize.
//
// A Model is built by a single goroutine. Engines treat it as read-only.
//
// Basic usage:
//
//	m := NewModel()
//	a, b := m.NewBoolVar("a"), m.NewBoolVar("b")
//	m.AddBoolOr(a.Lit(), b.Lit())
//	m.AddLinear(Sum(a, b), LessOrEqual, 1).OnlyEnforceIf(a.Lit())
type Model struct {
	names       []string
	constraints []Constraint
	objective   *Objective
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar declares a new boolean variable.
func (m *Model) NewBoolVar(name string) Var {
	m.names = append(m.names, name)
	return Var(len(m.names) - 1)
}

// NumVars returns the number of declared variables.
func (m *Model) NumVars() int {
	return len(m.names)
}

// VarName returns the name v was declared with.
func (m *Model) VarName(v Var) string {
	if int(v) < 0 || int(v) >= len(m.names) {
		return v.String()
	}
	return m.names[v]
}

// Constraints returns the constraints in insertion order.
func (m *Model) Constraints() []Constraint {
	return m.constraints
}

// Objective returns the objective, or nil when the model is a pure
// feasibility problem.
func (m *Model) Objective() *Objective {
	return m.objective
}

// AddLinear adds expr <cmp> rhs.
func (m *Model) AddLinear(expr LinearExpr, cmp Comparison, rhs int64) *LinearConstraint {
	c := &LinearConstraint{Expr: expr, Cmp: cmp, Rhs: rhs}
	m.constraints = append(m.constraints, c)
	return c
}

// AddBoolOr requires at least one of lits to hold.
func (m *Model) AddBoolOr(lits ...Lit) *ClauseConstraint {
	c := &ClauseConstraint{Lits: lits}
	m.constraints = append(m.constraints, c)
	return c
}

// AddProduct requires target to hold exactly when all factors hold.
func (m *Model) AddProduct(target Lit, factors ...Lit) *ProductConstraint {
	c := &ProductConstraint{Target: target, Factors: factors}
	m.constraints = append(m.constraints, c)
	return c
}

// Maximize sets the objective. A nil or empty objective clears it.
func (m *Model) Maximize(obj *Objective) {
	if obj == nil || len(obj.Terms) == 0 {
		m.objective = nil
		return
	}
	m.objective = obj
}

// Check verifies values against every constraint and returns a
// *ViolationError for the first one that does not hold.
func (m *Model) Check(values []bool) error {
	if len(values) < len(m.names) {
		return fmt.Errorf("assignment covers %d of %d variables", len(values), len(m.names))
	}
	for i, c := range m.constraints {
		if !c.SatisfiedBy(values) {
			return &ViolationError{Index: i, Constraint: c}
		}
	}
	return nil
}

// ModelStats summarizes the size of a model.
type ModelStats struct {
	Vars        int
	Linear      int
	Clauses     int
	Products    int
	Enforced    int
	ObjectiveNZ int
}

// Stats counts variables and constraints by type.
func (m *Model) Stats() ModelStats {
	stats := ModelStats{Vars: len(m.names)}
	for _, c := range m.constraints {
		switch c.(type) {
		case *LinearConstraint:
			stats.Linear++
		case *ClauseConstraint:
			stats.Clauses++
		case *ProductConstraint:
			stats.Products++
		}
		if len(c.Enforcement()) > 0 {
			stats.Enforced++
		}
	}
	if m.objective != nil {
		stats.ObjectiveNZ = len(m.objective.Terms)
	}
	return stats
}

// modelMark records the size of a model so that a failed compilation can
// be undone.
type modelMark struct {
	vars        int
	constraints int
}

func (m *Model) mark() modelMark {
	return modelMark{vars: len(m.names), constraints: len(m.constraints)}
}

func (m *Model) rollback(mark modelMark) {
	clear(m.names[mark.vars:])
	m.names = m.names[:mark.vars]
	clear(m.constraints[mark.constraints:])
	m.constraints = m.constraints[:mark.constraints]
}

// ObjectiveTerm is one weighted variable of an Objective.
type ObjectiveTerm struct {
	Var  Var
	Coef float64
}

// Objective is a weighted sum of variables to maximize.
type Objective struct {
	Terms []ObjectiveTerm
}

// Add appends coef*v. Zero coefficients are dropped.
func (o *Objective) Add(v Var, coef float64) {
	if coef == 0 {
		return
	}
	o.Terms = append(o.Terms, ObjectiveTerm{Var: v, Coef: coef})
}

// Evaluate returns the objective value under values.
func (o *Objective) Evaluate(values []bool) float64 {
	if o == nil {
		return 0
	}
	total := 0.0
	for _, term := range o.Terms {
		if NewLit(term.Var).SatisfiedBy(values) {
			total += term.Coef
		}
	}
	return total
}

// Integral reports whether every coefficient is a whole number.
func (o *Objective) Integral() bool {
	if o == nil {
		return true
	}
	for _, term := range o.Terms {
		if term.Coef != math.Trunc(term.Coef) {
			return false
		}
	}
	return true
}
