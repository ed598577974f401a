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
	"strings"
)

// Comparison is the relation between a linear expression and its right-hand side.
type Comparison int

const (
	// LessOrEqual means expr <= rhs
	LessOrEqual Comparison = iota
	// GreaterOrEqual means expr >= rhs
	GreaterOrEqual
	// Equal means expr == rhs
	Equal
)

// String returns the operator symbol.
func (c Comparison) String() string {
	switch c {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "=="
	default:
		return fmt.Sprintf("Comparison(%d)", int(c))
	}
}

// Constraint is a single relation over model variables.
//
// The set of implementations is closed: LinearConstraint, ClauseConstraint
// and ProductConstraint. Engines translate each of them into their own
// representation and may reject anything else.
type Constraint interface {
	// String returns a human-readable representation of the constraint.
	String() string

	// Enforcement returns the literals that must all hold for the
	// constraint to be enforced. An empty slice means unconditional.
	Enforcement() []Lit

	// SatisfiedBy reports whether values satisfy the constraint. A
	// constraint whose enforcement literals do not all hold is satisfied.
	SatisfiedBy(values []bool) bool
}

// LinearTerm is one coefficient-variable product of a LinearExpr.
type LinearTerm struct {
	Var  Var
	Coef int64
}

// LinearExpr is a weighted sum of boolean variables with integer coefficients.
type LinearExpr struct {
	Terms []LinearTerm
}

// Sum returns the unweighted sum of vars.
func Sum(vars ...Var) LinearExpr {
	expr := LinearExpr{Terms: make([]LinearTerm, 0, len(vars))}
	for _, v := range vars {
		expr.Terms = append(expr.Terms, LinearTerm{Var: v, Coef: 1})
	}
	return expr
}

// AddTerm appends coef*v to the expression and returns it.
// Zero coefficients are dropped.
func (e LinearExpr) AddTerm(v Var, coef int64) LinearExpr {
	if coef == 0 {
		return e
	}
	e.Terms = append(e.Terms, LinearTerm{Var: v, Coef: coef})
	return e
}

// Value evaluates the expression under values.
func (e LinearExpr) Value(values []bool) int64 {
	var total int64
	for _, term := range e.Terms {
		if NewLit(term.Var).SatisfiedBy(values) {
			total += term.Coef
		}
	}
	return total
}

// String returns the expression in "3*x1 + x2" form; an empty sum is "0".
func (e LinearExpr) String() string {
	if len(e.Terms) == 0 {
		return "0"
	}
	parts := make([]string, 0, len(e.Terms))
	for _, term := range e.Terms {
		if term.Coef == 1 {
			parts = append(parts, term.Var.String())
			continue
		}
		parts = append(parts, fmt.Sprintf("%d*%s", term.Coef, term.Var))
	}
	return strings.Join(parts, " + ")
}

// LinearConstraint requires Expr <Cmp> Rhs.
type LinearConstraint struct {
	Expr    LinearExpr
	Cmp     Comparison
	Rhs     int64
	Enforce []Lit
}

// OnlyEnforceIf adds enforcement literals and returns the constraint.
func (c *LinearConstraint) OnlyEnforceIf(lits ...Lit) *LinearConstraint {
	c.Enforce = append(c.Enforce, lits...)
	return c
}

// Enforcement implements Constraint.
func (c *LinearConstraint) Enforcement() []Lit {
	return c.Enforce
}

// SatisfiedBy implements Constraint.
func (c *LinearConstraint) SatisfiedBy(values []bool) bool {
	if !enforced(c.Enforce, values) {
		return true
	}
	lhs := c.Expr.Value(values)
	switch c.Cmp {
	case LessOrEqual:
		return lhs <= c.Rhs
	case GreaterOrEqual:
		return lhs >= c.Rhs
	case Equal:
		return lhs == c.Rhs
	default:
		return false
	}
}

// String implements Constraint.
func (c *LinearConstraint) String() string {
	return withEnforcement(fmt.Sprintf("%s %s %d", c.Expr, c.Cmp, c.Rhs), c.Enforce)
}

// ClauseConstraint requires at least one of Lits to hold.
// An empty clause can never be satisfied while enforced.
type ClauseConstraint struct {
	Lits    []Lit
	Enforce []Lit
}

// OnlyEnforceIf adds enforcement literals and returns the constraint.
func (c *ClauseConstraint) OnlyEnforceIf(lits ...Lit) *ClauseConstraint {
	c.Enforce = append(c.Enforce, lits...)
	return c
}

// Enforcement implements Constraint.
func (c *ClauseConstraint) Enforcement() []Lit {
	return c.Enforce
}

// SatisfiedBy implements Constraint.
func (c *ClauseConstraint) SatisfiedBy(values []bool) bool {
	if !enforced(c.Enforce, values) {
		return true
	}
	for _, lit := range c.Lits {
		if lit.SatisfiedBy(values) {
			return true
		}
	}
	return false
}

// String implements Constraint.
func (c *ClauseConstraint) String() string {
	parts := make([]string, len(c.Lits))
	for i, lit := range c.Lits {
		parts[i] = lit.String()
	}
	return withEnforcement(fmt.Sprintf("or(%s)", strings.Join(parts, ", ")), c.Enforce)
}

// ProductConstraint requires Target to hold exactly when every factor holds.
// For boolean variables this is the multiplication equality
// target == f1 * f2 * ... * fn.
type ProductConstraint struct {
	Target  Lit
	Factors []Lit
}

// Enforcement implements Constraint. Products are always enforced.
func (c *ProductConstraint) Enforcement() []Lit {
	return nil
}

// SatisfiedBy implements Constraint.
func (c *ProductConstraint) SatisfiedBy(values []bool) bool {
	all := true
	for _, f := range c.Factors {
		if !f.SatisfiedBy(values) {
			all = false
			break
		}
	}
	return c.Target.SatisfiedBy(values) == all
}

// String implements Constraint.
func (c *ProductConstraint) String() string {
	parts := make([]string, len(c.Factors))
	for i, f := range c.Factors {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s <=> and(%s)", c.Target, strings.Join(parts, ", "))
}

func enforced(lits []Lit, values []bool) bool {
	for _, lit := range lits {
		if !lit.SatisfiedBy(values) {
			return false
		}
	}
	return true
}

func withEnforcement(s string, lits []Lit) string {
	if len(lits) == 0 {
		return s
	}
	parts := make([]string, len(lits))
	for i, lit := range lits {
		parts[i] = lit.String()
	}
	return fmt.Sprintf("%s if %s", s, strings.Join(parts, " && "))
}

var (
	_ Constraint = (*LinearConstraint)(nil)
	_ Constraint = (*ClauseConstraint)(nil)
	_ Constraint = (*ProductConstraint)(nil)
)
