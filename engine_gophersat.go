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
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/crillab/gophersat/solver"
)

// SATEngine solves models with the gophersat pseudo-boolean solver.
//
// Linear constraints become normalized pseudo-boolean constraints with
// big-M enforcement terms, clauses and products become propositional
// clauses, and the objective becomes a positive cost function to minimize.
//
// gophersat cannot be interrupted. When the context is done first, Solve
// returns at once with the best model seen so far (StatusFeasible) or
// StatusTimeout, and the abandoned search runs to completion in the
// background before its goroutines exit.
type SATEngine struct {
	// ObjectiveScale multiplies fractional objective coefficients before
	// rounding them to integer costs. Integral objectives are not scaled.
	ObjectiveScale int
}

// NewSATEngine creates a SATEngine with default settings.
func NewSATEngine() *SATEngine {
	return &SATEngine{ObjectiveScale: 1000}
}

// errTriviallyUnsat marks a model that an unconditional constraint already
// makes infeasible during translation.
var errTriviallyUnsat = errors.New("trivially unsatisfiable")

// Solve implements Engine.
func (e *SATEngine) Solve(ctx context.Context, m *Model) (*EngineResult, error) {
	if ctx.Err() != nil {
		return &EngineResult{Status: StatusTimeout}, nil
	}

	pb, err := e.translate(m)
	if errors.Is(err, errTriviallyUnsat) {
		return &EngineResult{Status: StatusInfeasible}, nil
	}
	if err != nil {
		return nil, err
	}

	run := newSATRun()
	results := make(chan solver.Result, 1)
	go solver.New(pb).Optimal(results, nil)
	go run.collect(results)

	select {
	case <-run.done:
		return engineResult(run.last(), m, true), nil
	case <-ctx.Done():
		return engineResult(run.last(), m, false), nil
	}
}

// satRun keeps the latest result of a running search. Every model gophersat
// reports improves on the previous one.
type satRun struct {
	mu     sync.Mutex
	latest solver.Result
	done   chan struct{}
}

func newSATRun() *satRun {
	return &satRun{done: make(chan struct{})}
}

// collect drains results until the search closes the channel.
func (r *satRun) collect(results <-chan solver.Result) {
	defer close(r.done)
	for res := range results {
		r.mu.Lock()
		r.latest = res
		r.mu.Unlock()
	}
}

func (r *satRun) last() solver.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// engineResult maps a gophersat result to an EngineResult. A model is only
// optimal when the search finished; a search cut short with no model is a
// timeout.
func engineResult(res solver.Result, m *Model, finished bool) *EngineResult {
	switch {
	case res.Status == solver.Sat && finished:
		return &EngineResult{Status: StatusOptimal, Values: modelValues(res, m)}
	case res.Status == solver.Sat:
		return &EngineResult{Status: StatusFeasible, Values: modelValues(res, m)}
	case res.Status == solver.Unsat:
		return &EngineResult{Status: StatusInfeasible}
	default:
		return &EngineResult{Status: StatusTimeout}
	}
}

// pbBuilder accumulates gophersat constraints and the variables they use.
type pbBuilder struct {
	constrs []solver.PBConstr
	used    []bool
}

// lit converts a literal to gophersat's 1-based signed form.
func (b *pbBuilder) lit(l Lit) int {
	b.used[l.Var] = true
	if l.Positive {
		return int(l.Var) + 1
	}
	return -(int(l.Var) + 1)
}

func (b *pbBuilder) clause(lits ...Lit) error {
	if len(lits) == 0 {
		return errTriviallyUnsat
	}
	ints := make([]int, len(lits))
	for i, l := range lits {
		ints[i] = b.lit(l)
	}
	b.constrs = append(b.constrs, solver.PropClause(ints...))
	return nil
}

// atLeast adds sum(terms) >= k under the enforcement literals.
func (b *pbBuilder) atLeast(terms []LinearTerm, k int64, enforce []Lit) error {
	lits := make([]Lit, 0, len(terms)+len(enforce))
	weights := make([]int64, 0, len(terms)+len(enforce))
	var total int64
	for _, t := range terms {
		switch {
		case t.Coef > 0:
			lits = append(lits, t.Var.Lit())
			weights = append(weights, t.Coef)
			total += t.Coef
		case t.Coef < 0:
			// c*x == c + |c|*!x
			lits = append(lits, t.Var.Not())
			weights = append(weights, -t.Coef)
			total -= t.Coef
			k -= t.Coef
		}
	}
	if k <= 0 {
		return nil
	}
	if total < k {
		if len(enforce) == 0 {
			return errTriviallyUnsat
		}
		return b.clause(negateAll(enforce)...)
	}
	for _, l := range enforce {
		lits = append(lits, l.Negate())
		weights = append(weights, k)
	}

	ints := make([]int, len(lits))
	ws := make([]int, len(lits))
	for i, l := range lits {
		ints[i] = b.lit(l)
		ws[i] = int(weights[i])
	}
	b.constrs = append(b.constrs, solver.GtEq(ints, ws, int(k)))
	return nil
}

func negateTerms(terms []LinearTerm) []LinearTerm {
	out := make([]LinearTerm, len(terms))
	for i, t := range terms {
		out[i] = LinearTerm{Var: t.Var, Coef: -t.Coef}
	}
	return out
}

func (e *SATEngine) translate(m *Model) (*solver.Problem, error) {
	b := &pbBuilder{used: make([]bool, m.NumVars())}

	for i, c := range m.Constraints() {
		var err error
		switch c := c.(type) {
		case *LinearConstraint:
			switch c.Cmp {
			case GreaterOrEqual:
				err = b.atLeast(c.Expr.Terms, c.Rhs, c.Enforce)
			case LessOrEqual:
				err = b.atLeast(negateTerms(c.Expr.Terms), -c.Rhs, c.Enforce)
			case Equal:
				if err = b.atLeast(c.Expr.Terms, c.Rhs, c.Enforce); err == nil {
					err = b.atLeast(negateTerms(c.Expr.Terms), -c.Rhs, c.Enforce)
				}
			default:
				err = fmt.Errorf("constraint %d: unsupported comparison %s", i, c.Cmp)
			}
		case *ClauseConstraint:
			err = b.clause(append(append([]Lit{}, c.Lits...), negateAll(c.Enforce)...)...)
		case *ProductConstraint:
			for _, f := range c.Factors {
				if err = b.clause(c.Target.Negate(), f); err != nil {
					break
				}
			}
			if err == nil {
				err = b.clause(append([]Lit{c.Target}, negateAll(c.Factors)...)...)
			}
		default:
			err = fmt.Errorf("constraint %d: unsupported type %T", i, c)
		}
		if err != nil {
			return nil, err
		}
	}

	costLits, costWeights := e.cost(m.Objective(), b)

	// Pin variables nothing refers to so the solver knows every variable.
	for v, used := range b.used {
		if !used {
			_ = b.clause(Var(v).Not())
		}
	}

	pb := solver.ParsePBConstrs(b.constrs)
	if len(costLits) > 0 {
		pb.SetCostFunc(costLits, costWeights)
	}
	return pb, nil
}

// cost turns "maximize sum c*v" into "minimize sum w*l" with positive w.
func (e *SATEngine) cost(obj *Objective, b *pbBuilder) ([]solver.Lit, []int) {
	if obj == nil {
		return nil, nil
	}
	scale := 1.0
	if !obj.Integral() && e.ObjectiveScale > 0 {
		scale = float64(e.ObjectiveScale)
	}

	var lits []solver.Lit
	var weights []int
	for _, term := range obj.Terms {
		w := int(math.Round(-term.Coef * scale))
		l := term.Var.Lit()
		if w < 0 {
			w, l = -w, l.Negate()
		}
		if w == 0 {
			continue
		}
		lits = append(lits, solver.IntToLit(int32(b.lit(l))))
		weights = append(weights, w)
	}
	return lits, weights
}

// modelValues copies a gophersat model, indexed from 0 by variable, into
// an assignment of m.
func modelValues(res solver.Result, m *Model) []bool {
	values := make([]bool, m.NumVars())
	copy(values, res.Model)
	return values
}

var _ Engine = (*SATEngine)(nil)
