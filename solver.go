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
)

// Solver compiles problems into models and hands them to an Engine.
//
// Every Solve compiles the full rule set from scratch against a fresh
// model. Compilation is synchronous; the engine call is the only blocking
// step and is bounded by the configured timeout.
//
// Basic usage:
//
//	problem := &Problem{Teams: 3, Capacity: 5, Agents: agents, Rules: rules}
//	solver := NewSolver(NewSATEngine())
//	solution, err := solver.Solve(ctx, problem)
//
// With options:
//
//	solver := NewSolver(NewSATEngine(),
//	    WithTimeout(30*time.Second),
//	    WithReification(ReifyEquivalence),
//	)
type Solver struct {
	Engine  Engine
	options SolverOptions
}

// NewSolver creates a solver for engine. A nil engine selects the SATEngine.
func NewSolver(engine Engine, opts ...SolverOption) *Solver {
	if engine == nil {
		engine = NewSATEngine()
	}
	return &Solver{
		Engine:  engine,
		options: newSolverOptions(opts),
	}
}

// Configure applies further options and returns the solver.
func (s *Solver) Configure(opts ...SolverOption) *Solver {
	for _, opt := range opts {
		if opt != nil {
			opt(&s.options)
		}
	}
	return s
}

// Options returns the current configuration.
func (s *Solver) Options() SolverOptions {
	return s.options
}

func (s *Solver) debug(msg string, args ...any) {
	if logger := s.options.Logger; logger != nil {
		logger.Debug(msg, args...)
	}
}

// Compilation is a problem compiled into a model, ready for an engine.
type Compilation struct {
	Model     *Model
	Matrix    *AssignmentMatrix
	Regret    *RegretTable
	Objective *Objective
	Result    *CompileResult
}

// Compile validates p and compiles it into a fresh model: assignment
// variables, structural constraints, every rule tree and the objective.
// The structural constraints lead the audit trail.
func (s *Solver) Compile(p *Problem) (*Compilation, error) {
	if p == nil {
		return nil, &ConfigError{Message: "nil problem"}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m := NewModel()
	x := CreateVariables(m, len(p.Agents), p.Teams)
	structural := AddStructuralConstraints(m, x, p.Capacity)

	c := &Compiler{
		model:   m,
		matrix:  x,
		agents:  p.Agents,
		options: s.options,
		attrs:   newAttributeCache(p.Agents),
	}
	res, err := c.Compile(p.Rules...)
	if err != nil {
		return nil, err
	}
	res.Hard = append(structural, res.Hard...)

	regret := NewRegretTable(p.Agents, p.Teams)
	obj, err := c.BuildObjective(regret, res.Soft)
	if err != nil {
		return nil, err
	}

	stats, cache := m.Stats(), c.CacheStats()
	s.debug("model built",
		"vars", stats.Vars,
		"linear", stats.Linear,
		"clauses", stats.Clauses,
		"products", stats.Products,
		"enforced", stats.Enforced,
		"objective_terms", stats.ObjectiveNZ,
		"attr_cache_hits", cache.Hits,
		"attr_cache_hit_rate", cache.HitRate,
	)

	return &Compilation{
		Model:     m,
		Matrix:    x,
		Regret:    regret,
		Objective: obj,
		Result:    res,
	}, nil
}

// Solve compiles p and runs the engine on it.
//
// Compile-time problems are returned as errors (*ConfigError, *SchemaError,
// *UnsatisfiableRuleError, *CoercionError) and nothing reaches the engine.
// Infeasibility and timeouts are not errors: they are reported through
// Solution.Status with a nil error. An engine malfunction, or an assignment
// that violates the model, is an *EngineError.
func (s *Solver) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	comp, err := s.Compile(p)
	if err != nil {
		return nil, err
	}
	return s.SolveCompiled(ctx, comp)
}

// SolveCompiled runs the engine on an existing compilation.
func (s *Solver) SolveCompiled(ctx context.Context, comp *Compilation) (*Solution, error) {
	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}

	s.debug("starting engine", "vars", comp.Model.NumVars(), "timeout", s.options.Timeout)
	res, err := s.Engine.Solve(ctx, comp.Model)
	if err != nil {
		return nil, &EngineError{Err: err}
	}
	if res == nil {
		return nil, &EngineError{Err: errors.New("no result")}
	}

	sol := &Solution{Status: res.Status, Compilation: comp.Result}
	if !res.Status.HasSolution() {
		s.debug("no assignment", "status", res.Status)
		return sol, nil
	}
	if err := comp.Model.Check(res.Values); err != nil {
		return nil, &EngineError{Err: fmt.Errorf("invalid assignment: %w", err)}
	}

	comp.decode(sol, res.Values)
	s.debug("assignment found", "status", sol.Status, "total_regret", sol.TotalRegret, "objective", sol.Objective)
	return sol, nil
}

// decode fills the roster, regrets and objective of sol from values.
func (c *Compilation) decode(sol *Solution, values []bool) {
	sol.Values = values
	sol.Teams = c.Matrix.Decode(values)
	sol.TeamRegret = make([]int, len(sol.Teams))
	for t, members := range sol.Teams {
		for _, a := range members {
			sol.TeamRegret[t] += c.Regret.Rank(a, t)
		}
		sol.TotalRegret += sol.TeamRegret[t]
	}
	sol.Objective = c.Model.Objective().Evaluate(values)
}
