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
	"log/slog"
	"math"

	"github.com/samber/lo"
)

// Notice reports a rule that was accepted but compiled to nothing, or
// compiled with a meaning different from its position in the tree.
type Notice struct {
	Path    string
	Rule    string
	Message string
}

// String returns the notice in "path: rule: message" form.
func (n Notice) String() string {
	return fmt.Sprintf("%s: %s: %s", n.Path, n.Rule, n.Message)
}

// CompileResult aggregates what a compilation added to a model: one audit
// line per hard constraint, the soft rules deferred to the objective stage,
// and notices for rules that had no effect.
type CompileResult struct {
	Hard    []string
	Soft    []SoftRule
	Notices []Notice
}

// String renders the result with the DefaultReporter.
func (r *CompileResult) String() string {
	return (&DefaultReporter{}).Report(r)
}

// compiled is the return value of every recursive compile call. Callers
// merge the parts of their children in order.
type compiled struct {
	hard    []string
	soft    []SoftRule
	notices []Notice
	hoisted []hoistedSoft
}

type hoistedSoft struct {
	path string
	rule SoftRule
}

func (c *compiled) merge(other compiled) {
	c.hard = append(c.hard, other.hard...)
	c.soft = append(c.soft, other.soft...)
	c.notices = append(c.notices, other.notices...)
	c.hoisted = append(c.hoisted, other.hoisted...)
}

// noticeIdentity identifies a notice independently of the team that
// produced it.
type noticeIdentity struct {
	path    string
	message string
}

func noticeKey(n Notice) noticeIdentity {
	return noticeIdentity{path: n.Path, message: n.Message}
}

// result flattens the parts into a CompileResult. A rule nested under a
// broadcast combinator is visited once per team, so notices and hoisted
// soft rules are kept once per path.
func (c *compiled) result() *CompileResult {
	res := &CompileResult{
		Hard:    c.hard,
		Soft:    c.soft,
		Notices: lo.UniqBy(c.notices, noticeKey),
	}
	for _, h := range lo.UniqBy(c.hoisted, func(h hoistedSoft) string { return h.path }) {
		res.Soft = append(res.Soft, h.rule)
	}
	if res.Hard == nil {
		res.Hard = []string{}
	}
	return res
}

// Compiler walks rule trees and adds their constraints to a model over an
// assignment matrix.
//
// A Compiler is single-threaded. Every Compile call either adds all the
// constraints of its rules or, on error, none of them.
type Compiler struct {
	model   *Model
	matrix  *AssignmentMatrix
	agents  []Agent
	options SolverOptions
	attrs   *attributeCache
	seq     int
}

// NewCompiler creates a compiler for the given model and matrix. The agent
// slice is indexed by the matrix rows.
func NewCompiler(m *Model, x *AssignmentMatrix, agents []Agent, opts ...SolverOption) *Compiler {
	return &Compiler{
		model:   m,
		matrix:  x,
		agents:  agents,
		options: newSolverOptions(opts),
		attrs:   newAttributeCache(agents),
	}
}

// Compile compiles each rule tree in order against the model. On error the
// model is restored to its state before the call.
func (c *Compiler) Compile(rules ...Rule) (*CompileResult, error) {
	mark, seq := c.model.mark(), c.seq

	var out compiled
	for i, rule := range rules {
		part, err := c.compile(rule, nil, fmt.Sprintf("rules[%d]", i))
		if err != nil {
			c.model.rollback(mark)
			c.seq = seq
			return nil, err
		}
		out.merge(part)
	}

	res := out.result()
	c.debug("compiled rules",
		"rules", len(rules),
		"hard", len(res.Hard),
		"soft", len(res.Soft),
		"notices", len(res.Notices),
		"vars", c.model.NumVars())
	return res, nil
}

// CacheStats reports attribute column reuse across every Compile and
// BuildObjective call so far.
func (c *Compiler) CacheStats() CacheStats {
	return c.attrs.stats()
}

// debug logs a debug message if logging is enabled
func (c *Compiler) debug(msg string, args ...any) {
	if c.options.Logger != nil {
		c.options.Logger.Debug(msg, args...)
	}
}

// compile adds rule unconditionally. scope is the team inherited from an
// enclosing combinator, nil meaning every team.
func (c *Compiler) compile(rule Rule, scope *int, path string) (compiled, error) {
	switch r := rule.(type) {
	case *HardRule:
		return c.compileHard(r, scope, path)
	case *SoftRule:
		if err := validateSoft(r, path); err != nil {
			return compiled{}, err
		}
		return compiled{soft: []SoftRule{*r}}, nil
	case *LogicalRule:
		return c.compileLogical(r, scope, path)
	case nil:
		return compiled{}, &SchemaError{Path: path, Message: "missing rule"}
	default:
		return compiled{}, &SchemaError{Path: path, Message: fmt.Sprintf("unsupported rule type %T", rule)}
	}
}

func (c *Compiler) compileHard(r *HardRule, scope *int, path string) (compiled, error) {
	if err := validatePredicate(r.Predicate, path); err != nil {
		return compiled{}, err
	}
	teams, err := c.teams(scope, r.Team, path)
	if err != nil {
		return compiled{}, err
	}

	var out compiled
	for _, t := range teams {
		lines, err := r.Predicate.enforce(c, t)
		if err != nil {
			return compiled{}, err
		}
		out.hard = append(out.hard, lines...)
	}
	return out, nil
}

func (c *Compiler) compileLogical(r *LogicalRule, scope *int, path string) (compiled, error) {
	if err := validateLogical(r, path); err != nil {
		return compiled{}, err
	}
	teams, err := c.teams(scope, r.Team, path)
	if err != nil {
		return compiled{}, err
	}

	var out compiled
	switch r.Op {
	case OpAnd:
		inner := scope
		if r.Team != nil {
			inner = r.Team
		}
		for i, child := range r.Rules {
			part, err := c.compile(child, inner, childPath(path, i))
			if err != nil {
				return compiled{}, err
			}
			out.merge(part)
		}
		out.hard = append(out.hard, fmt.Sprintf("%s: all of %d rules hold", scopeName(inner), len(r.Rules)))

	case OpOr:
		for _, t := range teams {
			id := c.nextID()
			inds := make([]Lit, len(r.Rules))
			for i, child := range r.Rules {
				ind := c.model.NewBoolVar(fmt.Sprintf("or%d_t%d_%d", id, t, i)).Lit()
				inds[i] = ind
				part, err := c.compileConditional(child, t, ind, childPath(path, i))
				if err != nil {
					return compiled{}, err
				}
				out.merge(part)
			}
			c.model.AddBoolOr(inds...)
			out.hard = append(out.hard, fmt.Sprintf("team %d: at least one of %d alternatives holds", t, len(inds)))
		}

	case OpNot:
		for _, t := range teams {
			ind := c.model.NewBoolVar(fmt.Sprintf("not%d_t%d", c.nextID(), t)).Lit()
			part, err := c.compileConditional(r.Rules[0], t, ind, childPath(path, 0))
			if err != nil {
				return compiled{}, err
			}
			out.merge(part)
			c.model.AddBoolOr(ind.Negate())
			out.hard = append(out.hard, fmt.Sprintf("team %d: negated rule is not enforced", t))
		}
	}
	return out, nil
}

// compileConditional adds rule for a single team under the indicator ind.
// Under ReifyImplication the rule holds when ind holds; under
// ReifyEquivalence ind holds exactly when the rule does.
func (c *Compiler) compileConditional(rule Rule, team int, ind Lit, path string) (compiled, error) {
	switch r := rule.(type) {
	case *HardRule:
		if err := validatePredicate(r.Predicate, path); err != nil {
			return compiled{}, err
		}
		t, err := c.pinned(team, r.Team, path)
		if err != nil {
			return compiled{}, err
		}
		return r.Predicate.enforceIf(c, t, ind, path)
	case *SoftRule:
		if err := validateSoft(r, path); err != nil {
			return compiled{}, err
		}
		return c.nestedSoft(r, path)
	case *LogicalRule:
		if err := validateLogical(r, path); err != nil {
			return compiled{}, err
		}
		t, err := c.pinned(team, r.Team, path)
		if err != nil {
			return compiled{}, err
		}
		return c.compileLogicalIf(r, t, ind, path)
	case nil:
		return compiled{}, &SchemaError{Path: path, Message: "missing rule"}
	default:
		return compiled{}, &SchemaError{Path: path, Message: fmt.Sprintf("unsupported rule type %T", rule)}
	}
}

// compileLogicalIf reifies a combinator nested under another one. Each child
// gets its own indicator except for and under ReifyImplication, where the
// children share the parent's.
func (c *Compiler) compileLogicalIf(r *LogicalRule, team int, ind Lit, path string) (compiled, error) {
	equiv := c.options.Reification == ReifyEquivalence
	name := c.litName(ind)

	var out compiled
	if r.Op == OpAnd && !equiv {
		for i, child := range r.Rules {
			part, err := c.compileConditional(child, team, ind, childPath(path, i))
			if err != nil {
				return compiled{}, err
			}
			out.merge(part)
		}
		out.hard = append(out.hard, fmt.Sprintf("team %d: all of %d rules hold if %s", team, len(r.Rules), name))
		return out, nil
	}

	id := c.nextID()
	subs := make([]Lit, len(r.Rules))
	for i, child := range r.Rules {
		subs[i] = c.model.NewBoolVar(fmt.Sprintf("%s%d_t%d_%d", r.Op, id, team, i)).Lit()
		part, err := c.compileConditional(child, team, subs[i], childPath(path, i))
		if err != nil {
			return compiled{}, err
		}
		out.merge(part)
	}

	switch {
	case r.Op == OpAnd:
		c.model.AddProduct(ind, subs...)
		out.hard = append(out.hard, fmt.Sprintf("team %d: %s iff all of %d rules hold", team, name, len(subs)))
	case r.Op == OpOr && equiv:
		c.model.AddProduct(ind.Negate(), negateAll(subs)...)
		out.hard = append(out.hard, fmt.Sprintf("team %d: %s iff one of %d alternatives holds", team, name, len(subs)))
	case r.Op == OpOr:
		c.model.AddBoolOr(subs...).OnlyEnforceIf(ind)
		out.hard = append(out.hard, fmt.Sprintf("team %d: at least one of %d alternatives holds if %s", team, len(subs), name))
	case r.Op == OpNot && equiv:
		c.model.AddProduct(ind, subs[0].Negate())
		out.hard = append(out.hard, fmt.Sprintf("team %d: %s iff the negated rule fails", team, name))
	default:
		c.model.AddBoolOr(subs[0].Negate()).OnlyEnforceIf(ind)
		out.hard = append(out.hard, fmt.Sprintf("team %d: negated rule is not enforced if %s", team, name))
	}
	return out, nil
}

func (c *Compiler) nestedSoft(r *SoftRule, path string) (compiled, error) {
	switch c.options.NestedSoft {
	case NestedSoftReject:
		return compiled{}, &SchemaError{Path: path, Message: "soft rules are not allowed inside or/not"}
	case NestedSoftHoist:
		return compiled{
			hoisted: []hoistedSoft{{path: path, rule: *r}},
			notices: c.notice(path, r.String(), "soft rule inside or/not is applied to the objective unconditionally"),
		}, nil
	default:
		return compiled{
			notices: c.notice(path, r.String(), "soft rule inside or/not has no effect"),
		}, nil
	}
}

func (c *Compiler) notice(path, rule, message string) []Notice {
	c.debug("rule has no effect", slog.String("path", path), slog.String("rule", rule))
	return []Notice{{Path: path, Rule: rule, Message: message}}
}

// teams resolves the teams a rule applies to: a pinned team wins over the
// inherited scope, and no scope at all means every team.
func (c *Compiler) teams(scope, pin *int, path string) ([]int, error) {
	switch {
	case pin != nil:
		if err := c.checkTeam(*pin, path); err != nil {
			return nil, err
		}
		return []int{*pin}, nil
	case scope != nil:
		return []int{*scope}, nil
	default:
		return lo.Range(c.matrix.Teams()), nil
	}
}

func (c *Compiler) pinned(team int, pin *int, path string) (int, error) {
	if pin == nil {
		return team, nil
	}
	if err := c.checkTeam(*pin, path); err != nil {
		return 0, err
	}
	return *pin, nil
}

func (c *Compiler) checkTeam(t int, path string) error {
	if t < 0 || t >= c.matrix.Teams() {
		return &SchemaError{Path: path, Message: fmt.Sprintf("team %d out of range [0, %d)", t, c.matrix.Teams())}
	}
	return nil
}

func (c *Compiler) nextID() int {
	id := c.seq
	c.seq++
	return id
}

// litName renders a literal with its variable's declared name.
func (c *Compiler) litName(l Lit) string {
	if l.Positive {
		return c.model.VarName(l.Var)
	}
	return "!" + c.model.VarName(l.Var)
}

// agentsWhere returns the indices of the agents satisfying keep, ascending.
func (c *Compiler) agentsWhere(keep func(Agent) bool) []int {
	return lo.FilterMap(c.agents, func(a Agent, i int) (int, bool) {
		return i, keep(a)
	})
}

// attributeSum builds sum_a coef(attr(a, key)) * x[a, team].
func (c *Compiler) attributeSum(key string, team int) (LinearExpr, error) {
	values, err := c.attrs.column(key)
	if err != nil {
		return LinearExpr{}, err
	}
	var expr LinearExpr
	for a, v := range values {
		expr = expr.AddTerm(c.matrix.At(a, team), c.coef(v))
	}
	return expr, nil
}

// coef quantizes an attribute value or sum target at AttributeScale.
func (c *Compiler) coef(v float64) int64 {
	return int64(math.Round(v * float64(c.options.AttributeScale)))
}

// lowerBound and upperBound quantize range bounds inward so that a sum
// inside the integer bounds is inside the real ones.
func (c *Compiler) lowerBound(v float64) int64 {
	return int64(math.Ceil(v*float64(c.options.AttributeScale) - 1e-9))
}

func (c *Compiler) upperBound(v float64) int64 {
	return int64(math.Floor(v*float64(c.options.AttributeScale) + 1e-9))
}

// reifyOutside completes the reification of lo <= expr <= hi: when ind is
// false the sum falls below lo or above hi.
func (c *Compiler) reifyOutside(expr LinearExpr, lo, hi int64, ind Lit, team int) string {
	id := c.nextID()
	below := c.model.NewBoolVar(fmt.Sprintf("below%d_t%d", id, team)).Lit()
	above := c.model.NewBoolVar(fmt.Sprintf("above%d_t%d", id, team)).Lit()
	c.model.AddLinear(expr, LessOrEqual, lo-1).OnlyEnforceIf(below)
	c.model.AddLinear(expr, GreaterOrEqual, hi+1).OnlyEnforceIf(above)
	c.model.AddBoolOr(ind, below, above)
	return fmt.Sprintf("team %d: %s or sum outside [%d, %d]", team, c.litName(ind), lo, hi)
}

func validatePredicate(p Predicate, path string) error {
	if p == nil {
		return &SchemaError{Path: path, Message: "hard rule has no predicate"}
	}
	var key string
	switch q := p.(type) {
	case *Includes:
		key = q.Key
	case *Range:
		if !finiteOperand(q.Min) || !finiteOperand(q.Max) {
			return &SchemaError{Path: path, Message: fmt.Sprintf("range bounds %v..%v out of range", q.Min, q.Max)}
		}
		key = q.Key
	case *Equals:
		if !finiteOperand(q.Value) {
			return &SchemaError{Path: path, Message: fmt.Sprintf("equals value %v out of range", q.Value)}
		}
		key = q.Key
	case *Regex:
		if q.Pattern == nil {
			return &SchemaError{Path: path, Message: "regex rule has no pattern"}
		}
		key = q.Key
	default:
		return &SchemaError{Path: path, Message: fmt.Sprintf("unsupported operator %q", p.Op())}
	}
	if key == "" {
		return &SchemaError{Path: path, Message: fmt.Sprintf("%s rule has no key", p.Op())}
	}
	return nil
}

func validateSoft(r *SoftRule, path string) error {
	if r.Key == "" {
		return &SchemaError{Path: path, Message: "soft rule has no key"}
	}
	if r.Mode != ModeAttractive && r.Mode != ModeRepulsive {
		return &SchemaError{Path: path, Message: fmt.Sprintf("unsupported soft mode %q", r.Mode)}
	}
	if !finiteOperand(r.Weight) {
		return &SchemaError{Path: path, Message: fmt.Sprintf("soft weight %v out of range", r.Weight)}
	}
	return nil
}

func validateLogical(r *LogicalRule, path string) error {
	switch r.Op {
	case OpAnd, OpOr:
		if len(r.Rules) == 0 {
			return &SchemaError{Path: path, Message: fmt.Sprintf("%s needs at least one rule", r.Op)}
		}
	case OpNot:
		if len(r.Rules) != 1 {
			return &SchemaError{Path: path, Message: fmt.Sprintf("not takes exactly one rule, got %d", len(r.Rules))}
		}
	default:
		return &SchemaError{Path: path, Message: fmt.Sprintf("unsupported logical operator %q", r.Op)}
	}
	return nil
}

func childPath(path string, i int) string {
	return fmt.Sprintf("%s.rules[%d]", path, i)
}

func scopeName(team *int) string {
	if team == nil {
		return "all teams"
	}
	return fmt.Sprintf("team %d", *team)
}
