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
	"regexp"
	"strconv"
)

// HardOp names a primitive hard-rule operator.
type HardOp string

const (
	OpIncludes HardOp = "includes"
	OpRange    HardOp = "range"
	OpEquals   HardOp = "equals"
	OpRegex    HardOp = "regex"
)

// Predicate is the primitive of a hard rule. The set of implementations is
// closed: *Includes, *Range, *Equals and *Regex.
//
// Every predicate compiles twice: enforce adds its constraints for one team
// unconditionally, enforceIf adds them conditionally on an indicator literal
// (see Reification for the strength of that condition).
type Predicate interface {
	Op() HardOp
	String() string

	enforce(c *Compiler, team int) ([]string, error)
	enforceIf(c *Compiler, team int, ind Lit, path string) (compiled, error)
}

// Includes bounds how many agents whose Key equals Value sit in a team.
// Min defaults to 0 and Max to the agent count.
type Includes struct {
	Key   string
	Value any
	Min   *int
	Max   *int
}

// IncludesBetween creates an Includes predicate with both bounds set.
func IncludesBetween(key string, value any, lo, hi int) *Includes {
	return &Includes{Key: key, Value: value, Min: &lo, Max: &hi}
}

// Op implements Predicate.
func (p *Includes) Op() HardOp { return OpIncludes }

// String implements Predicate.
func (p *Includes) String() string {
	lo, hi := "0", "*"
	if p.Min != nil {
		lo = strconv.Itoa(*p.Min)
	}
	if p.Max != nil {
		hi = strconv.Itoa(*p.Max)
	}
	return fmt.Sprintf("includes(%s=%v, %s..%s)", p.Key, p.Value, lo, hi)
}

func (p *Includes) bounds(agents int) (int64, int64) {
	lo, hi := 0, agents
	if p.Min != nil {
		lo = *p.Min
	}
	if p.Max != nil {
		hi = *p.Max
	}
	return int64(lo), int64(hi)
}

func (p *Includes) expr(c *Compiler, team int) LinearExpr {
	matching := c.agentsWhere(func(a Agent) bool {
		return valuesEqual(a.Attribute(p.Key), p.Value)
	})
	return Sum(c.matrix.members(team, matching)...)
}

func (p *Includes) enforce(c *Compiler, team int) ([]string, error) {
	lo, hi := p.bounds(len(c.agents))
	expr := p.expr(c, team)
	c.model.AddLinear(expr, GreaterOrEqual, lo)
	c.model.AddLinear(expr, LessOrEqual, hi)
	return []string{
		fmt.Sprintf("team %d: at least %d with %s=%v", team, lo, p.Key, p.Value),
		fmt.Sprintf("team %d: at most %d with %s=%v", team, hi, p.Key, p.Value),
	}, nil
}

func (p *Includes) enforceIf(c *Compiler, team int, ind Lit, _ string) (compiled, error) {
	lo, hi := p.bounds(len(c.agents))
	expr := p.expr(c, team)
	c.model.AddLinear(expr, GreaterOrEqual, lo).OnlyEnforceIf(ind)
	c.model.AddLinear(expr, LessOrEqual, hi).OnlyEnforceIf(ind)
	out := compiled{hard: []string{
		fmt.Sprintf("team %d: at least %d with %s=%v if %s", team, lo, p.Key, p.Value, c.litName(ind)),
		fmt.Sprintf("team %d: at most %d with %s=%v if %s", team, hi, p.Key, p.Value, c.litName(ind)),
	}}
	if c.options.Reification == ReifyEquivalence {
		out.hard = append(out.hard, c.reifyOutside(expr, lo, hi, ind, team))
	}
	return out, nil
}

// Range bounds the sum of a coerced attribute over a team's members.
// Both bounds are required.
type Range struct {
	Key string
	Min float64
	Max float64
}

// Op implements Predicate.
func (p *Range) Op() HardOp { return OpRange }

// String implements Predicate.
func (p *Range) String() string {
	return fmt.Sprintf("range(%s, %s..%s)", p.Key, formatFloat(p.Min), formatFloat(p.Max))
}

func (p *Range) enforce(c *Compiler, team int) ([]string, error) {
	expr, err := c.attributeSum(p.Key, team)
	if err != nil {
		return nil, err
	}
	lo, hi := c.lowerBound(p.Min), c.upperBound(p.Max)
	c.model.AddLinear(expr, GreaterOrEqual, lo)
	c.model.AddLinear(expr, LessOrEqual, hi)
	return []string{
		fmt.Sprintf("team %d: sum of %s in [%s, %s]", team, p.Key, formatFloat(p.Min), formatFloat(p.Max)),
	}, nil
}

func (p *Range) enforceIf(c *Compiler, team int, ind Lit, _ string) (compiled, error) {
	expr, err := c.attributeSum(p.Key, team)
	if err != nil {
		return compiled{}, err
	}
	lo, hi := c.lowerBound(p.Min), c.upperBound(p.Max)
	c.model.AddLinear(expr, GreaterOrEqual, lo).OnlyEnforceIf(ind)
	c.model.AddLinear(expr, LessOrEqual, hi).OnlyEnforceIf(ind)
	out := compiled{hard: []string{
		fmt.Sprintf("team %d: sum of %s in [%s, %s] if %s", team, p.Key, formatFloat(p.Min), formatFloat(p.Max), c.litName(ind)),
	}}
	if c.options.Reification == ReifyEquivalence {
		out.hard = append(out.hard, c.reifyOutside(expr, lo, hi, ind, team))
	}
	return out, nil
}

// Equals fixes the sum of a coerced attribute over a team's members.
// Value is a sum, so it is not clamped.
type Equals struct {
	Key   string
	Value float64
}

// Op implements Predicate.
func (p *Equals) Op() HardOp { return OpEquals }

// String implements Predicate.
func (p *Equals) String() string {
	return fmt.Sprintf("equals(%s, %s)", p.Key, formatFloat(p.Value))
}

func (p *Equals) enforce(c *Compiler, team int) ([]string, error) {
	expr, err := c.attributeSum(p.Key, team)
	if err != nil {
		return nil, err
	}
	c.model.AddLinear(expr, Equal, c.coef(p.Value))
	return []string{
		fmt.Sprintf("team %d: sum of %s == %s", team, p.Key, formatFloat(p.Value)),
	}, nil
}

func (p *Equals) enforceIf(c *Compiler, team int, ind Lit, _ string) (compiled, error) {
	expr, err := c.attributeSum(p.Key, team)
	if err != nil {
		return compiled{}, err
	}
	target := c.coef(p.Value)
	c.model.AddLinear(expr, Equal, target).OnlyEnforceIf(ind)
	out := compiled{hard: []string{
		fmt.Sprintf("team %d: sum of %s == %s if %s", team, p.Key, formatFloat(p.Value), c.litName(ind)),
	}}
	if c.options.Reification == ReifyEquivalence {
		out.hard = append(out.hard, c.reifyOutside(expr, target, target, ind, team))
	}
	return out, nil
}

// Regex requires at least one agent whose stringified Key matches Pattern
// (search semantics, not a full match) to sit in the team.
type Regex struct {
	Key     string
	Pattern *regexp.Regexp
}

// MustRegex creates a Regex predicate, panicking on an invalid pattern.
func MustRegex(key, pattern string) *Regex {
	return &Regex{Key: key, Pattern: regexp.MustCompile(pattern)}
}

// Op implements Predicate.
func (p *Regex) Op() HardOp { return OpRegex }

// String implements Predicate.
func (p *Regex) String() string {
	return fmt.Sprintf("regex(%s, %q)", p.Key, p.Pattern)
}

func (p *Regex) matching(c *Compiler) []int {
	return c.agentsWhere(func(a Agent) bool {
		return p.Pattern.MatchString(stringify(a.Attribute(p.Key)))
	})
}

func (p *Regex) enforce(c *Compiler, team int) ([]string, error) {
	matching := p.matching(c)
	if len(matching) == 0 {
		return nil, &UnsatisfiableRuleError{Key: p.Key, Pattern: p.Pattern.String()}
	}
	c.model.AddBoolOr(varLits(c.matrix.members(team, matching))...)
	return []string{
		fmt.Sprintf("team %d: at least one agent matches regex %q for %s", team, p.Pattern, p.Key),
	}, nil
}

// enforceIf has no conditional form under ReifyImplication: the rule is
// reported as a no-op. Under ReifyEquivalence the indicator is tied to the
// disjunction of the matching assignment variables.
func (p *Regex) enforceIf(c *Compiler, team int, ind Lit, path string) (compiled, error) {
	if c.options.Reification != ReifyEquivalence {
		return compiled{notices: c.notice(path, p.String(),
			"regex has no conditional form; the rule has no effect inside a logical combinator")}, nil
	}
	matching := p.matching(c)
	if len(matching) == 0 {
		c.model.AddBoolOr(ind.Negate())
		return compiled{hard: []string{
			fmt.Sprintf("team %d: no agent matches regex %q for %s, so %s is false", team, p.Pattern, p.Key, c.litName(ind)),
		}}, nil
	}
	members := varLits(c.matrix.members(team, matching))
	c.model.AddProduct(ind.Negate(), negateAll(members)...)
	return compiled{hard: []string{
		fmt.Sprintf("team %d: %s iff an agent matching regex %q for %s is in the team", team, c.litName(ind), p.Pattern, p.Key),
	}}, nil
}

func varLits(vars []Var) []Lit {
	lits := make([]Lit, len(vars))
	for i, v := range vars {
		lits[i] = v.Lit()
	}
	return lits
}

func negateAll(lits []Lit) []Lit {
	out := make([]Lit, len(lits))
	for i, l := range lits {
		out[i] = l.Negate()
	}
	return out
}

// maxOperand bounds range bounds, equals targets and soft weights so that
// their products with the integer scales stay well inside int64.
const maxOperand = 1e9

func finiteOperand(f float64) bool {
	return !math.IsNaN(f) && math.Abs(f) <= maxOperand
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

var (
	_ Predicate = (*Includes)(nil)
	_ Predicate = (*Range)(nil)
	_ Predicate = (*Equals)(nil)
	_ Predicate = (*Regex)(nil)
)
