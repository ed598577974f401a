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
	"strconv"
	"strings"
)

// Kind tags the three variants of a rule node.
type Kind string

const (
	KindHard    Kind = "hard"
	KindSoft    Kind = "soft"
	KindLogical Kind = "logical"
)

// Mode selects whether a soft rule rewards homogeneity or diversity.
type Mode string

const (
	// ModeAttractive penalizes dissimilar pairs sharing a team.
	ModeAttractive Mode = "attractive"
	// ModeRepulsive rewards dissimilar pairs sharing a team.
	ModeRepulsive Mode = "repulsive"
)

// LogicalOp is the operator of a logical rule.
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
	OpNot LogicalOp = "not"
)

// Rule is a node of a rule tree. The set of implementations is closed:
// *HardRule, *SoftRule and *LogicalRule. Trees are read-only once built.
type Rule interface {
	Kind() Kind
	String() string
	isRule()
}

// HardRule must hold in every accepted solution. A nil Team broadcasts the
// predicate to every team in scope; a set Team pins it to one team.
type HardRule struct {
	Team      *int
	Predicate Predicate
}

// Hard creates a broadcast hard rule.
func Hard(p Predicate) *HardRule {
	return &HardRule{Predicate: p}
}

// ForTeam pins the rule to team t and returns it.
func (r *HardRule) ForTeam(t int) *HardRule {
	r.Team = &t
	return r
}

// Kind implements Rule.
func (r *HardRule) Kind() Kind { return KindHard }

// String implements Rule.
func (r *HardRule) String() string {
	return withTeam(fmt.Sprintf("hard %s", r.Predicate), r.Team)
}

func (*HardRule) isRule() {}

// SoftRule contributes pairwise similarity costs on Key to the objective.
type SoftRule struct {
	Key    string
	Mode   Mode
	Weight float64
}

// DefaultSoftWeight is used when a soft rule payload omits its weight.
const DefaultSoftWeight = 1.0

// Soft creates a soft rule.
func Soft(key string, mode Mode, weight float64) *SoftRule {
	return &SoftRule{Key: key, Mode: mode, Weight: weight}
}

// Kind implements Rule.
func (r *SoftRule) Kind() Kind { return KindSoft }

// String implements Rule.
func (r *SoftRule) String() string {
	return fmt.Sprintf("soft %s(%s, %s)", r.Mode, r.Key, strconv.FormatFloat(r.Weight, 'g', -1, 64))
}

func (*SoftRule) isRule() {}

// LogicalRule combines child rules. And and Or take one or more children;
// Not takes exactly one.
type LogicalRule struct {
	Op    LogicalOp
	Team  *int
	Rules []Rule
}

// And creates a conjunction.
func And(rules ...Rule) *LogicalRule {
	return &LogicalRule{Op: OpAnd, Rules: rules}
}

// Or creates a disjunction.
func Or(rules ...Rule) *LogicalRule {
	return &LogicalRule{Op: OpOr, Rules: rules}
}

// Not creates a negation.
func Not(rule Rule) *LogicalRule {
	return &LogicalRule{Op: OpNot, Rules: []Rule{rule}}
}

// ForTeam pins the combinator to team t and returns it.
func (r *LogicalRule) ForTeam(t int) *LogicalRule {
	r.Team = &t
	return r
}

// Kind implements Rule.
func (r *LogicalRule) Kind() Kind { return KindLogical }

// String implements Rule.
func (r *LogicalRule) String() string {
	parts := make([]string, len(r.Rules))
	for i, child := range r.Rules {
		parts[i] = child.String()
	}
	return withTeam(fmt.Sprintf("%s(%s)", r.Op, strings.Join(parts, ", ")), r.Team)
}

func (*LogicalRule) isRule() {}

func withTeam(s string, team *int) string {
	if team == nil {
		return s
	}
	return fmt.Sprintf("%s @team %d", s, *team)
}

var (
	_ Rule = (*HardRule)(nil)
	_ Rule = (*SoftRule)(nil)
	_ Rule = (*LogicalRule)(nil)
)
