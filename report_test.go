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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleResult() *CompileResult {
	return &CompileResult{
		Hard: []string{"team 0: sum of lead == 1", "team 1: sum of lead == 1"},
		Soft: []SoftRule{{Key: "gpa", Mode: ModeRepulsive, Weight: 0.5}},
		Notices: []Notice{{
			Path:    "rules[1].rules[0]",
			Rule:    `regex(name, "^a")`,
			Message: "regex has no conditional form; the rule has no effect inside a logical combinator",
		}},
	}
}

func TestDefaultReporter(t *testing.T) {
	want := strings.Join([]string{
		"hard constraints (2):",
		"  team 0: sum of lead == 1",
		"  team 1: sum of lead == 1",
		"soft rules (1):",
		"  soft repulsive(gpa, 0.5)",
		"notices (1):",
		`  rules[1].rules[0]: regex(name, "^a"): regex has no conditional form; the rule has no effect inside a logical combinator`,
	}, "\n")
	assert.Equal(t, want, (&DefaultReporter{}).Report(sampleResult()))
	assert.Equal(t, want, sampleResult().String())
}

func TestDefaultReporterOmitsEmptyNotices(t *testing.T) {
	res := &CompileResult{Hard: []string{}}
	assert.Equal(t, "hard constraints (0):\nsoft rules (0):", (&DefaultReporter{}).Report(res))
	assert.Equal(t, "nothing compiled", (&DefaultReporter{}).Report(nil))
}

func TestCollapsedReporter(t *testing.T) {
	got := (&CollapsedReporter{}).Report(sampleResult())
	lines := strings.Split(got, "\n")
	if assert.Len(t, lines, 4) {
		assert.Equal(t, "hard: team 0: sum of lead == 1", lines[0])
		assert.Equal(t, "soft: soft repulsive(gpa, 0.5)", lines[2])
		assert.True(t, strings.HasPrefix(lines[3], "notice: rules[1].rules[0]: "))
	}

	assert.Equal(t, "no constraints", (&CollapsedReporter{}).Report(&CompileResult{}))
}

func TestReportCompiledRules(t *testing.T) {
	f := newFixture(t, agentsWith("name", 2, "alice", "bob", "carol", "dave"), 2, 2)
	res, err := f.compiler.Compile(
		Hard(MustRegex("name", "^[ab]")).ForTeam(0),
		Or(Hard(MustRegex("name", "^c")), Soft("name", ModeAttractive, 1)).ForTeam(1),
	)
	if !assert.NoError(t, err) {
		return
	}

	report := (&DefaultReporter{}).Report(res)
	assert.Contains(t, report, `team 0: at least one agent matches regex "^[ab]" for name`)
	assert.Contains(t, report, "team 1: at least one of 2 alternatives holds")
	assert.Contains(t, report, "notices (2):")
	assert.Contains(t, report, "rules[1].rules[1]: soft attractive(name, 1): soft rule inside or/not has no effect")
}

func TestSolutionString(t *testing.T) {
	sol := &Solution{
		Status:      StatusOptimal,
		Teams:       [][]int{{0, 3}, {1, 2}},
		TeamRegret:  []int{1, 0},
		TotalRegret: 1,
	}
	assert.Equal(t, "optimal, total regret 1\nteam 0 (regret 1): [0 3]\nteam 1 (regret 0): [1 2]", sol.String())

	team, ok := sol.TeamOf(2)
	assert.True(t, ok)
	assert.Equal(t, 1, team)
	_, ok = sol.TeamOf(7)
	assert.False(t, ok)
}
