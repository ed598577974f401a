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

// Reporter formats a compilation audit trail.
type Reporter interface {
	// Report renders every hard line, deferred soft rule and notice of res.
	Report(res *CompileResult) string
}

// DefaultReporter produces a sectioned report with indented entries.
type DefaultReporter struct{}

// Report implements Reporter
func (r *DefaultReporter) Report(res *CompileResult) string {
	if res == nil {
		return "nothing compiled"
	}

	lines := []string{fmt.Sprintf("hard constraints (%d):", len(res.Hard))}
	for _, line := range res.Hard {
		lines = append(lines, "  "+line)
	}

	lines = append(lines, fmt.Sprintf("soft rules (%d):", len(res.Soft)))
	for _, rule := range res.Soft {
		lines = append(lines, "  "+rule.String())
	}

	if len(res.Notices) > 0 {
		lines = append(lines, fmt.Sprintf("notices (%d):", len(res.Notices)))
		for _, n := range res.Notices {
			lines = append(lines, "  "+n.String())
		}
	}
	return strings.Join(lines, "\n")
}

// CollapsedReporter produces one line per entry, prefixed by its section.
type CollapsedReporter struct{}

// Report implements Reporter with a collapsed format
func (r *CollapsedReporter) Report(res *CompileResult) string {
	if res == nil {
		return "nothing compiled"
	}

	var lines []string
	for _, line := range res.Hard {
		lines = append(lines, "hard: "+line)
	}
	for _, rule := range res.Soft {
		lines = append(lines, "soft: "+rule.String())
	}
	for _, n := range res.Notices {
		lines = append(lines, "notice: "+n.String())
	}

	if len(lines) == 0 {
		return "no constraints"
	}
	return strings.Join(lines, "\n")
}

var (
	_ Reporter = (*DefaultReporter)(nil)
	_ Reporter = (*CollapsedReporter)(nil)
)
