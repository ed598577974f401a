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
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// problemFile is the on-disk layout read by LoadProblem:
//
//	teams: 3
//	capacity: 5
//	solver:
//	  timeout: 10s
//	  reification: equivalence
//	agents:
//	  - id: 0
//	    preferences: [1, 0, 2]
//	    attributes: {attributes: 0}
//	rules:
//	  - kind: hard
//	    rule: {op: includes, key: attributes, value: true, min: 1}
type problemFile struct {
	Teams    int         `yaml:"teams"`
	Capacity int         `yaml:"capacity"`
	Solver   solverBlock `yaml:"solver"`
	Agents   []Agent     `yaml:"agents"`
	Rules    []yaml.Node `yaml:"rules"`
}

type solverBlock struct {
	Timeout        *time.Duration `yaml:"timeout"`
	RegretWeight   *float64       `yaml:"regret_weight"`
	SoftScale      int            `yaml:"soft_scale"`
	AttributeScale int            `yaml:"attribute_scale"`
	Reification    string         `yaml:"reification"`
	NestedSoft     string         `yaml:"nested_soft"`
}

func (b solverBlock) options() ([]SolverOption, error) {
	var opts []SolverOption
	if b.Timeout != nil {
		opts = append(opts, WithTimeout(*b.Timeout))
	}
	if b.RegretWeight != nil {
		opts = append(opts, WithRegretWeight(*b.RegretWeight))
	}
	if b.SoftScale != 0 {
		opts = append(opts, WithSoftScale(b.SoftScale))
	}
	if b.AttributeScale != 0 {
		opts = append(opts, WithAttributeScale(b.AttributeScale))
	}
	if b.Reification != "" {
		r, err := ParseReification(b.Reification)
		if err != nil {
			return nil, &ConfigError{Field: "solver.reification", Message: err.Error()}
		}
		opts = append(opts, WithReification(r))
	}
	if b.NestedSoft != "" {
		p, err := ParseNestedSoft(b.NestedSoft)
		if err != nil {
			return nil, &ConfigError{Field: "solver.nested_soft", Message: err.Error()}
		}
		opts = append(opts, WithNestedSoft(p))
	}
	return opts, nil
}

// LoadProblem reads a YAML (or JSON) problem file. It returns the problem
// together with the solver options from its solver block. The problem is
// validated before it is returned.
func LoadProblem(r io.Reader) (*Problem, []SolverOption, error) {
	var file problemFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, nil, fmt.Errorf("decode problem: %w", err)
	}

	p := &Problem{
		Teams:    file.Teams,
		Capacity: file.Capacity,
		Agents:   file.Agents,
	}
	for i := range file.Rules {
		var raw any
		if err := file.Rules[i].Decode(&raw); err != nil {
			return nil, nil, &SchemaError{Path: fmt.Sprintf("rules[%d]", i), Message: err.Error()}
		}
		rule, err := decodeRule(raw, fmt.Sprintf("rules[%d]", i))
		if err != nil {
			return nil, nil, err
		}
		p.Rules = append(p.Rules, rule)
	}

	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	opts, err := file.Solver.options()
	if err != nil {
		return nil, nil, err
	}
	return p, opts, nil
}

// LoadProblemFile opens path and calls LoadProblem.
func LoadProblemFile(path string) (*Problem, []SolverOption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	p, opts, err := LoadProblem(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, opts, nil
}
