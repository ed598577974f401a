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
	"errors"
	"fmt"
)

// ErrInvalidProblem is wrapped by every *ConfigError so callers can test for
// structural configuration problems with errors.Is.
var ErrInvalidProblem = errors.New("invalid problem")

// ConfigError reports inconsistent team, agent or capacity settings.
// It is detected before any model is built.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid problem: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid problem: %s", e.Message)
}

// Unwrap returns ErrInvalidProblem
func (e *ConfigError) Unwrap() error {
	return ErrInvalidProblem
}

// SchemaError reports a rule node that is missing a required field, names
// an unknown kind or operator, or is otherwise malformed. Path locates the
// node inside the payload, e.g. "$.rule.rules[1]".
type SchemaError struct {
	Path    string
	Message string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("rule schema: %s", e.Message)
	}
	return fmt.Sprintf("rule schema at %s: %s", e.Path, e.Message)
}

// UnsatisfiableRuleError reports a regex rule whose pattern matches no agent.
// Such a rule can never hold, so compilation refuses it.
type UnsatisfiableRuleError struct {
	Key     string
	Pattern string
}

// Error implements the error interface
func (e *UnsatisfiableRuleError) Error() string {
	return fmt.Sprintf("no agents match regex pattern %q for key %s", e.Pattern, e.Key)
}

// CoercionError reports an attribute value that cannot be read as a number.
type CoercionError struct {
	Key   string
	Value any
}

// Error implements the error interface
func (e *CoercionError) Error() string {
	return fmt.Sprintf("attribute %s: cannot use %v (%T) as a number", e.Key, e.Value, e.Value)
}

// EngineError wraps a malfunction of the solving engine. Infeasibility and
// timeouts are not engine errors; they are reported through Solution.Status.
type EngineError struct {
	Err error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine failed: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Err
}

// ViolationError is returned by Model.Check for the first constraint an
// assignment does not satisfy.
type ViolationError struct {
	Index      int
	Constraint Constraint
}

// Error implements the error interface
func (e *ViolationError) Error() string {
	return fmt.Sprintf("constraint %d violated: %s", e.Index, e.Constraint)
}

var (
	_ error = (*ConfigError)(nil)
	_ error = (*SchemaError)(nil)
	_ error = (*UnsatisfiableRuleError)(nil)
	_ error = (*CoercionError)(nil)
	_ error = (*EngineError)(nil)
	_ error = (*ViolationError)(nil)
)
