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
	"time"
)

// Reification selects how strongly a rule compiled under an indicator
// literal is tied to that indicator.
type Reification int

const (
	// ReifyImplication enforces the rule only when the indicator holds.
	// A false indicator says nothing about the rule, so not(P) forbids the
	// active enforcement of P rather than asserting its negation.
	ReifyImplication Reification = iota

	// ReifyEquivalence ties the indicator to the truth of the rule in both
	// directions. Under this mode not(P) asserts the negation of P and
	// regex predicates gain a conditional form.
	ReifyEquivalence
)

// String returns the name used in problem files.
func (r Reification) String() string {
	switch r {
	case ReifyImplication:
		return "implication"
	case ReifyEquivalence:
		return "equivalence"
	default:
		return fmt.Sprintf("Reification(%d)", int(r))
	}
}

// NestedSoftPolicy decides what happens to a soft rule found under an or/not
// combinator, where a pairwise cost has no conditional meaning.
type NestedSoftPolicy int

const (
	// NestedSoftIgnore drops the rule and reports a Notice.
	NestedSoftIgnore NestedSoftPolicy = iota
	// NestedSoftReject fails compilation with a *SchemaError.
	NestedSoftReject
	// NestedSoftHoist adds the rule to the objective once, ignoring the
	// combinator, and reports a Notice.
	NestedSoftHoist
)

// String returns the name used in problem files.
func (p NestedSoftPolicy) String() string {
	switch p {
	case NestedSoftIgnore:
		return "ignore"
	case NestedSoftReject:
		return "reject"
	case NestedSoftHoist:
		return "hoist"
	default:
		return fmt.Sprintf("NestedSoftPolicy(%d)", int(p))
	}
}

// SolverOptions configures compilation and solving.
//
// Options control:
//   - the engine time budget
//   - the weights and integer scales of the objective
//   - the reification strength of or/not combinators
//   - debug logging
type SolverOptions struct {
	// Timeout bounds a single Engine.Solve call.
	// Set to 0 to rely on the caller's context only.
	// Default: 5s
	Timeout time.Duration

	// RegretWeight multiplies each agent's preference rank in the objective.
	// Default: 1.0
	RegretWeight float64

	// SoftScale converts fractional pairwise costs into integer
	// coefficients: each pair contributes int(diff*weight*SoftScale).
	// Default: 1000
	SoftScale int

	// AttributeScale quantizes coerced attribute values for range and
	// equals sums. Default: 1000
	AttributeScale int

	// Reification selects the strength of conditional compilation.
	// Default: ReifyImplication
	Reification Reification

	// NestedSoft decides the fate of soft rules under or/not.
	// Default: NestedSoftIgnore
	NestedSoft NestedSoftPolicy

	// Logger enables debug logging of compilation and solving.
	// When nil, no logging is performed.
	Logger *slog.Logger
}

// SolverOption is a functional option for configuring the solver.
type SolverOption func(*SolverOptions)

const (
	defaultTimeout        = 5 * time.Second
	defaultRegretWeight   = 1.0
	defaultSoftScale      = 1000
	defaultAttributeScale = 1000
)

// defaultSolverOptions returns the default solver configuration.
func defaultSolverOptions() SolverOptions {
	return SolverOptions{
		Timeout:        defaultTimeout,
		RegretWeight:   defaultRegretWeight,
		SoftScale:      defaultSoftScale,
		AttributeScale: defaultAttributeScale,
		Reification:    ReifyImplication,
		NestedSoft:     NestedSoftIgnore,
	}
}

func newSolverOptions(opts []SolverOption) SolverOptions {
	options := defaultSolverOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// WithTimeout sets the time budget of one engine call.
// Use 0 to disable the limit.
//
// Example:
//
//	solver := NewSolver(engine, WithTimeout(30*time.Second))
func WithTimeout(d time.Duration) SolverOption {
	return func(opts *SolverOptions) {
		opts.Timeout = max(d, 0)
	}
}

// WithRegretWeight sets the weight of the preference-rank term.
// A weight of 0 removes the term from the objective.
func WithRegretWeight(w float64) SolverOption {
	return func(opts *SolverOptions) {
		opts.RegretWeight = w
	}
}

// WithSoftScale sets the integer scale of pairwise soft costs.
// Non-positive values keep the default.
func WithSoftScale(scale int) SolverOption {
	return func(opts *SolverOptions) {
		if scale > 0 {
			opts.SoftScale = scale
		}
	}
}

// WithAttributeScale sets the quantization of attribute sums.
// Non-positive values keep the default.
func WithAttributeScale(scale int) SolverOption {
	return func(opts *SolverOptions) {
		if scale > 0 {
			opts.AttributeScale = scale
		}
	}
}

// WithReification selects how or/not combinators reify their children.
//
// Example:
//
//	solver := NewSolver(engine, WithReification(ReifyEquivalence))
func WithReification(r Reification) SolverOption {
	return func(opts *SolverOptions) {
		opts.Reification = r
	}
}

// WithNestedSoft selects the policy for soft rules under or/not.
func WithNestedSoft(p NestedSoftPolicy) SolverOption {
	return func(opts *SolverOptions) {
		opts.NestedSoft = p
	}
}

// WithLogger sets a structured logger for diagnostics.
// The logger receives debug messages during compilation and solving.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	solver := NewSolver(engine, WithLogger(logger))
func WithLogger(logger *slog.Logger) SolverOption {
	return func(opts *SolverOptions) {
		opts.Logger = logger
	}
}

// ParseReification maps a problem-file name onto a Reification.
func ParseReification(s string) (Reification, error) {
	switch s {
	case "", "implication":
		return ReifyImplication, nil
	case "equivalence":
		return ReifyEquivalence, nil
	default:
		return 0, fmt.Errorf("unknown reification %q", s)
	}
}

// ParseNestedSoft maps a problem-file name onto a NestedSoftPolicy.
func ParseNestedSoft(s string) (NestedSoftPolicy, error) {
	switch s {
	case "", "ignore":
		return NestedSoftIgnore, nil
	case "reject":
		return NestedSoftReject, nil
	case "hoist":
		return NestedSoftHoist, nil
	default:
		return 0, fmt.Errorf("unknown nested soft policy %q", s)
	}
}
