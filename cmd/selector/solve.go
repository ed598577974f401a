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

package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	selector "github.com/front-depiction/project-selector"
)

// Exit codes of the solve command.
const (
	exitInfeasible = 2
	exitTimeout    = 3
)

var (
	solveTimeout     time.Duration
	solveParallel    int
	solveReification string
	solveAudit       bool

	compileCollapsed bool
)

// solveCmd solves one or more problem files
var solveCmd = &cobra.Command{
	Use:   "solve FILE...",
	Short: "Solve problem files and print the team rosters",
	Long: `Compiles each problem file and runs the SAT engine on it. Files are solved
independently, up to --parallel at a time; rosters are printed in argument order.

Exit status is 2 if any problem is infeasible and 3 if any ran out of time
without an assignment.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSolve,
}

// compileCmd prints the audit trail of a problem file
var compileCmd = &cobra.Command{
	Use:   "compile FILE",
	Short: "Compile a problem file and print the constraints it adds",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

// solveOutcome is the result of one file.
type solveOutcome struct {
	path     string
	solution *selector.Solution
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcomes := make([]solveOutcome, len(args))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(solveParallel, 1))

	for i, path := range args {
		eg.Go(func() error {
			sol, err := solveFile(egCtx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			outcomes[i] = solveOutcome{path: path, solution: sol}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	return report(cmd.OutOrStdout(), outcomes)
}

func solveFile(ctx context.Context, path string) (*selector.Solution, error) {
	problem, opts, err := selector.LoadProblemFile(path)
	if err != nil {
		return nil, err
	}
	opts = append(opts, selector.WithLogger(slogger().With("file", path)))
	if solveTimeout > 0 {
		opts = append(opts, selector.WithTimeout(solveTimeout))
	}
	if solveReification != "" {
		r, err := selector.ParseReification(solveReification)
		if err != nil {
			return nil, err
		}
		opts = append(opts, selector.WithReification(r))
	}

	start := time.Now()
	sol, err := selector.NewSolver(selector.NewSATEngine(), opts...).Solve(ctx, problem)
	if err != nil {
		return nil, err
	}
	logger.Info("problem solved",
		zap.String("file", path),
		zap.Stringer("status", sol.Status),
		zap.Int("total_regret", sol.TotalRegret),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sol, nil
}

func report(w io.Writer, outcomes []solveOutcome) error {
	code := 0
	for _, o := range outcomes {
		fmt.Fprintf(w, "== %s\n", o.path)
		if solveAudit {
			fmt.Fprintln(w, o.solution.Compilation)
		}
		fmt.Fprintln(w, o.solution)
		for _, n := range o.solution.Compilation.Notices {
			fmt.Fprintf(w, "notice: %s\n", n)
		}

		switch o.solution.Status {
		case selector.StatusInfeasible:
			code = max(code, exitInfeasible)
		case selector.StatusTimeout:
			code = max(code, exitTimeout)
		}
	}
	if code != 0 {
		return &exitError{code: code, msg: "some problems have no assignment"}
	}
	return nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	problem, opts, err := selector.LoadProblemFile(args[0])
	if err != nil {
		return err
	}
	opts = append(opts, selector.WithLogger(slogger()))

	comp, err := selector.NewSolver(nil, opts...).Compile(problem)
	if err != nil {
		return err
	}

	var reporter selector.Reporter = &selector.DefaultReporter{}
	if compileCollapsed {
		reporter = &selector.CollapsedReporter{}
	}
	fmt.Fprintln(cmd.OutOrStdout(), reporter.Report(comp.Result))

	stats := comp.Model.Stats()
	logger.Debug("model size",
		zap.Int("vars", stats.Vars),
		zap.Int("linear", stats.Linear),
		zap.Int("clauses", stats.Clauses),
		zap.Int("products", stats.Products),
	)
	return nil
}
