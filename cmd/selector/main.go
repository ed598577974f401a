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
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "selector",
	Short: "Assign agents to equally sized teams under declarative rules",
	Long: `selector reads problem files (teams, capacity, agents with preferences and
attributes, rule trees) and compiles them into a pseudo-boolean model.

Hard rules must hold in every assignment; soft rules and agent preferences
shape the objective.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// slogger bridges the zap logger into the library's slog hook.
func slogger() *slog.Logger {
	return slog.New(zapslog.NewHandler(logger.Core()))
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 0, "engine time budget per problem (overrides the file)")
	solveCmd.Flags().IntVar(&solveParallel, "parallel", 1, "number of problems solved concurrently")
	solveCmd.Flags().StringVar(&solveReification, "reification", "", "implication or equivalence (overrides the file)")
	solveCmd.Flags().BoolVar(&solveAudit, "audit", false, "print the compiled constraints before each roster")

	compileCmd.Flags().BoolVar(&compileCollapsed, "collapsed", false, "one line per entry")

	rootCmd.AddCommand(solveCmd, compileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

