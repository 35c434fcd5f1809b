// Package cli wires the timetable commands:
//
//	timetable serve                          run the HTTP API and the solve workers
//	timetable solve -f a.yaml -f b.yaml      solve problem files concurrently
//	timetable validate -f schedule.yaml      report conflicts of a placement or a whole schedule
package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/pkg/logger"
)

// ErrConflictsFound is returned by validate when the checked placement is not valid.
var ErrConflictsFound = errors.New("conflicts found")

var verbose bool

// BuildCLI assembles the command tree.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "timetable",
		Short:         "School timetable validator and solver",
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log solver progress to stderr")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildSolveCommand())
	rootCmd.AddCommand(buildValidateCommand())

	return rootCmd
}

func cliLogger() *zap.Logger {
	l, err := logger.NewCLI(verbose)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
