package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leengari/tabflow/internal/logging"
	"github.com/leengari/tabflow/internal/workflow"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tabflow",
		Short:         "tabflow executes tabular data workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var (
		chdir    string
		logLevel = levelValue(slog.LevelInfo)
		seqURL   string
	)
	cmd := &cobra.Command{
		Use:   "run <workflow file>",
		Short: "Run a workflow document (YAML or JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeFn := logging.Setup(slog.Level(logLevel), seqURL)
			defer closeFn()

			w, err := workflow.Load(args[0])
			if err != nil {
				printError(err)
				return err
			}
			if _, err := w.Run(cmd.Context(), chdir); err != nil {
				printError(err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chdir, "chdir", ".", "directory relative file paths resolve against")
	cmd.Flags().Var(&logLevel, "log-level", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&seqURL, "seq-url", "", "Seq ingestion endpoint for structured logs")
	return cmd
}

// levelValue is a pflag.Value holding an slog level.
type levelValue slog.Level

var _ pflag.Value = (*levelValue)(nil)

func (l *levelValue) String() string { return slog.Level(*l).String() }

func (l *levelValue) Set(s string) error {
	level, err := logging.ParseLevel(s)
	if err != nil {
		return err
	}
	*l = levelValue(level)
	return nil
}

func (l *levelValue) Type() string { return "level" }

// printError reports a run failure on stderr, naming the failing step when
// the error carries one.
func printError(err error) {
	var stepErr *workflow.StepError
	if errors.As(err, &stepErr) {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr,
			"workflow failed at step %d (%s): %v\n",
			stepErr.Index, stepErr.Type, stepErr.Err)
		return
	}
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %v\n", err)
}
