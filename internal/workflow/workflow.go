// Package workflow runs an ordered list of steps against a fresh tablespace.
// Execution is strictly sequential and fail-fast: the first failing step
// aborts the run, and because steps commit atomically the tablespace then
// reflects exactly the effects of the steps before it.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leengari/tabflow/internal/steps"
	"github.com/leengari/tabflow/internal/table"
)

// Workflow is an ordered sequence of steps.
type Workflow struct {
	Steps []steps.Step
}

// StepError attributes a failure to the step that raised it.
type StepError struct {
	Index int
	Type  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run executes the workflow's steps in declared order against a new
// tablespace rooted at root. It returns the final tablespace on success; on
// failure the returned error is a *StepError naming the failing step.
func (w *Workflow) Run(ctx context.Context, root string) (*table.TableSpace, error) {
	runID := uuid.NewString()
	log := slog.With(slog.String("run_id", runID))
	env := &steps.Env{TS: table.NewTableSpace(), Root: root}

	log.Info("Workflow started",
		slog.Int("steps", len(w.Steps)),
		slog.String("root", root),
	)
	started := time.Now()

	for i, step := range w.Steps {
		if err := ctx.Err(); err != nil {
			return nil, &StepError{Index: i, Type: step.Kind(), Err: err}
		}
		log.Debug("Step started",
			slog.Int("index", i),
			slog.String("type", step.Kind()),
		)
		stepStart := time.Now()
		if err := step.Execute(ctx, env); err != nil {
			log.Error("Step failed",
				slog.Int("index", i),
				slog.String("type", step.Kind()),
				slog.String("error", err.Error()),
			)
			return nil, &StepError{Index: i, Type: step.Kind(), Err: err}
		}
		log.Debug("Step completed",
			slog.Int("index", i),
			slog.String("type", step.Kind()),
			slog.Duration("elapsed", time.Since(stepStart)),
		)
	}

	log.Info("Workflow completed",
		slog.Int("steps", len(w.Steps)),
		slog.Int("tables", env.TS.Len()),
		slog.Duration("elapsed", time.Since(started)),
	)
	return env.TS, nil
}
