// Package steps implements the workflow step families: file I/O, column
// transforms, aggregation, join, sort and concatenation. Every step reads
// tables from the tablespace by name and commits atomically: output tables
// are fully built before they are published, so a failing step leaves the
// tablespace untouched.
package steps

import (
	"context"
	"path/filepath"

	"github.com/leengari/tabflow/internal/table"
)

// Step is one declared workflow operation.
type Step interface {
	// Kind returns the step's document tag.
	Kind() string
	// Execute runs the step against the environment's tablespace.
	Execute(ctx context.Context, env *Env) error
}

// Env is the per-run execution environment shared by all steps of a workflow.
type Env struct {
	TS *table.TableSpace
	// Root is the base directory relative file paths resolve against.
	Root string
}

// ResolvePath resolves a workflow file path against the run's root folder.
// Absolute paths pass through unchanged.
func (e *Env) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.Root, filepath.FromSlash(p))
}
