package engine

import (
	"context"

	"gavel/internal/sandbox/result"
	"gavel/internal/sandbox/spec"
)

// Engine executes a RunSpec inside an isolated child process.
// A returned error is an executor fault; resource violations and
// program crashes are reported through the outcome instead.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionOutcome, error)
}
