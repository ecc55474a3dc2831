package executor

import (
	"context"
)

// Executor knows how to run a single command line to completion
// and return what it printed on standard output.
type Executor interface {
	Run(ctx context.Context, command string) (string, error)
}
