package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/andrej220/hamagent/internal/lg"
)

var ErrEmptyCommand = errors.New("empty command line")

// Error reports a command that could not be started or was interrupted
// before it finished.
type Error struct {
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("execute %q: %v", e.Command, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LocalExecutor runs commands as child processes of the agent.
// The command line is split on whitespace, no shell is involved.
type LocalExecutor struct {
	logger lg.Logger
}

func NewLocalExecutor(logger lg.Logger) *LocalExecutor {
	if logger == nil {
		logger = lg.Discard
	}
	return &LocalExecutor{logger: logger}
}

// Run starts the command, waits for it to exit and returns its stdout.
// A non-zero exit status is not an error: whatever the program printed is
// still returned.
func (e *LocalExecutor) Run(ctx context.Context, command string) (string, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return "", ErrEmptyCommand
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", &Error{Command: command, Err: ctxErr}
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		e.logger.Warn("command exited with non-zero status",
			lg.String("command", command),
			lg.Int("exit_code", exitErr.ExitCode()))
	default:
		return "", &Error{Command: command, Err: err}
	}

	return Decode(stdout.Bytes()), nil
}

// Decode turns raw process output into text, replacing every invalid
// UTF-8 sequence with U+FFFD.
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
