// Package reporter delivers command results to the collector and to any
// additional sinks configured for the agent.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	dm "github.com/andrej220/hamagent/pkg/shared-models"
)

// Reporter makes a single delivery attempt for one record.
type Reporter interface {
	Report(ctx context.Context, rec dm.ResultRecord) error
}

// Closer is implemented by reporters that hold connections.
type Closer interface {
	Close() error
}

// Func adapts a plain function to Reporter.
type Func func(ctx context.Context, rec dm.ResultRecord) error

func (f Func) Report(ctx context.Context, rec dm.ResultRecord) error { return f(ctx, rec) }

// Encode is the wire form shared by every reporter: compact JSON with the
// fields command, output, device_id. Shell text such as <, > and & is
// written as is.
func Encode(rec dm.ResultRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Multi delivers to every reporter in order. All of them are attempted;
// their errors are joined.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, rec dm.ResultRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every member that holds a connection.
func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if c, ok := r.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
