package reporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/andrej220/hamagent/internal/lg"
	dm "github.com/andrej220/hamagent/pkg/shared-models"
)

const CommandsPath = "/api/commands"

// StatusError is returned when the collector answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector returned status %s", e.Status)
}

// HTTPReporter POSTs records to the collector's commands endpoint.
type HTTPReporter struct {
	url        string
	httpClient *http.Client
	logger     lg.Logger
}

// CollectorURL builds http://host:port/api/commands.
func CollectorURL(host string, port uint16) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(int(port))) + CommandsPath
}

// NewHTTPReporter targets host:port. A zero timeout leaves the client
// without one.
func NewHTTPReporter(host string, port uint16, timeout time.Duration, logger lg.Logger) *HTTPReporter {
	if logger == nil {
		logger = lg.Discard
	}
	return &HTTPReporter{
		url:        CollectorURL(host, port),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (r *HTTPReporter) URL() string { return r.url }

// Report makes one POST attempt. It does not retry.
func (r *HTTPReporter) Report(ctx context.Context, rec dm.ResultRecord) error {
	payload, err := Encode(rec)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send result to collector: %w", err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	r.logger.Info("collector responded",
		lg.String("command", rec.Command),
		lg.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
