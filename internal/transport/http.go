// Package transport submits record batches to the remote collector
// over HTTP. Both endpoints take a JSON body, an API-key header and
// return success only on 2xx; everything else, including transport
// failures, means the batch stays queued for a later retry.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fieldtrace/fieldtrace/internal/record"
)

const (
	eventsPath  = "/v1/events"
	crashesPath = "/v1/crashes"

	apiKeyHeader = "X-API-Key"
)

// DefaultTimeout bounds a single submission when the caller configures
// none.
const DefaultTimeout = 30 * time.Second

// Client is the HTTP collector client.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

// New creates a collector client. timeout bounds each request;
// non-positive values fall back to DefaultTimeout.
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// SubmitEvents posts one event batch.
func (c *Client) SubmitEvents(ctx context.Context, batch record.EventBatch) error {
	return c.post(ctx, eventsPath, batch)
}

// SubmitCrashes posts one crash batch.
func (c *Client) SubmitCrashes(ctx context.Context, batch record.CrashBatch) error {
	return c.post(ctx, crashesPath, batch)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return record.ErrTransport("ENCODE_FAILED", "marshaling batch").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return record.ErrTransport("REQUEST_FAILED", "building request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return record.ErrTransport("NETWORK_FAILED", "submitting batch").WithCause(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return record.ErrTransport(
			fmt.Sprintf("STATUS_%d", resp.StatusCode),
			fmt.Sprintf("collector rejected batch at %s", path),
		)
	}

	c.logger.Debug("batch accepted", "path", path, "bytes", len(data))
	return nil
}
