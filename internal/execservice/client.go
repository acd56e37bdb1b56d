package execservice

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
)

// defaultTimeout bounds a single dispatch end to end. The execution
// service enforces its own per-run time limit (5s), so anything beyond
// this is a hung connection, not a slow program.
const defaultTimeout = 30 * time.Second

// Client is the HTTP implementation of Runner.
//
// It holds its own http.Client so the transport timeout is configured in
// exactly one place. Client is safe for concurrent use; every playground
// session shares the one instance wired up in server.New.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ Runner = (*Client)(nil)

// NewClient creates a Client for the execution service at baseURL.
// A trailing slash on baseURL is tolerated: "http://runner:9000" and
// "http://runner:9000/" both dispatch to http://runner:9000/run.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// NewClientWithHTTPClient creates a Client using the caller's http.Client.
// Used by tests to inject httptest transports and custom timeouts.
func NewClientWithHTTPClient(baseURL string, hc *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger,
	}
}

// Run POSTs the request to {base}/run and decodes the response.
//
// Error cases are deliberately coarse — the caller (the run lifecycle
// controller) treats every dispatch failure identically, so there is no
// typed error taxonomy here, just wrapped context for the logs.
func (c *Client) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		// Only reachable if RunRequest grows an unencodable field.
		return nil, fmt.Errorf("execservice: encoding run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("execservice: building run request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execservice: dispatching run request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error message; the service
		// returns short JSON error blobs, never megabytes.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("execservice: service returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("execservice: decoding run response: %w", err)
	}

	c.logger.Debug("run dispatched",
		slog.String("language", req.Language),
		slog.String("message", result.Message),
		slog.Duration("roundTrip", time.Since(start)),
	)

	return &result, nil
}
