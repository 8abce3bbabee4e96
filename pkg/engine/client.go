package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	opserrors "github.com/carsch18/opsflow/pkg/errors"
	"github.com/carsch18/opsflow/pkg/workflow"
)

const workflowsPath = "/api/v1/workflows"

// Client talks to the remote workflow engine over HTTP with JSON bodies.
// The editor never mutates workflows through it; the engine owns
// persistence and the client only fetches, executes, and clones.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Config holds connection settings for the engine service.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewClient creates a client for the engine at config.BaseURL.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL cannot be empty")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: config.BaseURL,
		token:   config.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchWorkflow retrieves the workflow document for the given id.
// A 404 maps to ErrNotFound so callers can show the not-found
// placeholder; any other failure maps to ErrRemoteUnavailable.
func (c *Client) FetchWorkflow(ctx context.Context, id string) (*workflow.Workflow, error) {
	status, body, err := c.do(ctx, http.MethodGet, workflowsPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, fmt.Errorf("workflow %s: %w", id, opserrors.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, remoteError(status, body)
	}

	wf, err := workflow.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("engine returned invalid workflow document: %w", err)
	}
	return wf, nil
}

// Execute starts a run of the workflow and returns the engine's batch
// result. The engine's own error text, when present, is surfaced
// unchanged so the operator sees exactly what the engine reported.
func (c *Client) Execute(ctx context.Context, id string, req ExecuteRequest) (*ExecuteResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, workflowsPath+"/"+url.PathEscape(id)+"/execute", req)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, remoteError(status, body)
	}

	return ParseExecuteResponse(body)
}

// Clone asks the engine to copy the workflow and returns the new
// workflow's summary so the editor can immediately re-open on it.
func (c *Client) Clone(ctx context.Context, id string) (*CloneResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, workflowsPath+"/"+url.PathEscape(id)+"/clone", nil)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return nil, remoteError(status, body)
	}

	var resp CloneResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse clone response: %w (body: %s)", err, string(body))
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("clone response missing workflow id (body: %s)", string(body))
	}
	return &resp, nil
}

// Ping verifies the engine is reachable. Used by the credential and
// sim commands before handing the endpoint to the editor.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, body, err := c.do(pingCtx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return remoteError(status, body)
	}
	return nil
}

// do performs a single HTTP exchange and returns the status and body.
// Transport-level failures wrap ErrRemoteUnavailable; status handling
// is left to the caller because fetch treats 404 specially.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", opserrors.ErrRemoteUnavailable, err)
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			// Response was already read; nothing useful to do here.
			_ = err
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return httpResp.StatusCode, body, nil
}

// remoteError builds the error for a non-OK engine response. When the
// body carries an error field its text is kept verbatim.
func remoteError(status int, body []byte) error {
	if msg := gjson.GetBytes(body, "error").String(); msg != "" {
		return fmt.Errorf("%w: %s", opserrors.ErrRemoteUnavailable, msg)
	}
	return fmt.Errorf("%w: engine returned status %d", opserrors.ErrRemoteUnavailable, status)
}
