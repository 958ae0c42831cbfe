// Package api implements the request/response control surface of the
// remote analysis service: starting, continuing and cancelling
// optimization workflows and fetching paragraph previews. The push-event
// side of the protocol lives in internal/stream.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/penflow/penflow/types"
)

const defaultTimeout = 30 * time.Second

// Client talks to the analysis service.
type Client struct {
	baseURL string
	token   string

	// control has a request timeout; stream must not, since the event
	// stream stays open for the life of a session.
	control *http.Client
	stream  *http.Client
}

// NewClient creates a client for the service at baseURL. Timeout applies to
// control calls only; <= 0 uses the default.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		control: &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

// StartRequest configures a new optimization workflow.
type StartRequest struct {
	Content    string   `json:"content"`
	Scope      string   `json:"scope"`
	Paragraphs []int    `json:"paragraphs,omitempty"`
	Dimensions []string `json:"dimensions,omitempty"`
	Mode       string   `json:"mode"`
}

// ContinueRequest resumes a paused workflow with the user's latest content.
type ContinueRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// ParagraphInfo describes one paragraph in a preview response.
type ParagraphInfo struct {
	Index   int    `json:"index"`
	Preview string `json:"preview"`
	Length  int    `json:"length"`
}

// ParagraphPreview is the response of the preview-paragraphs call.
type ParagraphPreview struct {
	TotalParagraphs int             `json:"total_paragraphs"`
	Paragraphs      []ParagraphInfo `json:"paragraphs"`
}

// Start begins a workflow and returns the open event stream body. The
// caller owns the body and must close it; handing it to a stream.Adapter
// does both.
func (c *Client) Start(ctx context.Context, req StartRequest) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/optimize/start", req)
}

// Continue resumes a paused workflow and returns the reopened event stream.
func (c *Client) Continue(ctx context.Context, sessionID, content string) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/optimize/continue", ContinueRequest{
		SessionID: sessionID,
		Content:   content,
	})
}

// Cancel requests server-side teardown of a workflow. Best effort; the
// client does not wait for workflow state to settle.
func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	body := map[string]string{"session_id": sessionID}
	resp, err := c.post(ctx, c.control, "/api/optimize/cancel", body, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return checkStatus(resp)
}

// PreviewParagraphs returns the server's paragraph segmentation of content,
// used to populate scope selection.
func (c *Client) PreviewParagraphs(ctx context.Context, content string) (*ParagraphPreview, error) {
	body := map[string]string{"content": content}
	resp, err := c.post(ctx, c.control, "/api/optimize/paragraphs", body, "application/json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var preview ParagraphPreview
	if err := json.NewDecoder(resp.Body).Decode(&preview); err != nil {
		return nil, fmt.Errorf("decode paragraph preview: %w", err)
	}
	return &preview, nil
}

func (c *Client) openStream(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	resp, err := c.post(ctx, c.stream, path, payload, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, path string, payload any, accept string) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis service unreachable: %w", err)
	}
	return resp, nil
}

// checkStatus converts a non-2xx response into an error, preferring the
// service's structured protocol error when the body carries one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var protoErr types.ProtocolError
	if err := json.Unmarshal(data, &protoErr); err == nil && protoErr.Message != "" {
		return &protoErr
	}
	return fmt.Errorf("analysis service returned %s", resp.Status)
}
