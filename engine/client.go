package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chat-layer/httpclient"
)

// Client is a thin synchronous wrapper over the remote assistant engine's
// thread/message/run primitives. It performs no polling and no retries;
// pacing a run to completion is the run machine's job.
type Client struct {
	base   *httpclient.BaseClient
	apiKey string
}

// New creates a Client against baseURL (e.g. "https://api.openai.com/v1").
// Runs can take minutes end to end but each individual call is short; the
// timeout here bounds single requests only.
func New(baseURL, apiKey string) *Client {
	httpClient := httpclient.New(httpclient.Config{Timeout: 60 * time.Second})
	return &Client{
		base:   httpclient.NewBaseClientWithClient(httpClient, baseURL),
		apiKey: apiKey,
	}
}

// engineErrorBody is the wire shape of engine failure responses.
type engineErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// doJSON executes one request and decodes the response into out (skipped
// when out is nil). Failures of any kind come back as *Error.
func (c *Client) doJSON(ctx context.Context, method, relPath string, query url.Values, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return &Error{Code: "encode_failed", Message: err.Error()}
		}
		body = bytes.NewReader(buf)
	}

	req, err := c.base.NewRequest(ctx, method, relPath, query, body)
	if err != nil {
		return &Error{Code: "request_failed", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.base.Do(req)
	if err != nil {
		return &Error{Code: "transport_failed", Message: err.Error()}
	}
	defer resp.Body.Close()

	const maxBodySize = 5 * 1024 * 1024
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if readErr != nil {
		return &Error{Code: "read_failed", Message: readErr.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb engineErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			code := eb.Error.Code
			if code == "" {
				code = eb.Error.Type
			}
			return &Error{Code: code, Message: eb.Error.Message}
		}
		return &Error{
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: string(raw),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Code: "decode_failed", Message: err.Error()}
	}
	return nil
}

// CreateThread creates a remote thread seeded with the given messages.
func (c *Client) CreateThread(ctx context.Context, messages []NewMessage) (*Thread, error) {
	payload := map[string]any{}
	if len(messages) > 0 {
		payload["messages"] = messages
	}
	var t Thread
	if err := c.doJSON(ctx, http.MethodPost, "/threads", nil, payload, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// AddMessage appends a message to an existing thread.
func (c *Client) AddMessage(ctx context.Context, threadID, role, content string, fileIDs []string) (*Message, error) {
	payload := map[string]any{
		"role":    role,
		"content": content,
	}
	if len(fileIDs) > 0 {
		payload["file_ids"] = fileIDs
	}
	var m Message
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/messages", nil, payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

// ListMessages lists thread messages. order is "asc" or "desc".
func (c *Client) ListMessages(ctx context.Context, threadID, order string, limit int) ([]Message, error) {
	query := url.Values{}
	if order != "" {
		query.Set("order", order)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var env listEnvelope[Message]
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/messages", query, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateRun launches the assistant against the thread's current messages.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID, instructions string, tools []map[string]any) (*Run, error) {
	payload := map[string]any{
		"assistant_id": assistantID,
	}
	if instructions != "" {
		payload["instructions"] = instructions
	}
	if len(tools) > 0 {
		payload["tools"] = tools
	}
	var r Run
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/runs", nil, payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRun fetches one run snapshot.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var r Run
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns lists the thread's runs, most recent first.
func (c *Client) ListRuns(ctx context.Context, threadID string) ([]Run, error) {
	var env listEnvelope[Run]
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/runs", nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// SubmitToolOutputs resolves a requires_action run with tool results.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	payload := map[string]any{"tool_outputs": outputs}
	var r Run
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", nil, payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CancelRun requests cancellation of an in-flight run.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var r Run
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/cancel", nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteThread removes the remote thread and everything in it.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/threads/"+threadID, nil, nil, nil)
}
