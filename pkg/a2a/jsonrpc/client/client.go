// Package client implements the JSON-RPC HTTP binding of the A2A task
// protocol from the caller side.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/mbrtn/switchyard/pkg/a2a/types"
	"github.com/mbrtn/switchyard/pkg/errors"
)

// JSON-RPC method names of the task protocol.
const (
	MethodSendMessage = "message/send"
	MethodGetTask     = "tasks/get"
)

// Client wraps the JSON-RPC binding for one agent endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	headers    map[string]string
}

// Option configures the client.
type Option func(*Client)

// New creates a JSON-RPC client bound to an HTTP endpoint.
func New(endpoint string, opts ...Option) *Client {
	client := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithHeaders sets default headers for each request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) == 0 {
			return
		}
		c.headers = make(map[string]string, len(headers))
		for key, value := range headers {
			c.headers[key] = value
		}
	}
}

// Endpoint returns the endpoint the client is bound to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SendMessage invokes message/send and classifies the result as a task
// or a terminal message.
func (c *Client) SendMessage(ctx context.Context, params types.SendParams) (*types.SendResult, error) {
	raw, err := c.call(ctx, MethodSendMessage, params)
	if err != nil {
		return nil, err
	}
	result, err := types.DecodeSendResult(raw)
	if err != nil {
		return nil, errors.New(errors.CodeProtocol, "unexpected response format from agent", err).
			WithContext("endpoint", c.endpoint)
	}
	return result, nil
}

// GetTask invokes tasks/get for the given task id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*types.Task, error) {
	raw, err := c.call(ctx, MethodGetTask, types.GetTaskParams{ID: taskID})
	if err != nil {
		return nil, err
	}
	var task types.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, errors.New(errors.CodeProtocol, "malformed task in response", err).
			WithContext("endpoint", c.endpoint).
			WithContext("task_id", taskID)
	}
	return &task, nil
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, errors.New(errors.CodeProtocol, "encode params", err)
	}
	envelope := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  json.RawMessage(payload),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, errors.New(errors.CodeProtocol, "encode request", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.New(errors.CodeProtocol, "build request", err).
			WithContext("endpoint", c.endpoint)
	}
	request.Header.Set("Content-Type", "application/json")
	c.applyHeaders(ctx, request)

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.New(errors.CodeProtocol, "request forwarding failed", err).
			WithContext("endpoint", c.endpoint).
			WithContext("method", method).
			WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseHTTPError(resp, c.endpoint, method)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.New(errors.CodeProtocol, "malformed response envelope", err).
			WithContext("endpoint", c.endpoint).
			WithContext("method", method)
	}
	if decoded.Error != nil {
		return nil, errors.Newf(errors.CodeProtocol, "agent returned error %d: %s",
			decoded.Error.Code, decoded.Error.Message).
			WithContext("endpoint", c.endpoint).
			WithContext("method", method)
	}
	if len(decoded.Result) == 0 {
		return nil, errors.Newf(errors.CodeProtocol, "no result in agent response").
			WithContext("endpoint", c.endpoint).
			WithContext("method", method)
	}
	return decoded.Result, nil
}

func (c *Client) applyHeaders(ctx context.Context, request *http.Request) {
	for key, value := range c.headers {
		request.Header.Set(key, value)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(request.Header))
}

func parseHTTPError(response *http.Response, endpoint, method string) error {
	payload, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
	detail := strings.TrimSpace(string(payload))
	if detail == "" {
		detail = response.Status
	}
	return errors.Newf(errors.CodeProtocol, "HTTP error %d: %s", response.StatusCode, detail).
		WithContext("endpoint", endpoint).
		WithContext("method", method).
		WithRecoverable(true)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
