package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/walletops/churnd/pkg/logger"
)

// Client issues JSON-RPC 2.0 requests to a wallet service or chain daemon.
// All transport and protocol failures are normalized into *Error.
type Client struct {
	http *resty.Client
	url  string
}

// New creates a client for the given endpoint. When username and password
// are both set, requests authenticate via HTTP digest auth.
func New(url, username, password string) *Client {
	httpClient := resty.New().SetBaseURL(url)
	if username != "" && password != "" {
		httpClient.SetDigestAuth(username, password)
	}
	return &Client{
		http: httpClient,
		url:  url,
	}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Error  *respError      `json:"error"`
	Result json.RawMessage `json:"result"`
}

type respError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error is the single error type produced by the RPC boundary. Code is the
// service's error code, or 0 for transport-level failures.
type Error struct {
	Method  string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("rpc %s: %s (code %d)", e.Method, e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Call issues a single JSON-RPC request and decodes the result into result
// when it is non-nil. The response's error field is checked before the
// result is trusted.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	body := request{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/json_rpc")
	if err != nil {
		return &Error{Method: method, Err: err}
	}
	if resp.IsError() {
		return &Error{Method: method, Message: fmt.Sprintf("http status %s", resp.Status())}
	}

	var env response
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return &Error{Method: method, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if env.Error != nil {
		logger.DebugCF("rpc", "Service returned error", map[string]any{
			"method":  method,
			"code":    env.Error.Code,
			"message": env.Error.Message,
		})
		return &Error{Method: method, Code: env.Error.Code, Message: env.Error.Message}
	}

	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return &Error{Method: method, Err: fmt.Errorf("decoding result: %w", err)}
		}
	}

	return nil
}
