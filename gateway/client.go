package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultRequestTimeout = 15 * time.Second

// APIError is a non-2xx gateway response. The message is whatever the
// gateway put in the body's "error" or "message" field, propagated verbatim
// so the UI layer can show it directly.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is a thin typed client over the marketplace API gateway's JSON
// endpoints. It holds no session state: callers pass a bearer token (or ""),
// and the session manager decides which token is current.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a gateway client for the given base URL.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// do performs a JSON request against the gateway. token may be empty for
// unauthenticated endpoints. out, when non-nil, receives the decoded JSON
// body of a successful response.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[Client.do] json.Marshal: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("[Client.do] http.NewRequestWithContext: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Msg("gateway request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("[Client.do] %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var payload json.RawMessage
	if isJSON(resp.Header.Get("Content-Type")) {
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			payload = nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(payload, resp.Status),
		}
	}

	if out != nil && payload != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("[Client.do] decoding %s response: %w", path, err)
		}
	}
	return nil
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}

// errorMessage pulls the gateway's error text out of a failure body. The
// gateway is inconsistent about which field it uses, so check "error" first,
// then "message", then fall back to the HTTP status line.
func errorMessage(payload json.RawMessage, statusLine string) string {
	if payload != nil {
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &body); err == nil {
			if body.Error != "" {
				return body.Error
			}
			if body.Message != "" {
				return body.Message
			}
		}
	}
	return statusLine
}
