package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	logger "github.com/PolarWolf314/secretsync/internal/logging"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a single request when the caller sets no deadline.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024
)

// Error is one entry of a GraphQL "errors" array.
type Error struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// ResponseError is returned when the backend answers with GraphQL errors.
type ResponseError struct {
	Errors []Error
}

func (e *ResponseError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, gqlErr := range e.Errors {
		messages = append(messages, gqlErr.Message)
	}
	return "graphql: " + strings.Join(messages, "; ")
}

// IsUnauthorized reports whether the backend refused the caller's access.
func (e *ResponseError) IsUnauthorized() bool {
	for _, gqlErr := range e.Errors {
		if gqlErr.Message == "Unauthorized" {
			return true
		}
		switch gqlErr.Extensions.Code {
		case "UNAUTHENTICATED", "FORBIDDEN":
			return true
		}
	}
	return false
}

// IsUnauthorized reports whether err carries an unauthorized GraphQL response.
func IsUnauthorized(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.IsUnauthorized()
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

// Client posts GraphQL operations to a single endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	bearer     string
	timeout    time.Duration
	log        logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request deadline. Zero keeps DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a client for the GraphQL endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBearer returns a copy of the client that authenticates with token.
func (c *Client) WithBearer(token string) *Client {
	clone := *c
	clone.bearer = token
	return &clone
}

type requestIDKey struct{}

// ContextWithRequestID attaches the X-Request-Id sent by every request made with ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached to ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Do executes one operation. Variables are sent alongside the query and never
// interpolated into it. When out is non-nil the "data" object is decoded into it.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrNetwork, err)
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	c.log.Debugf("POST %s (request %s)", c.endpoint, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	if len(raw) > MaxResponseSize {
		return fmt.Errorf("%w: response exceeds %d bytes", kerrors.ErrNetwork, MaxResponseSize)
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: unexpected status %d", kerrors.ErrNetwork, resp.StatusCode)
		}
		return fmt.Errorf("%w: malformed response: %v", kerrors.ErrNetwork, err)
	}

	if len(decoded.Errors) > 0 {
		c.log.Debugf("request %s returned %d GraphQL error(s)", requestID, len(decoded.Errors))
		return &ResponseError{Errors: decoded.Errors}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", kerrors.ErrNetwork, resp.StatusCode)
	}

	if out == nil || len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("%w: unexpected response shape: %v", kerrors.ErrNetwork, err)
	}
	return nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", kerrors.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", kerrors.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", kerrors.ErrNetwork, err)
}
