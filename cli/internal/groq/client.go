// Package groq provides an HTTP client for Groq's OpenAI-compatible API
// (chat completions and model listing).
package groq

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

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"aicommit/cli/internal/trace"
	"aicommit/cli/internal/version"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.groq.com"

	chatCompletionsPath = "/openai/v1/chat/completions"
	modelsPath          = "/openai/v1/models"

	_defaultTimeout = 60 * time.Second
	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 8 << 20
)

var (
	// ErrUnreachable indicates the server could not be reached (connection refused, DNS, TLS).
	ErrUnreachable = errors.New("groq server unreachable")
	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("groq request timed out")
	// ErrProvider indicates the provider answered with an error payload or a non-2xx status.
	ErrProvider = errors.New("groq provider error")
	// ErrMalformedResponse indicates a body that does not match the expected shape.
	ErrMalformedResponse = errors.New("groq malformed response")
)

// Client calls the Groq API. Zero value is not valid; use NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     *trace.Tracer
}

type clientOptions struct {
	baseURL string
	base    *http.Client
	timeout time.Duration
	tracer  *trace.Tracer
}

// Option configures NewClient.
type Option func(*clientOptions)

// WithBaseURL overrides DefaultBaseURL. An empty value keeps the default.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithHTTPClient sets the client whose transport carries the authenticated requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.base = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithTracer writes request details to tr.
func WithTracer(tr *trace.Tracer) Option {
	return func(o *clientOptions) { o.tracer = tr }
}

// NewClient builds a client authenticated with apiKey as a bearer token.
func NewClient(apiKey string, opts ...Option) *Client {
	o := clientOptions{baseURL: DefaultBaseURL, timeout: _defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	base := o.base
	if base == nil {
		base = &http.Client{}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey}))
	hc.Timeout = o.timeout
	return &Client{
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		httpClient: hc,
		tracer:     o.tracer,
	}
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateChatCompletion sends messages to model and returns the decoded response.
// The response is guaranteed to have at least one choice.
func (c *Client) CreateChatCompletion(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	payload := ChatRequest{Model: model, Messages: messages}
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, chatCompletionsPath, payload, &out); err != nil {
		return nil, fmt.Errorf("groq chat: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("groq chat: %w: no choices in response", ErrMalformedResponse)
	}
	return &out, nil
}

// Models lists the models available to the API key.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, modelsPath, nil, &raw); err != nil {
		return nil, fmt.Errorf("groq models: %w", err)
	}
	models, err := decodeModels(raw)
	if err != nil {
		return nil, fmt.Errorf("groq models: %w", err)
	}
	return models, nil
}

// decodeModels accepts both the {"object":"list","data":[...]} envelope and a bare array.
func decodeModels(raw json.RawMessage) ([]Model, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var models []Model
		if err := json.Unmarshal(trimmed, &models); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return models, nil
	}
	var list modelList
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if list.Data == nil {
		return nil, fmt.Errorf("%w: missing data field", ErrMalformedResponse)
	}
	return list.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-Id", requestID)

	c.tracer.Section("HTTP " + method + " " + path)
	c.tracer.Field("url", req.URL.String())
	c.tracer.Field("request_id", requestID)
	done := c.tracer.Start("request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		done()
		return transportError(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	done()
	if err != nil {
		return transportError(err)
	}
	c.tracer.Field("status", resp.StatusCode)
	c.tracer.Field("bytes", len(data))

	if apiErr := probeError(data); apiErr != nil {
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Message: msg, StatusCode: resp.StatusCode}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// probeError returns the provider error carried in an {"error": ...} body, if any.
// Success bodies never carry the field, so this runs before the success decode.
func probeError(data []byte) *APIError {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil
	}
	raw := bytes.TrimSpace(envelope.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var apiErr APIError
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &apiErr.Message); err != nil {
			apiErr.Message = string(raw)
		}
		return &apiErr
	}
	if err := json.Unmarshal(raw, &apiErr); err != nil {
		apiErr.Message = string(raw)
	}
	return &apiErr
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrUnreachable, err)
}
