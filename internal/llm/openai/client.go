package openai

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chatgpt-cli/chatgpt-cli/internal/logger"
)

// DefaultBaseURL is the public OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// APIError represents an HTTP error that carried no decodable error object.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("openai api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("openai api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to an OpenAI-compatible responses endpoint.
type Client struct {
	// baseURL points to the API root or directly at the responses endpoint.
	baseURL string
	// apiKey is sent as a bearer token, if provided.
	apiKey string
	// httpClient executes requests.
	httpClient *http.Client
	// logger records request lifecycle details.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient constructs a client. A zero timeout leaves streams unbounded.
func NewClient(baseURL string, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// responsesURL normalizes the base URL to a responses endpoint.
func (c *Client) responsesURL() string {
	if strings.HasSuffix(c.baseURL, "/responses") {
		return c.baseURL
	}
	return c.baseURL + "/responses"
}
