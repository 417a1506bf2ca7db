package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/frahmantamala/salon-portal/internal"
)

// Credentials supplies the auth token attached to outgoing requests.
type Credentials interface {
	Token() string
}

// StaticToken is a fixed credential, e.g. a caller's token captured for a long-lived session.
type StaticToken string

func (t StaticToken) Token() string {
	return string(t)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport overrides the instrumented default transport, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to the salon REST API. It holds no auth state of its own; a token comes
// from the Credentials bound with WithCredentials or from the request context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := config.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	return &Client{
		baseURL:    NormalizeBaseURL(config.BaseURL),
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		logger:     logger,
	}
}

// NormalizeBaseURL trims trailing slashes and makes sure the URL ends with /api.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		base = "http://localhost:8000"
	}
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	return base
}

// WithCredentials returns a copy of the client bound to creds.
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) token(ctx context.Context) string {
	if token := internal.TokenFromContext(ctx); token != "" {
		return token
	}
	if c.creds != nil {
		return c.creds.Token()
	}
	return ""
}

func (c *Client) endpoint(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do sends a JSON request and decodes a 2xx body into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	raw, err := c.DoRaw(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return internal.NewInternalError("failed to decode API response", err)
	}
	return nil
}

// DoRaw sends a JSON request and returns the raw 2xx body.
func (c *Client) DoRaw(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, internal.NewInternalError("failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, internal.NewInternalError("failed to create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if token := c.token(req.Context()); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("salon api request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err)
		return nil, internal.NewNetworkError("salon API unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internal.NewNetworkError("failed to read API response", err)
	}

	c.logger.Debug("salon api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, internal.NewExternalError(ErrorMessage(raw, resp.StatusCode), resp.StatusCode)
	}
	return raw, nil
}

// ErrorMessage extracts a human readable message from an error body: the first non-empty
// of error, message, detail; then field errors; then the raw body.
func ErrorMessage(body []byte, status int) string {
	trimmed := bytes.TrimSpace(body)
	var envelope map[string]interface{}
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &envelope) == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if msg := flatten(envelope[key]); msg != "" {
				return msg
			}
		}
		if msg := fieldErrors(envelope); msg != "" {
			return msg
		}
	}
	if len(trimmed) > 0 && len(trimmed) <= 512 && trimmed[0] != '<' {
		return string(trimmed)
	}
	return fmt.Sprintf("request failed with status %d %s", status, http.StatusText(status))
}

func flatten(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func fieldErrors(envelope map[string]interface{}) string {
	keys := make([]string, 0, len(envelope))
	for k := range envelope {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if msg := flatten(envelope[k]); msg != "" {
			if k == "non_field_errors" {
				parts = append(parts, msg)
			} else {
				parts = append(parts, k+": "+msg)
			}
		}
	}
	return strings.Join(parts, "; ")
}
