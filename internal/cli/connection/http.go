package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// UnixScheme prefixes server addresses that name a Unix socket.
const UnixScheme = "unix://"

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithJar attaches a cookie jar.
func WithJar(jar http.CookieJar) ClientOption {
	return func(c *HTTPClient) {
		c.client.Jar = jar
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithTLSConfig sets the TLS client configuration.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *HTTPClient) {
		t := c.transport()
		t.TLSClientConfig = cfg
		c.client.Transport = t
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// transport returns a private copy of the client's transport for
// modification.
func (c *HTTPClient) transport() *http.Transport {
	if t, ok := c.client.Transport.(*http.Transport); ok {
		return t.Clone()
	}
	return http.DefaultTransport.(*http.Transport).Clone()
}

// NewHTTPClient creates a new HTTP client. An address without a scheme
// is treated as http. A unix:// address dials the server's local socket.
func NewHTTPClient(server string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "attrmesh-cli",
	}

	baseURL := strings.TrimRight(server, "/")
	switch {
	case strings.HasPrefix(server, UnixScheme):
		socket := strings.TrimPrefix(server, UnixScheme)
		t := c.transport()
		t.Proxy = nil
		t.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		}
		c.client.Transport = t
		baseURL = "http://unix"
	case !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://"):
		baseURL = "http://" + baseURL
	}
	c.baseURL = baseURL

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// AttributePath builds /v1/attributes/{scope}[/{name}] with escaped segments.
func AttributePath(scope, name string) string {
	p := "/v1/attributes/" + url.PathEscape(scope)
	if name != "" {
		p += "/" + url.PathEscape(name)
	}
	return p
}

// Do sends a request with an optional JSON body and decodes the envelope's
// data into target. A nil target discards the data.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body, target any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return ParseResponse(resp, target)
}

// ParseResponse decodes an enveloped response and closes its body.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		if decodeErr == io.EOF {
			return nil
		}
		return fmt.Errorf("parse response: %w", decodeErr)
	}

	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
