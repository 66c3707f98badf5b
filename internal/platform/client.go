package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

// PageSize is the number of results requested per _search call.
const PageSize = 100

// MaxPages bounds a single SearchAll traversal.
const MaxPages = 10000

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 30 * time.Second

// Client is an authenticated client for the Zitadel management API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client from a Connection.
func NewClient(conn *models.Connection) *Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if conn.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else if conn.CACert != "" {
		caCertPool := x509.NewCertPool()
		if caCertPool.AppendCertsFromPEM([]byte(conn.CACert)) {
			transport.TLSClientConfig = &tls.Config{RootCAs: caCertPool}
		}
	}
	timeout := conn.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: conn.BaseURL(),
		token:   conn.Token,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used for request-level debug output.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// BaseURL returns the instance URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasToken reports whether a bearer credential is configured.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// listDetails is the "details" block of a Zitadel list response.
type listDetails struct {
	TotalResult flexInt `json:"totalResult"`
}

// listResponse is the standard Zitadel _search response envelope.
type listResponse struct {
	Details listDetails       `json:"details"`
	Result  []json.RawMessage `json:"result"`
}

// flexInt accepts both JSON numbers and the quoted int64 form protobuf emits.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid count %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

// do sends one request and returns the body. Non-2xx responses come back as
// *APIError with the body attached.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, int, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	c.logger.Debug("zitadel request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 500),
		}
	}
	return body, resp.StatusCode, nil
}

// Get performs an authenticated GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodGet, path, nil)
	return body, err
}

// Post performs an authenticated POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) ([]byte, int, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return c.do(ctx, http.MethodPost, path, payload)
}

// SearchAll pages through a _search endpoint until the result set is
// exhausted. queries is passed through as the request's "queries" field.
func (c *Client) SearchAll(ctx context.Context, path string, queries []interface{}) ([]models.Resource, error) {
	var all []models.Resource
	offset := 0
	var prevFirst string

	for pages := 0; ; pages++ {
		if pages >= MaxPages {
			return nil, fmt.Errorf("%s: gave up after %d pages", path, MaxPages)
		}
		payload := map[string]interface{}{
			"query": map[string]interface{}{
				"offset": offset,
				"limit":  PageSize,
				"asc":    true,
			},
		}
		if len(queries) > 0 {
			payload["queries"] = queries
		}

		body, _, err := c.Post(ctx, path, payload)
		if err != nil {
			return nil, err
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing %s response: %w", path, err)
		}

		// A server that ignores offset keeps answering with the first page.
		if len(page.Result) > 0 {
			first := string(page.Result[0])
			if offset > 0 && first == prevFirst {
				return nil, fmt.Errorf("%s: page at offset %d repeats the previous page", path, offset)
			}
			prevFirst = first
		}

		for _, raw := range page.Result {
			var res models.Resource
			if err := json.Unmarshal(raw, &res); err != nil {
				return nil, fmt.Errorf("parsing resource: %w", err)
			}
			all = append(all, res)
		}

		offset += len(page.Result)
		total := int(page.Details.TotalResult)
		if len(page.Result) < PageSize || (total > 0 && offset >= total) {
			break
		}
	}
	return all, nil
}

// FindProjectByName returns the first project whose name equals name, or nil.
func (c *Client) FindProjectByName(ctx context.Context, name string) (models.Resource, error) {
	results, err := c.SearchAll(ctx, "/management/v1/projects/_search", []interface{}{
		map[string]interface{}{
			"nameQuery": map[string]interface{}{
				"name":   name,
				"method": "TEXT_QUERY_METHOD_EQUALS",
			},
		},
	})
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if n, _ := r["name"].(string); n == name {
			return r, nil
		}
	}
	return nil, nil
}

// Ping checks that the instance answers its health endpoint (no auth needed).
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Get(ctx, "/debug/healthz")
	return err
}

// CheckAuth verifies the bearer token by reading the caller's own user.
func (c *Client) CheckAuth(ctx context.Context) error {
	if c.token == "" {
		return ErrMissingToken
	}
	_, err := c.Get(ctx, "/auth/v1/users/me")
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
