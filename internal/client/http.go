package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/model"
	"github.com/alfredjeanlab/gridq/internal/server"
)

// HTTPClient implements GridClient using the gridq HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) Query(ctx context.Context, dataset string, q model.Query) (model.Result, error) {
	var res model.Result
	if err := c.doJSON(ctx, http.MethodPost, "/v1/datasets/"+url.PathEscape(dataset)+"/rows", q, &res); err != nil {
		return model.Result{}, err
	}
	if res.Rows == nil {
		res.Rows = []model.Record{}
	}
	return res, nil
}

func (c *HTTPClient) ListDatasets(ctx context.Context) ([]model.DatasetInfo, error) {
	var resp struct {
		Datasets []model.DatasetInfo `json:"datasets"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/datasets", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Datasets, nil
}

// Reload asks the server to reload one dataset from its source.
func (c *HTTPClient) Reload(ctx context.Context, dataset string) (model.DatasetInfo, error) {
	var di model.DatasetInfo
	err := c.doJSON(ctx, http.MethodPost, "/v1/datasets/"+url.PathEscape(dataset)+"/reload", nil, &di)
	return di, err
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// APIError is a non-2xx response. 404 and 503 unwrap to the catalog's
// ErrNotFound and ErrNotLoaded so callers can use errors.Is on any transport.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("HTTP %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return catalog.ErrNotFound
	case http.StatusServiceUnavailable:
		return catalog.ErrNotLoaded
	}
	return nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
			RequestID:  resp.Header.Get(server.RequestIDHeader),
		}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
