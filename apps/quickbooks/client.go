package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/finledger/qbo-connector/pkg/prometheus"
)

const (
	clientRequestTimeout = 30 * time.Second

	// minorVersion pins the QBO API minor version on every request.
	minorVersion = "65"
)

// TokenSource yields the current token pair. *TokenManager satisfies
// it; tests substitute fixed pairs.
type TokenSource interface {
	Current() (TokenPair, bool)
}

// Client performs authenticated calls against the QBO REST API. One
// blocking round trip per invocation, no internal retries: POST update
// semantics are not idempotent upstream, so retry policy belongs to
// callers (and is only safe for GETs).
type Client struct {
	// BaseURL is the API host, overridable in tests.
	BaseURL string

	HTTPClient *http.Client

	tokens TokenSource
	now    func() time.Time
}

// NewClient creates a resource client for the configured environment.
func NewClient(cfg Config, tokens TokenSource) *Client {
	return &Client{
		BaseURL:    cfg.APIHost(),
		HTTPClient: &http.Client{Timeout: clientRequestTimeout},
		tokens:     tokens,
		now:        time.Now,
	}
}

// Create POSTs a new entity to the collection path and returns the raw
// response body.
func (c *Client) Create(ctx context.Context, resource string, body map[string]interface{}) (json.RawMessage, error) {
	r, ok := LookupResource(resource)
	if !ok {
		return nil, &StateError{Reason: fmt.Sprintf("unknown resource %q", resource)}
	}
	return c.do(ctx, "create", r.Name, http.MethodPost, r.Name, "", nil, body)
}

// Get fetches one entity by id. A remote 404 maps to *NotFoundError.
func (c *Client) Get(ctx context.Context, resource, id string) (json.RawMessage, error) {
	r, ok := LookupResource(resource)
	if !ok {
		return nil, &StateError{Reason: fmt.Sprintf("unknown resource %q", resource)}
	}
	if id == "" {
		return nil, &StateError{Reason: "entity id is required"}
	}
	return c.do(ctx, "get", r.Name, http.MethodGet, r.Name+"/"+url.PathEscape(id), id, nil, nil)
}

// Update POSTs a changed entity to the collection path (the QBO
// update-via-POST convention). The body must carry the Id and the
// SyncToken most recently returned for the entity; a missing SyncToken
// is rejected before dispatch since the remote service would reject it
// anyway. For sparse-capable resources the sparse flag is set unless
// the caller supplied one.
func (c *Client) Update(ctx context.Context, resource string, body map[string]interface{}) (json.RawMessage, error) {
	r, ok := LookupResource(resource)
	if !ok {
		return nil, &StateError{Reason: fmt.Sprintf("unknown resource %q", resource)}
	}

	if id, _ := body["Id"].(string); id == "" {
		return nil, &ConflictError{Body: "update requires a non-empty Id"}
	}
	if _, ok := body["SyncToken"]; !ok {
		return nil, &ConflictError{Body: "update requires the SyncToken most recently returned for the entity"}
	}

	if r.SparseUpdate {
		if _, ok := body["sparse"]; !ok {
			body["sparse"] = true
		}
	}

	return c.do(ctx, "update", r.Name, http.MethodPost, r.Name, "", nil, body)
}

// Query runs a QBO SQL-like select statement.
func (c *Client) Query(ctx context.Context, stmt string) (json.RawMessage, error) {
	if stmt == "" {
		return nil, &StateError{Reason: "query statement is required"}
	}
	params := url.Values{}
	params.Set("query", stmt)
	return c.do(ctx, "query", "query", http.MethodGet, "query", "", params, nil)
}

// CompanyInfo fetches the company record for the connected realm. Used
// as a cheap connection probe.
func (c *Client) CompanyInfo(ctx context.Context) (json.RawMessage, error) {
	pair, ok := c.tokens.Current()
	if !ok {
		return nil, &StateError{Reason: "not connected to quickbooks"}
	}
	return c.do(ctx, "get", "companyinfo", http.MethodGet, "companyinfo/"+url.PathEscape(pair.RealmID), pair.RealmID, nil, nil)
}

// Report runs a named report (e.g. ProfitAndLoss) with query params.
func (c *Client) Report(ctx context.Context, name string, params url.Values) (json.RawMessage, error) {
	if name == "" {
		return nil, &StateError{Reason: "report name is required"}
	}
	return c.do(ctx, "report", name, http.MethodGet, "reports/"+url.PathEscape(name), "", params, nil)
}

// do performs one authenticated round trip. The bearer token is read
// from the token source per call; a token past its lifetime is
// rejected pre-flight rather than waiting for the remote 401.
func (c *Client) do(ctx context.Context, operation, resource, method, path, id string, params url.Values, body map[string]interface{}) (json.RawMessage, error) {
	pair, ok := c.tokens.Current()
	if !ok || pair.AccessToken == "" {
		prometheus.RecordAPIError(operation, resource, "not_connected")
		return nil, &StateError{Reason: "not connected to quickbooks"}
	}
	if pair.AccessExpired(c.now()) {
		prometheus.RecordAPIError(operation, resource, "token_expired")
		return nil, &AuthError{Body: "access token expired, refresh required"}
	}

	endpoint := fmt.Sprintf("%s/v3/company/%s/%s", c.BaseURL, url.PathEscape(pair.RealmID), path)

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}

	query := req.URL.Query()
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	query.Set("minorversion", minorVersion)
	req.URL.RawQuery = query.Encode()

	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		prometheus.RecordAPIError(operation, resource, "transport")
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		prometheus.RecordAPIError(operation, resource, "read_body")
		return nil, err
	}

	prometheus.RecordAPIRequest(operation, resource, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resource, id, resp.StatusCode, respBody)
	}

	return json.RawMessage(respBody), nil
}
