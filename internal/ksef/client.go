// Package ksef implements the HTTP client for the KSeF e-invoicing API.
// The client speaks JSON for every endpoint except the raw XML download and
// normalizes transport failures and HTTP >=400 responses into one error
// shape (*model.APIError) so callers have a single failure path.
package ksef

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rezonia/ksef-sync/internal/model"
)

const (
	// DefaultTimeout bounds every remote call; the original design had none
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the largest page the list endpoint accepts
	MaxPageSize = 100

	// DefaultTokenTTL is assumed when an auth response carries no expiry
	DefaultTokenTTL = 4 * time.Hour
)

const (
	endpointAuthToken = "/auth/token"
	endpointAuthLogin = "/auth/login"
	endpointStatus    = "/auth/status"
	endpointList      = "/invoices/list"
)

// Client talks to one KSeF environment on behalf of one entity. The bearer
// token is mutable: it is set from the entity's stored session or replaced
// after authentication.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL overrides the environment base URL (used by tests)
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithToken seeds the client with an existing session token
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a client for the given environment
func NewClient(env model.Environment, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    env.BaseURL(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used for authenticated calls
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token
func (c *Client) Token() string {
	return c.token
}

// Timeout returns the per-call timeout of the underlying HTTP client
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// AuthenticateToken exchanges a KSeF identifier/token pair for a session.
// On success the client's bearer token is replaced; the caller is expected
// to persist the session onto the owning entity.
func (c *Client) AuthenticateToken(ctx context.Context, identifier, token string) (*Session, error) {
	return c.authenticate(ctx, "token", endpointAuthToken, authTokenRequest{
		Identifier: identifier,
		Token:      token,
	})
}

// AuthenticatePassword logs in with a tax id and password
func (c *Client) AuthenticatePassword(ctx context.Context, nip, password string) (*Session, error) {
	return c.authenticate(ctx, "password", endpointAuthLogin, authLoginRequest{
		NIP:      nip,
		Password: password,
	})
}

func (c *Client) authenticate(ctx context.Context, method, endpoint string, payload interface{}) (*Session, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, payload, nil, false, &resp); err != nil {
		return nil, model.NewAuthError(method, "authentication request failed", err)
	}
	if resp.Token == "" {
		msg := resp.Error
		if msg == "" {
			msg = "authentication failed"
		}
		return nil, model.NewAuthError(method, msg, nil)
	}

	session := &Session{Token: resp.Token}
	if expiry, ok := parseExpiry(resp.Expiry); ok {
		session.Expiry = expiry
	} else {
		session.Expiry = c.now().Add(DefaultTokenTTL)
	}

	c.token = session.Token
	return session, nil
}

// parseExpiry reads an auth expiry timestamp. The service emits either
// RFC3339 or a space-separated "2006-01-02 15:04:05" layout depending on
// the endpoint.
func parseExpiry(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if expiry, err := time.Parse(layout, raw); err == nil {
			return expiry, true
		}
	}
	return time.Time{}, false
}

// SessionStatus reports whether the current session token is still active
func (c *Client) SessionStatus(ctx context.Context) (bool, error) {
	if c.token == "" {
		return false, nil
	}
	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodGet, endpointStatus, nil, nil, true, &resp); err != nil {
		return false, err
	}
	return resp.Active, nil
}

// ListInvoices fetches one page of invoice headers for a date window.
// Page size is clamped to MaxPageSize, page number floored to 1; zero
// values take the service defaults (last 30 days, full page, first page).
func (c *Client) ListInvoices(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.DateFrom == "" {
		q.DateFrom = c.now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	if q.DateTo == "" {
		q.DateTo = c.now().Format("2006-01-02")
	}
	if q.PageSize <= 0 || q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.PageNumber < 1 {
		q.PageNumber = 1
	}

	params := url.Values{}
	params.Set("dateFrom", q.DateFrom)
	params.Set("dateTo", q.DateTo)
	params.Set("pageSize", strconv.Itoa(q.PageSize))
	params.Set("pageNumber", strconv.Itoa(q.PageNumber))

	var resp listResponse
	if err := c.doJSON(ctx, http.MethodGet, endpointList, nil, params, true, &resp); err != nil {
		return nil, err
	}

	result := &ListResult{
		Items:        resp.Invoices,
		TotalCount:   resp.TotalCount,
		HasMorePages: resp.HasMorePages,
	}
	if result.TotalCount == 0 {
		result.TotalCount = len(result.Items)
	}
	return result, nil
}

// GetInvoiceXML downloads the raw XML document for a reference number.
// The body is returned verbatim, not JSON-decoded.
func (c *Client) GetInvoiceXML(ctx context.Context, referenceNumber string) ([]byte, error) {
	endpoint := "/invoices/" + url.PathEscape(referenceNumber) + "/xml"

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil, nil, true)
	if err != nil {
		return nil, model.NewAPIError(endpoint, 0, "failed to build request", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewAPIError(endpoint, 0, "request failed", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, model.NewAPIError(endpoint, httpResp.StatusCode, "failed to read response body", err)
	}
	if httpResp.StatusCode >= 400 {
		return nil, model.NewAPIError(endpoint, httpResp.StatusCode, apiMessage(body, httpResp.StatusCode), nil)
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body []byte, params url.Values, authed bool) (*http.Request, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// The two auth endpoints are the only unauthenticated calls
	if authed && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload interface{}, params url.Values, authed bool, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return model.NewAPIError(endpoint, 0, "failed to encode request body", err)
		}
	}

	req, err := c.newRequest(ctx, method, endpoint, body, params, authed)
	if err != nil {
		return model.NewAPIError(endpoint, 0, "failed to build request", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewAPIError(endpoint, 0, "request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return model.NewAPIError(endpoint, httpResp.StatusCode, "failed to read response body", err)
	}

	if httpResp.StatusCode >= 400 {
		return model.NewAPIError(endpoint, httpResp.StatusCode, apiMessage(respBody, httpResp.StatusCode), nil)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return model.NewAPIError(endpoint, httpResp.StatusCode, "invalid JSON response", err)
	}
	return nil
}

// apiMessage extracts the error message from a >=400 response body,
// falling back to the HTTP status when the body carries none.
func apiMessage(body []byte, statusCode int) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Message != "" {
			return er.Message
		}
		if er.Error != "" {
			return er.Error
		}
	}
	return fmt.Sprintf("API error: HTTP %d", statusCode)
}
