package freee

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PageSize is the page size used by the FetchAll helpers.
const PageSize = 100

// ClientConfig represents the configuration for freee API client.
type ClientConfig struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	AccessToken  string
	CompanyID    int64
	Timeout      time.Duration // Default: 30 seconds
}

// Client is a freee Accounting API client.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	accessToken  string
	clientID     string
	clientSecret string
	companyID    int64
}

// NewClient creates a new freee API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:      strings.TrimSuffix(config.APIURL, "/"),
		accessToken:  config.AccessToken,
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		companyID:    config.CompanyID,
	}
}

// SetAccessToken sets the access token for API requests.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// GetAccessToken obtains an access token with the client credentials grant.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tokenResp tokenResponse
	if err := c.do(req, &tokenResp); err != nil {
		return "", err
	}

	c.accessToken = tokenResp.AccessToken
	return c.accessToken, nil
}

// ListDeals lists deals with optional parameters.
func (c *Client) ListDeals(ctx context.Context, params map[string]string) ([]Deal, error) {
	var resp dealsResponse
	if err := c.get(ctx, "/api/1/deals", params, &resp); err != nil {
		return nil, err
	}
	return resp.Deals, nil
}

// FetchAllDeals fetches all deals in a date range with pagination.
func (c *Client) FetchAllDeals(ctx context.Context, dateFrom, dateTo string) ([]Deal, error) {
	return fetchAll(ctx, dateFrom, dateTo, "deals", c.ListDeals)
}

// ListJournals lists journals with optional parameters.
func (c *Client) ListJournals(ctx context.Context, params map[string]string) ([]Journal, error) {
	var resp journalsResponse
	if err := c.get(ctx, "/api/1/journals", params, &resp); err != nil {
		return nil, err
	}
	return resp.Journals, nil
}

// FetchAllJournals fetches all journals in a date range with pagination.
func (c *Client) FetchAllJournals(ctx context.Context, dateFrom, dateTo string) ([]Journal, error) {
	return fetchAll(ctx, dateFrom, dateTo, "journals", c.ListJournals)
}

// ListAccountItems lists the company's account items.
func (c *Client) ListAccountItems(ctx context.Context) ([]AccountItem, error) {
	var resp accountItemsResponse
	if err := c.get(ctx, "/api/1/account_items", nil, &resp); err != nil {
		return nil, err
	}
	return resp.AccountItems, nil
}

func fetchAll[T any](ctx context.Context, dateFrom, dateTo, what string, list func(context.Context, map[string]string) ([]T, error)) ([]T, error) {
	var all []T
	offset := 0

	for {
		params := map[string]string{
			"issue_date_from": dateFrom,
			"issue_date_to":   dateTo,
			"limit":           strconv.Itoa(PageSize),
			"offset":          strconv.Itoa(offset),
		}

		page, err := list(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s (offset=%d): %w", what, offset, err)
		}

		all = append(all, page...)
		if len(page) < PageSize {
			break
		}

		offset += PageSize
	}

	return all, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	query := url.Values{}
	query.Set("company_id", strconv.FormatInt(c.companyID, 10))
	for k, v := range params {
		query.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseError parses an error response from freee API.
func parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("freee API error (status %d): failed to read error response", resp.StatusCode)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	return &APIError{StatusCode: resp.StatusCode, Code: errResp.Error, Message: errResp.ErrorDescription}
}

// APIError is a non-200 response from the freee API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("freee API error: %s - %s", e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("freee API error: %s", e.Code)
	default:
		return fmt.Sprintf("freee API error (status %d): %s", e.StatusCode, e.Message)
	}
}
