package scorecard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://api.data.gov/ed/collegescorecard/v1/schools"

	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffUnit = time.Second
	maxErrorBodyBytes  = 512
)

// ClientConfig configures a Scorecard API client. Zero values fall back to defaults.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Fields     []string
	Logger     logrus.FieldLogger
}

// Client fetches pages of schools from the College Scorecard API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	fields      []string
	maxRetries  int
	backoffUnit time.Duration
	logger      logrus.FieldLogger
}

// NewClient creates a new College Scorecard API client
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Fields == nil {
		cfg.Fields = DefaultFields
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		fields:      cfg.Fields,
		maxRetries:  cfg.MaxRetries,
		backoffUnit: defaultBackoffUnit,
		logger:      cfg.Logger,
	}
}

// PageResponse is one page of the /schools endpoint
type PageResponse struct {
	Metadata Metadata `json:"metadata"`
	Results  []any    `json:"results"`
}

// Metadata describes the pagination state reported by the API
type Metadata struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// FetchPage retrieves a single page (0-indexed). Server errors and transport
// failures are retried with exponential backoff; after the first server error
// the field selection is dropped, since specific field names have been seen to
// trigger 5xx responses. Client errors (4xx) are returned immediately.
func (c *Client) FetchPage(ctx context.Context, apiKey string, page, perPage int) (*PageResponse, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	includeFields := len(c.fields) > 0
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp, err := c.doPageRequest(ctx, c.pageURL(apiKey, page, perPage, includeFields))
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var serverErr *ServerError
		if errors.As(err, &serverErr) && includeFields {
			includeFields = false
			c.logger.WithField("page", page).Warn("Scorecard server error, retrying without field selection")
		}

		if attempt == c.maxRetries-1 {
			break
		}

		delay := c.retryDelay(attempt)
		c.logger.WithFields(logrus.Fields{
			"page":    page,
			"attempt": attempt + 1,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Warn("Scorecard request failed, backing off")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

func (c *Client) pageURL(apiKey string, page, perPage int, includeFields bool) string {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if includeFields {
		q.Set("fields", strings.Join(c.fields, ","))
	}
	return c.baseURL + "?" + q.Encode()
}

func (c *Client) doPageRequest(ctx context.Context, url string) (*PageResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &ServerError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &ClientError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var pageResp PageResponse
	if err := decoder.Decode(&pageResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &pageResp, nil
}

// retryDelay returns 2^attempt backoff units, attempt counted from 0.
func (c *Client) retryDelay(attempt int) time.Duration {
	return c.backoffUnit * time.Duration(1<<attempt)
}

func isRetryableError(err error) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
