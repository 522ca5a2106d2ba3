// Package clawbr provides a read-only client for the Clawbr debate API.
//
// Two endpoints are used: the completed-debates listing, which is paged until a short
// page is returned, and the per-debate detail. Requests are not retried; pacing between
// detail requests is left to the caller.
package clawbr

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

	"github.com/rewired-gh/votestudy/internal/logger"
	"github.com/rewired-gh/votestudy/internal/models"
)

// DefaultPageSize is the listing page size used when none is configured.
const DefaultPageSize = 200

// Client provides access to the Clawbr API
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// ClientConfig holds the tunables for a Client.
type ClientConfig struct {
	PageSize int
	// Timeout is the ceiling for a single request.
	Timeout time.Duration
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// listResponse is the body of GET /debates
type listResponse struct {
	Debates    []models.DebateSummary `json:"debates"`
	Pagination json.RawMessage        `json:"pagination"`
}

// NewClient creates a new Clawbr client
func NewClient(baseURL string, cfg ClientConfig) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		pageSize: cfg.PageSize,
	}
}

// FetchAllCompleted pages through every completed debate. A page shorter than the page
// size ends the crawl. Any failing page aborts with an error.
func (c *Client) FetchAllCompleted(ctx context.Context) ([]models.DebateSummary, error) {
	var debates []models.DebateSummary
	offset := 0

	for {
		params := url.Values{}
		params.Set("status", "completed")
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("offset", strconv.Itoa(offset))
		reqURL := fmt.Sprintf("%s/debates?%s", c.baseURL, params.Encode())

		var page listResponse
		if err := c.getJSON(ctx, reqURL, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch debates at offset %d: %w", offset, err)
		}
		logger.Debug("Fetched listing page offset=%d size=%d", offset, len(page.Debates))

		debates = append(debates, page.Debates...)
		if len(page.Debates) < c.pageSize {
			break
		}
		offset += c.pageSize
	}

	return debates, nil
}

// FetchDetail retrieves the full record of one debate by slug or id.
func (c *Client) FetchDetail(ctx context.Context, id string) (*models.DebateDetail, error) {
	reqURL := fmt.Sprintf("%s/debates/%s", c.baseURL, url.PathEscape(id))

	var detail models.DebateDetail
	if err := c.getJSON(ctx, reqURL, &detail); err != nil {
		return nil, fmt.Errorf("failed to fetch debate %s: %w", id, err)
	}
	return &detail, nil
}

// getJSON performs a single GET and decodes the JSON body into out
func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
