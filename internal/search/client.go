package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avolkov/scholarchat/internal/domain"
)

// Service returns ranked articles for a query. Ranking lives in an
// external service; the engine only records the results as the known
// source items.
type Service interface {
	Search(ctx context.Context, query string) ([]domain.SourceItem, error)
}

// Client calls the article search service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new search client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type searchResponse struct {
	Articles []domain.SourceItem `json:"articles"`
}

// Search fetches articles matching the query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SourceItem, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search service returned status %d", resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return searchResp.Articles, nil
}
