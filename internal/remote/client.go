package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guessthat/cardcache/internal/domain"
)

// Client talks to the remote card-generation service. Both operations are
// idempotent from the cache's point of view: results always merge through
// the dedup-safe InsertBatch, so a retried or duplicated response cannot
// corrupt local state.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the service at baseURL. timeout bounds
// each request; a failed or slow service must never wedge a draw.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Draw fetches count existing cards from the server's stock.
func (c *Client) Draw(ctx context.Context, b domain.Bucket, count int) ([]domain.Card, error) {
	return c.get(ctx, "/api/cards/draw", b, count)
}

// Download asks the server to generate count new cards for the bucket.
func (c *Client) Download(ctx context.Context, b domain.Bucket, count int) ([]domain.Card, error) {
	return c.get(ctx, "/api/cards/download", b, count)
}

func (c *Client) get(ctx context.Context, path string, b domain.Bucket, count int) ([]domain.Card, error) {
	q := url.Values{}
	q.Set("lang", b.Language)
	q.Set("category", b.Category)
	q.Set("difficulty", string(b.Difficulty))
	q.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", path, res.StatusCode)
	}

	var cards []domain.Card
	if err := json.NewDecoder(res.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return cards, nil
}
