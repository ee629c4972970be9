package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/cachex"
)

// Client queries the HR directory for reporting-chain membership. Lookups
// are cached in Redis when a cache is attached; the relationship changes
// rarely and every proxy command asks the same question.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	cache    *cachex.Client
	cacheTTL time.Duration
}

type relationshipResponse struct {
	Subordinate bool `json:"subordinate"`
}

func NewClient(baseURL string, token string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("directory url required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// WithCache attaches a Redis cache for relationship lookups.
func (c *Client) WithCache(cache *cachex.Client, ttl time.Duration) *Client {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

// IsSubordinate reports whether member reports to manager, directly or
// through the chain.
func (c *Client) IsSubordinate(ctx context.Context, managerID uuid.UUID, memberID uuid.UUID) (bool, error) {
	key := "directory:subordinate:" + managerID.String() + ":" + memberID.String()
	if c.cache != nil {
		var cached bool
		if found, err := c.cache.GetJSON(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}

	path := fmt.Sprintf("/members/%s/subordinates/%s", managerID, memberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Unknown pair means no relationship, not an error.
		return false, nil
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("directory request failed with status %d", resp.StatusCode)
	}

	var out relationshipResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	if c.cache != nil {
		_ = c.cache.SetJSON(ctx, key, out.Subordinate, c.cacheTTL)
	}
	return out.Subordinate, nil
}
