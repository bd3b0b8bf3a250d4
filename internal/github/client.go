package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const baseURL = "https://api.github.com"

// Client talks to the GitHub search API. Search has a tight secondary
// rate limit, so every call goes through a limiter.
type Client struct {
	token      string
	username   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client for the given token. If username is empty,
// searches run as the token owner (author:@me).
func NewClient(token, username string) *Client {
	return &Client{
		token:      token,
		username:   username,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

type SearchResponse struct {
	TotalCount        int    `json:"total_count"`
	IncompleteResults bool   `json:"incomplete_results"`
	Items             []Item `json:"items"`
}

type Item struct {
	HTMLURL       string `json:"html_url"`
	RepositoryURL string `json:"repository_url"`
	Number        int    `json:"number"`
	Title         string `json:"title"`
	State         string `json:"state"`
	Draft         bool   `json:"draft"`
	Body          string `json:"body"`
	PullRequest   struct {
		MergedAt *string `json:"merged_at"`
	} `json:"pull_request"`
}

// SearchPullRequests returns the PRs the configured author created on a
// YYYY-MM-DD date.
func (c *Client) SearchPullRequests(ctx context.Context, date string) (*SearchResponse, error) {
	author := c.username
	if author == "" {
		author = "@me"
	}
	query := fmt.Sprintf("is:pr author:%s created:%s", author, date)
	searchURL := fmt.Sprintf("%s/search/issues?q=%s", baseURL, url.QueryEscape(query))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// HealthCheck verifies the token against the rate-limit endpoint, which
// costs no search quota.
func (c *Client) HealthCheck() error {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/rate_limit", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub health check failed with status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "auto-daily-standup")
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", fmt.Sprintf("token %s", c.token))
}
