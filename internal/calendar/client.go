package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultFeedURL is the public holiday feed the reporter was built
// against. Status codes: 0 workday, 1 weekend, 2 make-up workday,
// 3 public holiday.
const DefaultFeedURL = "http://api.haoshenqi.top/holiday"

// HTTPSource queries a holiday feed over HTTP. It issues a single bounded
// GET per lookup; retries are the caller's decision.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultFeedURL
	}
	return &HTTPSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type dayStatus struct {
	Date   string `json:"date"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Status int    `json:"status"`
}

// DayStatus returns the raw status code for a YYYY-MM-DD date. The feed
// answers single-date queries with a one-element JSON array.
func (s *HTTPSource) DayStatus(ctx context.Context, date string) (int, error) {
	url := fmt.Sprintf("%s?date=%s", s.baseURL, date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("holiday feed error (status %d): %s", resp.StatusCode, string(body))
	}

	var days []dayStatus
	if err := json.NewDecoder(resp.Body).Decode(&days); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(days) == 0 {
		return 0, fmt.Errorf("holiday feed returned no entry for %s", date)
	}

	return days[0].Status, nil
}
