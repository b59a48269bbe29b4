package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	BaseURL = "https://site.api.espn.com/apis/site/v2/sports"

	// SportPath is the ESPN path segment for the NFL
	SportPath = "football/nfl"
)

// Client handles ESPN API requests
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// New creates a new ESPN API client. An empty baseURL uses the public API.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "Mozilla/5.0 (compatible; SpreadSettler/1.0)",
	}
}

// FetchScoreboard fetches the NFL scoreboard.
// If date is zero, fetches whatever ESPN considers "today"
func (c *Client) FetchScoreboard(ctx context.Context, date time.Time) (*Scoreboard, error) {
	url := fmt.Sprintf("%s/%s/scoreboard", c.baseURL, SportPath)
	if !date.IsZero() {
		url += "?dates=" + date.Format("20060102")
	}

	var board Scoreboard
	if err := c.fetch(ctx, url, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// FetchScores fetches the scoreboard and converts it into score updates
func (c *Client) FetchScores(ctx context.Context, date time.Time) ([]Update, error) {
	board, err := c.FetchScoreboard(ctx, date)
	if err != nil {
		return nil, err
	}
	return ParseScoreboard(board), nil
}

// StatusError is a non-200 reply from the scoreboard API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ESPN API error: status=%d, body=%s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if repeated.
// Client errors other than 429 will not.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// fetch makes an HTTP GET request and decodes the JSON body into out
func (c *Client) fetch(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
