package sentiment

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

// alternative.me API response structures

type fngResponse struct {
	Name     string      `json:"name"`
	Data     []fngEntry  `json:"data"`
	Metadata fngMetadata `json:"metadata"`
}

type fngEntry struct {
	Value               string `json:"value"`
	ValueClassification string `json:"value_classification"`
	Timestamp           string `json:"timestamp"`
}

type fngMetadata struct {
	Error *string `json:"error"`
}

// Client fetches the Crypto Fear & Greed Index from alternative.me.
type Client struct {
	client  *http.Client
	baseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
	}
}

func (c *Client) Fetch(ctx context.Context) (*Report, error) {
	query := url.Values{}
	query.Set("limit", "2")
	query.Set("format", "json")

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fng: failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fng: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fng: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fng: failed to read response: %w", err)
	}

	var parsed fngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("fng: failed to parse JSON: %w", err)
	}
	if parsed.Metadata.Error != nil && *parsed.Metadata.Error != "" {
		return nil, fmt.Errorf("fng: API error: %s", *parsed.Metadata.Error)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("fng: empty data")
	}

	return parseEntries(parsed.Data)
}

func parseEntries(entries []fngEntry) (*Report, error) {
	latest := entries[0]
	value, err := strconv.Atoi(strings.TrimSpace(latest.Value))
	if err != nil {
		return nil, fmt.Errorf("fng: invalid value %q: %w", latest.Value, err)
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(latest.Timestamp), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("fng: invalid timestamp %q: %w", latest.Timestamp, err)
	}

	report := &Report{
		Value:          value,
		Classification: latest.ValueClassification,
		Band:           Classify(value),
		Timestamp:      time.Unix(secs, 0).UTC(),
	}

	if len(entries) > 1 {
		if prev, err := strconv.Atoi(strings.TrimSpace(entries[1].Value)); err == nil {
			report.Previous = &prev
		}
	}

	return report, nil
}
