// Package scb talks to the remote statistics API: table search, metadata
// retrieval, and selection-query data fetches with content-addressed caching.
package scb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"statcheck/internal/cube"
	"statcheck/internal/logging"
	"statcheck/internal/metadata"
	"statcheck/internal/types"
)

// Config configures the API client.
type Config struct {
	BaseURL      string
	Language     string
	OutputFormat string
	Timeout      time.Duration
	Cache        types.Cache
	CacheTTL     time.Duration
}

// DefaultConfig returns sensible defaults for the public SCB endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://statistikdatabasen.scb.se/api/v2",
		Language:     "en",
		OutputFormat: "json-stat2",
		Timeout:      30 * time.Second,
		CacheTTL:     24 * time.Hour,
	}
}

// Client is the statistics API client.
type Client struct {
	baseURL      string
	language     string
	outputFormat string
	httpClient   *http.Client
	cache        types.Cache
	cacheTTL     time.Duration
}

// NewClient creates a new API client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json-stat2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		language:     cfg.Language,
		outputFormat: cfg.OutputFormat,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		cache:        cfg.Cache,
		cacheTTL:     cfg.CacheTTL,
	}
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type tableSummary struct {
	Links []link `json:"links"`
}

var langParam = regexp.MustCompile(`lang=[a-z]{2}`)

// Metadata fetches and normalizes a table's dimension metadata. It follows
// the table summary's metadata link when one is present, forcing the
// configured language, and falls back to parsing the summary body directly.
func (c *Client) Metadata(ctx context.Context, table types.Table) ([]types.Variable, error) {
	summaryURL := fmt.Sprintf("%s/%s?lang=%s", c.baseURL, strings.Trim(table.APIPath, "/"), c.language)

	body, err := c.get(ctx, summaryURL)
	if err != nil {
		return nil, fmt.Errorf("metadata summary for %s: %w", table.ID, err)
	}

	var summary tableSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("metadata summary for %s: %w", table.ID, err)
	}

	metaURL := ""
	for _, l := range summary.Links {
		if l.Rel == "metadata" {
			metaURL = l.Href
			break
		}
	}

	if metaURL == "" {
		// Some deployments serve the metadata document at the table locator
		// itself.
		vars, perr := metadata.Parse(body)
		if perr != nil {
			return nil, fmt.Errorf("no metadata link for %s: %w", table.ID, perr)
		}
		return vars, nil
	}

	if langParam.MatchString(metaURL) {
		metaURL = langParam.ReplaceAllString(metaURL, "lang="+c.language)
	} else if strings.Contains(metaURL, "?") {
		metaURL += "&lang=" + c.language
	} else {
		metaURL += "?lang=" + c.language
	}

	metaBody, err := c.get(ctx, metaURL)
	if err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", table.ID, err)
	}
	return metadata.Parse(metaBody)
}

// wireSelection is the remote API's selection format.
type wireSelection struct {
	VariableCode string   `json:"VariableCode"`
	ValueCodes   []string `json:"ValueCodes"`
}

type wireQuery struct {
	Selection []wireSelection `json:"Selection"`
}

func toWire(q *types.Query) wireQuery {
	w := wireQuery{Selection: make([]wireSelection, 0, len(q.Selection))}
	for _, sel := range q.Selection {
		w.Selection = append(w.Selection, wireSelection{
			VariableCode: sel.Dimension,
			ValueCodes:   sel.Items,
		})
	}
	return w
}

// FetchData executes the selection query against the table's data endpoint,
// consulting the cache first. Returns the cube dataset and its decoded
// observations, or an error when the upstream fails.
func (c *Client) FetchData(ctx context.Context, table types.Table, q *types.Query) (*cube.Dataset, []types.Observation, error) {
	key := CacheKey(table.ID, q)

	if c.cache != nil {
		if cached, ok, err := c.cache.Get(key); err != nil {
			logging.CacheWarn("Cache read failed for %s: %v", key, err)
		} else if ok {
			var ds cube.Dataset
			if err := json.Unmarshal(cached, &ds); err == nil {
				logging.Fetch("Cache HIT for table %s", table.ID)
				return &ds, cube.Decode(&ds), nil
			}
			logging.CacheWarn("Cache entry for %s is corrupt, refetching", key)
		}
	}

	dataURL := fmt.Sprintf("%s/%s/data?lang=%s&outputFormat=%s",
		c.baseURL, strings.Trim(table.APIPath, "/"), c.language, c.outputFormat)

	payload, err := json.Marshal(toWire(q))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal selection: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dataURL, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create data request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.FetchError("Data fetch for %s failed: %v", table.ID, err)
		return nil, nil, fmt.Errorf("data fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.FetchError("Data fetch for %s returned status %d: %s",
			table.ID, resp.StatusCode, excerpt(body))
		return nil, nil, fmt.Errorf("data fetch for %s failed with status %d", table.ID, resp.StatusCode)
	}

	var ds cube.Dataset
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, nil, fmt.Errorf("failed to parse cube dataset: %w", err)
	}

	observations := cube.Decode(&ds)
	logging.Fetch("Fetched table %s: %d observations in %v",
		table.ID, len(observations), time.Since(start))

	if c.cache != nil && len(observations) > 0 {
		if err := c.cache.Put(key, body, c.cacheTTL); err != nil {
			logging.CacheWarn("Cache write failed for %s: %v", key, err)
		} else {
			logging.Fetch("Cache SET for table %s", table.ID)
		}
	}

	return &ds, observations, nil
}

// searchResponse is the table search endpoint's payload.
type searchResponse struct {
	Tables []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
		FirstPeriod string `json:"firstPeriod"`
		LastPeriod  string `json:"lastPeriod"`
		Updated     string `json:"updated"`
	} `json:"tables"`
}

// SearchTables queries the remote table search endpoint. Used for catalog
// seeding, not for question resolution.
func (c *Client) SearchTables(ctx context.Context, topic string) ([]types.Table, error) {
	searchURL := fmt.Sprintf("%s/tables?query=%s&lang=%s",
		c.baseURL, url.QueryEscape(topic), c.language)

	body, err := c.get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("table search for %q: %w", topic, err)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("table search for %q: %w", topic, err)
	}

	tables := make([]types.Table, 0, len(sr.Tables))
	for _, t := range sr.Tables {
		description := t.Description
		if description == "" {
			// Upstream descriptions are often empty; the label is the best
			// available substitute.
			description = t.Label
		}
		entry := types.Table{
			ID:          t.ID,
			Title:       t.Label,
			Description: description,
			APIPath:     "tables/" + t.ID,
			FirstPeriod: t.FirstPeriod,
			LastPeriod:  t.LastPeriod,
		}
		if t.Updated != "" {
			if ts, err := time.Parse(time.RFC3339, t.Updated); err == nil {
				entry.Updated = ts
			}
		}
		tables = append(tables, entry)
	}
	return tables, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.FetchError("GET %s returned status %d: %s", rawURL, resp.StatusCode, excerpt(body))
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return body, nil
}

// excerpt truncates a response body for log lines.
func excerpt(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
