package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"statcheck/internal/logging"
)

// RESTConfig holds configuration for the REST classifier.
type RESTConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultRESTConfig returns sensible defaults for the public Gemini REST
// endpoint.
func DefaultRESTConfig(apiKey string) RESTConfig {
	return RESTConfig{
		APIKey:  apiKey,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Model:   "gemini-2.0-flash",
		Timeout: 60 * time.Second,
	}
}

// RESTClassifier answers classification prompts over the Gemini REST API
// directly, without the genai SDK. Useful behind proxies or against
// API-compatible gateways where only the base URL differs.
type RESTClassifier struct {
	apiKey      string
	baseURL     string
	model       string
	timeout     time.Duration
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// NewRESTClassifier creates a REST classifier, filling empty fields from the
// defaults.
func NewRESTClassifier(cfg RESTConfig) (*RESTClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("REST classifier API key is required")
	}
	defaults := DefaultRESTConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &RESTClassifier{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// restRequest is the generateContent request body.
type restRequest struct {
	Contents []restContent `json:"contents"`
}

type restContent struct {
	Role  string     `json:"role"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text string `json:"text"`
}

// restResponse is the generateContent response body.
type restResponse struct {
	Candidates []struct {
		Content struct {
			Parts []restPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Classify sends the prompt and returns the model's free-text reply. Retries
// rate-limit responses with exponential backoff; other failures surface
// immediately.
func (c *RESTClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	// Minimum spacing between requests.
	c.mu.Lock()
	if elapsed := time.Since(c.lastRequest); elapsed < 600*time.Millisecond {
		time.Sleep(600*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	// Callers that pass no deadline still get the configured one.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(restRequest{
		Contents: []restContent{
			{Role: "user", Parts: []restPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	start := time.Now()
	logging.Classifier("Classify (REST): model=%s prompt_len=%d", c.model, len(prompt))

	const maxRetries = 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s.
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			logging.ClassifierWarn("Classify (REST) rate limited, attempt %d", i+1)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("classify request failed with status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var rr restResponse
		if err := json.Unmarshal(body, &rr); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if rr.Error != nil {
			return "", fmt.Errorf("classify API error: %s", rr.Error.Message)
		}
		if len(rr.Candidates) == 0 || len(rr.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no classification returned")
		}

		var sb strings.Builder
		for _, part := range rr.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			return "", fmt.Errorf("no classification returned")
		}

		logging.Classifier("Classify (REST) completed in %v response_len=%d",
			time.Since(start), len(text))
		return text, nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
