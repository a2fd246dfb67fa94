// Package classify implements the text-classification collaborator on
// Google's GenAI API. The pipeline consults it only for table
// disambiguation; its output is free text, never trusted as structured data.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"statcheck/internal/logging"

	"google.golang.org/genai"
)

// GenAIClassifier answers classification prompts with Gemini.
type GenAIClassifier struct {
	client *genai.Client
	model  string
}

// NewGenAIClassifier creates a new classifier client.
func NewGenAIClassifier(apiKey, model string) (*GenAIClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClassifier{client: client, model: model}, nil
}

// Classify sends the prompt and returns the model's free-text reply.
func (c *GenAIClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	logging.Classifier("Classify: model=%s prompt_len=%d", c.model, len(prompt))

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		logging.ClassifierWarn("Classify failed after %v: %v", time.Since(start), err)
		return "", fmt.Errorf("GenAI classify failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("no classification returned")
	}

	logging.Classifier("Classify completed in %v response_len=%d", time.Since(start), len(text))
	return text, nil
}
