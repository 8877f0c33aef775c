// Copyright fmforge, 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fmforge/fmforge/internal/httputil"
	"github.com/fmforge/fmforge/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test
// substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Claude Messages API.
type ClaudeClient struct {
	APIKey     string
	Model      string
	Temp       float64
	MaxTokens  int
	MaxRetries int
	Client     *http.Client
}

// NewClaude builds a Claude backend from config.
func NewClaude(cfg types.GeneratorConfig) *ClaudeClient {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &ClaudeClient{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Temp:       cfg.Temperature,
		MaxTokens:  maxTokens,
		MaxRetries: cfg.MaxRetries,
		Client:     httpClient(cfg.Timeout),
	}
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Generate sends the prompt as a single user message and returns the
// concatenated text blocks from the response.
func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temp,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", wrapTimeout(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var sb strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
