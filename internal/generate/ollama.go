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

// OllamaClient talks to a local Ollama server over its generate API.
type OllamaClient struct {
	Host       string
	Model      string
	Temp       float64
	MaxTokens  int
	MaxRetries int
	Client     *http.Client
}

// NewOllama builds an Ollama backend from config.
func NewOllama(cfg types.GeneratorConfig) *OllamaClient {
	host := cfg.Host
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaClient{
		Host:       host,
		Model:      cfg.Model,
		Temp:       cfg.Temperature,
		MaxTokens:  cfg.MaxTokens,
		MaxRetries: cfg.MaxRetries,
		Client:     httpClient(cfg.Timeout),
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate sends the prompt with streaming disabled and returns the
// complete response text.
func (o *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  o.Model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: o.Temp,
			NumPredict:  o.MaxTokens,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(o.Host, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, o.Client, req, o.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", wrapTimeout(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ollama returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("decoding Ollama response: %w", err)
	}
	if oResp.Error != "" {
		return "", fmt.Errorf("Ollama error: %s", oResp.Error)
	}

	return oResp.Response, nil
}
