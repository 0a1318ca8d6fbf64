package perception

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"visionfix/internal/logging"
)

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	Host          string
	Temperature   float64
	ContextWindow int
	Timeout       time.Duration
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:          "http://localhost:11434",
		Temperature:   0.3,
		ContextWindow: 8192,
		Timeout:       300 * time.Second,
	}
}

// OllamaClient implements Client against the Ollama HTTP API.
type OllamaClient struct {
	host       string
	options    ollamaOptions
	timeout    time.Duration
	httpClient *http.Client
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
	Images  []string      `json:"images,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.Timeout <= 0 {
		config.Timeout = DefaultOllamaConfig().Timeout
	}
	return &OllamaClient{
		host:    strings.TrimRight(config.Host, "/"),
		options: ollamaOptions{Temperature: config.Temperature, NumCtx: config.ContextWindow},
		timeout: config.Timeout,
		// Per-call deadlines come from the context; the transport has none.
		httpClient: &http.Client{},
	}
}

// Name implements Client.
func (c *OllamaClient) Name() string { return "ollama" }

// Generate implements Client.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := ollamaGenerateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: c.options,
	}
	for _, img := range req.Images {
		body.Images = append(body.Images, base64.StdEncoding.EncodeToString(img))
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	logging.APIDebug("[Ollama] generate: model=%s prompt_len=%d images=%d", req.Model, len(req.Prompt), len(req.Images))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classify(ctx, "generate", req.Model, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(ctx, "generate", req.Model, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", &RequestError{
			Kind:       KindStatus,
			Op:         "generate",
			Model:      req.Model,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", logging.Truncate(strings.TrimSpace(string(data)), 300)),
		}
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &RequestError{Kind: KindDecode, Op: "generate", Model: req.Model, Err: err}
	}
	if out.Error != "" {
		return "", &RequestError{Kind: KindStatus, Op: "generate", Model: req.Model, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", out.Error)}
	}

	logging.APIDebug("[Ollama] generate: model=%s response_len=%d", req.Model, len(out.Response))
	return out.Response, nil
}

// ListModels implements Client.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, "list_models", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Kind: KindStatus, Op: "list_models", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", resp.Status)}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &RequestError{Kind: KindDecode, Op: "list_models", Err: err}
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
