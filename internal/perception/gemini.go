package perception

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"visionfix/internal/logging"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string // empty uses the public endpoint
	Temperature float64
	Timeout     time.Duration
}

// GeminiClient implements Client with the Google GenAI SDK.
type GeminiClient struct {
	client      *genai.Client
	temperature float32
	timeout     time.Duration
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	if config.Timeout <= 0 {
		config.Timeout = 300 * time.Second
	}
	cc := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{},
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		temperature: float32(config.Temperature),
		timeout:     config.Timeout,
	}, nil
}

// Name implements Client.
func (c *GeminiClient) Name() string { return "gemini" }

// Generate implements Client.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img, "image/png"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	logging.APIDebug("[Gemini] generate: model=%s prompt_len=%d images=%d", req.Model, len(req.Prompt), len(req.Images))

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", c.wrap(ctx, "generate", req.Model, err)
	}
	return resp.Text(), nil
}

// ListModels implements Client. Names are returned without the "models/"
// prefix so they compare directly with configured identifiers.
func (c *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var names []string
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, c.wrap(ctx, "list_models", "", err)
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

func (c *GeminiClient) wrap(ctx context.Context, op, model string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &RequestError{Kind: KindStatus, Op: op, Model: model, StatusCode: apiErr.Code, Err: err}
	}
	return classify(ctx, op, model, err)
}
