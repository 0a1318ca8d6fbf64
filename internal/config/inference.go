package config

import (
	"fmt"
	"time"
)

// Inference providers.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// ValidProviders lists all supported inference providers.
var ValidProviders = []string{ProviderOllama, ProviderGemini}

// InferenceConfig configures the inference service shared by the vision and
// coder models.
type InferenceConfig struct {
	Provider      string  `yaml:"provider"` // ollama, gemini
	Host          string  `yaml:"host"`
	APIKey        string  `yaml:"api_key,omitempty"`
	GeminiBaseURL string  `yaml:"gemini_base_url,omitempty"` // override for the Gemini endpoint
	VisionModel   string  `yaml:"vision_model"`
	CoderModel    string  `yaml:"coder_model"`
	Temperature   float64 `yaml:"temperature"`
	ContextWindow int     `yaml:"context_window"`
	Timeout       string  `yaml:"timeout"`

	// MinInterval spaces consecutive calls; zero disables spacing.
	MinInterval string `yaml:"min_interval"`
	// MaxRetries is the number of extra transport attempts; zero means a
	// single call.
	MaxRetries   int    `yaml:"max_retries"`
	RetryBackoff string `yaml:"retry_backoff"`
}

// DefaultInferenceConfig returns the Ollama defaults.
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		Provider:      ProviderOllama,
		Host:          "http://localhost:11434",
		VisionModel:   "qwen3-vl:235b-a22b-instruct-q4_K_M",
		CoderModel:    "qwen3-coder:30b-a3b-q8_0",
		Temperature:   0.3,
		ContextWindow: 8192,
		Timeout:       "300s",
		MinInterval:   "0s",
		MaxRetries:    0,
		RetryBackoff:  "1s",
	}
}

// GetTimeout returns the per-call inference timeout.
func (c InferenceConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 300*time.Second)
}

// GetMinInterval returns the minimum spacing between calls.
func (c InferenceConfig) GetMinInterval() time.Duration {
	return parseDuration(c.MinInterval, 0)
}

// GetRetryBackoff returns the base backoff between transport retries.
func (c InferenceConfig) GetRetryBackoff() time.Duration {
	return parseDuration(c.RetryBackoff, time.Second)
}

func (c InferenceConfig) validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid inference provider: %s (valid: %v)", c.Provider, ValidProviders)
	}
	if c.VisionModel == "" || c.CoderModel == "" {
		return fmt.Errorf("inference.vision_model and inference.coder_model are required")
	}
	if c.Provider == ProviderOllama && c.Host == "" {
		return fmt.Errorf("inference.host not configured (set VISIONFIX_INFERENCE_HOST or OLLAMA_HOST)")
	}
	if c.Provider == ProviderGemini && c.APIKey == "" {
		return fmt.Errorf("gemini provider requires an API key (set GEMINI_API_KEY)")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("inference.max_retries must not be negative")
	}
	return nil
}
