package perception

import (
	"context"
	"fmt"

	"visionfix/internal/config"
	"visionfix/internal/logging"
)

// NewClientFromConfig builds the configured provider and wraps it with the
// resilient and instrumented decorators. observer may be nil.
func NewClientFromConfig(ctx context.Context, cfg config.InferenceConfig, observer Observer) (Client, error) {
	var base Client
	switch cfg.Provider {
	case config.ProviderOllama, "":
		base = NewOllamaClient(OllamaConfig{
			Host:          cfg.Host,
			Temperature:   cfg.Temperature,
			ContextWindow: cfg.ContextWindow,
			Timeout:       cfg.GetTimeout(),
		})
	case config.ProviderGemini:
		gc, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.GeminiBaseURL,
			Temperature: cfg.Temperature,
			Timeout:     cfg.GetTimeout(),
		})
		if err != nil {
			return nil, err
		}
		base = gc
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", cfg.Provider)
	}

	logging.Boot("Inference provider: %s (vision=%s, coder=%s)", base.Name(), cfg.VisionModel, cfg.CoderModel)

	// Retries sit inside the instrumentation so each logical call is one span.
	resilient := NewResilientClient(base, ResilientConfig{
		MinInterval: cfg.GetMinInterval(),
		MaxRetries:  cfg.MaxRetries,
		Backoff:     cfg.GetRetryBackoff(),
	})
	return NewInstrumentedClient(resilient, observer), nil
}
