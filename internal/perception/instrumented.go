package perception

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"visionfix/internal/logging"
)

var tracer = otel.Tracer("visionfix.perception")

// Observer receives one callback per finished call. The metrics package
// implements it.
type Observer interface {
	ObserveInference(provider, op, model string, elapsed time.Duration, err error)
}

// InstrumentedClient wraps a Client with tracing spans, API logging and an
// optional Observer.
type InstrumentedClient struct {
	underlying Client
	observer   Observer
}

// NewInstrumentedClient wraps underlying. observer may be nil.
func NewInstrumentedClient(underlying Client, observer Observer) *InstrumentedClient {
	return &InstrumentedClient{underlying: underlying, observer: observer}
}

// Name implements Client.
func (c *InstrumentedClient) Name() string { return c.underlying.Name() }

// Generate implements Client.
func (c *InstrumentedClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "perception.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", c.underlying.Name()),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.prompt_len", len(req.Prompt)),
		attribute.Int("llm.images", len(req.Images)),
	)

	start := time.Now()
	logging.API("LLM call started: model=%s prompt_len=%d images=%d", req.Model, len(req.Prompt), len(req.Images))
	out, err := c.underlying.Generate(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.APIError("LLM call failed: model=%s after %s: %v", req.Model, elapsed.Round(time.Millisecond), err)
	} else {
		span.SetAttributes(attribute.Int("llm.response_len", len(out)))
		logging.API("LLM call completed: model=%s duration=%s response_len=%d", req.Model, elapsed.Round(time.Millisecond), len(out))
	}
	if c.observer != nil {
		c.observer.ObserveInference(c.underlying.Name(), "generate", req.Model, elapsed, err)
	}
	return out, err
}

// ListModels implements Client.
func (c *InstrumentedClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "perception.ListModels")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", c.underlying.Name()))

	start := time.Now()
	models, err := c.underlying.ListModels(ctx)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("llm.models", len(models)))
	}
	if c.observer != nil {
		c.observer.ObserveInference(c.underlying.Name(), "list_models", "", elapsed, err)
	}
	return models, err
}
