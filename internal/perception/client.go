// Package perception talks to the inference service. A Client issues one
// synchronous generate request (text prompt plus optional images) and can list
// the models the service offers; decorators add spacing, retries, tracing and
// metrics without changing that contract.
package perception

import (
	"context"
	"strings"
)

// Request is a single generate call.
type Request struct {
	Model  string
	Prompt string
	// Images are raw image bytes (PNG); clients encode them for the wire.
	Images [][]byte
}

// Client is the interface every inference provider implements.
type Client interface {
	// Generate returns the raw model text or a *RequestError.
	Generate(ctx context.Context, req Request) (string, error)
	// ListModels returns the model identifiers the service reports.
	ListModels(ctx context.Context) ([]string, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

// HasModel reports whether want appears in models. Matching is by substring
// so "qwen3-vl:8b" matches "qwen3-vl:8b:latest" and "models/gemini-x" matches
// "gemini-x".
func HasModel(models []string, want string) bool {
	if want == "" {
		return false
	}
	for _, m := range models {
		if strings.Contains(m, want) {
			return true
		}
	}
	return false
}

// MissingModels returns the entries of wants not present in models.
func MissingModels(models []string, wants ...string) []string {
	var missing []string
	for _, w := range wants {
		if !HasModel(models, w) {
			missing = append(missing, w)
		}
	}
	return missing
}
