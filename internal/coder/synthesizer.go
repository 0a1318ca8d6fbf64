// Package coder asks a code model for a source edit that fixes one bug.
package coder

import (
	"context"
	"fmt"

	"visionfix/internal/config"
	"visionfix/internal/ledger"
	"visionfix/internal/logging"
	"visionfix/internal/perception"
)

// FileSource reads project files by the path a model wrote.
type FileSource interface {
	ReadFile(path string) (string, error)
}

// Synthesizer runs the repair exchange: one request, plus at most one
// follow-up carrying a file the model asked to see.
type Synthesizer struct {
	client  perception.Client
	model   string
	prompts config.PromptConfig
	files   FileSource
}

// NewSynthesizer creates a synthesizer for the given code model.
func NewSynthesizer(client perception.Client, model string, prompts config.PromptConfig, files FileSource) *Synthesizer {
	return &Synthesizer{client: client, model: model, prompts: prompts, files: files}
}

// Synthesize produces a fix proposal for bug. Transport failures wrap
// ErrNoResponse together with the *perception.RequestError; parse failures
// return ErrNoFilePath or ErrNoCodeBlocks alongside the partial proposal.
func (s *Synthesizer) Synthesize(ctx context.Context, bug ledger.Bug) (*Proposal, error) {
	timer := logging.StartTimer(logging.CategoryCoder, "synthesize "+bug.ID)
	defer timer.Stop()

	prompt := BuildPrompt(s.prompts, bug)
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var requested string
	if path, ok := NeededFile(raw); ok {
		requested = path
		content, readErr := s.readFile(path)
		if readErr != nil {
			logging.CoderWarn("[%s] model requested %s but it cannot be read: %v", bug.ID, path, readErr)
		} else {
			logging.Coder("[%s] model requested %s, re-asking with content", bug.ID, path)
			raw, err = s.generate(ctx, AppendFileContext(prompt, content, s.prompts.CodeFence))
			if err != nil {
				return &Proposal{RequestedFile: requested}, err
			}
		}
	}

	p, err := ParseResponse(raw)
	p.RequestedFile = requested
	if err != nil {
		logging.CoderDebug("[%s] unparsable fix response: %s", bug.ID, logging.Truncate(raw, 500))
		return p, err
	}
	logging.CoderDebug("[%s] proposal for %s (%d -> %d bytes)", bug.ID, p.File, len(p.OldCode), len(p.NewCode))
	return p, nil
}

func (s *Synthesizer) generate(ctx context.Context, prompt string) (string, error) {
	raw, err := s.client.Generate(ctx, perception.Request{Model: s.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	if raw == "" {
		return "", ErrNoResponse
	}
	return raw, nil
}

func (s *Synthesizer) readFile(path string) (string, error) {
	if s.files == nil {
		return "", fmt.Errorf("no file source configured")
	}
	return s.files.ReadFile(path)
}
