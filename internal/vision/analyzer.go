// Package vision asks a vision-capable model to review screenshots and turns
// its answer into defects.
package vision

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"visionfix/internal/collect"
	"visionfix/internal/config"
	"visionfix/internal/ledger"
	"visionfix/internal/logging"
	"visionfix/internal/perception"
)

// Analyzer reviews screenshot artifacts one at a time.
type Analyzer struct {
	client perception.Client
	model  string
	prompt string

	readFile func(string) ([]byte, error)

	mu  sync.Mutex
	seq int
}

// NewAnalyzer creates an analyzer for the given vision model.
func NewAnalyzer(client perception.Client, model string, prompts config.PromptConfig) *Analyzer {
	return &Analyzer{
		client:   client,
		model:    model,
		prompt:   BuildPrompt(prompts),
		readFile: os.ReadFile,
	}
}

// Prompt returns the analysis prompt sent with every screenshot.
func (a *Analyzer) Prompt() string { return a.prompt }

// Analyze sends one screenshot to the model and returns the defects it
// reports, each tagged with the artifact path.
func (a *Analyzer) Analyze(ctx context.Context, artifact collect.Artifact) ([]ledger.Defect, error) {
	timer := logging.StartTimer(logging.CategoryVision, "analyze "+artifact.Name)
	defer timer.Stop()

	img, err := a.readFile(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot %s: %w", artifact.Path, err)
	}

	raw, err := a.client.Generate(ctx, perception.Request{
		Model:  a.model,
		Prompt: a.prompt,
		Images: [][]byte{img},
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", artifact.Name, err)
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		logging.VisionDebug("Unparsable response for %s: %s", artifact.Name, logging.Truncate(raw, 500))
		return nil, fmt.Errorf("analyze %s: %w", artifact.Name, err)
	}

	for _, obs := range resp.Observations {
		logging.VisionDebug("[%s] observation: %v", artifact.Name, obs)
	}
	if resp.Status == "pass" && len(resp.Bugs) > 0 {
		logging.VisionDebug("[%s] status pass with %d bugs listed", artifact.Name, len(resp.Bugs))
	}

	defects := make([]ledger.Defect, 0, len(resp.Bugs))
	for _, rb := range resp.Bugs {
		defects = append(defects, a.toDefect(rb, artifact.Path))
	}
	return defects, nil
}

// ArtifactAnalyzer analyzes one screenshot.
type ArtifactAnalyzer interface {
	Analyze(ctx context.Context, artifact collect.Artifact) ([]ledger.Defect, error)
}

// Observer is told the result of each artifact analyzed by AnalyzeAll.
type Observer func(artifact collect.Artifact, defects []ledger.Defect, err error)

// AnalyzeAll analyzes artifacts in order with an. Failures are logged and
// contribute no defects; cancellation stops before the next artifact.
// observe may be nil.
func AnalyzeAll(ctx context.Context, an ArtifactAnalyzer, artifacts []collect.Artifact, observe Observer) []ledger.Defect {
	var all []ledger.Defect
	for _, art := range artifacts {
		if ctx.Err() != nil {
			break
		}
		logging.Vision("Analyzing: %s", art.Name)
		defects, err := an.Analyze(ctx, art)
		if observe != nil {
			observe(art, defects, err)
		}
		if err != nil {
			LogFailure(art, err)
			continue
		}
		logging.Vision("  %s: %d bugs", art.Name, len(defects))
		all = append(all, defects...)
	}
	return all
}

// AnalyzeAll runs the package-level AnalyzeAll with a.
func (a *Analyzer) AnalyzeAll(ctx context.Context, artifacts []collect.Artifact, observe Observer) []ledger.Defect {
	return AnalyzeAll(ctx, a, artifacts, observe)
}

// LogFailure reports a skipped artifact at the right level.
func LogFailure(art collect.Artifact, err error) {
	switch {
	case perception.IsTimeout(err):
		logging.VisionWarn("  %s: inference timed out, skipping", art.Name)
	case perception.KindOf(err) != "":
		logging.VisionError("  %s: inference failed: %v", art.Name, err)
	default:
		logging.VisionWarn("  %s: %v", art.Name, err)
	}
}

func (a *Analyzer) toDefect(rb RawDefect, screenshot string) ledger.Defect {
	id := rb.Identifier()
	if id == "" {
		id = a.nextID(rb.Category)
	}
	return ledger.Defect{
		ID:           id,
		Severity:     ledger.ParseSeverity(rb.Severity),
		Category:     strings.TrimSpace(rb.Category),
		Component:    rb.Component,
		Description:  rb.Description,
		Expected:     rb.Expected,
		Actual:       rb.Actual,
		SuggestedFix: rb.SuggestedFix,
		Screenshot:   screenshot,
	}
}

var nonIdentifier = regexp.MustCompile(`[^A-Z0-9]+`)

func (a *Analyzer) nextID(category string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	tag := strings.Trim(nonIdentifier.ReplaceAllString(strings.ToUpper(category), "-"), "-")
	if tag == "" {
		tag = "UNKNOWN"
	}
	return fmt.Sprintf("BUG-%s-%03d", tag, a.seq)
}
