package pipeline

import (
	"context"
	"errors"
	"sync"

	"visionfix/internal/coder"
	"visionfix/internal/collect"
	"visionfix/internal/ledger"
	"visionfix/internal/perception"
	"visionfix/internal/report"
	"visionfix/internal/tactile"
)

type fakeCollector struct {
	calls   int
	collect func(call int) ([]collect.Artifact, error)
}

func (f *fakeCollector) Name() string { return "fake" }

func (f *fakeCollector) Collect(ctx context.Context) ([]collect.Artifact, error) {
	f.calls++
	return f.collect(f.calls)
}

func staticArtifacts(names ...string) func(int) ([]collect.Artifact, error) {
	return func(int) ([]collect.Artifact, error) {
		out := make([]collect.Artifact, 0, len(names))
		for _, n := range names {
			out = append(out, collect.Artifact{Path: "screenshots/captures/" + n + ".png", Name: n})
		}
		return out, nil
	}
}

type fakeAnalyzer struct {
	calls   int
	analyze func(call int, art collect.Artifact) ([]ledger.Defect, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, art collect.Artifact) ([]ledger.Defect, error) {
	f.calls++
	defects, err := f.analyze(f.calls, art)
	for i := range defects {
		defects[i].Screenshot = art.Path
	}
	return defects, err
}

type fakeSynthesizer struct {
	calls      []string
	synthesize func(bug ledger.Bug) (*coder.Proposal, error)
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, bug ledger.Bug) (*coder.Proposal, error) {
	f.calls = append(f.calls, bug.ID)
	return f.synthesize(bug)
}

func failingSynth(err error) *fakeSynthesizer {
	return &fakeSynthesizer{synthesize: func(ledger.Bug) (*coder.Proposal, error) {
		return &coder.Proposal{}, err
	}}
}

type fakePatcher struct {
	calls int
	err   error
}

func (f *fakePatcher) Apply(path, oldCode, newCode string) (*tactile.PatchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &tactile.PatchResult{Path: "/p/" + path, RelPath: path, Diff: "--- a/" + path + "\n"}, nil
}

type fakeReporter struct {
	mu        sync.Mutex
	summaries []report.Summary
}

func (f *fakeReporter) Generate(s report.Summary) (*report.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, s)
	return &report.Artifact{Stamp: "20250101-000000", MarkdownPath: "reports/pipeline-20250101-000000.md"}, nil
}

// fakeInference answers the model listing probe and routes Generate by model.
type fakeInference struct {
	models   []string
	listErr  error
	generate func(req perception.Request) (string, error)
}

func (f *fakeInference) Name() string { return "fake" }

func (f *fakeInference) ListModels(ctx context.Context) ([]string, error) {
	return f.models, f.listErr
}

func (f *fakeInference) Generate(ctx context.Context, req perception.Request) (string, error) {
	if f.generate == nil {
		return "", errors.New("generate not scripted")
	}
	return f.generate(req)
}

func defect(id, desc string) ledger.Defect {
	return ledger.Defect{ID: id, Severity: ledger.SeverityHigh, Component: "Results Table", Description: desc}
}
