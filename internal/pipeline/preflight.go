package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"visionfix/internal/logging"
	"visionfix/internal/perception"

	"golang.org/x/sync/errgroup"
)

// Preflight is the outcome of the reachability probes.
type Preflight struct {
	AppStatus int
	AppErr    error
	Models    []string
	ModelsErr error
	Missing   []string
}

// OK reports whether both probes passed.
func (p *Preflight) OK() bool { return p.AppErr == nil && p.ModelsErr == nil }

// CheckPrerequisites probes the application and the inference service
// concurrently. Either failure returns ErrPrerequisites; missing models only
// warn.
func (o *Orchestrator) CheckPrerequisites(ctx context.Context) (*Preflight, error) {
	logging.Pipeline("[Prerequisites] Checking...")
	pf := &Preflight{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		pf.AppStatus, pf.AppErr = o.probeApp(egCtx)
		return nil
	})
	eg.Go(func() error {
		pf.Models, pf.ModelsErr = o.probeModels(egCtx)
		return nil
	})
	_ = eg.Wait()

	if pf.AppErr != nil {
		logging.PipelineError("  Application not reachable at %s: %v", o.opts.BaseURL, pf.AppErr)
	} else {
		logging.Pipeline("  Application: %s (HTTP %d)", o.opts.BaseURL, pf.AppStatus)
	}

	if pf.ModelsErr != nil {
		logging.PipelineError("  Inference service not reachable: %v", pf.ModelsErr)
	} else {
		logging.Pipeline("  Inference service: %s (%d models)", o.deps.Inference.Name(), len(pf.Models))
		pf.Missing = perception.MissingModels(pf.Models, o.opts.VisionModel, o.opts.CoderModel)
		logging.Pipeline("    Vision model (%s): %s", o.opts.VisionModel, availability(pf.Models, o.opts.VisionModel))
		logging.Pipeline("    Coder model (%s): %s", o.opts.CoderModel, availability(pf.Models, o.opts.CoderModel))
		if len(pf.Missing) > 0 {
			logging.PipelineWarn("    Required models may not be available: %v", pf.Missing)
		}
	}

	if !pf.OK() {
		return pf, fmt.Errorf("%w: %w", ErrPrerequisites, errors.Join(pf.AppErr, pf.ModelsErr))
	}
	return pf, nil
}

func (o *Orchestrator) probeApp(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.opts.BaseURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build probe request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, fmt.Errorf("application returned HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (o *Orchestrator) probeModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.ProbeTimeout)
	defer cancel()
	return o.deps.Inference.ListModels(ctx)
}

func availability(models []string, want string) string {
	if perception.HasModel(models, want) {
		return "available"
	}
	return "missing"
}
