package pipeline

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPrerequisites_OK(t *testing.T) {
	h := newHarness(t)
	pf, err := h.orchestrator(nil).CheckPrerequisites(context.Background())
	require.NoError(t, err)
	assert.True(t, pf.OK())
	assert.Equal(t, http.StatusOK, pf.AppStatus)
	assert.Empty(t, pf.Missing)
}

func TestCheckPrerequisites_MissingModelsWarnOnly(t *testing.T) {
	h := newHarness(t)
	h.inference.models = []string{"llama3:8b"}
	pf, err := h.orchestrator(nil).CheckPrerequisites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{visionModel, coderModel}, pf.Missing)
}

func TestCheckPrerequisites_ClientErrorStatusIsReachable(t *testing.T) {
	h := newHarness(t)
	h.appHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }
	pf, err := h.orchestrator(nil).CheckPrerequisites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, pf.AppStatus)
}

func TestRun_PrerequisiteFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"app server error", func(h *harness) {
			h.appHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }
		}},
		{"app unreachable", func(h *harness) {
			h.opts.BaseURL = "http://127.0.0.1:1"
		}},
		{"inference unreachable", func(h *harness) {
			h.inference.listErr = errors.New("connection refused")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)

			res, err := h.orchestrator(nil).Run(context.Background())
			assert.ErrorIs(t, err, ErrPrerequisites)
			assert.Nil(t, res)
			assert.Zero(t, h.collector.calls)
			assert.Empty(t, h.reporter.summaries)
		})
	}
}
