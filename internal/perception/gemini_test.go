package perception

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionfix/internal/config"
)

func TestGeminiClient_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"status\":\"pass\"}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "k", BaseURL: srv.URL, Temperature: 0.3, Timeout: 5 * time.Second})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), Request{Model: "gemini-test", Prompt: "judge", Images: [][]byte{[]byte("img")}})
	require.NoError(t, err)
	assert.Equal(t, `{"status":"pass"}`, out)

	contents, _ := body["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	assert.Len(t, parts, 2, "text part plus one inline image")
}

func TestGeminiClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), Request{Model: "gemini-test", Prompt: "x"})
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindStatus, re.Kind)
	assert.Equal(t, 429, re.StatusCode)
	assert.True(t, re.Retryable())
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}

func TestNewClientFromConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"qwen3-vl:latest"}]}`))
	}))
	defer srv.Close()

	cfg := config.DefaultInferenceConfig()
	cfg.Host = srv.URL
	obs := &fakeObserver{}
	c, err := NewClientFromConfig(context.Background(), cfg, obs)
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.Name())

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.True(t, HasModel(models, "qwen3-vl"))
	assert.Len(t, obs.seen, 1)

	cfg.Provider = "bard"
	_, err = NewClientFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)
}
