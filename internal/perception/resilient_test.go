package perception

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns errs in order, then out.
type scriptedClient struct {
	mu    sync.Mutex
	errs  []error
	out   string
	calls int
	reqs  []Request
}

func (s *scriptedClient) Name() string { return "scripted" }

func (s *scriptedClient) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.reqs = append(s.reqs, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return s.out, nil
}

func (s *scriptedClient) ListModels(ctx context.Context) ([]string, error) {
	_, err := s.Generate(ctx, Request{})
	if err != nil {
		return nil, err
	}
	return []string{s.out}, nil
}

func recordSleeps(c *ResilientClient) *[]time.Duration {
	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return &sleeps
}

func TestResilientClient_ZeroConfigCallsOnce(t *testing.T) {
	under := &scriptedClient{errs: []error{&RequestError{Kind: KindConnection}}}
	c := NewResilientClient(under, ResilientConfig{})

	_, err := c.Generate(context.Background(), Request{Model: "m"})
	assert.Error(t, err)
	assert.Equal(t, 1, under.calls)
}

func TestResilientClient_RetriesWithBackoff(t *testing.T) {
	under := &scriptedClient{
		errs: []error{&RequestError{Kind: KindTimeout}, &RequestError{Kind: KindStatus, StatusCode: 502}},
		out:  "done",
	}
	c := NewResilientClient(under, ResilientConfig{MaxRetries: 3, Backoff: time.Second})
	sleeps := recordSleeps(c)

	out, err := c.Generate(context.Background(), Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, under.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
}

func TestResilientClient_StopsOnNonRetryable(t *testing.T) {
	decodeErr := &RequestError{Kind: KindDecode, Err: errors.New("bad json")}
	under := &scriptedClient{errs: []error{decodeErr}}
	c := NewResilientClient(under, ResilientConfig{MaxRetries: 5})
	recordSleeps(c)

	_, err := c.Generate(context.Background(), Request{})
	assert.Same(t, decodeErr, err)
	assert.Equal(t, 1, under.calls)
}

func TestResilientClient_ReturnsLastErrorWhenExhausted(t *testing.T) {
	under := &scriptedClient{errs: []error{
		&RequestError{Kind: KindConnection},
		&RequestError{Kind: KindConnection},
		&RequestError{Kind: KindTimeout},
	}}
	c := NewResilientClient(under, ResilientConfig{MaxRetries: 2})
	recordSleeps(c)

	_, err := c.ListModels(context.Background())
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 3, under.calls)
}

func TestResilientClient_SpacesCalls(t *testing.T) {
	under := &scriptedClient{out: "x"}
	c := NewResilientClient(under, ResilientConfig{MinInterval: 40 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Generate(context.Background(), Request{})
		require.NoError(t, err)
	}
	// The first call uses the initial token; the next two wait.
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}
