package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// scriptedProvider replays canned results; the last one repeats.
type scriptedProvider struct {
	id    string
	mu    sync.Mutex
	resps []*ChatResponse
	errs  []error
	calls int
}

func (s *scriptedProvider) ID() string   { return s.id }
func (s *scriptedProvider) Name() string { return s.id }

func (s *scriptedProvider) Chat(context.Context, *ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.errs) {
		i = len(s.errs) - 1
	}
	s.calls++
	if s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.resps[i], nil
}

func (s *scriptedProvider) HealthCheck(context.Context) error { return nil }

func (s *scriptedProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testGateway(cfg GatewayConfig, providers ...Provider) *Gateway {
	router := NewRouter(zap.NewNop())
	for _, p := range providers {
		router.Register(p)
	}
	return NewGateway(router, cfg, zap.NewNop())
}

func fastConfig() GatewayConfig {
	return GatewayConfig{MaxRetries: 2, RetryDelay: time.Millisecond, CallTimeout: time.Second}
}

func TestCompleteNoProviders(t *testing.T) {
	gw := testGateway(fastConfig())
	_, err := gw.Complete(context.Background(), &ChatRequest{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != GenerationMalformed {
		t.Fatalf("err = %v, want malformed GenerationError", err)
	}
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("err = %v, want ErrNoProvider", err)
	}
}

func TestCompleteRetriesTransient(t *testing.T) {
	p := &scriptedProvider{
		id: "p1",
		errs: []error{
			&APIError{Status: 429, Body: "rate limited"},
			&APIError{Status: 500, Body: "server error"},
			nil,
		},
		resps: []*ChatResponse{nil, nil, {Content: "ok", FinishReason: "stop"}},
	}
	gw := testGateway(fastConfig(), p)

	resp, err := gw.Complete(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
	if p.callCount() != 3 {
		t.Errorf("calls = %d, want 3", p.callCount())
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	p := &scriptedProvider{id: "p1", errs: []error{&APIError{Status: 503, Body: "down"}}}
	gw := testGateway(fastConfig(), p)

	_, err := gw.Complete(context.Background(), &ChatRequest{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != GenerationTransient {
		t.Fatalf("err = %v, want transient GenerationError", err)
	}
	if p.callCount() != 3 {
		t.Errorf("calls = %d, want MaxRetries+1 = 3", p.callCount())
	}
}

func TestCompleteMalformedNotRetried(t *testing.T) {
	p := &scriptedProvider{id: "p1", errs: []error{
		fmt.Errorf("%w: empty choices", ErrMalformedResponse),
	}}
	gw := testGateway(fastConfig(), p)

	_, err := gw.Complete(context.Background(), &ChatRequest{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != GenerationMalformed {
		t.Fatalf("err = %v, want malformed GenerationError", err)
	}
	if p.callCount() != 1 {
		t.Errorf("calls = %d, malformed responses must not retry", p.callCount())
	}
}

func TestCompleteClientErrorNotRetried(t *testing.T) {
	p := &scriptedProvider{id: "p1", errs: []error{&APIError{Status: 400, Body: "bad request"}}}
	gw := testGateway(fastConfig(), p)

	_, err := gw.Complete(context.Background(), &ChatRequest{})
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != GenerationMalformed {
		t.Fatalf("err = %v, want malformed GenerationError for a 400", err)
	}
	if p.callCount() != 1 {
		t.Errorf("calls = %d, want 1", p.callCount())
	}
}

func TestCompleteFallsBackToSecondProvider(t *testing.T) {
	down := &scriptedProvider{id: "down", errs: []error{&APIError{Status: 503, Body: "down"}}}
	up := &scriptedProvider{
		id:    "up",
		errs:  []error{nil},
		resps: []*ChatResponse{{Content: "fallback", FinishReason: "stop"}},
	}
	gw := testGateway(fastConfig(), down, up)

	resp, err := gw.Complete(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "fallback" {
		t.Errorf("content = %q", resp.Content)
	}
	if down.callCount() != 1 || up.callCount() != 1 {
		t.Errorf("calls = %d/%d, want the fallback on the first attempt", down.callCount(), up.callCount())
	}
}

func TestCompleteCancelledContext(t *testing.T) {
	p := &scriptedProvider{id: "p1", errs: []error{context.Canceled}}
	gw := testGateway(fastConfig(), p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Complete(ctx, &ChatRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		t.Error("cancellation must not be classified as a generation failure")
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want GenerationKind
	}{
		{"malformed sentinel", fmt.Errorf("%w: junk", ErrMalformedResponse), GenerationMalformed},
		{"client error", &APIError{Status: 422}, GenerationMalformed},
		{"rate limit", &APIError{Status: 429}, GenerationTransient},
		{"server error", &APIError{Status: 502}, GenerationTransient},
		{"network error", errors.New("connection refused"), GenerationTransient},
	}
	for _, tc := range cases {
		if got := classifyError(tc.err); got.Kind != tc.want {
			t.Errorf("%s: kind = %s, want %s", tc.name, got.Kind, tc.want)
		}
	}
}

func TestRouterChainOrder(t *testing.T) {
	a := &scriptedProvider{id: "a", errs: []error{nil}, resps: []*ChatResponse{{}}}
	b := &scriptedProvider{id: "b", errs: []error{nil}, resps: []*ChatResponse{{}}}
	c := &scriptedProvider{id: "c", errs: []error{nil}, resps: []*ChatResponse{{}}}

	router := NewRouter(zap.NewNop())
	router.Register(a)
	router.Register(b)
	router.Register(c)
	router.SetDefault("b")

	chain := router.Chain()
	got := make([]string, len(chain))
	for i, p := range chain {
		got[i] = p.ID()
	}
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chain = %v, want %v", got, want)
		}
	}
}
