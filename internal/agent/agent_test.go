package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/catalert/catalert/internal/petdata"
	"github.com/catalert/catalert/internal/provider"
	"github.com/catalert/catalert/internal/session"
	"go.uber.org/zap"
)

// step is one scripted provider response (or failure).
type step struct {
	resp *provider.ChatResponse
	err  error
}

// fakeProvider replays a script of responses. The last step repeats once the
// script is exhausted, which lets tests model a model that never stops
// requesting tools.
type fakeProvider struct {
	mu    sync.Mutex
	steps []step
	calls int
	reqs  []*provider.ChatRequest
}

func (f *fakeProvider) ID() string   { return "fake" }
func (f *fakeProvider) Name() string { return "Fake" }

func (f *fakeProvider) Chat(_ context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqCopy := *req
	reqCopy.Messages = append([]provider.Message(nil), req.Messages...)
	f.reqs = append(f.reqs, &reqCopy)

	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	s := f.steps[i]
	return s.resp, s.err
}

func (f *fakeProvider) HealthCheck(context.Context) error { return nil }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func finalAnswer(content string) step {
	return step{resp: &provider.ChatResponse{Content: content, FinishReason: "stop"}}
}

func toolRound(calls ...provider.ToolCall) step {
	return step{resp: &provider.ChatResponse{FinishReason: "tool_calls", ToolCalls: calls}}
}

func toolCall(id, name, args string) provider.ToolCall {
	return provider.ToolCall{
		ID:   id,
		Type: "function",
		Function: provider.ToolCallFunction{
			Name:      name,
			Arguments: args,
		},
	}
}

// seededPort returns a port with one cat and a week of mixed activities.
func seededPort() *petdata.MemoryPort {
	port := petdata.NewMemoryPort()
	port.AddCat(&petdata.Profile{
		ID: "cat-1", OwnerID: "user-1", Name: "Huhu",
		HealthCondition: "healthy",
	})
	now := time.Now()
	for i := 0; i < 4; i++ {
		port.AddActivity(petdata.Activity{
			ID: "a-" + string(rune('0'+i)), CatID: "cat-1", Type: petdata.CareFood,
			ScheduledTime: now.Add(-time.Duration(i+1) * time.Hour),
			Status:        petdata.StatusCompleted, Duration: 10,
		})
	}
	port.AddActivity(petdata.Activity{
		ID: "a-skip", CatID: "cat-1", Type: petdata.CarePlay,
		ScheduledTime: now.Add(-30 * time.Minute),
		Status:        petdata.StatusSkipped,
	})
	return port
}

type testEnv struct {
	orch     *Orchestrator
	sessions *session.Store
	fake     *fakeProvider
	port     *petdata.MemoryPort
	tools    *ToolRegistry
}

// newTestEnv wires an orchestrator around a scripted provider and an
// in-memory port, with fast retries.
func newTestEnv(t *testing.T, port *petdata.MemoryPort, steps ...step) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	fake := &fakeProvider{steps: steps}
	router := provider.NewRouter(logger)
	router.Register(fake)
	gw := provider.NewGateway(router, provider.GatewayConfig{
		MaxRetries:  2,
		RetryDelay:  time.Millisecond,
		CallTimeout: time.Second,
	}, logger)

	tools := NewToolRegistry()
	RegisterCareTools(tools, port, 50)

	sessions := session.NewStore(time.Minute, logger)
	t.Cleanup(sessions.Close)

	orch := New(
		gw,
		NewClassifier(nil, "test-model", logger), // keyword-only: deterministic
		NewContextBuilder(port, 50, logger),
		tools,
		sessions,
		nil,
		NewSynthesizer(logger),
		Options{
			Model:         "test-model",
			MaxToolRounds: 5,
			Lookback:      7 * 24 * time.Hour,
			ToolTimeout:   100 * time.Millisecond,
		},
		logger,
	)
	return &testEnv{orch: orch, sessions: sessions, fake: fake, port: port, tools: tools}
}
