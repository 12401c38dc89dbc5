package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/catalert/catalert/internal/provider"
	"github.com/catalert/catalert/internal/session"
	"go.uber.org/zap"
)

const systemPrompt = `You are CatAlert's cat care assistant. You help owners with:
1. Health monitoring: analyze daily care data and spot unusual trends
2. Behavior analysis: understand activity patterns and give tailored advice
3. Reminder planning: suggest care reminders that fit the cat and the owner
4. Anomaly awareness: flag patterns worth watching

Principles:
- Base every statement on the provided data, never guess
- Give specific, actionable advice
- Recommend a veterinarian whenever you are unsure
- The cat's health and wellbeing come first

You may call the declared tools to fetch additional records.`

// Options tunes the orchestrator.
type Options struct {
	Model         string
	MaxToolRounds int
	Lookback      time.Duration
	MaxHistory    int           // prior turns included in the prompt
	ToolTimeout   time.Duration // per-dispatch budget
}

// Orchestrator drives the request lifecycle: resolve session, classify,
// build context, run the tool-dispatch loop, synthesize, commit history.
type Orchestrator struct {
	gw         *provider.Gateway
	classifier *Classifier
	builder    *ContextBuilder
	tools      *ToolRegistry
	sessions   *session.Store
	archive    *session.Archive // optional
	synth      *Synthesizer
	opts       Options
	logger     *zap.Logger
}

// New creates an orchestrator. archive may be nil.
func New(
	gw *provider.Gateway,
	classifier *Classifier,
	builder *ContextBuilder,
	tools *ToolRegistry,
	sessions *session.Store,
	archive *session.Archive,
	synth *Synthesizer,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 5
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 7 * 24 * time.Hour
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 20
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = 30 * time.Second
	}
	return &Orchestrator{
		gw:         gw,
		classifier: classifier,
		builder:    builder,
		tools:      tools,
		sessions:   sessions,
		archive:    archive,
		synth:      synth,
		opts:       opts,
		logger:     logger,
	}
}

// Process handles one user turn and returns the synthesized reply.
// An unresolvable cat id fails with petdata.ErrCatNotFound and leaves the
// session store untouched; all generation-side failures degrade into a reply.
func (o *Orchestrator) Process(ctx context.Context, userID, catID, message, sessionID string) (*Reply, error) {
	start := time.Now()

	handle := o.sessions.Acquire(sessionID)
	defer handle.Release()

	reqType := o.classifier.Classify(ctx, message)

	snap, err := o.builder.Build(ctx, catID, o.opts.Lookback)
	if err != nil {
		return nil, err
	}

	completion, toolResults, loopErr := o.runToolLoop(ctx, snap, handle.History(), message, reqType)
	if loopErr != nil && ctx.Err() != nil {
		// Cancelled mid-flight: commit nothing, the whole turn is dropped.
		return nil, fmt.Errorf("process aborted: %w", ctx.Err())
	}

	var reply *Reply
	if completion == nil {
		reply = o.synth.Degraded(reqType)
	} else {
		reply = o.synth.Synthesize(completion, toolResults, reqType, snap)
	}
	reply.SessionID = handle.ID()
	reply.ProcessingMS = time.Since(start).Milliseconds()

	handle.Commit(userID, catID,
		provider.Message{Role: "user", Content: message},
		provider.Message{Role: "assistant", Content: reply.Message},
	)

	if o.archive != nil {
		now := time.Now()
		o.archive.RecordAsync([]*session.TurnRecord{
			{SessionID: reply.SessionID, UserID: userID, CatID: catID,
				Role: "user", Content: message, RequestType: string(reqType), Timestamp: now},
			{SessionID: reply.SessionID, UserID: userID, CatID: catID,
				Role: "assistant", Content: reply.Message, RequestType: string(reqType),
				ProcessingMS: reply.ProcessingMS, Timestamp: now},
		})
	}

	o.logger.Info("processed turn",
		zap.String("session_id", reply.SessionID),
		zap.String("request_type", string(reqType)),
		zap.Int64("processing_ms", reply.ProcessingMS),
		zap.Int("tool_calls", len(toolResults)))
	return reply, nil
}

// runToolLoop is the bounded state machine of one generation: send context,
// dispatch any requested tools, feed results back, repeat until the model
// returns a final answer or the round cap is hit. The last completion is
// returned even when the cap fires, so the caller can still answer.
func (o *Orchestrator) runToolLoop(ctx context.Context, snap *Snapshot, history []provider.Message, message string, reqType RequestType) (*provider.ChatResponse, []ToolResult, error) {
	req := &provider.ChatRequest{
		Model:     o.opts.Model,
		Messages:  o.buildMessages(snap, history, message, reqType),
		MaxTokens: 4096,
	}
	if len(o.tools.Definitions()) > 0 {
		req.Tools = o.tools.Definitions()
		req.ToolChoice = "auto"
	}

	var (
		resp    *provider.ChatResponse
		results []ToolResult
	)
	for round := 0; round < o.opts.MaxToolRounds; round++ {
		var err error
		resp, err = o.gw.Complete(ctx, req)
		if err != nil {
			var genErr *provider.GenerationError
			if errors.As(err, &genErr) {
				o.logger.Warn("generation failed",
					zap.String("kind", string(genErr.Kind)), zap.Error(genErr.Err))
				return nil, results, genErr
			}
			return nil, results, err
		}

		if len(resp.ToolCalls) == 0 || resp.FinishReason != "tool_calls" {
			return resp, results, nil
		}

		req.Messages = append(req.Messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			// A hung handler must not hold the session lock forever.
			toolCtx, cancel := context.WithTimeout(ctx, o.opts.ToolTimeout)
			result := o.tools.Dispatch(toolCtx, tc)
			cancel()
			if result.Error != "" {
				o.logger.Warn("tool dispatch failed",
					zap.String("tool", result.Name), zap.String("error", result.Error))
			}
			results = append(results, result)
			req.Messages = append(req.Messages, provider.Message{
				Role:       "tool",
				Content:    result.payload(),
				ToolCallID: tc.ID,
			})
		}
		o.logger.Debug("tool round complete",
			zap.Int("round", round+1),
			zap.Int("tool_calls", len(resp.ToolCalls)))
	}

	// Iteration cap: answer with whatever the model last said.
	o.logger.Warn("tool round cap reached", zap.Int("cap", o.opts.MaxToolRounds))
	return resp, results, nil
}

func (o *Orchestrator) buildMessages(snap *Snapshot, history []provider.Message, message string, reqType RequestType) []provider.Message {
	msgs := []provider.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "system", Content: "Cat context snapshot:\n" + snap.PromptJSON()},
	}
	if instr := intentInstructions(reqType); instr != "" {
		msgs = append(msgs, provider.Message{Role: "system", Content: instr})
	}
	if len(history) > o.opts.MaxHistory {
		history = history[len(history)-o.opts.MaxHistory:]
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, provider.Message{Role: "user", Content: message})
	return msgs
}

// intentInstructions shapes the expected output per request category.
func intentInstructions(reqType RequestType) string {
	switch reqType {
	case RequestReminderManagement:
		return `Reply with a JSON object: {"message": "...", "suggestions": [{"title", "type", "suggested_times", "frequency", "reason"}]}. Types are food, water, play, medication, vet_visit, grooming; suggested_times use "HH:MM".`
	case RequestHealthConsultation:
		return `Reply with a JSON object: {"message": "...", "insights": [{"type", "title", "description", "priority", "actionable"}]}. Priority is one of low, medium, high. Recommend a veterinarian for anything urgent.`
	case RequestSimpleQuery:
		return "Answer the question directly and concisely from the snapshot and tool data."
	}
	return ""
}
