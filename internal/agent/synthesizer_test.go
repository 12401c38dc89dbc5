package agent

import (
	"testing"

	"github.com/catalert/catalert/internal/provider"
	"go.uber.org/zap"
)

func newSynth() *Synthesizer { return NewSynthesizer(zap.NewNop()) }

func TestSynthesizePlainText(t *testing.T) {
	reply := newSynth().Synthesize(&provider.ChatResponse{
		Content: "  Feed her twice a day.  ",
	}, nil, RequestGeneralChat, nil)
	if reply.Message != "Feed her twice a day." {
		t.Errorf("message = %q", reply.Message)
	}
	if !reply.Success {
		t.Error("expected success")
	}
	if len(reply.Suggestions) != 0 || len(reply.Insights) != 0 {
		t.Error("plain text reply must have empty suggestions/insights")
	}
}

func TestSynthesizeStructuredPayload(t *testing.T) {
	content := `{"message":"Here are some reminders.","suggestions":[
		{"title":"Morning feeding","type":"food","suggested_times":["08:00"],"reason":"regular meals"},
		{"title":"","type":"play"},
		{"type":"water"}
	]}`
	reply := newSynth().Synthesize(&provider.ChatResponse{Content: content}, nil, RequestReminderManagement, nil)

	if reply.Message != "Here are some reminders." {
		t.Errorf("message = %q", reply.Message)
	}
	if len(reply.Suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1 (incomplete entries dropped)", len(reply.Suggestions))
	}
	s := reply.Suggestions[0]
	if s.Title != "Morning feeding" || s.Type != "food" {
		t.Errorf("suggestion = %+v", s)
	}
	if s.Frequency != "daily" {
		t.Errorf("frequency = %q, want default daily", s.Frequency)
	}
}

func TestSynthesizeFencedPayload(t *testing.T) {
	content := "```json\n{\"message\":\"ok\",\"insights\":[{\"type\":\"health\",\"title\":\"Check weight\",\"priority\":\"high\",\"actionable\":true}]}\n```"
	reply := newSynth().Synthesize(&provider.ChatResponse{Content: content}, nil, RequestGeneralChat, nil)
	if reply.Message != "ok" {
		t.Errorf("message = %q", reply.Message)
	}
	if len(reply.Insights) != 1 || reply.Insights[0].Priority != PriorityHigh {
		t.Errorf("insights = %+v", reply.Insights)
	}
}

func TestSynthesizeInsightValidation(t *testing.T) {
	content := `{"message":"m","insights":[
		{"title":"No priority"},
		{"title":"Bad priority","priority":"urgent"},
		{"priority":"high"}
	]}`
	reply := newSynth().Synthesize(&provider.ChatResponse{Content: content}, nil, RequestGeneralChat, nil)
	if len(reply.Insights) != 1 {
		t.Fatalf("insights = %d, want 1", len(reply.Insights))
	}
	if reply.Insights[0].Priority != PriorityMedium {
		t.Errorf("missing priority should default to medium, got %s", reply.Insights[0].Priority)
	}
}

func TestSynthesizeBrokenJSONFallsBackToRaw(t *testing.T) {
	content := `{"message":"unterminated`
	reply := newSynth().Synthesize(&provider.ChatResponse{Content: content}, nil, RequestGeneralChat, nil)
	if reply.Message != content {
		t.Errorf("message = %q, want raw content", reply.Message)
	}
}

func TestSynthesizeEmptyCompletion(t *testing.T) {
	reply := newSynth().Synthesize(&provider.ChatResponse{Content: "   "}, nil, RequestGeneralChat, nil)
	if reply.Message != apologyMessage {
		t.Errorf("message = %q, want apology", reply.Message)
	}
	if !reply.Success {
		t.Error("expected success")
	}
}

func TestSynthesizeHealthInsightLowCompletion(t *testing.T) {
	snap := &Snapshot{Statistics: Stats{TotalActivities: 10, CompletedActivities: 3, CompletionRate: 0.3}}
	reply := newSynth().Synthesize(&provider.ChatResponse{Content: "watch her closely"}, nil, RequestHealthConsultation, snap)

	var found bool
	for _, ins := range reply.Insights {
		if ins.Title == "Care completion rate is low" && ins.Priority == PriorityHigh && ins.Actionable {
			found = true
		}
	}
	if !found {
		t.Errorf("expected low-completion insight, got %+v", reply.Insights)
	}
}

func TestSynthesizeHealthInsightThreshold(t *testing.T) {
	snap := &Snapshot{Statistics: Stats{TotalActivities: 10, CompletedActivities: 5, CompletionRate: 0.5}}
	reply := newSynth().Synthesize(&provider.ChatResponse{Content: "all good"}, nil, RequestHealthConsultation, snap)
	if len(reply.Insights) != 0 {
		t.Errorf("rate exactly 0.5 must not trigger the low-completion insight: %+v", reply.Insights)
	}
}

func TestDegraded(t *testing.T) {
	reply := newSynth().Degraded(RequestSimpleQuery)
	if !reply.Success {
		t.Error("degraded reply must keep success=true")
	}
	if reply.Message != apologyMessage {
		t.Errorf("message = %q", reply.Message)
	}
	if reply.RequestType != RequestSimpleQuery {
		t.Errorf("request type = %s", reply.RequestType)
	}
	if reply.Suggestions == nil || reply.Insights == nil {
		t.Error("slices must be non-nil for JSON encoding")
	}
}
