package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/catalert/catalert/internal/provider"
	"go.uber.org/zap"
)

const apologyMessage = "Sorry, I couldn't generate a full answer right now. " +
	"Please try again in a moment, and contact a veterinarian directly if your cat needs urgent attention."

// Synthesizer shapes a raw completion into the externally visible Reply.
// It never fails; anything it cannot interpret degrades to a best-effort
// message with empty suggestions and insights.
type Synthesizer struct {
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(logger *zap.Logger) *Synthesizer {
	return &Synthesizer{logger: logger}
}

// replyPayload is the structured shape the model is asked to emit.
type replyPayload struct {
	Message     string            `json:"message"`
	Suggestions []json.RawMessage `json:"suggestions"`
	Insights    []json.RawMessage `json:"insights"`
}

// Synthesize builds the reply from the final completion, the accumulated tool
// results and the context snapshot. Malformed suggestion/insight entries are
// dropped, not propagated.
func (s *Synthesizer) Synthesize(completion *provider.ChatResponse, toolResults []ToolResult, reqType RequestType, snap *Snapshot) *Reply {
	reply := &Reply{
		Success:     true,
		RequestType: reqType,
		Suggestions: []Suggestion{},
		Insights:    []Insight{},
	}

	if completion == nil || strings.TrimSpace(completion.Content) == "" {
		reply.Message = apologyMessage
	} else if payload, ok := parsePayload(completion.Content); ok {
		reply.Message = payload.Message
		reply.Suggestions = s.validSuggestions(payload.Suggestions)
		reply.Insights = s.validInsights(payload.Insights)
	} else {
		reply.Message = strings.TrimSpace(completion.Content)
	}

	if reqType == RequestHealthConsultation && snap != nil {
		reply.Insights = append(reply.Insights, healthInsights(snap)...)
	}
	return reply
}

// Degraded returns the minimal reply used when generation failed outright.
// The user still gets an answer; success stays true by contract.
func (s *Synthesizer) Degraded(reqType RequestType) *Reply {
	return &Reply{
		Success:     true,
		Message:     apologyMessage,
		RequestType: reqType,
		Suggestions: []Suggestion{},
		Insights:    []Insight{},
	}
}

// parsePayload attempts to read the completion as the structured reply shape.
// Models sometimes wrap JSON in code fences; strip those first.
func parsePayload(content string) (*replyPayload, bool) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var payload replyPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, false
	}
	if payload.Message == "" {
		return nil, false
	}
	return &payload, true
}

func (s *Synthesizer) validSuggestions(raw []json.RawMessage) []Suggestion {
	out := []Suggestion{}
	for _, r := range raw {
		var sug Suggestion
		if err := json.Unmarshal(r, &sug); err != nil {
			s.logger.Debug("dropping malformed suggestion", zap.Error(err))
			continue
		}
		if sug.Title == "" || sug.Type == "" {
			s.logger.Debug("dropping incomplete suggestion", zap.String("title", sug.Title))
			continue
		}
		if sug.Frequency == "" {
			sug.Frequency = "daily"
		}
		out = append(out, sug)
	}
	return out
}

func (s *Synthesizer) validInsights(raw []json.RawMessage) []Insight {
	out := []Insight{}
	for _, r := range raw {
		var ins Insight
		if err := json.Unmarshal(r, &ins); err != nil {
			s.logger.Debug("dropping malformed insight", zap.Error(err))
			continue
		}
		if ins.Title == "" {
			continue
		}
		switch ins.Priority {
		case PriorityLow, PriorityMedium, PriorityHigh:
		case "":
			ins.Priority = PriorityMedium
		default:
			s.logger.Debug("dropping insight with invalid priority",
				zap.String("priority", string(ins.Priority)))
			continue
		}
		out = append(out, ins)
	}
	return out
}

// healthInsights derives rule-based insights from the snapshot for health
// consultations: no recent activity and low completion rates are the two
// signals the care data can surface on its own.
func healthInsights(snap *Snapshot) []Insight {
	var out []Insight
	st := snap.Statistics
	if st.TotalActivities == 0 {
		out = append(out, Insight{
			Type:        "health",
			Title:       "No recent care activity recorded",
			Description: "No activities were logged in the lookback window. Watch for appetite or behavior changes and consider contacting a veterinarian.",
			Priority:    PriorityHigh,
			Actionable:  true,
		})
	} else if st.CompletionRate < 0.5 {
		out = append(out, Insight{
			Type:        "health",
			Title:       "Care completion rate is low",
			Description: fmt.Sprintf("Only %.0f%% of scheduled care was completed recently, which can signal a health problem.", st.CompletionRate*100),
			Priority:    PriorityHigh,
			Actionable:  true,
		})
	}
	return out
}
