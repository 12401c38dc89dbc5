package agent

import (
	"context"
	"strings"

	"github.com/catalert/catalert/internal/provider"
	"go.uber.org/zap"
)

const classifyPrompt = `Classify the user request into exactly one of:
health_consultation - health worries, symptoms, vet questions
simple_query - factual questions about the cat's data
reminder_management - creating or adjusting care reminders
activity_log - recording or reviewing care activities
general_chat - anything else

Return only the category name.

User request: `

// Classifier maps free text onto a RequestType. When a gateway is set it asks
// the model first; any failure there falls back to the keyword rules, so
// classification never blocks a reply.
type Classifier struct {
	gw     *provider.Gateway
	model  string
	logger *zap.Logger
}

// NewClassifier creates a classifier. gw may be nil for keyword-only mode.
func NewClassifier(gw *provider.Gateway, model string, logger *zap.Logger) *Classifier {
	return &Classifier{gw: gw, model: model, logger: logger}
}

// Classify returns the request category. Total: every input maps to exactly
// one category, defaulting to general_chat.
func (c *Classifier) Classify(ctx context.Context, text string) RequestType {
	if c.gw != nil {
		req := &provider.ChatRequest{
			Model:     c.model,
			Messages:  []provider.Message{{Role: "user", Content: classifyPrompt + text}},
			MaxTokens: 16,
		}
		resp, err := c.gw.Complete(ctx, req)
		if err == nil {
			label := strings.ToLower(strings.TrimSpace(resp.Content))
			if rt, ok := ParseRequestType(label); ok {
				return rt
			}
			c.logger.Debug("unrecognized classification label", zap.String("label", label))
		} else {
			c.logger.Debug("classification backend unavailable", zap.Error(err))
		}
	}
	return classifyKeywords(text)
}

var keywordRules = []struct {
	rt    RequestType
	words []string
}{
	{RequestHealthConsultation, []string{
		"sick", "ill", "vet", "health", "symptom", "vomit", "eat", "eaten",
		"appetite", "weight loss", "lethargic", "worried", "pain", "hurt",
	}},
	{RequestReminderManagement, []string{
		"remind", "reminder", "schedule", "alarm", "notification", "every day at",
	}},
	{RequestActivityLog, []string{
		"log", "record", "mark as", "completed", "track", "history of",
	}},
	{RequestSimpleQuery, []string{
		"how many", "how much", "how often", "when did", "when was",
		"what is", "what's", "weight", "last time",
	}},
}

// classifyKeywords is the pure fallback classifier.
func classifyKeywords(text string) RequestType {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				return rule.rt
			}
		}
	}
	return RequestGeneralChat
}
