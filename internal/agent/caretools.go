package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/catalert/catalert/internal/petdata"
	"github.com/catalert/catalert/internal/provider"
)

// RegisterCareTools binds the data-retrieval tool catalog to the port.
// All tools are read-only. maxRecords bounds the activity lists marshalled
// into tool results, so tool output cannot inflate the prompt past the same
// cap the context builder enforces.
func RegisterCareTools(reg *ToolRegistry, port petdata.Port, maxRecords int) {
	if maxRecords <= 0 {
		maxRecords = 50
	}
	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "get_cat_data",
			Description: "Get a cat's profile, recent activities and completion statistics",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"cat_id": map[string]string{"type": "string", "description": "Cat ID"},
					"days":   map[string]string{"type": "number", "description": "Lookback window in days (default 7)"},
				},
				"required": []string{"cat_id"},
			},
		},
	}, func(ctx context.Context, args map[string]interface{}) (string, error) {
		catID, _ := args["cat_id"].(string)
		window := dayWindow(args, 7)

		profile, err := port.GetCatProfile(ctx, catID)
		if err != nil {
			return "", fmt.Errorf("get cat data: %w", err)
		}
		activities, err := port.GetRecentActivities(ctx, catID, window)
		if err != nil {
			return "", fmt.Errorf("get cat data: %w", err)
		}
		out := map[string]interface{}{
			"profile":           profile,
			"age_years":         profile.AgeYears(),
			"recent_activities": summarize(capActivities(activities, maxRecords)),
			"statistics":        computeStats(activities),
		}
		b, _ := json.Marshal(out)
		return string(b), nil
	})

	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "get_recent_activities",
			Description: "Get a cat's recent care activity records, most recent first",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"cat_id": map[string]string{"type": "string", "description": "Cat ID"},
					"days":   map[string]string{"type": "number", "description": "Lookback window in days (default 7)"},
				},
				"required": []string{"cat_id"},
			},
		},
	}, func(ctx context.Context, args map[string]interface{}) (string, error) {
		catID, _ := args["cat_id"].(string)
		activities, err := port.GetRecentActivities(ctx, catID, dayWindow(args, 7))
		if err != nil {
			return "", fmt.Errorf("get recent activities: %w", err)
		}
		b, _ := json.Marshal(capActivities(activities, maxRecords))
		return string(b), nil
	})

	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "get_reminders",
			Description: "Get a cat's configured care reminders",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"cat_id": map[string]string{"type": "string", "description": "Cat ID"},
				},
				"required": []string{"cat_id"},
			},
		},
	}, func(ctx context.Context, args map[string]interface{}) (string, error) {
		catID, _ := args["cat_id"].(string)
		reminders, err := port.GetReminders(ctx, catID)
		if err != nil {
			return "", fmt.Errorf("get reminders: %w", err)
		}
		b, _ := json.Marshal(reminders)
		return string(b), nil
	})

	reg.Register(provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "analyze_health_trend",
			Description: "Analyze activity and completion-rate trends for a cat over a day window",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"cat_id": map[string]string{"type": "string", "description": "Cat ID"},
					"days":   map[string]string{"type": "number", "description": "Analysis window in days (default 30)"},
				},
				"required": []string{"cat_id"},
			},
		},
	}, func(ctx context.Context, args map[string]interface{}) (string, error) {
		catID, _ := args["cat_id"].(string)
		window := dayWindow(args, 30)
		activities, err := port.GetRecentActivities(ctx, catID, window)
		if err != nil {
			return "", fmt.Errorf("analyze health trend: %w", err)
		}
		out := map[string]interface{}{
			"cat_id":                 catID,
			"analysis_period_days":   int(window.Hours() / 24),
			"activity_records_count": len(activities),
			"trends":                 analyzeTrends(activities),
			"generated_at":           time.Now().Format(time.RFC3339),
		}
		b, _ := json.Marshal(out)
		return string(b), nil
	})
}

func capActivities(activities []petdata.Activity, max int) []petdata.Activity {
	if len(activities) > max {
		return activities[:max]
	}
	return activities
}

func dayWindow(args map[string]interface{}, def int) time.Duration {
	days := def
	if d, ok := args["days"].(float64); ok && d > 0 {
		days = int(d)
	}
	return time.Duration(days) * 24 * time.Hour
}

// Trends describes how the cat's care activity is moving over the window.
type Trends struct {
	ActivityTrend       string `json:"activity_trend"`        // increasing|stable|decreasing
	CompletionRateTrend string `json:"completion_rate_trend"` // improving|stable|declining
}

// analyzeTrends compares the most recent activities against the preceding
// batch. Input is most-recent-first.
func analyzeTrends(activities []petdata.Activity) Trends {
	tr := Trends{ActivityTrend: "stable", CompletionRateTrend: "stable"}

	if len(activities) >= 14 {
		recent := activities[:7]
		older := activities[7:14]

		recentDur := avgDuration(recent)
		olderDur := avgDuration(older)
		if olderDur > 0 {
			if recentDur > olderDur*1.1 {
				tr.ActivityTrend = "increasing"
			} else if recentDur < olderDur*0.9 {
				tr.ActivityTrend = "decreasing"
			}
		}

		recentRate := computeStats(recent).CompletionRate
		olderRate := computeStats(older).CompletionRate
		if recentRate > olderRate+0.1 {
			tr.CompletionRateTrend = "improving"
		} else if recentRate < olderRate-0.1 {
			tr.CompletionRateTrend = "declining"
		}
	}
	return tr
}

func avgDuration(activities []petdata.Activity) float64 {
	if len(activities) == 0 {
		return 0
	}
	sum := 0
	for _, a := range activities {
		sum += a.Duration
	}
	return float64(sum) / float64(len(activities))
}
