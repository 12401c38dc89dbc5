package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/catalert/catalert/internal/petdata"
	"go.uber.org/zap"
)

// Stats summarizes activity volume inside the lookback window.
type Stats struct {
	TotalActivities     int     `json:"total_activities"`
	CompletedActivities int     `json:"completed_activities"`
	CompletionRate      float64 `json:"completion_rate"`
}

// ActivitySummary is the compact per-activity view fed to the model.
type ActivitySummary struct {
	Type          petdata.CareType       `json:"type"`
	ScheduledTime time.Time              `json:"scheduled_time"`
	Status        petdata.ActivityStatus `json:"status"`
	Duration      int                    `json:"duration,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
}

// Snapshot is the bounded, derived payload handed to the model for one turn.
// Built fresh per request, never persisted.
type Snapshot struct {
	Profile          *petdata.Profile   `json:"profile"`
	HealthCondition  string             `json:"health_condition"`
	RecentActivities []ActivitySummary  `json:"recent_activities"` // most recent first
	Reminders        []petdata.Reminder `json:"reminders,omitempty"`
	Statistics       Stats              `json:"statistics"`
}

// PromptJSON renders the snapshot as compact JSON for prompt embedding.
func (s *Snapshot) PromptJSON() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ContextBuilder assembles snapshots from the data access port. The record
// cap bounds prompt size independently of the date window, so a very active
// cat cannot blow the context budget.
type ContextBuilder struct {
	port          petdata.Port
	maxActivities int
	logger        *zap.Logger
}

// NewContextBuilder creates a builder with the given record cap.
func NewContextBuilder(port petdata.Port, maxActivities int, logger *zap.Logger) *ContextBuilder {
	if maxActivities <= 0 {
		maxActivities = 50
	}
	return &ContextBuilder{port: port, maxActivities: maxActivities, logger: logger}
}

// Build fetches the cat's profile, recent activities and reminders and
// computes the statistics. Returns petdata.ErrCatNotFound (wrapped) when the
// cat id does not resolve.
func (b *ContextBuilder) Build(ctx context.Context, catID string, lookback time.Duration) (*Snapshot, error) {
	profile, err := b.port.GetCatProfile(ctx, catID)
	if err != nil {
		return nil, fmt.Errorf("build context for %s: %w", catID, err)
	}

	activities, err := b.port.GetRecentActivities(ctx, catID, lookback)
	if err != nil {
		return nil, fmt.Errorf("fetch activities for %s: %w", catID, err)
	}

	reminders, err := b.port.GetReminders(ctx, catID)
	if err != nil {
		b.logger.Warn("fetch reminders failed", zap.String("cat_id", catID), zap.Error(err))
		reminders = nil
	}

	snap := &Snapshot{
		Profile:         profile,
		HealthCondition: profile.HealthCondition,
		Reminders:       reminders,
		Statistics:      computeStats(activities),
	}
	if len(activities) > b.maxActivities {
		activities = activities[:b.maxActivities]
	}
	snap.RecentActivities = summarize(activities)
	return snap, nil
}

// computeStats derives completion statistics over the full window, guarding
// the zero-activity case.
func computeStats(activities []petdata.Activity) Stats {
	st := Stats{TotalActivities: len(activities)}
	for _, a := range activities {
		if a.Status == petdata.StatusCompleted {
			st.CompletedActivities++
		}
	}
	if st.TotalActivities > 0 {
		st.CompletionRate = float64(st.CompletedActivities) / float64(st.TotalActivities)
	}
	return st
}

func summarize(activities []petdata.Activity) []ActivitySummary {
	out := make([]ActivitySummary, len(activities))
	for i, a := range activities {
		out[i] = ActivitySummary{
			Type:          a.Type,
			ScheduledTime: a.ScheduledTime,
			Status:        a.Status,
			Duration:      a.Duration,
			Notes:         a.Notes,
		}
	}
	return out
}
