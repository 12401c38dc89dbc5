package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/catalert/catalert/internal/petdata"
)

// DailyInsights derives rule-based insights for a cat from its last day of
// care data, without a model round-trip. Used by the daily digest endpoint.
func (o *Orchestrator) DailyInsights(ctx context.Context, catID string) ([]Insight, error) {
	snap, err := o.builder.Build(ctx, catID, 24*time.Hour)
	if err != nil {
		return nil, err
	}

	insights := healthInsights(snap)

	pending := 0
	for _, a := range snap.RecentActivities {
		if a.Status == petdata.StatusPending && a.ScheduledTime.Before(time.Now()) {
			pending++
		}
	}
	if pending > 0 {
		insights = append(insights, Insight{
			Type:        "care",
			Title:       "Overdue care activities",
			Description: fmt.Sprintf("%d scheduled activities are overdue today.", pending),
			Priority:    PriorityMedium,
			Actionable:  true,
		})
	}

	if snap.Statistics.TotalActivities > 0 && snap.Statistics.CompletionRate == 1 {
		insights = append(insights, Insight{
			Type:        "care",
			Title:       "All care on track",
			Description: "Every scheduled activity in the last day was completed.",
			Priority:    PriorityLow,
			Actionable:  false,
		})
	}
	return insights, nil
}
