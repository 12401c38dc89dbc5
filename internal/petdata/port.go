package petdata

import (
	"context"
	"errors"
	"time"
)

// ErrCatNotFound is returned when a cat id does not resolve.
var ErrCatNotFound = errors.New("cat not found")

// Port is the read-only data access boundary the agent core depends on.
// Durable storage of cats, reminders and activities lives behind it.
type Port interface {
	GetCatProfile(ctx context.Context, catID string) (*Profile, error)
	// GetRecentActivities returns activities scheduled within the window,
	// most recent first.
	GetRecentActivities(ctx context.Context, catID string, window time.Duration) ([]Activity, error)
	GetReminders(ctx context.Context, catID string) ([]Reminder, error)
}

// ActivityStatus enumerates activity record states.
type ActivityStatus string

const (
	StatusPending   ActivityStatus = "pending"
	StatusCompleted ActivityStatus = "completed"
	StatusSkipped   ActivityStatus = "skipped"
	StatusExpired   ActivityStatus = "expired"
	StatusCancelled ActivityStatus = "cancelled"
)

// CareType enumerates cat care activity kinds.
type CareType string

const (
	CareFood       CareType = "food"
	CareWater      CareType = "water"
	CarePlay       CareType = "play"
	CareMedication CareType = "medication"
	CareVetVisit   CareType = "vet_visit"
	CareGrooming   CareType = "grooming"
)

// Profile holds a cat's basic and health information.
type Profile struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Name            string     `json:"name"`
	Gender          string     `json:"gender,omitempty"`
	Breed           string     `json:"breed,omitempty"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`
	Weight          float64    `json:"weight,omitempty"` // kg
	HealthCondition string     `json:"health_condition"`
	MedicalNotes    string     `json:"medical_notes,omitempty"`
}

// AgeYears returns the cat's age in whole years, or 0 if unknown.
func (p *Profile) AgeYears() int {
	if p.BirthDate == nil {
		return 0
	}
	years := time.Now().Year() - p.BirthDate.Year()
	if years < 0 {
		return 0
	}
	return years
}

// Activity is a single scheduled care activity record.
type Activity struct {
	ID            string         `json:"id"`
	CatID         string         `json:"cat_id"`
	Type          CareType       `json:"type"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	CompleteTime  *time.Time     `json:"complete_time,omitempty"`
	Status        ActivityStatus `json:"status"`
	Duration      int            `json:"duration,omitempty"` // minutes
	Notes         string         `json:"notes,omitempty"`
	QualityRating int            `json:"quality_rating,omitempty"` // 1-5
}

// Reminder is a recurring care reminder configured for a cat.
type Reminder struct {
	ID        string   `json:"id"`
	CatID     string   `json:"cat_id"`
	Title     string   `json:"title"`
	Type      CareType `json:"type"`
	Frequency string   `json:"frequency"` // daily|weekly|monthly|custom
	Enabled   bool     `json:"enabled"`
	Times     []string `json:"times,omitempty"` // "HH:MM"
	Priority  int      `json:"priority,omitempty"`
}
