package petdata

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryPort is an in-memory Port implementation. It backs tests and the
// dev mode of the server when no database DSN is configured.
type MemoryPort struct {
	mu         sync.RWMutex
	cats       map[string]*Profile
	activities map[string][]Activity
	reminders  map[string][]Reminder
}

// NewMemoryPort creates an empty in-memory port.
func NewMemoryPort() *MemoryPort {
	return &MemoryPort{
		cats:       make(map[string]*Profile),
		activities: make(map[string][]Activity),
		reminders:  make(map[string][]Reminder),
	}
}

// AddCat registers a cat profile.
func (m *MemoryPort) AddCat(p *Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.cats[p.ID] = &cp
}

// AddActivity appends an activity record for its cat.
func (m *MemoryPort) AddActivity(a Activity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[a.CatID] = append(m.activities[a.CatID], a)
}

// AddReminder appends a reminder for its cat.
func (m *MemoryPort) AddReminder(r Reminder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders[r.CatID] = append(m.reminders[r.CatID], r)
}

// GetCatProfile returns the profile or ErrCatNotFound.
func (m *MemoryPort) GetCatProfile(_ context.Context, catID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.cats[catID]
	if !ok {
		return nil, ErrCatNotFound
	}
	cp := *p
	return &cp, nil
}

// GetRecentActivities returns activities within the window, most recent first.
func (m *MemoryPort) GetRecentActivities(_ context.Context, catID string, window time.Duration) ([]Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-window)
	var out []Activity
	for _, a := range m.activities[catID] {
		if a.ScheduledTime.After(cutoff) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.After(out[j].ScheduledTime)
	})
	return out, nil
}

// GetReminders returns the cat's configured reminders.
func (m *MemoryPort) GetReminders(_ context.Context, catID string) ([]Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Reminder(nil), m.reminders[catID]...), nil
}

// Seed fills the port with a demo cat and a week of activity history.
func (m *MemoryPort) Seed() {
	born := time.Now().AddDate(-3, 0, 0)
	m.AddCat(&Profile{
		ID:              "demo-cat",
		OwnerID:         "demo-user",
		Name:            "Huhu",
		Gender:          "male",
		Breed:           "British Shorthair",
		BirthDate:       &born,
		Weight:          4.2,
		HealthCondition: "good",
	})
	now := time.Now()
	for day := 0; day < 7; day++ {
		for i, ct := range []CareType{CareFood, CareWater, CarePlay} {
			done := now.Add(-time.Duration(day*24+i) * time.Hour)
			act := Activity{
				ID:            "seed-" + ct.String() + "-" + done.Format("2006010215"),
				CatID:         "demo-cat",
				Type:          ct,
				ScheduledTime: done.Add(-10 * time.Minute),
				Status:        StatusCompleted,
				Duration:      15,
			}
			if day == 0 && ct == CarePlay {
				act.Status = StatusPending
			} else {
				act.CompleteTime = &done
			}
			m.AddActivity(act)
		}
	}
	m.AddReminder(Reminder{
		ID: "seed-feed", CatID: "demo-cat", Title: "Morning feeding",
		Type: CareFood, Frequency: "daily", Enabled: true,
		Times: []string{"08:00", "18:00"}, Priority: 2,
	})
}

// String returns the care type as a plain string.
func (c CareType) String() string { return string(c) }
