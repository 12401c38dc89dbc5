package petdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresPort is a pgx-backed Port over the pet-care schema
// (cats, activity_records, reminders, reminder_times).
type PostgresPort struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresPort connects a pgx pool and verifies it with a ping.
func NewPostgresPort(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresPort, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("PostgreSQL connected")
	return &PostgresPort{db: pool, logger: logger}, nil
}

// Close shuts down the connection pool.
func (p *PostgresPort) Close() {
	p.db.Close()
}

// GetCatProfile returns the profile or ErrCatNotFound.
func (p *PostgresPort) GetCatProfile(ctx context.Context, catID string) (*Profile, error) {
	row := p.db.QueryRow(ctx, `
		SELECT id, owner_id, name, COALESCE(gender, ''), COALESCE(breed, ''),
		       birth_date, COALESCE(weight, 0), COALESCE(health_condition, 'good'),
		       COALESCE(medical_notes, '')
		FROM cats
		WHERE id = $1 AND is_active`, catID)

	var prof Profile
	err := row.Scan(&prof.ID, &prof.OwnerID, &prof.Name, &prof.Gender, &prof.Breed,
		&prof.BirthDate, &prof.Weight, &prof.HealthCondition, &prof.MedicalNotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cat profile: %w", err)
	}
	return &prof, nil
}

// GetRecentActivities returns activities within the window, most recent first.
func (p *PostgresPort) GetRecentActivities(ctx context.Context, catID string, window time.Duration) ([]Activity, error) {
	cutoff := time.Now().Add(-window)
	rows, err := p.db.Query(ctx, `
		SELECT id, cat_id, type, scheduled_time, complete_time, status,
		       COALESCE(actual_duration, 0), COALESCE(notes, ''), COALESCE(quality_rating, 0)
		FROM activity_records
		WHERE cat_id = $1 AND scheduled_time >= $2
		ORDER BY scheduled_time DESC`, catID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var acts []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.CatID, &a.Type, &a.ScheduledTime, &a.CompleteTime,
			&a.Status, &a.Duration, &a.Notes, &a.QualityRating); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}

// GetReminders returns the cat's enabled reminders with their scheduled times.
func (p *PostgresPort) GetReminders(ctx context.Context, catID string) ([]Reminder, error) {
	rows, err := p.db.Query(ctx, `
		SELECT r.id, r.cat_id, r.title, r.type, r.frequency, r.is_enabled,
		       COALESCE(r.priority, 1),
		       COALESCE(array_agg(to_char(make_time(t.hour, t.minute, 0), 'HH24:MI')
		                ORDER BY t.hour, t.minute)
		                FILTER (WHERE t.id IS NOT NULL), '{}')
		FROM reminders r
		LEFT JOIN reminder_times t ON t.reminder_id = r.id AND t.is_enabled
		WHERE r.cat_id = $1 AND r.is_enabled
		GROUP BY r.id
		ORDER BY r.created_at`, catID)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var rems []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.CatID, &r.Title, &r.Type, &r.Frequency,
			&r.Enabled, &r.Priority, &r.Times); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		rems = append(rems, r)
	}
	return rems, rows.Err()
}
