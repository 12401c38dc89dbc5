package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Archive mirrors committed conversation turns into Redis Streams so other
// services (analytics, the reminder scheduler) can consume them. It is
// strictly best-effort; the reply path never waits on it.
type Archive struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewArchive connects to Redis and verifies the connection.
func NewArchive(redisURL string, logger *zap.Logger) (*Archive, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Archive{rdb: rdb, logger: logger}, nil
}

const streamPrefix = "catalert:session:"

// TurnRecord is one archived conversation turn.
type TurnRecord struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	CatID        string    `json:"cat_id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	RequestType  string    `json:"request_type,omitempty"`
	ProcessingMS int64     `json:"processing_ms,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Record appends a turn to the session's stream.
func (a *Archive) Record(ctx context.Context, rec *TurnRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	stream := streamPrefix + rec.SessionID
	_, err = a.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		return fmt.Errorf("archive to %s: %w", stream, err)
	}
	return nil
}

// RecordAsync archives a batch of turns in the background.
func (a *Archive) RecordAsync(recs []*TurnRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, rec := range recs {
			if err := a.Record(ctx, rec); err != nil {
				a.logger.Warn("session archive failed",
					zap.String("session_id", rec.SessionID), zap.Error(err))
				return
			}
		}
	}()
}

// Close shuts down the Redis connection.
func (a *Archive) Close() error {
	return a.rdb.Close()
}
