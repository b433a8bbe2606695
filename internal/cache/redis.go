// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "uno_actions"

// ActionFinalGameOver is the action type that closes a match in the audit trail.
const ActionFinalGameOver = "final_game_over"

// MatchActionRecord is one entry of the match audit trail.
type MatchActionRecord struct {
	MatchID       uuid.UUID              `json:"match_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       uuid.UUID              `json:"actor_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"` // epoch millis
}

// Connect opens a client to addr and verifies it with a ping.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionLog pushes match action records onto a Redis list.
type ActionLog struct {
	rdb     *redis.Client
	queue   string
	timeout time.Duration
	log     *logrus.Entry
}

// NewActionLog builds a publisher for the given queue. An empty queue uses DefaultQueueName.
func NewActionLog(rdb *redis.Client, queue string, logger *logrus.Logger) *ActionLog {
	if queue == "" {
		queue = DefaultQueueName
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ActionLog{
		rdb:     rdb,
		queue:   queue,
		timeout: 2 * time.Second,
		log:     logger.WithField("component", "action-log"),
	}
}

// Publish serializes the record and RPushes it onto the queue.
func (a *ActionLog) Publish(ctx context.Context, record MatchActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchActionRecord: %w", err)
	}
	if err := a.rdb.RPush(ctx, a.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", a.queue, err)
	}
	return nil
}

// Record publishes in the background so game logic never waits on Redis.
func (a *ActionLog) Record(record MatchActionRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.Publish(ctx, record); err != nil {
			a.log.WithError(err).Warnf("Failed to publish action %d for match %s", record.ActionIndex, record.MatchID)
		}
	}()
}
