package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestActionLog(t *testing.T, queue string) (*ActionLog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewActionLog(rdb, queue, nil), mr
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), mr.Addr(), 0)
	require.NoError(t, err)
	rdb.Close()

	mr.Close()
	_, err = Connect(context.Background(), mr.Addr(), 0)
	assert.Error(t, err)
}

func TestPublishAppendsToQueue(t *testing.T) {
	al, mr := newTestActionLog(t, "")
	rec := MatchActionRecord{
		MatchID:       uuid.New(),
		ActionIndex:   3,
		ActorID:       uuid.New(),
		ActionType:    "play_card",
		ActionPayload: map[string]interface{}{"card": "red-5"},
		Timestamp:     time.Now().UnixMilli(),
	}
	require.NoError(t, al.Publish(context.Background(), rec))

	items, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var got MatchActionRecord
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	assert.Equal(t, rec.MatchID, got.MatchID)
	assert.Equal(t, 3, got.ActionIndex)
	assert.Equal(t, "play_card", got.ActionType)
	assert.Equal(t, "red-5", got.ActionPayload["card"])
}

func TestRecordIsAsync(t *testing.T) {
	al, mr := newTestActionLog(t, "custom_queue")
	for i := 1; i <= 3; i++ {
		al.Record(MatchActionRecord{MatchID: uuid.New(), ActionIndex: i, ActionType: "draw_card"})
	}

	require.Eventually(t, func() bool {
		items, err := mr.List("custom_queue")
		return err == nil && len(items) == 3
	}, time.Second, 10*time.Millisecond)
	assert.False(t, mr.Exists(DefaultQueueName))
}

func TestRecordSurvivesRedisOutage(t *testing.T) {
	al, mr := newTestActionLog(t, "")
	al.timeout = 50 * time.Millisecond
	mr.Close()

	// Logged and dropped; nothing to assert beyond not blocking or panicking.
	done := make(chan struct{})
	go func() {
		al.Record(MatchActionRecord{MatchID: uuid.New(), ActionIndex: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked")
	}
}
