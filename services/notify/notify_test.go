package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/services/logger"
)

func completedEvent() duel.Event {
	winner := "alice"
	return duel.Event{
		Type:       duel.EventCompleted,
		DuelID:     "d1",
		StudentIDs: []string{"alice", "bob"},
		WinnerID:   &winner,
		OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logsvc.NewConsoleLogger(&buf, false))

	require.NoError(t, n.Notify(context.Background(), completedEvent()))
	assert.Contains(t, buf.String(), "duel.completed")
	assert.Contains(t, buf.String(), "winner=alice")
}

// TestRedisNotifier runs against a live server: TEST_REDIS_URL=redis://localhost:6379/15
func TestRedisNotifier(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()
	_, err = sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	require.NoError(t, NewRedisNotifier(client).Notify(ctx, completedEvent()))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got duel.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, completedEvent(), got)
}
