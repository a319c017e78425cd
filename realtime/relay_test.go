package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayHandleSkipsOwnOrigin(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)
	staff := dial(t, hub, srv, "role=staff")

	r := NewRedisRelay(nil, "ch", "me", hub)

	own, err := json.Marshal(relayEnvelope{Origin: "me", Message: Message{Type: EventNewOrder}})
	require.NoError(t, err)
	r.handle(string(own))
	_, ok := readMessage(t, staff, 100*time.Millisecond)
	assert.False(t, ok)
}

func TestRelayHandleDeliversForeignOrigin(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)
	staff := dial(t, hub, srv, "role=staff")

	r := NewRedisRelay(nil, "ch", "me", hub)

	foreign, err := json.Marshal(relayEnvelope{Origin: "other", Message: Message{Type: EventNewOrder, Timestamp: 99}})
	require.NoError(t, err)
	r.handle(string(foreign))

	msg, ok := readMessage(t, staff, time.Second)
	require.True(t, ok)
	assert.Equal(t, EventNewOrder, msg.Type)
	// already stamped by the origin instance
	assert.Equal(t, int64(99), msg.Timestamp)
}

func TestRelayForwardNeverBlocks(t *testing.T) {
	r := NewRedisRelay(nil, "ch", "me", nil)
	for i := 0; i < cap(r.outbox)+10; i++ {
		r.Forward(Message{Type: EventMenuItemUpdate})
	}
	assert.Len(t, r.outbox, cap(r.outbox))

	r.shutdown()
	r.Forward(Message{Type: EventMenuItemUpdate})
	assert.Len(t, r.outbox, cap(r.outbox))
}

// Requires a running Redis; set REDIS_ADDR to enable.
func TestRelayBetweenInstances(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA, hubB := NewHub(), NewHub()
	rdbA := redis.NewClient(&redis.Options{Addr: addr})
	rdbB := redis.NewClient(&redis.Options{Addr: addr})
	defer rdbA.Close()
	defer rdbB.Close()

	relayA := NewRedisRelay(rdbA, "test:realtime", "a", hubA)
	relayB := NewRedisRelay(rdbB, "test:realtime", "b", hubB)
	hubA.AddSink(relayA)
	go relayA.Run(ctx)
	go relayB.Run(ctx)

	srv := newTestServer(t, hubB)
	staff := dial(t, hubB, srv, "role=staff")
	time.Sleep(100 * time.Millisecond)

	hubA.Publish(Message{Type: EventNewOrder, TableID: "1"})

	msg, ok := readMessage(t, staff, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, EventNewOrder, msg.Type)
}
