package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

// RedisRelay shares hub broadcasts between service instances over a Redis
// pub/sub channel. Messages carry the publishing instance id so an instance
// never re-delivers its own broadcasts.
type RedisRelay struct {
	rdb        redis.UniversalClient
	channel    string
	instanceID string
	hub        *Hub

	mu     sync.RWMutex
	closed bool
	outbox chan []byte
}

type relayEnvelope struct {
	Origin  string  `json:"origin"`
	Message Message `json:"message"`
}

func NewRedisRelay(rdb redis.UniversalClient, channel, instanceID string, hub *Hub) *RedisRelay {
	return &RedisRelay{
		rdb:        rdb,
		channel:    channel,
		instanceID: instanceID,
		hub:        hub,
		outbox:     make(chan []byte, 256),
	}
}

// Forward queues msg for publication. It never blocks the caller.
func (r *RedisRelay) Forward(msg Message) {
	data, err := json.Marshal(relayEnvelope{Origin: r.instanceID, Message: msg})
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("relay: marshal")
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.outbox <- data:
	default:
		utils.ErrorLogger.WithField("type", msg.Type).Warn("relay: outbox full, message dropped")
	}
}

// Run subscribes to the relay channel and publishes queued messages until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	incoming := sub.Channel()

	defer r.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-r.outbox:
			pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := r.rdb.Publish(pubCtx, r.channel, data).Err(); err != nil {
				utils.ErrorLogger.WithError(err).Warn("relay: publish failed")
			}
			cancel()
		case m, ok := <-incoming:
			if !ok {
				return nil
			}
			r.handle(m.Payload)
		}
	}
}

func (r *RedisRelay) handle(payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		utils.ErrorLogger.WithError(err).Warn("relay: bad envelope")
		return
	}
	if env.Origin == r.instanceID {
		return
	}
	r.hub.Deliver(env.Message)
}

func (r *RedisRelay) shutdown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
