package eventlog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink appends every realtime message to a Kafka topic. Publication is
// asynchronous; a full buffer drops the event.
type Sink struct {
	w        messageWriter
	producer string

	mu      sync.RWMutex
	closed  bool
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewSink(brokers []string, topic, producer string, buf int) *Sink {
	return newSink(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}, producer, buf)
}

func newSink(w messageWriter, producer string, buf int) *Sink {
	return &Sink{
		w:        w,
		producer: producer,
		inbox:    make(chan kafka.Message, buf),
		closeCh:  make(chan struct{}),
	}
}

// Start runs the writer loop. When ctx is done the buffered events are flushed
// and the writer is closed.
func (s *Sink) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	go func() {
		defer close(s.closeCh)
		for m := range s.inbox {
			writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.w.WriteMessages(writeCtx, m); err != nil {
				utils.ErrorLogger.WithError(err).WithField("key", string(m.Key)).Warn("eventlog: write failed")
			}
			cancel()
		}
		if err := s.w.Close(); err != nil {
			utils.ErrorLogger.WithError(err).Warn("eventlog: close writer")
		}
	}()
}

// Forward implements realtime.Sink.
func (s *Sink) Forward(msg realtime.Message) {
	env, err := NewEnvelope(s.producer, msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("eventlog: build envelope")
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("eventlog: marshal envelope")
		return
	}

	km := kafka.Message{
		Key:   env.PartitionKey(),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.inbox <- km:
	default:
		utils.ErrorLogger.WithFields(logrus.Fields{"type": env.EventType}).Warn("eventlog: buffer full, event dropped")
	}
}

// Close stops accepting events; the loop flushes what is buffered.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.inbox)
}

// WaitClosed blocks until the writer loop has exited.
func (s *Sink) WaitClosed() { <-s.closeCh }
