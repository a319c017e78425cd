package eventlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
)

const envelopeVersion = 1

// Envelope is the record appended to the event topic for every realtime message.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	TableID      string          `json:"table_id,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

func NewEnvelope(producer string, msg realtime.Message) (Envelope, error) {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    string(msg.Type),
		EventVersion: envelopeVersion,
		OccurredAt:   time.UnixMilli(msg.Timestamp).UTC(),
		Producer:     producer,
		TableID:      msg.TableID,
		SessionID:    msg.SessionID,
		Payload:      payload,
	}, nil
}

// PartitionKey keeps the events of one session (or table) in order on a partition.
func (e Envelope) PartitionKey() []byte {
	switch {
	case e.SessionID != "":
		return []byte("session:" + e.SessionID)
	case e.TableID != "":
		return []byte("table:" + e.TableID)
	}
	return []byte(e.EventType)
}
