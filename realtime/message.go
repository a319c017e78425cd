package realtime

import (
	"strconv"
	"time"
)

// EventType is the "type" field of every realtime message.
type EventType string

const (
	EventNewOrder            EventType = "NEW_ORDER"
	EventOrderConfirmed      EventType = "ORDER_CONFIRMED"
	EventOrderStatusUpdate   EventType = "ORDER_STATUS_UPDATE"
	EventSessionCreated      EventType = "SESSION_CREATED"
	EventSessionStatusUpdate EventType = "SESSION_STATUS_UPDATE"
	EventTableStatusUpdate   EventType = "TABLE_STATUS_UPDATE"
	EventCallStaff           EventType = "CALL_STAFF"
	EventPaymentRequested    EventType = "PAYMENT_REQUESTED"
	EventPaymentSuccess      EventType = "PAYMENT_SUCCESS"
	EventPaymentFailed       EventType = "PAYMENT_FAILED"
	EventMenuItemUpdate      EventType = "MENU_ITEM_UPDATE"
)

var eventTypes = map[EventType]struct{}{
	EventNewOrder:            {},
	EventOrderConfirmed:      {},
	EventOrderStatusUpdate:   {},
	EventSessionCreated:      {},
	EventSessionStatusUpdate: {},
	EventTableStatusUpdate:   {},
	EventCallStaff:           {},
	EventPaymentRequested:    {},
	EventPaymentSuccess:      {},
	EventPaymentFailed:       {},
	EventMenuItemUpdate:      {},
}

func (t EventType) IsValid() bool {
	_, ok := eventTypes[t]
	return ok
}

// Message is the wire shape shared by server and clients. Timestamp is
// milliseconds since epoch and always set by the server.
type Message struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	TableID   string      `json:"tableId,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewMessage builds a message routed by numeric table and session ids; zero ids are omitted.
func NewMessage(t EventType, payload interface{}, tableID, sessionID uint) Message {
	return Message{
		Type:      t,
		Payload:   payload,
		TableID:   formatID(tableID),
		SessionID: formatID(sessionID),
	}
}

func formatID(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

func nowMillis(now func() time.Time) int64 {
	return now().UnixMilli()
}
