package realtime

import "github.com/yeremiapane/restaurant-tableorder/models"

// Subscriber describes a connection. It is fixed at handshake time.
type Subscriber struct {
	ID        string      `json:"id"`
	Role      models.Role `json:"role"`
	TableID   string      `json:"tableId,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
}

func (s Subscriber) isStaff() bool { return s.Role == models.RoleStaff }
func (s Subscriber) isAdmin() bool { return s.Role == models.RoleAdmin }

func (s Subscriber) atTable(tableID string) bool {
	return tableID != "" && s.TableID == tableID
}

// ShouldReceive reports whether sub is in the audience of msg.
func ShouldReceive(msg Message, sub Subscriber) bool {
	switch msg.Type {
	case EventCallStaff:
		return sub.isStaff()
	case EventNewOrder:
		return sub.isStaff() || sub.isAdmin()
	case EventOrderConfirmed, EventOrderStatusUpdate:
		return sub.isStaff() || sub.atTable(msg.TableID)
	case EventSessionCreated, EventSessionStatusUpdate, EventTableStatusUpdate,
		EventPaymentRequested, EventPaymentSuccess, EventPaymentFailed:
		return sub.isStaff() || sub.isAdmin() || sub.atTable(msg.TableID)
	case EventMenuItemUpdate:
		return true
	}
	return false
}
