package models

// TableStatus is the occupancy state of a physical table.
type TableStatus string

const (
	TableAvailable        TableStatus = "AVAILABLE"
	TableOccupied         TableStatus = "OCCUPIED"
	TableNeedsHelp        TableStatus = "NEEDS_HELP"
	TablePaymentRequested TableStatus = "PAYMENT_REQUESTED"
	TableCleaning         TableStatus = "CLEANING"
)

// IsValid reports whether s is one of the known table statuses.
func (s TableStatus) IsValid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableNeedsHelp, TablePaymentRequested, TableCleaning:
		return true
	}
	return false
}

// RequiresSession reports whether a table in status s must be bound to a session.
func (s TableStatus) RequiresSession() bool {
	return s.IsValid() && s != TableAvailable
}

// TableType tags the kind of seating.
type TableType string

const (
	TableTypeRegular TableType = "REGULAR"
	TableTypeVIP     TableType = "VIP"
	TableTypeOutdoor TableType = "OUTDOOR"
	TableTypePrivate TableType = "PRIVATE"
	TableTypeBar     TableType = "BAR"
)

func (t TableType) IsValid() bool {
	switch t {
	case TableTypeRegular, TableTypeVIP, TableTypeOutdoor, TableTypePrivate, TableTypeBar:
		return true
	}
	return false
}

// SessionStatus is the billing state of a dining session.
type SessionStatus string

const (
	SessionOpen             SessionStatus = "OPEN"
	SessionPaymentRequested SessionStatus = "PAYMENT_REQUESTED"
	SessionWaitingPayment   SessionStatus = "WAITING_PAYMENT"
	SessionPaid             SessionStatus = "PAID"
	SessionClosed           SessionStatus = "CLOSED"
)

// ActiveSessionStatuses are the statuses a joinable session can be in.
var ActiveSessionStatuses = []SessionStatus{
	SessionOpen,
	SessionPaymentRequested,
	SessionWaitingPayment,
	SessionPaid,
}

func (s SessionStatus) IsValid() bool {
	return s == SessionClosed || s.IsActive()
}

// IsActive reports whether the session still counts as the table's open visit.
func (s SessionStatus) IsActive() bool {
	for _, a := range ActiveSessionStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// ItemStatus is the fulfillment state of a single order line.
type ItemStatus string

const (
	ItemPending   ItemStatus = "PENDING"
	ItemConfirmed ItemStatus = "CONFIRMED"
	ItemPreparing ItemStatus = "PREPARING"
	ItemServed    ItemStatus = "SERVED"
	ItemCancelled ItemStatus = "CANCELLED"
)

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemPending, ItemConfirmed, ItemPreparing, ItemServed, ItemCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentQROnline PaymentMethod = "QR_ONLINE"
	PaymentPOS      PaymentMethod = "POS"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentQROnline, PaymentPOS:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Role of a user account or a realtime connection.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleStaff || r == RoleAdmin
}
