package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Transitions are
// unconstrained; any support agent may set any status.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
)

// Valid reports whether the status is a known value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusResolved:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. A ticket is owned by the
// requester who created it; status, priority and support assignment are
// mutated only by support agents.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	Category      string
	Status        TicketStatus
	Priority      TicketPriority
	RequesterID   string
	RequesterName string
	SupportID     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
