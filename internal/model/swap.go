package model

import "time"

// SwapStatus is the lifecycle state of a swap negotiation.
type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "PENDING"
	SwapStatusAccepted  SwapStatus = "ACCEPTED"
	SwapStatusRejected  SwapStatus = "REJECTED"
	SwapStatusCancelled SwapStatus = "CANCELLED"
)

// Terminal reports whether the negotiation has been resolved. A terminal
// request is never reopened.
func (s SwapStatus) Terminal() bool {
	switch s {
	case SwapStatusAccepted, SwapStatusRejected, SwapStatusCancelled:
		return true
	}
	return false
}

// SwapRequest represents a bilateral swap negotiation between two events.
// RespondedAt is nil until the request reaches a terminal status, then set
// exactly once. The event and participant detail fields are populated by
// queries that join the related rows.
type SwapRequest struct {
	ID               int64
	RequesterID      int64
	ReceiverID       int64
	RequesterEventID int64
	ReceiverEventID  int64
	Status           SwapStatus
	Message          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	RespondedAt      *time.Time

	RequesterEmail string
	RequesterName  string
	ReceiverEmail  string
	ReceiverName   string
	RequesterEvent *Event
	ReceiverEvent  *Event
}

// CreateSwapRequest represents a request to open a swap negotiation.
type CreateSwapRequest struct {
	MySlotID    int64  `json:"my_slot_id"`
	TheirSlotID int64  `json:"their_slot_id"`
	Message     string `json:"message"`
}

// SwapDecisionRequest represents the receiver's answer to a pending request.
// Accept is a pointer so a missing field is rejected rather than read as false.
type SwapDecisionRequest struct {
	Accept *bool `json:"accept"`
}

// SwapRequestResponse represents swap request data for API responses.
type SwapRequestResponse struct {
	ID             int64          `json:"id"`
	RequesterID    int64          `json:"requester"`
	ReceiverID     int64          `json:"receiver"`
	RequesterEmail string         `json:"requester_email"`
	RequesterName  string         `json:"requester_name"`
	ReceiverEmail  string         `json:"receiver_email"`
	ReceiverName   string         `json:"receiver_name"`
	RequesterEvent *EventResponse `json:"requester_event_details,omitempty"`
	ReceiverEvent  *EventResponse `json:"receiver_event_details,omitempty"`
	Status         string         `json:"status"`
	Message        string         `json:"message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	RespondedAt    *time.Time     `json:"responded_at"`
}
