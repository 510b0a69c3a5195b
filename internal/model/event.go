package model

import "time"

// EventStatus is the lifecycle state of a calendar slot.
type EventStatus string

const (
	// EventStatusBusy is the default state: the slot is held and not offered.
	EventStatusBusy EventStatus = "BUSY"
	// EventStatusSwappable means the owner has offered the slot on the marketplace.
	EventStatusSwappable EventStatus = "SWAPPABLE"
	// EventStatusSwapPending means the slot is held by an open negotiation.
	// Only the swap engine moves events in and out of this state.
	EventStatusSwapPending EventStatus = "SWAP_PENDING"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusBusy, EventStatusSwappable, EventStatusSwapPending:
		return true
	}
	return false
}

// OwnerCanSetStatus reports whether an owner may move an event from one
// status to another through the edit path. BUSY and SWAPPABLE are freely
// interchangeable; SWAP_PENDING is never a legal source or target here.
func OwnerCanSetStatus(from, to EventStatus) bool {
	if from == EventStatusSwapPending || to == EventStatusSwapPending {
		return false
	}
	return from.Valid() && to.Valid()
}

// Event represents an owned calendar slot in the database. OwnerEmail and
// OwnerName are populated by queries that join the owner row.
type Event struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Status      EventStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time

	OwnerEmail string
	OwnerName  string
}

// IsPast reports whether the event ended before the given instant.
func (e *Event) IsPast(now time.Time) bool {
	return e.EndTime.Before(now)
}

// DurationMinutes returns the slot length in whole minutes.
func (e *Event) DurationMinutes() int {
	return int(e.EndTime.Sub(e.StartTime) / time.Minute)
}

// CreateEventRequest represents an event creation request. Status is
// optional and defaults to BUSY.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
}

// UpdateEventRequest represents an event update. Pointer fields distinguish
// "not provided" from an explicit zero value, so the same shape serves both
// PUT and PATCH.
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Status      *string    `json:"status"`
}

// EventResponse represents event data for API responses.
type EventResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"`
	OwnerID         int64     `json:"owner"`
	OwnerEmail      string    `json:"owner_email"`
	OwnerName       string    `json:"owner_name"`
	DurationMinutes int       `json:"duration_minutes"`
	IsPast          bool      `json:"is_past"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
