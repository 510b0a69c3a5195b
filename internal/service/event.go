package service

import (
	"context"
	"errors"
	"time"

	"github.com/slotswap/slotswap-go/internal/model"
	"github.com/slotswap/slotswap-go/internal/repository"
)

var (
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleTooLong      = errors.New("title must be at most 200 characters")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
	ErrInvalidStatus     = errors.New("unknown event status")
	ErrEventNotFound     = errors.New("event not found")
	ErrEventOverlap      = errors.New("event overlaps with an existing event")
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrPastEvent         = errors.New("cannot mark past events as swappable")
	ErrEventLocked       = errors.New("event has a pending swap and cannot be modified")
)

// EventStore is the persistence contract for calendar events.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id int64) error
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Event, error)
	ListSwappable(ctx context.Context, viewerID int64, after time.Time) ([]model.Event, error)
	CountOverlapping(ctx context.Context, ownerID int64, start, end time.Time, excludeID int64) (int, error)
}

// EventService handles calendar event business logic.
type EventService struct {
	store EventStore
	now   func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(store EventStore) *EventService {
	return &EventService{store: store, now: time.Now}
}

// Create validates and stores a new event for the given owner.
func (s *EventService) Create(ctx context.Context, ownerID int64, req model.CreateEventRequest) (model.EventResponse, error) {
	if req.Title == "" {
		return model.EventResponse{}, ErrTitleRequired
	}
	if len(req.Title) > 200 {
		return model.EventResponse{}, ErrTitleTooLong
	}
	if !req.EndTime.After(req.StartTime) {
		return model.EventResponse{}, ErrInvalidTimeRange
	}

	status := model.EventStatusBusy
	if req.Status != "" {
		status = model.EventStatus(req.Status)
		if !status.Valid() || status == model.EventStatusSwapPending {
			return model.EventResponse{}, ErrInvalidStatus
		}
		if status == model.EventStatusSwappable && !req.EndTime.After(s.now()) {
			return model.EventResponse{}, ErrPastEvent
		}
	}

	overlapping, err := s.store.CountOverlapping(ctx, ownerID, req.StartTime, req.EndTime, 0)
	if err != nil {
		return model.EventResponse{}, err
	}
	if overlapping > 0 {
		return model.EventResponse{}, ErrEventOverlap
	}

	event := &model.Event{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      status,
	}

	if err := s.store.Create(ctx, event); err != nil {
		return model.EventResponse{}, err
	}

	created, err := s.store.GetByID(ctx, event.ID)
	if err != nil {
		return model.EventResponse{}, err
	}
	return s.toResponse(created), nil
}

// Get returns one of the caller's events.
func (s *EventService) Get(ctx context.Context, ownerID, eventID int64) (model.EventResponse, error) {
	event, err := s.getOwned(ctx, ownerID, eventID)
	if err != nil {
		return model.EventResponse{}, err
	}
	return s.toResponse(event), nil
}

// Update applies an update to one of the caller's events. Events held by a
// pending swap cannot be edited, and the edit path can never move an event
// into or out of SWAP_PENDING.
func (s *EventService) Update(ctx context.Context, ownerID, eventID int64, req model.UpdateEventRequest) (model.EventResponse, error) {
	event, err := s.getOwned(ctx, ownerID, eventID)
	if err != nil {
		return model.EventResponse{}, err
	}
	if event.Status == model.EventStatusSwapPending {
		return model.EventResponse{}, ErrEventLocked
	}

	if req.Title != nil {
		if *req.Title == "" {
			return model.EventResponse{}, ErrTitleRequired
		}
		if len(*req.Title) > 200 {
			return model.EventResponse{}, ErrTitleTooLong
		}
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}
	if !event.EndTime.After(event.StartTime) {
		return model.EventResponse{}, ErrInvalidTimeRange
	}

	if req.Status != nil {
		next := model.EventStatus(*req.Status)
		if !next.Valid() {
			return model.EventResponse{}, ErrInvalidStatus
		}
		if next != event.Status {
			if !model.OwnerCanSetStatus(event.Status, next) {
				return model.EventResponse{}, ErrInvalidTransition
			}
			if next == model.EventStatusSwappable && !event.EndTime.After(s.now()) {
				return model.EventResponse{}, ErrPastEvent
			}
			event.Status = next
		}
	}

	if req.StartTime != nil || req.EndTime != nil {
		overlapping, err := s.store.CountOverlapping(ctx, ownerID, event.StartTime, event.EndTime, event.ID)
		if err != nil {
			return model.EventResponse{}, err
		}
		if overlapping > 0 {
			return model.EventResponse{}, ErrEventOverlap
		}
	}

	if err := s.store.Update(ctx, event); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return model.EventResponse{}, ErrEventNotFound
		}
		// A swap created between our read and this write moved the event to
		// SWAP_PENDING; the store refused the overwrite.
		if errors.Is(err, repository.ErrEventLocked) {
			return model.EventResponse{}, ErrEventLocked
		}
		return model.EventResponse{}, err
	}

	updated, err := s.store.GetByID(ctx, event.ID)
	if err != nil {
		return model.EventResponse{}, err
	}
	return s.toResponse(updated), nil
}

// Delete removes one of the caller's events. Events held by a pending swap
// cannot be deleted.
func (s *EventService) Delete(ctx context.Context, ownerID, eventID int64) error {
	event, err := s.getOwned(ctx, ownerID, eventID)
	if err != nil {
		return err
	}
	if event.Status == model.EventStatusSwapPending {
		return ErrEventLocked
	}

	if err := s.store.Delete(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return ErrEventNotFound
		}
		if errors.Is(err, repository.ErrEventLocked) {
			return ErrEventLocked
		}
		return err
	}
	return nil
}

// ListOwn returns all of the caller's events ordered by start time.
func (s *EventService) ListOwn(ctx context.Context, ownerID int64) ([]model.EventResponse, error) {
	events, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(events), nil
}

// Marketplace returns every swappable, non-past event owned by someone other
// than the viewer, ordered by start time ascending.
func (s *EventService) Marketplace(ctx context.Context, viewerID int64) ([]model.EventResponse, error) {
	events, err := s.store.ListSwappable(ctx, viewerID, s.now())
	if err != nil {
		return nil, err
	}
	return s.toResponses(events), nil
}

// OwnEvents returns the caller's raw events, for the calendar feed.
func (s *EventService) OwnEvents(ctx context.Context, ownerID int64) ([]model.Event, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func (s *EventService) getOwned(ctx context.Context, ownerID, eventID int64) (*model.Event, error) {
	event, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	// Other users' events are not visible through the owner endpoints.
	if event.OwnerID != ownerID {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *EventService) toResponse(e *model.Event) model.EventResponse {
	return model.EventResponse{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		Status:          string(e.Status),
		OwnerID:         e.OwnerID,
		OwnerEmail:      e.OwnerEmail,
		OwnerName:       e.OwnerName,
		DurationMinutes: e.DurationMinutes(),
		IsPast:          e.IsPast(s.now()),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func (s *EventService) toResponses(events []model.Event) []model.EventResponse {
	result := make([]model.EventResponse, len(events))
	for i := range events {
		result[i] = s.toResponse(&events[i])
	}
	return result
}
