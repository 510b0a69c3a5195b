package service

import (
	"context"
	"errors"
	"time"

	"github.com/slotswap/slotswap-go/internal/model"
	"github.com/slotswap/slotswap-go/internal/repository"
)

var (
	ErrSwapNotFound    = errors.New("swap request not found")
	ErrNotSwappable    = errors.New("event is not available for swapping")
	ErrSelfSwap        = errors.New("cannot swap with your own event")
	ErrDuplicateSwap   = errors.New("a pending swap request already exists for these events")
	ErrNotAuthorized   = errors.New("not allowed to act on this swap request")
	ErrAlreadyResolved = errors.New("swap request has already been resolved")
	ErrTransient       = errors.New("temporary storage contention, retry")
)

// SwapStore is the persistence contract for swap negotiations. Transact runs
// its callback inside one atomic unit with row-level locking; any error rolls
// the unit back with no observable effects.
type SwapStore interface {
	Transact(ctx context.Context, fn func(tx repository.SwapTx) error) error
	GetByID(ctx context.Context, id int64) (*model.SwapRequest, error)
	ListIncoming(ctx context.Context, userID int64) ([]model.SwapRequest, error)
	ListOutgoing(ctx context.Context, userID int64) ([]model.SwapRequest, error)
}

// SwapService is the swap negotiation engine. It owns every transition into
// and out of SWAP_PENDING and every SwapRequest state change.
type SwapService struct {
	store SwapStore
	now   func() time.Time
}

// NewSwapService creates a new SwapService.
func NewSwapService(store SwapStore) *SwapService {
	return &SwapService{store: store, now: time.Now}
}

// Create opens a swap negotiation between the requester's event and another
// user's event. Both events are locked, re-validated as SWAPPABLE, moved to
// SWAP_PENDING and a PENDING request is written, all in one transaction.
func (s *SwapService) Create(ctx context.Context, requesterID int64, req model.CreateSwapRequest) (model.SwapRequestResponse, error) {
	if req.MySlotID <= 0 || req.TheirSlotID <= 0 {
		return model.SwapRequestResponse{}, ErrEventNotFound
	}
	if req.MySlotID == req.TheirSlotID {
		return model.SwapRequestResponse{}, ErrSelfSwap
	}

	var requestID int64
	err := s.store.Transact(ctx, func(tx repository.SwapTx) error {
		events, err := lockEventsOrdered(ctx, tx, req.MySlotID, req.TheirSlotID)
		if err != nil {
			return err
		}
		mine, theirs := events[req.MySlotID], events[req.TheirSlotID]

		if mine.OwnerID != requesterID {
			return ErrEventNotFound
		}
		if theirs.OwnerID == requesterID {
			return ErrSelfSwap
		}

		// Checked before the status gate: a repeat of an already-pending pair
		// reports the duplicate, not the SWAP_PENDING status it caused.
		pending, err := tx.HasPending(ctx, mine.ID, theirs.ID)
		if err != nil {
			return err
		}
		if pending {
			return ErrDuplicateSwap
		}

		if mine.Status != model.EventStatusSwappable || theirs.Status != model.EventStatusSwappable {
			return ErrNotSwappable
		}

		sr := &model.SwapRequest{
			RequesterID:      requesterID,
			ReceiverID:       theirs.OwnerID,
			RequesterEventID: mine.ID,
			ReceiverEventID:  theirs.ID,
			Status:           model.SwapStatusPending,
			Message:          req.Message,
		}
		if err := tx.CreateRequest(ctx, sr); err != nil {
			return err
		}
		requestID = sr.ID

		if err := tx.UpdateEventForSwap(ctx, mine.ID, mine.OwnerID, model.EventStatusSwapPending); err != nil {
			return err
		}
		return tx.UpdateEventForSwap(ctx, theirs.ID, theirs.OwnerID, model.EventStatusSwapPending)
	})
	if err != nil {
		return model.SwapRequestResponse{}, s.mapStoreError(err)
	}

	return s.fetch(ctx, requestID)
}

// Respond resolves a pending request as its receiver. Accepting exchanges
// event ownership, marks both events BUSY and force-cancels every other
// pending request touching either event. Rejecting reverts each event still
// in SWAP_PENDING back to SWAPPABLE.
func (s *SwapService) Respond(ctx context.Context, requestID, responderID int64, accept bool) (model.SwapRequestResponse, error) {
	err := s.store.Transact(ctx, func(tx repository.SwapTx) error {
		sr, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if sr.ReceiverID != responderID {
			return ErrNotAuthorized
		}
		if sr.Status != model.SwapStatusPending {
			return ErrAlreadyResolved
		}

		events, err := lockEventsOrdered(ctx, tx, sr.RequesterEventID, sr.ReceiverEventID)
		if err != nil {
			return err
		}
		requesterEvent := events[sr.RequesterEventID]
		receiverEvent := events[sr.ReceiverEventID]
		now := s.now()

		if !accept {
			if err := tx.ResolveRequest(ctx, sr.ID, model.SwapStatusRejected, now); err != nil {
				return err
			}
			return revertToSwappable(ctx, tx, requesterEvent, receiverEvent)
		}

		if err := tx.ResolveRequest(ctx, sr.ID, model.SwapStatusAccepted, now); err != nil {
			return err
		}

		// Exchange ownership; both slots leave the marketplace.
		if err := tx.UpdateEventForSwap(ctx, requesterEvent.ID, receiverEvent.OwnerID, model.EventStatusBusy); err != nil {
			return err
		}
		if err := tx.UpdateEventForSwap(ctx, receiverEvent.ID, requesterEvent.OwnerID, model.EventStatusBusy); err != nil {
			return err
		}

		// Concurrent negotiations on either slot are now impossible to fulfil.
		_, err = tx.CancelOtherPending(ctx, sr.ID, requesterEvent.ID, receiverEvent.ID, now)
		return err
	})
	if err != nil {
		return model.SwapRequestResponse{}, s.mapStoreError(err)
	}

	return s.fetch(ctx, requestID)
}

// Cancel withdraws a pending request as its requester, reverting both events
// the same way a rejection does.
func (s *SwapService) Cancel(ctx context.Context, requestID, requesterID int64) (model.SwapRequestResponse, error) {
	err := s.store.Transact(ctx, func(tx repository.SwapTx) error {
		sr, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if sr.RequesterID != requesterID {
			return ErrNotAuthorized
		}
		if sr.Status != model.SwapStatusPending {
			return ErrAlreadyResolved
		}

		events, err := lockEventsOrdered(ctx, tx, sr.RequesterEventID, sr.ReceiverEventID)
		if err != nil {
			return err
		}

		if err := tx.ResolveRequest(ctx, sr.ID, model.SwapStatusCancelled, s.now()); err != nil {
			return err
		}
		return revertToSwappable(ctx, tx, events[sr.RequesterEventID], events[sr.ReceiverEventID])
	})
	if err != nil {
		return model.SwapRequestResponse{}, s.mapStoreError(err)
	}

	return s.fetch(ctx, requestID)
}

// ListIncoming returns all requests addressed to the user, newest first.
func (s *SwapService) ListIncoming(ctx context.Context, userID int64) ([]model.SwapRequestResponse, error) {
	requests, err := s.store.ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(requests), nil
}

// ListOutgoing returns all requests created by the user, newest first.
func (s *SwapService) ListOutgoing(ctx context.Context, userID int64) ([]model.SwapRequestResponse, error) {
	requests, err := s.store.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(requests), nil
}

// lockEventsOrdered locks both events in ascending id order. Deterministic
// ordering keeps two overlapping negotiations from deadlocking each other.
func lockEventsOrdered(ctx context.Context, tx repository.SwapTx, a, b int64) (map[int64]*model.Event, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	events := make(map[int64]*model.Event, 2)
	for _, id := range []int64{first, second} {
		event, err := tx.LockEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		events[id] = event
	}
	return events, nil
}

// revertToSwappable returns each event still held by this negotiation to the
// marketplace. An event already moved on by a prior acceptance is left alone.
func revertToSwappable(ctx context.Context, tx repository.SwapTx, events ...*model.Event) error {
	for _, event := range events {
		if event.Status != model.EventStatusSwapPending {
			continue
		}
		if err := tx.UpdateEventForSwap(ctx, event.ID, event.OwnerID, model.EventStatusSwappable); err != nil {
			return err
		}
	}
	return nil
}

func (s *SwapService) fetch(ctx context.Context, requestID int64) (model.SwapRequestResponse, error) {
	sr, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return model.SwapRequestResponse{}, s.mapStoreError(err)
	}
	return s.toResponse(sr), nil
}

func (s *SwapService) mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrContention):
		return ErrTransient
	case errors.Is(err, repository.ErrSwapNotFound):
		return ErrSwapNotFound
	case errors.Is(err, repository.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repository.ErrDuplicateSwap):
		// Lost the race to another identical request between HasPending and
		// insert; same outcome as finding it up front.
		return ErrDuplicateSwap
	}
	return err
}

func (s *SwapService) toResponse(sr *model.SwapRequest) model.SwapRequestResponse {
	resp := model.SwapRequestResponse{
		ID:             sr.ID,
		RequesterID:    sr.RequesterID,
		ReceiverID:     sr.ReceiverID,
		RequesterEmail: sr.RequesterEmail,
		RequesterName:  sr.RequesterName,
		ReceiverEmail:  sr.ReceiverEmail,
		ReceiverName:   sr.ReceiverName,
		Status:         string(sr.Status),
		Message:        sr.Message,
		CreatedAt:      sr.CreatedAt,
		RespondedAt:    sr.RespondedAt,
	}
	now := s.now()
	if sr.RequesterEvent != nil {
		resp.RequesterEvent = eventDetail(sr.RequesterEvent, now)
	}
	if sr.ReceiverEvent != nil {
		resp.ReceiverEvent = eventDetail(sr.ReceiverEvent, now)
	}
	return resp
}

func (s *SwapService) toResponses(requests []model.SwapRequest) []model.SwapRequestResponse {
	result := make([]model.SwapRequestResponse, len(requests))
	for i := range requests {
		result[i] = s.toResponse(&requests[i])
	}
	return result
}

func eventDetail(e *model.Event, now time.Time) *model.EventResponse {
	return &model.EventResponse{
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
		IsPast:          e.IsPast(now),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}
