package service

import (
	"context"
	"testing"
	"time"

	"github.com/slotswap/slotswap-go/internal/model"
	"github.com/slotswap/slotswap-go/internal/repository"
)

// memSwapStore is an in-memory SwapStore. Transact snapshots state and
// restores it on error, mirroring the rollback guarantee of the real store.
type memSwapStore struct {
	nextEventID int64
	nextSwapID  int64
	events      map[int64]*model.Event
	swaps       map[int64]*model.SwapRequest
	transactErr error
}

func newMemSwapStore() *memSwapStore {
	return &memSwapStore{
		events: make(map[int64]*model.Event),
		swaps:  make(map[int64]*model.SwapRequest),
	}
}

func (s *memSwapStore) addEvent(ownerID int64, status model.EventStatus) int64 {
	s.nextEventID++
	id := s.nextEventID
	s.events[id] = &model.Event{
		ID: id, OwnerID: ownerID, Title: "slot",
		StartTime: testNow.Add(time.Duration(id) * time.Hour),
		EndTime:   testNow.Add(time.Duration(id+1) * time.Hour),
		Status:    status,
	}
	return id
}

func (s *memSwapStore) addPending(requesterID, receiverID, requesterEventID, receiverEventID int64) int64 {
	s.nextSwapID++
	id := s.nextSwapID
	s.swaps[id] = &model.SwapRequest{
		ID: id, RequesterID: requesterID, ReceiverID: receiverID,
		RequesterEventID: requesterEventID, ReceiverEventID: receiverEventID,
		Status: model.SwapStatusPending,
	}
	return id
}

func (s *memSwapStore) snapshot() (map[int64]*model.Event, map[int64]*model.SwapRequest) {
	events := make(map[int64]*model.Event, len(s.events))
	for id, e := range s.events {
		cp := *e
		events[id] = &cp
	}
	swaps := make(map[int64]*model.SwapRequest, len(s.swaps))
	for id, sr := range s.swaps {
		cp := *sr
		swaps[id] = &cp
	}
	return events, swaps
}

func (s *memSwapStore) Transact(_ context.Context, fn func(tx repository.SwapTx) error) error {
	if s.transactErr != nil {
		return s.transactErr
	}
	events, swaps := s.snapshot()
	if err := fn(&memSwapTx{store: s}); err != nil {
		s.events, s.swaps = events, swaps
		return err
	}
	return nil
}

func (s *memSwapStore) GetByID(_ context.Context, id int64) (*model.SwapRequest, error) {
	sr, ok := s.swaps[id]
	if !ok {
		return nil, repository.ErrSwapNotFound
	}
	cp := *sr
	if e, ok := s.events[cp.RequesterEventID]; ok {
		ecp := *e
		cp.RequesterEvent = &ecp
	}
	if e, ok := s.events[cp.ReceiverEventID]; ok {
		ecp := *e
		cp.ReceiverEvent = &ecp
	}
	return &cp, nil
}

func (s *memSwapStore) ListIncoming(_ context.Context, userID int64) ([]model.SwapRequest, error) {
	return s.listFiltered(func(sr *model.SwapRequest) bool { return sr.ReceiverID == userID }), nil
}

func (s *memSwapStore) ListOutgoing(_ context.Context, userID int64) ([]model.SwapRequest, error) {
	return s.listFiltered(func(sr *model.SwapRequest) bool { return sr.RequesterID == userID }), nil
}

func (s *memSwapStore) listFiltered(keep func(*model.SwapRequest) bool) []model.SwapRequest {
	var out []model.SwapRequest
	for id := s.nextSwapID; id >= 1; id-- {
		if sr, ok := s.swaps[id]; ok && keep(sr) {
			full, _ := s.GetByID(context.Background(), sr.ID)
			out = append(out, *full)
		}
	}
	return out
}

type memSwapTx struct {
	store *memSwapStore
}

func (t *memSwapTx) LockEvent(_ context.Context, id int64) (*model.Event, error) {
	e, ok := t.store.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (t *memSwapTx) UpdateEventForSwap(_ context.Context, id, ownerID int64, status model.EventStatus) error {
	e, ok := t.store.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	e.OwnerID = ownerID
	e.Status = status
	return nil
}

func (t *memSwapTx) LockRequest(_ context.Context, id int64) (*model.SwapRequest, error) {
	sr, ok := t.store.swaps[id]
	if !ok {
		return nil, repository.ErrSwapNotFound
	}
	cp := *sr
	return &cp, nil
}

func (t *memSwapTx) HasPending(_ context.Context, requesterEventID, receiverEventID int64) (bool, error) {
	for _, sr := range t.store.swaps {
		if sr.Status == model.SwapStatusPending &&
			sr.RequesterEventID == requesterEventID && sr.ReceiverEventID == receiverEventID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memSwapTx) CreateRequest(_ context.Context, sr *model.SwapRequest) error {
	t.store.nextSwapID++
	sr.ID = t.store.nextSwapID
	cp := *sr
	t.store.swaps[cp.ID] = &cp
	return nil
}

func (t *memSwapTx) ResolveRequest(_ context.Context, id int64, status model.SwapStatus, respondedAt time.Time) error {
	sr, ok := t.store.swaps[id]
	if !ok {
		return repository.ErrSwapNotFound
	}
	sr.Status = status
	ts := respondedAt
	sr.RespondedAt = &ts
	return nil
}

func (t *memSwapTx) CancelOtherPending(_ context.Context, excludeID, eventA, eventB int64, respondedAt time.Time) (int64, error) {
	var n int64
	for _, sr := range t.store.swaps {
		if sr.ID == excludeID || sr.Status != model.SwapStatusPending {
			continue
		}
		if sr.RequesterEventID == eventA || sr.RequesterEventID == eventB ||
			sr.ReceiverEventID == eventA || sr.ReceiverEventID == eventB {
			sr.Status = model.SwapStatusCancelled
			ts := respondedAt
			sr.RespondedAt = &ts
			n++
		}
	}
	return n, nil
}

func newTestSwapService() (*SwapService, *memSwapStore) {
	store := newMemSwapStore()
	svc := NewSwapService(store)
	svc.now = func() time.Time { return testNow }
	return svc, store
}

const (
	alice = int64(1)
	bob   = int64(2)
	carol = int64(3)
)

func TestSwapLifecycle_Accept(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	created, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{
		MySlotID: a, TheirSlotID: b, Message: "trade you",
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if created.Status != string(model.SwapStatusPending) {
		t.Errorf("request status = %q, want PENDING", created.Status)
	}
	if store.events[a].Status != model.EventStatusSwapPending {
		t.Errorf("event A status = %s, want SWAP_PENDING", store.events[a].Status)
	}
	if store.events[b].Status != model.EventStatusSwapPending {
		t.Errorf("event B status = %s, want SWAP_PENDING", store.events[b].Status)
	}

	accepted, err := svc.Respond(context.Background(), created.ID, bob, true)
	if err != nil {
		t.Fatalf("Respond() unexpected error: %v", err)
	}

	if accepted.Status != string(model.SwapStatusAccepted) {
		t.Errorf("request status = %q, want ACCEPTED", accepted.Status)
	}
	if accepted.RespondedAt == nil || !accepted.RespondedAt.Equal(testNow) {
		t.Errorf("responded_at = %v, want %v", accepted.RespondedAt, testNow)
	}
	if store.events[a].OwnerID != bob {
		t.Errorf("event A owner = %d, want %d", store.events[a].OwnerID, bob)
	}
	if store.events[b].OwnerID != alice {
		t.Errorf("event B owner = %d, want %d", store.events[b].OwnerID, alice)
	}
	if store.events[a].Status != model.EventStatusBusy || store.events[b].Status != model.EventStatusBusy {
		t.Errorf("post-accept statuses = %s/%s, want BUSY/BUSY",
			store.events[a].Status, store.events[b].Status)
	}
}

func TestSwapLifecycle_RejectReverts(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	created, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	rejected, err := svc.Respond(context.Background(), created.ID, bob, false)
	if err != nil {
		t.Fatalf("Respond() unexpected error: %v", err)
	}

	if rejected.Status != string(model.SwapStatusRejected) {
		t.Errorf("request status = %q, want REJECTED", rejected.Status)
	}
	if rejected.RespondedAt == nil {
		t.Error("responded_at not set on rejection")
	}
	if store.events[a].Status != model.EventStatusSwappable || store.events[b].Status != model.EventStatusSwappable {
		t.Errorf("post-reject statuses = %s/%s, want SWAPPABLE/SWAPPABLE",
			store.events[a].Status, store.events[b].Status)
	}
	if store.events[a].OwnerID != alice || store.events[b].OwnerID != bob {
		t.Error("rejection must not change ownership")
	}
}

func TestSwapLifecycle_CancelReverts(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	created, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), created.ID, alice)
	if err != nil {
		t.Fatalf("Cancel() unexpected error: %v", err)
	}

	if cancelled.Status != string(model.SwapStatusCancelled) {
		t.Errorf("request status = %q, want CANCELLED", cancelled.Status)
	}
	if cancelled.RespondedAt == nil {
		t.Error("responded_at not set on cancellation")
	}
	if store.events[a].Status != model.EventStatusSwappable || store.events[b].Status != model.EventStatusSwappable {
		t.Errorf("post-cancel statuses = %s/%s, want SWAPPABLE/SWAPPABLE",
			store.events[a].Status, store.events[b].Status)
	}
}

func TestCreateSwap_SelfSwap(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(alice, model.EventStatusSwappable)

	if _, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b}); err != ErrSelfSwap {
		t.Errorf("expected ErrSelfSwap for own target event, got %v", err)
	}
	if _, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: a}); err != ErrSelfSwap {
		t.Errorf("expected ErrSelfSwap for identical events, got %v", err)
	}
}

func TestCreateSwap_NotSwappable(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusBusy)

	_, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != ErrNotSwappable {
		t.Errorf("expected ErrNotSwappable, got %v", err)
	}
	if store.events[a].Status != model.EventStatusSwappable {
		t.Error("failed create must leave requester event untouched")
	}
}

func TestCreateSwap_NotOwned(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(carol, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	_, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != ErrEventNotFound {
		t.Errorf("expected ErrEventNotFound for foreign requester event, got %v", err)
	}
}

func TestCreateSwap_EventMissing(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)

	_, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: 99})
	if err != ErrEventNotFound {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestCreateSwap_DuplicatePending(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	if _, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	_, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != ErrDuplicateSwap {
		t.Errorf("expected ErrDuplicateSwap for repeated pair, got %v", err)
	}
	if len(store.swaps) != 1 {
		t.Errorf("expected 1 stored request, got %d", len(store.swaps))
	}
}

func TestRespond_NotReceiver(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	created, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	// Neither a third party nor the requester may respond.
	if _, err := svc.Respond(context.Background(), created.ID, carol, true); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized for third party, got %v", err)
	}
	if _, err := svc.Respond(context.Background(), created.ID, alice, true); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized for requester, got %v", err)
	}
	if store.events[a].Status != model.EventStatusSwapPending {
		t.Error("failed respond must not change event state")
	}
}

func TestCancel_NotRequester(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	created, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), created.ID, bob); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized for receiver cancelling, got %v", err)
	}
}

func TestRespond_AlreadyResolved(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	created, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if _, err := svc.Respond(context.Background(), created.ID, bob, true); err != nil {
		t.Fatalf("Respond() unexpected error: %v", err)
	}

	if _, err := svc.Respond(context.Background(), created.ID, bob, false); err != ErrAlreadyResolved {
		t.Errorf("expected ErrAlreadyResolved on second respond, got %v", err)
	}
	if _, err := svc.Cancel(context.Background(), created.ID, alice); err != ErrAlreadyResolved {
		t.Errorf("expected ErrAlreadyResolved on cancel after accept, got %v", err)
	}

	// The accepted outcome must be untouched by the failed calls.
	if store.swaps[created.ID].Status != model.SwapStatusAccepted {
		t.Errorf("request status = %s, want ACCEPTED", store.swaps[created.ID].Status)
	}
	if store.events[a].OwnerID != bob || store.events[b].OwnerID != alice {
		t.Error("ownership changed by a rejected call")
	}
}

func TestRespond_NotFound(t *testing.T) {
	svc, _ := newTestSwapService()

	if _, err := svc.Respond(context.Background(), 404, bob, true); err != ErrSwapNotFound {
		t.Errorf("expected ErrSwapNotFound, got %v", err)
	}
}

func TestAccept_CascadeCancelsSiblings(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwapPending)
	b := store.addEvent(bob, model.EventStatusSwapPending)
	c := store.addEvent(bob, model.EventStatusSwapPending)
	d := store.addEvent(carol, model.EventStatusSwappable)

	r1 := store.addPending(alice, bob, a, b)
	// Sibling negotiations touching A and B, seeded directly: one offering A
	// again, one asking for B. Both become impossible once R1 is accepted.
	r2 := store.addPending(alice, bob, a, c)
	r3 := store.addPending(carol, bob, d, b)

	if _, err := svc.Respond(context.Background(), r1, bob, true); err != nil {
		t.Fatalf("Respond() unexpected error: %v", err)
	}

	for _, id := range []int64{r2, r3} {
		sr := store.swaps[id]
		if sr.Status != model.SwapStatusCancelled {
			t.Errorf("sibling request %d status = %s, want CANCELLED", id, sr.Status)
		}
		if sr.RespondedAt == nil {
			t.Errorf("sibling request %d responded_at not set", id)
		}
	}
	if store.swaps[r1].Status != model.SwapStatusAccepted {
		t.Errorf("accepted request status = %s, want ACCEPTED", store.swaps[r1].Status)
	}
	if store.events[a].OwnerID != bob || store.events[b].OwnerID != alice {
		t.Error("accept did not exchange ownership")
	}
}

// A rejection only returns events still parked in SWAP_PENDING to the
// marketplace. An event already claimed by another swap keeps its state.
func TestReject_LeavesMovedEventAlone(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusBusy)
	b := store.addEvent(bob, model.EventStatusSwapPending)
	id := store.addPending(alice, bob, a, b)

	rejected, err := svc.Respond(context.Background(), id, bob, false)
	if err != nil {
		t.Fatalf("Respond() unexpected error: %v", err)
	}

	if rejected.Status != string(model.SwapStatusRejected) {
		t.Errorf("request status = %q, want REJECTED", rejected.Status)
	}
	if store.events[a].Status != model.EventStatusBusy {
		t.Errorf("busy event status = %s, want BUSY", store.events[a].Status)
	}
	if store.events[b].Status != model.EventStatusSwappable {
		t.Errorf("pending event status = %s, want SWAPPABLE", store.events[b].Status)
	}
}

func TestSwapPendingImpliesOnePendingRequest(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	if _, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	for _, eventID := range []int64{a, b} {
		if store.events[eventID].Status != model.EventStatusSwapPending {
			t.Fatalf("event %d not SWAP_PENDING", eventID)
		}
		n := 0
		for _, sr := range store.swaps {
			if sr.Status != model.SwapStatusPending {
				continue
			}
			if sr.RequesterEventID == eventID || sr.ReceiverEventID == eventID {
				n++
			}
		}
		if n != 1 {
			t.Errorf("event %d referenced by %d pending requests, want exactly 1", eventID, n)
		}
	}
}

func TestCreateSwap_TransientContention(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)
	store.transactErr = repository.ErrContention

	_, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != ErrTransient {
		t.Errorf("expected ErrTransient, got %v", err)
	}
	if store.events[a].Status != model.EventStatusSwappable {
		t.Error("contention failure must leave state unchanged")
	}
}

func TestListsSplitByDirection(t *testing.T) {
	svc, store := newTestSwapService()
	a := store.addEvent(alice, model.EventStatusSwappable)
	b := store.addEvent(bob, model.EventStatusSwappable)

	created, err := svc.Create(context.Background(), alice, model.CreateSwapRequest{MySlotID: a, TheirSlotID: b})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	outgoing, err := svc.ListOutgoing(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListOutgoing() unexpected error: %v", err)
	}
	if len(outgoing) != 1 || outgoing[0].ID != created.ID {
		t.Errorf("outgoing for requester = %v, want the created request", outgoing)
	}

	incoming, err := svc.ListIncoming(context.Background(), bob)
	if err != nil {
		t.Fatalf("ListIncoming() unexpected error: %v", err)
	}
	if len(incoming) != 1 || incoming[0].ID != created.ID {
		t.Errorf("incoming for receiver = %v, want the created request", incoming)
	}

	if none, _ := svc.ListIncoming(context.Background(), alice); len(none) != 0 {
		t.Errorf("requester should have no incoming requests, got %d", len(none))
	}
}
