package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/slotswap/slotswap-go/internal/model"
)

var (
	ErrSwapNotFound  = errors.New("swap request not found")
	ErrDuplicateSwap = errors.New("swap request already exists for this event pair")
)

// SwapTx is the set of operations available inside one atomic swap
// transaction. Implementations must hold row locks taken by LockEvent and
// LockRequest until the transaction ends.
type SwapTx interface {
	// LockEvent reads an event with an exclusive row lock.
	LockEvent(ctx context.Context, id int64) (*model.Event, error)
	// UpdateEventForSwap writes the owner and status of an event.
	UpdateEventForSwap(ctx context.Context, id, ownerID int64, status model.EventStatus) error
	// LockRequest reads a swap request with an exclusive row lock.
	LockRequest(ctx context.Context, id int64) (*model.SwapRequest, error)
	// HasPending reports whether a PENDING request exists for the exact pair.
	HasPending(ctx context.Context, requesterEventID, receiverEventID int64) (bool, error)
	// CreateRequest inserts a new request and sets its generated ID.
	CreateRequest(ctx context.Context, sr *model.SwapRequest) error
	// ResolveRequest moves a request to a terminal status and stamps responded_at.
	ResolveRequest(ctx context.Context, id int64, status model.SwapStatus, respondedAt time.Time) error
	// CancelOtherPending cancels every other PENDING request that references
	// either event on either side, returning the number of rows cancelled.
	CancelOtherPending(ctx context.Context, excludeID, eventA, eventB int64, respondedAt time.Time) (int64, error)
}

// SwapRepository handles swap request persistence operations.
type SwapRepository struct {
	db *sql.DB
}

// NewSwapRepository creates a new SwapRepository.
func NewSwapRepository(db *sql.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

// Transact runs fn inside one database transaction. Any error from fn (or
// from commit) rolls the whole unit back; contention errors are mapped to
// ErrContention so callers can surface a retryable failure.
func (r *SwapRepository) Transact(ctx context.Context, fn func(tx SwapTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&swapTx{tx: tx}); err != nil {
		if isContentionError(err) {
			return ErrContention
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isContentionError(err) {
			return ErrContention
		}
		return err
	}
	return nil
}

// swapColumns is the select list for swap request queries, joining both
// participants, both events and each event's current owner.
const swapColumns = `s.id, s.requester_id, s.receiver_id, s.requester_event_id, s.receiver_event_id,
	s.status, COALESCE(s.message, ''), s.created_at, s.updated_at, s.responded_at,
	ru.email, CONCAT(ru.first_name, ' ', ru.last_name),
	cu.email, CONCAT(cu.first_name, ' ', cu.last_name),
	re.id, re.owner_id, re.title, COALESCE(re.description, ''), re.start_time, re.end_time,
	re.status, re.created_at, re.updated_at, reo.email, CONCAT(reo.first_name, ' ', reo.last_name),
	ce.id, ce.owner_id, ce.title, COALESCE(ce.description, ''), ce.start_time, ce.end_time,
	ce.status, ce.created_at, ce.updated_at, ceo.email, CONCAT(ceo.first_name, ' ', ceo.last_name)`

const swapJoins = `FROM swap_requests s
	JOIN users ru ON ru.id = s.requester_id
	JOIN users cu ON cu.id = s.receiver_id
	JOIN events re ON re.id = s.requester_event_id
	JOIN users reo ON reo.id = re.owner_id
	JOIN events ce ON ce.id = s.receiver_event_id
	JOIN users ceo ON ceo.id = ce.owner_id`

// GetByID retrieves a swap request with full participant and event details.
func (r *SwapRepository) GetByID(ctx context.Context, id int64) (*model.SwapRequest, error) {
	query := `SELECT ` + swapColumns + ` ` + swapJoins + ` WHERE s.id = ?`

	sr, err := scanSwap(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}
	return sr, nil
}

// ListIncoming retrieves all swap requests addressed to a user, newest first.
func (r *SwapRepository) ListIncoming(ctx context.Context, userID int64) ([]model.SwapRequest, error) {
	query := `SELECT ` + swapColumns + ` ` + swapJoins + `
		WHERE s.receiver_id = ? ORDER BY s.created_at DESC, s.id DESC`

	return r.list(ctx, query, userID)
}

// ListOutgoing retrieves all swap requests created by a user, newest first.
func (r *SwapRepository) ListOutgoing(ctx context.Context, userID int64) ([]model.SwapRequest, error) {
	query := `SELECT ` + swapColumns + ` ` + swapJoins + `
		WHERE s.requester_id = ? ORDER BY s.created_at DESC, s.id DESC`

	return r.list(ctx, query, userID)
}

func (r *SwapRepository) list(ctx context.Context, query string, args ...any) ([]model.SwapRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []model.SwapRequest
	for rows.Next() {
		sr, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *sr)
	}

	return requests, rows.Err()
}

func scanSwap(row rowScanner) (*model.SwapRequest, error) {
	sr := &model.SwapRequest{
		RequesterEvent: &model.Event{},
		ReceiverEvent:  &model.Event{},
	}
	re, ce := sr.RequesterEvent, sr.ReceiverEvent

	var respondedAt sql.NullTime
	err := row.Scan(
		&sr.ID, &sr.RequesterID, &sr.ReceiverID, &sr.RequesterEventID, &sr.ReceiverEventID,
		&sr.Status, &sr.Message, &sr.CreatedAt, &sr.UpdatedAt, &respondedAt,
		&sr.RequesterEmail, &sr.RequesterName,
		&sr.ReceiverEmail, &sr.ReceiverName,
		&re.ID, &re.OwnerID, &re.Title, &re.Description, &re.StartTime, &re.EndTime,
		&re.Status, &re.CreatedAt, &re.UpdatedAt, &re.OwnerEmail, &re.OwnerName,
		&ce.ID, &ce.OwnerID, &ce.Title, &ce.Description, &ce.StartTime, &ce.EndTime,
		&ce.Status, &ce.CreatedAt, &ce.UpdatedAt, &ce.OwnerEmail, &ce.OwnerName,
	)
	if err != nil {
		return nil, err
	}

	if respondedAt.Valid {
		t := respondedAt.Time
		sr.RespondedAt = &t
	}
	return sr, nil
}

// swapTx implements SwapTx over a live *sql.Tx.
type swapTx struct {
	tx *sql.Tx
}

func (t *swapTx) LockEvent(ctx context.Context, id int64) (*model.Event, error) {
	query := `SELECT id, owner_id, title, COALESCE(description, ''), start_time, end_time,
		status, created_at, updated_at
		FROM events WHERE id = ? FOR UPDATE`

	e := &model.Event{}
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
		&e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func (t *swapTx) UpdateEventForSwap(ctx context.Context, id, ownerID int64, status model.EventStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE events SET owner_id = ?, status = ? WHERE id = ?`,
		ownerID, status, id,
	)
	return err
}

func (t *swapTx) LockRequest(ctx context.Context, id int64) (*model.SwapRequest, error) {
	query := `SELECT id, requester_id, receiver_id, requester_event_id, receiver_event_id,
		status, COALESCE(message, ''), created_at, updated_at, responded_at
		FROM swap_requests WHERE id = ? FOR UPDATE`

	sr := &model.SwapRequest{}
	var respondedAt sql.NullTime
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&sr.ID, &sr.RequesterID, &sr.ReceiverID, &sr.RequesterEventID, &sr.ReceiverEventID,
		&sr.Status, &sr.Message, &sr.CreatedAt, &sr.UpdatedAt, &respondedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}

	if respondedAt.Valid {
		ts := respondedAt.Time
		sr.RespondedAt = &ts
	}
	return sr, nil
}

func (t *swapTx) HasPending(ctx context.Context, requesterEventID, receiverEventID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM swap_requests
		WHERE requester_event_id = ? AND receiver_event_id = ? AND status = ?)`

	var exists bool
	err := t.tx.QueryRowContext(ctx, query, requesterEventID, receiverEventID, model.SwapStatusPending).Scan(&exists)
	return exists, err
}

func (t *swapTx) CreateRequest(ctx context.Context, sr *model.SwapRequest) error {
	query := `INSERT INTO swap_requests
		(requester_id, receiver_id, requester_event_id, receiver_event_id, status, message)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := t.tx.ExecContext(ctx, query,
		sr.RequesterID, sr.ReceiverID, sr.RequesterEventID, sr.ReceiverEventID,
		sr.Status, sr.Message,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateSwap
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	sr.ID = id
	return nil
}

func (t *swapTx) ResolveRequest(ctx context.Context, id int64, status model.SwapStatus, respondedAt time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE swap_requests SET status = ?, responded_at = ? WHERE id = ?`,
		status, respondedAt, id,
	)
	return err
}

func (t *swapTx) CancelOtherPending(ctx context.Context, excludeID, eventA, eventB int64, respondedAt time.Time) (int64, error) {
	query := `UPDATE swap_requests SET status = ?, responded_at = ?
		WHERE status = ? AND id <> ?
		AND (requester_event_id IN (?, ?) OR receiver_event_id IN (?, ?))`

	result, err := t.tx.ExecContext(ctx, query,
		model.SwapStatusCancelled, respondedAt,
		model.SwapStatusPending, excludeID,
		eventA, eventB, eventA, eventB,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
