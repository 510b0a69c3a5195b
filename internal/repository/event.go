package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/slotswap/slotswap-go/internal/model"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventLocked   = errors.New("event is locked by a pending swap")
)

// eventColumns is the shared select list for event queries that join the
// owner row for display fields.
const eventColumns = `e.id, e.owner_id, e.title, COALESCE(e.description, ''), e.start_time, e.end_time,
	e.status, e.created_at, e.updated_at, u.email, CONCAT(u.first_name, ' ', u.last_name)`

// EventRepository handles calendar event persistence operations.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and sets the generated ID on the event struct.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `INSERT INTO events (owner_id, title, description, start_time, end_time, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		event.OwnerID, event.Title, event.Description,
		event.StartTime, event.EndTime, event.Status,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	event.ID = id
	return nil
}

// GetByID retrieves an event by its ID, including owner display fields.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e JOIN users u ON u.id = e.owner_id
		WHERE e.id = ?`

	event := &model.Event{}
	err := scanEvent(r.db.QueryRowContext(ctx, query, id), event)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

// Update writes the mutable fields of an event. The status guard in the WHERE
// clause makes the write atomic against a concurrent swap: an event that
// entered SWAP_PENDING after the caller's read cannot be overwritten here.
func (r *EventRepository) Update(ctx context.Context, event *model.Event) error {
	query := `UPDATE events SET title = ?, description = ?, start_time = ?, end_time = ?, status = ?
		WHERE id = ? AND status <> ?`

	result, err := r.db.ExecContext(ctx, query,
		event.Title, event.Description, event.StartTime, event.EndTime, event.Status,
		event.ID, model.EventStatusSwapPending,
	)
	if err != nil {
		return err
	}

	// MySQL also reports zero rows for a no-change update, so a miss needs a
	// re-read to tell missing from locked from unchanged.
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		current, getErr := r.GetByID(ctx, event.ID)
		if getErr != nil {
			return getErr
		}
		if current.Status == model.EventStatusSwapPending {
			return ErrEventLocked
		}
	}
	return nil
}

// Delete removes an event unless a pending swap holds it.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND status <> ?`,
		id, model.EventStatusSwapPending,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrEventLocked
	}
	return nil
}

// ListByOwner retrieves all events owned by a user, ordered by start time.
func (r *EventRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e JOIN users u ON u.id = e.owner_id
		WHERE e.owner_id = ?
		ORDER BY e.start_time ASC`

	return r.list(ctx, query, ownerID)
}

// ListSwappable retrieves the marketplace view: all SWAPPABLE events ending
// after the given instant and not owned by the viewer, ordered by start time.
func (r *EventRepository) ListSwappable(ctx context.Context, viewerID int64, after time.Time) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e JOIN users u ON u.id = e.owner_id
		WHERE e.status = ? AND e.end_time > ? AND e.owner_id <> ?
		ORDER BY e.start_time ASC`

	return r.list(ctx, query, model.EventStatusSwappable, after, viewerID)
}

// CountOverlapping counts events of the same owner whose [start,end) interval
// intersects the given one, excluding excludeID (0 to exclude nothing).
func (r *EventRepository) CountOverlapping(ctx context.Context, ownerID int64, start, end time.Time, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM events
		WHERE owner_id = ? AND start_time < ? AND end_time > ? AND id <> ?`

	var n int
	err := r.db.QueryRowContext(ctx, query, ownerID, end, start, excludeID).Scan(&n)
	return n, err
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent reads one eventColumns row into e.
func scanEvent(row rowScanner, e *model.Event) error {
	return row.Scan(
		&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
		&e.Status, &e.CreatedAt, &e.UpdatedAt, &e.OwnerEmail, &e.OwnerName,
	)
}
