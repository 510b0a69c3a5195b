package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/slotswap/slotswap-go/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository handles user persistence operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets the generated ID on the user struct.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (email, first_name, last_name, password_hash) VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, user.Email, user.FirstName, user.LastName, user.PasswordHash)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	user.ID = id
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, first_name, last_name, password_hash, created_at, updated_at
		FROM users WHERE email = ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, email, first_name, last_name, password_hash, created_at, updated_at
		FROM users WHERE id = ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// UpdateProfile updates the mutable profile fields of a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName string) error {
	query := `UPDATE users SET first_name = ?, last_name = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, firstName, lastName, id)
	if err != nil {
		return err
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		// Either the user is gone or the values did not change; confirm.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
