// Package repositories implements the data access layer (repository pattern).
// Each repository type encapsulates all database queries for a domain entity.
// Handlers never issue SQL directly — all database access goes through this layer, which makes query logic testable in isolation and prevents accidental cross-domain data access.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/autoescola-ideal/sistema-interno/internal/db/models"
)

// ErrDuplicateEmail is returned when creating a user with an email already in use
var ErrDuplicateEmail = errors.New("email already registered")

// userColumns is the canonical select list for user queries
const userColumns = `id, email, name, password_hash, unit, role, permissions, status,
	failed_login_attempts, locked_until, last_access, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UserFilters contains filters for listing users
type UserFilters struct {
	Unit   *string
	Status *string
	Role   *string
	Search *string // matches name or email, case-insensitive
	Limit  int
}

// UserUpdate carries the allowed mutable fields for UpdateUser.
// Nil fields are left unchanged.
type UserUpdate struct {
	Name         *string
	Unit         *string
	Role         *string
	Permissions  []string
	Status       *string
	PasswordHash *string
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Unit,
		&user.Role,
		pq.Array(&user.Permissions),
		&user.Status,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.LastAccess,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates a new user. Returns ErrDuplicateEmail when the email is taken.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Permissions == nil {
		user.Permissions = []string{}
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, unit, role, permissions, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Unit,
		user.Role,
		pq.Array(user.Permissions),
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateEmail
	}

	return err
}

// GetUserByID retrieves a user by ID regardless of status
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByEmail retrieves an active user by email, case-insensitively.
// Inactive accounts are invisible to login.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) AND status = 'active'`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUser applies the allowed field changes to a user and bumps updated_at.
// Returns the updated row, or nil when the user does not exist.
func (r *UserRepository) UpdateUser(ctx context.Context, userID string, changes UserUpdate) (*models.User, error) {
	sets := make([]string, 0)
	args := make([]interface{}, 0)
	paramIndex := 1

	addSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, paramIndex))
		args = append(args, value)
		paramIndex++
	}

	if changes.Name != nil {
		addSet("name", *changes.Name)
	}
	if changes.Unit != nil {
		addSet("unit", *changes.Unit)
	}
	if changes.Role != nil {
		addSet("role", *changes.Role)
	}
	if changes.Permissions != nil {
		addSet("permissions", pq.Array(changes.Permissions))
	}
	if changes.Status != nil {
		addSet("status", *changes.Status)
	}
	if changes.PasswordHash != nil {
		addSet("password_hash", *changes.PasswordHash)
	}

	addSet("updated_at", time.Now())

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), paramIndex, userColumns,
	)
	args = append(args, userID)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// DeactivateUser soft-deletes a user by setting status to inactive.
// Rows are never physically deleted so audit references stay intact.
func (r *UserRepository) DeactivateUser(ctx context.Context, userID string) error {
	query := `UPDATE users SET status = 'inactive', updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// ActivateUser re-enables a soft-deleted user
func (r *UserRepository) ActivateUser(ctx context.Context, userID string) error {
	query := `UPDATE users SET status = 'active', updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// ListUsers retrieves users matching the filters, newest first
func (r *UserRepository) ListUsers(ctx context.Context, filters UserFilters) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.Unit != nil {
		query += fmt.Sprintf(` AND unit = $%d`, paramIndex)
		args = append(args, *filters.Unit)
		paramIndex++
	}

	if filters.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, paramIndex)
		args = append(args, *filters.Status)
		paramIndex++
	}

	if filters.Role != nil {
		query += fmt.Sprintf(` AND role = $%d`, paramIndex)
		args = append(args, *filters.Role)
		paramIndex++
	}

	if filters.Search != nil {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d)`, paramIndex, paramIndex)
		args = append(args, "%"+*filters.Search+"%")
		paramIndex++
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, paramIndex)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// Count returns the total number of users of any status
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM users`
	err := r.db.QueryRowContext(ctx, query).Scan(&total)
	return total, err
}

// RecordLoginFailure increments the failed attempt counter and applies a
// lockout once the counter reaches maxAttempts. Returns the new counter value.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID string, maxAttempts int, lockout time.Duration) (int, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts
	`

	var attempts int
	err := r.db.QueryRowContext(ctx, query, userID, maxAttempts, time.Now().Add(lockout)).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return attempts, err
}

// RecordLoginSuccess clears the failure counter and lockout and stamps last_access
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    last_access = NOW(),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
