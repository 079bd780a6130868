package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

const userColumns = `id, username, email, role, organization, permissions, active, created_at, updated_at`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	tm     repositories.TransactionManager
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		tm:     NewTransactionManager(db, logger),
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	permissions := user.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.Role,
		user.Organization,
		pq.Array(permissions),
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.ID, repositories.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID), zap.String("username", user.Username))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id), id)
}

// Update locks the row, applies the patch and writes it back in one transaction
func (r *UserRepository) Update(ctx context.Context, id string, patch models.UserPatch, updatedAt int64) (*models.User, error) {
	var user *models.User
	err := r.tm.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)

		query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
		current, err := r.scanOne(executor.QueryRowContext(ctx, query, id), id)
		if err != nil {
			return err
		}
		current.Apply(patch, updatedAt)

		_, err = executor.ExecContext(ctx,
			`UPDATE users SET role = $1, active = $2, updated_at = $3 WHERE id = $4`,
			current.Role, current.Active, current.UpdatedAt, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		user = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("user updated", zap.String("id", id))
	return user, nil
}

// Exists reports whether the user row is present
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := GetExecutor(ctx, r.db).
		QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) scanOne(row *sql.Row, id string) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.Organization,
		pq.Array(&user.Permissions),
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Permissions == nil {
		user.Permissions = []string{}
	}
	return user, nil
}

// isUniqueViolation reports a Postgres unique_violation (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
