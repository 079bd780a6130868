package repositories

import (
	"context"
	"errors"

	"github.com/upb/audit-trail/models"
)

var (
	// ErrNotFound is returned when no record matches the requested id
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a record id is already taken
	ErrAlreadyExists = errors.New("record already exists")

	// ErrUpstream wraps failures reported by a remote backend (ledger peer)
	ErrUpstream = errors.New("upstream backend error")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create persists a new user. The caller fills id and timestamps.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Update applies the patch, stamps updatedAt and returns the stored record
	Update(ctx context.Context, id string, patch models.UserPatch, updatedAt int64) (*models.User, error)

	// Exists reports whether a user with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)
}

// AuditRepository handles audit entry data operations.
// Entries are append-only; list operations return storage order.
type AuditRepository interface {
	// Create appends a new audit entry
	Create(ctx context.Context, entry *models.AuditEntry) error

	// GetByID retrieves an audit entry by ID
	GetByID(ctx context.Context, id string) (*models.AuditEntry, error)

	// List returns every audit entry
	List(ctx context.Context) ([]*models.AuditEntry, error)

	// ListByUser returns entries whose userId matches
	ListByUser(ctx context.Context, userID string) ([]*models.AuditEntry, error)

	// ListByAction returns entries whose action matches
	ListByAction(ctx context.Context, action models.AuditAction) ([]*models.AuditEntry, error)

	// ListByDateRange returns entries with start <= timestamp <= end
	ListByDateRange(ctx context.Context, start, end int64) ([]*models.AuditEntry, error)

	// Exists reports whether an audit entry with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)
}

// ReportRepository handles compliance report data operations
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context) ([]*models.Report, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users   UserRepository
	Audits  AuditRepository
	Reports ReportRepository
}
