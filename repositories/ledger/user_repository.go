package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/upb/audit-trail/internal/shared"
	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

// ErrReactivationUnsupported is returned for patches the chaincode cannot express
var ErrReactivationUnsupported = errors.New("ledger does not support reactivating users")

// UserRepository implements repositories.UserRepository on the user chaincode.
// The chaincode stamps timestamps and assigns role permissions itself.
type UserRepository struct {
	contract Contract
	logger   *zap.Logger
}

// NewUserRepository creates a ledger-backed user repository
func NewUserRepository(contract Contract, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		contract: contract,
		logger:   logger,
	}
}

// Create submits RegisterUser and refreshes user with the committed record
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, txID, err := r.contract.Submit(ctx, "RegisterUser",
		user.ID,
		user.Username,
		user.Email,
		string(user.Role),
		user.Organization,
		shared.Actor(ctx),
	)
	if err != nil {
		if isAlreadyExists(err) {
			return fmt.Errorf("user %s: %w", user.ID, repositories.ErrAlreadyExists)
		}
		return upstream("RegisterUser", err)
	}

	stored, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *stored

	r.logger.Debug("user registered on ledger", zap.String("id", user.ID), zap.String("tx_id", txID))
	return nil
}

// GetByID evaluates GetUser
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	data, err := r.contract.Evaluate(ctx, "GetUser", id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, upstream("GetUser", err)
	}

	var user chainUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, upstream("GetUser", fmt.Errorf("invalid response: %w", err))
	}
	return user.toModel(), nil
}

// Update maps the patch onto UpdateUserRole and DeactivateUser.
// updatedAt is ignored because the chaincode stamps it.
func (r *UserRepository) Update(ctx context.Context, id string, patch models.UserPatch, _ int64) (*models.User, error) {
	if patch.Active != nil && *patch.Active {
		return nil, fmt.Errorf("%w: %w", repositories.ErrUpstream, ErrReactivationUnsupported)
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}

	if patch.Role != nil {
		if _, _, err := r.contract.Submit(ctx, "UpdateUserRole", id, string(*patch.Role)); err != nil {
			return nil, upstream("UpdateUserRole", err)
		}
	}
	if patch.Active != nil {
		if _, _, err := r.contract.Submit(ctx, "DeactivateUser", id); err != nil {
			return nil, upstream("DeactivateUser", err)
		}
	}

	return r.GetByID(ctx, id)
}

// Exists evaluates UserExists
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	data, err := r.contract.Evaluate(ctx, "UserExists", id)
	if err != nil {
		return false, upstream("UserExists", err)
	}
	exists, err := strconv.ParseBool(string(data))
	if err != nil {
		return false, upstream("UserExists", fmt.Errorf("invalid response %q", data))
	}
	return exists, nil
}
