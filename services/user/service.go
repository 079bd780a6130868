package user

import (
	"context"
	"strings"
	"time"

	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"github.com/upb/audit-trail/services"
	"go.uber.org/zap"
)

var notFoundMessage = services.ErrUserNotFound.Message

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	ID           string
	Username     string
	Email        string
	Role         models.UserRole
	Organization string
	Permissions  []string
}

// EventRecorder receives user lifecycle events
type EventRecorder interface {
	UserRegistered(ctx context.Context, user *models.User)
	UserRoleChanged(ctx context.Context, user *models.User, previous models.UserRole)
	UserDeactivated(ctx context.Context, user *models.User)
}

// UserService handles user registration and the mutable user fields
type UserService struct {
	repo     repositories.UserRepository
	recorder EventRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService creates a new UserService. recorder may be nil.
func NewUserService(repo repositories.UserRepository, recorder EventRecorder, logger *zap.Logger) *UserService {
	return &UserService{
		repo:     repo,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates a new active user
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	user := models.NewUser(req.Username, req.Email, req.Role, req.Organization, req.Permissions, s.now())
	if req.ID != "" {
		user.ID = req.ID
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, services.FromRepository(err, notFoundMessage)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))

	if s.recorder != nil {
		s.recorder.UserRegistered(ctx, user)
	}
	return user, nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, notFoundMessage)
	}
	return user, nil
}

// UpdateRole changes the role of an existing user
func (s *UserService) UpdateRole(ctx context.Context, id string, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidRole.Message, nil).
			WithDetail("role", string(role))
	}

	// previous role is only needed for the recorded entry
	var previous models.UserRole
	if s.recorder != nil {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, services.FromRepository(err, notFoundMessage)
		}
		previous = current.Role
	}

	user, err := s.repo.Update(ctx, id, models.UserPatch{Role: &role}, s.now().UnixMilli())
	if err != nil {
		return nil, services.FromRepository(err, notFoundMessage)
	}

	s.logger.Info("user role updated",
		zap.String("user_id", id),
		zap.String("role", string(role)))

	if s.recorder != nil {
		s.recorder.UserRoleChanged(ctx, user, previous)
	}
	return user, nil
}

// Deactivate soft-deletes a user
func (s *UserService) Deactivate(ctx context.Context, id string) (*models.User, error) {
	inactive := false
	user, err := s.repo.Update(ctx, id, models.UserPatch{Active: &inactive}, s.now().UnixMilli())
	if err != nil {
		return nil, services.FromRepository(err, notFoundMessage)
	}

	s.logger.Info("user deactivated", zap.String("user_id", id))

	if s.recorder != nil {
		s.recorder.UserDeactivated(ctx, user)
	}
	return user, nil
}

// Exists reports whether a user is registered
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, services.FromRepository(err, notFoundMessage)
	}
	return exists, nil
}

func validateRegister(req RegisterRequest) error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(req.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if req.Role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return services.NewDomainError(services.ErrorTypeValidation, "missing required fields", nil).
			WithDetail("fields", missing)
	}
	if !req.Role.Valid() {
		return services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidRole.Message, nil).
			WithDetail("role", string(req.Role))
	}
	if len(req.ID) > 64 {
		return services.Validation("id must be at most 64 characters")
	}
	return nil
}
