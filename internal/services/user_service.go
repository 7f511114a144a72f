package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/locojk/GNG-5300-Group-Backend/internal/audit"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, fields map[string]any) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error
	VerifyEmail(ctx context.Context, id primitive.ObjectID) error
}

type goalRemover interface {
	SoftDelete(ctx context.Context, userID primitive.ObjectID) error
}

type logRemover interface {
	DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type UserService struct {
	users userStore
	goals goalRemover
	logs  logRemover
	audit *audit.Recorder
}

func NewUserService(users userStore, goals goalRemover, logs logRemover, recorder *audit.Recorder) *UserService {
	return &UserService{users: users, goals: goals, logs: logs, audit: recorder}
}

func (s *UserService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, userError(err)
	}
	return user, nil
}

// UpdateProfile validates and merges the patch into the caller's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch models.UserPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	fields := patch.Fields()
	if err := s.users.UpdateProfile(ctx, userID, fields); err != nil {
		return userError(err)
	}
	s.audit.Record(ctx, userID.Hex(), "update_profile", "user", audit.StatusSuccess, map[string]any{"fields": len(fields)})
	return nil
}

// DeleteAccount marks the user deleted and soft-deletes their goal and logs.
// The user document itself is kept.
func (s *UserService) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.users.UpdateStatus(ctx, userID, models.UserStatusDeleted); err != nil {
		return userError(err)
	}
	if err := s.goals.SoftDelete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete fitness goal: %w", err)
	}
	n, err := s.logs.DeleteAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete workout logs: %w", err)
	}
	s.audit.Record(ctx, userID.Hex(), "delete_account", "user", audit.StatusSuccess, map[string]any{"logs_deleted": n})
	return nil
}

func (s *UserService) ChangeStatus(ctx context.Context, actorID, targetID primitive.ObjectID, status string) error {
	if !models.IsValidUserStatus(status) {
		return &models.ValidationError{Field: "status", Message: "status must be one of active, inactive, banned, deleted"}
	}
	if err := s.users.UpdateStatus(ctx, targetID, status); err != nil {
		return userError(err)
	}
	s.audit.Record(ctx, actorID.Hex(), "change_status", "user", audit.StatusSuccess, map[string]any{
		"target_user_id": targetID.Hex(),
		"status":         status,
	})
	return nil
}

func (s *UserService) ChangeRole(ctx context.Context, actorID, targetID primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return &models.ValidationError{Field: "role", Message: "role must be one of user, admin, moderator, vip"}
	}
	if err := s.users.UpdateRole(ctx, targetID, role); err != nil {
		return userError(err)
	}
	s.audit.Record(ctx, actorID.Hex(), "change_role", "user", audit.StatusSuccess, map[string]any{
		"target_user_id": targetID.Hex(),
		"role":           role,
	})
	return nil
}

func (s *UserService) VerifyEmail(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	if err := s.users.VerifyEmail(ctx, targetID); err != nil {
		return userError(err)
	}
	s.audit.Record(ctx, actorID.Hex(), "verify_email", "user", audit.StatusSuccess, map[string]any{"target_user_id": targetID.Hex()})
	return nil
}

func userError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrEmailTaken):
		return ErrDuplicateEmail
	case errors.Is(err, repository.ErrUsernameTaken):
		return ErrDuplicateUsername
	case errors.Is(err, repository.ErrEmptyUpdate):
		return &models.ValidationError{Message: "no fields provided for update"}
	}
	return err
}
