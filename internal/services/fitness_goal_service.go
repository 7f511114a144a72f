package services

import (
	"context"
	"errors"

	"github.com/locojk/GNG-5300-Group-Backend/internal/audit"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fitnessGoalStore interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.FitnessGoal, error)
	Upsert(ctx context.Context, userID primitive.ObjectID, in models.FitnessGoalInput) (repository.UpsertResult, error)
	UpdateFields(ctx context.Context, userID primitive.ObjectID, fields map[string]any) (int64, error)
	SoftDelete(ctx context.Context, userID primitive.ObjectID) error
}

type FitnessGoalService struct {
	goals fitnessGoalStore
	audit *audit.Recorder
}

func NewFitnessGoalService(goals fitnessGoalStore, recorder *audit.Recorder) *FitnessGoalService {
	return &FitnessGoalService{goals: goals, audit: recorder}
}

func (s *FitnessGoalService) Get(ctx context.Context, userID primitive.ObjectID) (*models.FitnessGoal, error) {
	goal, err := s.goals.GetByUserID(ctx, userID)
	if err != nil {
		return nil, goalError(err)
	}
	return goal, nil
}

func (s *FitnessGoalService) Upsert(ctx context.Context, userID primitive.ObjectID, in models.FitnessGoalInput) (repository.UpsertResult, error) {
	if err := in.Validate(); err != nil {
		return repository.UpsertResult{}, err
	}
	res, err := s.goals.Upsert(ctx, userID, in)
	if err != nil {
		return repository.UpsertResult{}, err
	}
	s.audit.Record(ctx, userID.Hex(), res.Operation+"_fitness_goal", "fitness_goal", audit.StatusSuccess, map[string]any{"goal": in.Goal})
	return res, nil
}

// Update applies a partial change. An empty patch is rejected before any
// storage call.
func (s *FitnessGoalService) Update(ctx context.Context, userID primitive.ObjectID, patch models.FitnessGoalPatch) (int64, error) {
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	modified, err := s.goals.UpdateFields(ctx, userID, patch.Fields())
	if err != nil {
		return 0, goalError(err)
	}
	s.audit.Record(ctx, userID.Hex(), "update_fitness_goal", "fitness_goal", audit.StatusSuccess, nil)
	return modified, nil
}

func (s *FitnessGoalService) Delete(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.goals.SoftDelete(ctx, userID); err != nil {
		return goalError(err)
	}
	s.audit.Record(ctx, userID.Hex(), "delete_fitness_goal", "fitness_goal", audit.StatusSuccess, nil)
	return nil
}

func goalError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrGoalNotFound
	}
	return err
}
