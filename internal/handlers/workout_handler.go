package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fitnessGoalApplicationService interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.FitnessGoal, error)
	Upsert(ctx context.Context, userID primitive.ObjectID, in models.FitnessGoalInput) (repository.UpsertResult, error)
	Update(ctx context.Context, userID primitive.ObjectID, patch models.FitnessGoalPatch) (int64, error)
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

type workoutLogApplicationService interface {
	Get(ctx context.Context, userID primitive.ObjectID, day time.Time) (*models.DailyWorkoutLog, error)
	Upsert(ctx context.Context, userID primitive.ObjectID, in models.WorkoutLogInput) (repository.UpsertResult, error)
	Update(ctx context.Context, userID primitive.ObjectID, day time.Time, patch models.WorkoutLogPatch) (int64, error)
	Delete(ctx context.Context, userID primitive.ObjectID, day time.Time) error
	History(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.DailyWorkoutLog, int, error)
	Progress(ctx context.Context, userID primitive.ObjectID) (*models.ProgressReport, error)
	Today() time.Time
}

type WorkoutHandler struct {
	goals  fitnessGoalApplicationService
	logs   workoutLogApplicationService
	logger *slog.Logger
}

func NewWorkoutHandler(goals fitnessGoalApplicationService, logs workoutLogApplicationService, logger *slog.Logger) *WorkoutHandler {
	return &WorkoutHandler{goals: goals, logs: logs, logger: logger}
}

func (h *WorkoutHandler) GetFitnessGoal(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	goal, err := h.goals.Get(c.UserContext(), identity.UserID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"fitness_goal": goal})
}

func (h *WorkoutHandler) UpsertFitnessGoal(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	var req models.FitnessGoalInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res, err := h.goals.Upsert(c.UserContext(), identity.UserID, req)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.Status(upsertStatus(res)).JSON(fiber.Map{
		"message": "Fitness goal saved successfully",
		"result":  res,
	})
}

func (h *WorkoutHandler) UpdateFitnessGoal(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	var patch models.FitnessGoalPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}

	modified, err := h.goals.Update(c.UserContext(), identity.UserID, patch)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Fitness goal updated successfully",
		"modified_count": modified,
	})
}

func (h *WorkoutHandler) DeleteFitnessGoal(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	if err := h.goals.Delete(c.UserContext(), identity.UserID); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Fitness goal deleted successfully"})
}

type workoutLogRequest struct {
	LogDate            string  `json:"log_date"`
	WorkoutContent     string  `json:"workout_content"`
	TotalWeightLost    float64 `json:"total_weight_lost"`
	TotalCaloriesBurnt float64 `json:"total_calories_burnt"`
	AvgWorkoutDuration int     `json:"avg_workout_duration"`
}

func (h *WorkoutHandler) GetWorkoutLog(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}
	day, err := h.logDate(c.Query("log_date"))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	entry, err := h.logs.Get(c.UserContext(), identity.UserID, day)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"workout_log": entry})
}

func (h *WorkoutHandler) UpsertWorkoutLog(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	var req workoutLogRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	day, err := h.logDate(req.LogDate)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	res, err := h.logs.Upsert(c.UserContext(), identity.UserID, models.WorkoutLogInput{
		LogDate:            day,
		WorkoutContent:     req.WorkoutContent,
		TotalWeightLost:    req.TotalWeightLost,
		TotalCaloriesBurnt: req.TotalCaloriesBurnt,
		AvgWorkoutDuration: req.AvgWorkoutDuration,
	})
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.Status(upsertStatus(res)).JSON(fiber.Map{
		"message": "Workout log saved successfully",
		"result":  res,
	})
}

func (h *WorkoutHandler) UpdateWorkoutLog(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}
	if strings.TrimSpace(c.Query("log_date")) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "log_date is required", "field": "log_date"})
	}
	day, err := models.ParseLogDate(c.Query("log_date"))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	var patch models.WorkoutLogPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}

	modified, err := h.logs.Update(c.UserContext(), identity.UserID, day, patch)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Workout log updated successfully",
		"modified_count": modified,
	})
}

func (h *WorkoutHandler) DeleteWorkoutLog(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}
	if strings.TrimSpace(c.Query("log_date")) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "log_date is required", "field": "log_date"})
	}
	day, err := models.ParseLogDate(c.Query("log_date"))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	if err := h.logs.Delete(c.UserContext(), identity.UserID, day); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Workout log deleted successfully"})
}

func (h *WorkoutHandler) WorkoutLogHistory(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}
	page, limit, err := parsePagination(c)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	entries, total, err := h.logs.History(c.UserContext(), identity.UserID, page, limit)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"workout_logs": entries,
		"pagination":   buildPaginationMeta(page, limit, total),
	})
}

func (h *WorkoutHandler) Progress(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	report, err := h.logs.Progress(c.UserContext(), identity.UserID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(report)
}

// logDate parses an optional YYYY-MM-DD value, defaulting to today.
func (h *WorkoutHandler) logDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return h.logs.Today(), nil
	}
	return models.ParseLogDate(raw)
}

func upsertStatus(res repository.UpsertResult) int {
	if res.Operation == repository.OperationCreate {
		return fiber.StatusCreated
	}
	return fiber.StatusOK
}
