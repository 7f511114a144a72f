package routes

import (
	"log/slog"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/config"
	"github.com/locojk/GNG-5300-Group-Backend/internal/handlers"
	"github.com/locojk/GNG-5300-Group-Backend/internal/middleware"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const authRateWindow = time.Minute

// Dependencies carries everything the route table needs. Redis and Metrics
// are optional: without Redis the auth endpoints are not rate limited, and
// without Metrics /metrics is not served.
type Dependencies struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Workout *handlers.WorkoutHandler
	AIChat  *handlers.AIChatHandler
	Health  *handlers.HealthHandler

	Tokens   middleware.TokenVerifier
	Accounts middleware.AccountLookup
	Redis    *redis.Client
	Metrics  *fiberprometheus.FiberPrometheus
	Logger   *slog.Logger
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, deps Dependencies) error {
	app.Get("/", deps.Health.Welcome)
	app.Get("/health", deps.Health.Health)
	if deps.Metrics != nil {
		deps.Metrics.RegisterAt(app, "/metrics")
	}
	if err := registerDocsRoutes(app, cfg); err != nil {
		return err
	}

	api := app.Group("/api/v1")
	api.Get("/health", deps.Health.Health)

	limit := func(resource string) fiber.Handler {
		return middleware.RateLimit(deps.Redis, resource, middleware.RateLimitConfig{
			Enabled: cfg.RateLimitEnabled,
			Limit:   cfg.AuthRateLimit,
			Window:  authRateWindow,
			Logger:  deps.Logger,
		})
	}
	authRequired := middleware.AuthRequired(deps.Tokens)
	activeUser := middleware.ActiveUserRequired(deps.Accounts, deps.Logger)

	user := api.Group("/user")
	user.Post("/register", limit("register"), deps.Auth.Register)
	user.Post("/login", limit("login"), deps.Auth.Login)
	user.Post("/refresh", limit("refresh"), deps.Auth.Refresh)
	user.Post("/logout", deps.Auth.Logout)
	user.Post("/password/forgot", limit("password_forgot"), deps.Auth.ForgotPassword)
	user.Post("/password/reset", limit("password_reset"), deps.Auth.ResetPassword)
	user.Get("/profile", authRequired, activeUser, deps.User.GetProfile)
	user.Put("/profile/update", authRequired, activeUser, deps.User.UpdateProfile)
	user.Delete("/profile", authRequired, activeUser, deps.User.DeleteAccount)

	admin := api.Group("/admin", authRequired, activeUser, middleware.RoleRequired(models.RoleAdmin))
	admin.Put("/users/:id/status", deps.User.UpdateStatus)
	admin.Put("/users/:id/role", deps.User.UpdateRole)
	admin.Put("/users/:id/verify_email", deps.User.VerifyEmail)

	workout := api.Group("/workout", authRequired, activeUser)
	workout.Get("/fitness_goal", deps.Workout.GetFitnessGoal)
	workout.Post("/fitness_goal", deps.Workout.UpsertFitnessGoal)
	workout.Patch("/fitness_goal", deps.Workout.UpdateFitnessGoal)
	workout.Delete("/fitness_goal", deps.Workout.DeleteFitnessGoal)

	logs := workout.Group("/daily/workout_logs")
	logs.Get("", deps.Workout.GetWorkoutLog)
	logs.Post("", deps.Workout.UpsertWorkoutLog)
	logs.Patch("", deps.Workout.UpdateWorkoutLog)
	logs.Delete("", deps.Workout.DeleteWorkoutLog)
	logs.Get("/history", deps.Workout.WorkoutLogHistory)
	logs.Get("/progress", deps.Workout.Progress)

	chat := api.Group("/ai_chat", authRequired, activeUser)
	chat.Post("/query", deps.AIChat.Query)
	chat.Get("/test", deps.AIChat.Test)

	return nil
}
