package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/cache"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"github.com/locojk/GNG-5300-Group-Backend/internal/recommendation"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestQuery is the fixed question used by the recommendation smoke test.
const TestQuery = "What is the best exercise for weight loss?"

type profileReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type goalReader interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.FitnessGoal, error)
}

type RecommendationOptions struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	Cache      *cache.JSONCache
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

// RecommendationService enriches a query with the caller's profile and goal
// and asks the engine for a workout. Each attempt is bounded by Timeout and
// failed attempts are retried at most MaxRetries times.
type RecommendationService struct {
	engine     recommendation.Engine
	users      profileReader
	goals      goalReader
	cache      *cache.JSONCache
	cacheTTL   time.Duration
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

func NewRecommendationService(engine recommendation.Engine, users profileReader, goals goalReader, opts RecommendationOptions) *RecommendationService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &RecommendationService{
		engine:     engine,
		users:      users,
		goals:      goals,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}
}

func (s *RecommendationService) Recommend(ctx context.Context, userID primitive.ObjectID, query string) (*models.WorkoutRecommendation, error) {
	if s == nil || s.engine == nil {
		observability.RecommendationRequests.WithLabelValues("unavailable").Inc()
		return nil, ErrRecommendationUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &models.ValidationError{Field: "query", Message: "query is required"}
	}

	cacheKey := recommendationCacheKey(userID, query)
	var cached models.WorkoutRecommendation
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.logger.WarnContext(ctx, "recommendation cache read failed", slog.String("error", err.Error()))
	} else if found {
		observability.RecommendationRequests.WithLabelValues("cached").Inc()
		return &cached, nil
	}

	req, err := s.buildRequest(ctx, userID, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rec, err := s.recommendWithRetry(ctx, req)
	observability.RecommendationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RecommendationRequests.WithLabelValues("failure").Inc()
		s.logger.ErrorContext(ctx, "recommendation failed",
			slog.String("user_id", userID.Hex()),
			slog.String("error", err.Error()),
		)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrRecommendationFailed, err)
	}
	observability.RecommendationRequests.WithLabelValues("success").Inc()

	if s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, rec, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "recommendation cache write failed", slog.String("error", err.Error()))
		}
	}
	return rec, nil
}

func (s *RecommendationService) buildRequest(ctx context.Context, userID primitive.ObjectID, query string) (recommendation.Request, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return recommendation.Request{}, userError(err)
	}
	profile := recommendation.Profile{
		Gender:   user.Gender,
		Age:      user.Age,
		HeightCM: user.HeightCM,
		WeightKG: user.WeightKG,
	}

	goal, err := s.goals.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		profile.Goal = goal.Goal
		profile.DaysPerWeek = goal.DaysPerWeek
		profile.WorkoutDuration = goal.WorkoutDuration
		profile.RestDays = goal.RestDays
	case errors.Is(err, repository.ErrNotFound):
	default:
		return recommendation.Request{}, err
	}
	return recommendation.Request{Query: query, Profile: profile}, nil
}

func (s *RecommendationService) recommendWithRetry(ctx context.Context, req recommendation.Request) (*models.WorkoutRecommendation, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			wait := s.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			s.logger.InfoContext(ctx, "retrying recommendation", slog.Int("attempt", attempt+1))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		rec, err := s.engine.Recommend(attemptCtx, req)
		cancel()
		if err == nil {
			return rec, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func recommendationCacheKey(userID primitive.ObjectID, query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return userID.Hex() + ":" + hex.EncodeToString(sum[:8])
}
