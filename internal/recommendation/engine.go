// Package recommendation turns a user's profile and a free-text question into
// a structured workout recommendation using retrieval-augmented generation.
package recommendation

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

// Profile is the user context injected into the prompt. Nil or empty fields
// are rendered as "Not Specified".
type Profile struct {
	Gender          string
	Age             *int
	HeightCM        *float64
	WeightKG        *float64
	Goal            string
	DaysPerWeek     int
	WorkoutDuration int
	RestDays        []string
}

type Request struct {
	Query   string
	Profile Profile
}

type Engine interface {
	Recommend(ctx context.Context, req Request) (*models.WorkoutRecommendation, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, vector []float64) ([]string, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (*models.WorkoutRecommendation, error)
}

// RAGEngine embeds the query, fetches related passages and asks the generator
// for a structured answer. Without an embedder or retriever it prompts with
// the profile and query alone.
type RAGEngine struct {
	generator Generator
	embedder  Embedder
	retriever Retriever
	logger    *slog.Logger
}

func NewRAGEngine(generator Generator, embedder Embedder, retriever Retriever, logger *slog.Logger) *RAGEngine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RAGEngine{
		generator: generator,
		embedder:  embedder,
		retriever: retriever,
		logger:    logger,
	}
}

func (e *RAGEngine) Recommend(ctx context.Context, req Request) (*models.WorkoutRecommendation, error) {
	passages := e.retrieve(ctx, req.Query)

	rec, err := e.generator.Generate(ctx, BuildPrompt(req, passages))
	if err != nil {
		return nil, err
	}
	if rec.TotalCaloriesBurned == 0 && rec.EstimatedCaloriesBurned > 0 {
		rec.TotalCaloriesBurned = rec.EstimatedCaloriesBurned
	}
	return rec, nil
}

// retrieve degrades to no context when retrieval fails; the answer is still
// useful without it.
func (e *RAGEngine) retrieve(ctx context.Context, query string) []string {
	if e.embedder == nil || e.retriever == nil {
		return nil
	}
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.WarnContext(ctx, "query embedding failed, continuing without context", slog.String("error", err.Error()))
		return nil
	}
	passages, err := e.retriever.Retrieve(ctx, vector)
	if err != nil {
		e.logger.WarnContext(ctx, "vector search failed, continuing without context", slog.String("error", err.Error()))
		return nil
	}
	return passages
}
