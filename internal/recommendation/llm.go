package recommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const systemPrompt = `You are a certified fitness coach inside a workout tracking app.
Answer with one workout tailored to the user's profile and goal. Use the reference material when it is relevant.
Respond only with JSON that follows the provided schema.`

func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var recommendationSchema = GenerateSchema[models.WorkoutRecommendation]()

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// ChatLLM generates recommendations through an OpenAI-compatible chat
// completions API (Groq by default) using a strict JSON-schema response format.
type ChatLLM struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewChatLLM(cfg LLMConfig) *ChatLLM {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &ChatLLM{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (l *ChatLLM) Generate(ctx context.Context, prompt string) (*models.WorkoutRecommendation, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "workout_recommendation",
		Description: openai.String("Personalized workout recommendation"),
		Schema:      recommendationSchema,
		Strict:      openai.Bool(true),
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Model:       openai.ChatModel(l.model),
		Temperature: openai.Float(l.temperature),
	}
	if l.maxTokens > 0 {
		params.MaxTokens = openai.Int(l.maxTokens)
	}

	chat, err := l.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	content := cleanJSONResponse(chat.Choices[0].Message.Content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	var rec models.WorkoutRecommendation
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}
	return &rec, nil
}

// cleanJSONResponse strips the markdown fences some models wrap JSON in.
func cleanJSONResponse(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// OpenAIEmbedder embeds queries through an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

func NewOpenAIEmbedder(apiKey, baseURL, model string) *OpenAIEmbedder {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEmbedder{client: openai.NewClient(opts...), model: model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	res, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(res.Data) == 0 || len(res.Data[0].Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	return res.Data[0].Embedding, nil
}
