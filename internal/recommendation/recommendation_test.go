package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

const recommendationJSON = `{"workout_name":"Fat Burner","duration_minutes":30,"difficulty":"beginner","exercises":[{"name":"Jumping Jacks","instructions":"Jump"}],"estimated_calories_burned":250,"equipment_needed":[],"additional_tips":"Hydrate","total_calories_burned":0}`

func chatServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatLLMGenerateDecodesStructuredOutput(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, "```json\n"+recommendationJSON+"\n```", &body)

	llm := NewChatLLM(LLMConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "test-model", Temperature: 0.7, MaxTokens: 1000})
	rec, err := llm.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "Fat Burner", rec.WorkoutName)
	assert.Equal(t, 30, rec.DurationMinutes)
	require.Len(t, rec.Exercises, 1)
	assert.Equal(t, "Jumping Jacks", rec.Exercises[0].Name)

	assert.Equal(t, "test-model", body["model"])
	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing from request")
	assert.Equal(t, "json_schema", format["type"])
}

func TestChatLLMRejectsNonJSON(t *testing.T) {
	srv := chatServer(t, "sorry, I cannot help", nil)
	llm := NewChatLLM(LLMConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m"})

	_, err := llm.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode recommendation")
}

func TestChatLLMEmptyContent(t *testing.T) {
	srv := chatServer(t, "  ", nil)
	llm := NewChatLLM(LLMConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m"})

	_, err := llm.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"usage":{"prompt_tokens":3,"total_tokens":3}}`)
	}))
	defer srv.Close()

	vec, err := NewOpenAIEmbedder("k", srv.URL+"/v1", "m").Embed(context.Background(), "What is the best exercise for weight loss?")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

type stubIndex struct {
	got *pinecone.QueryByVectorValuesRequest
	res *pinecone.QueryVectorsResponse
	err error
}

func (s *stubIndex) QueryByVectorValues(_ context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	s.got = in
	return s.res, s.err
}

func metadata(t *testing.T, fields map[string]any) *pinecone.Metadata {
	t.Helper()
	md, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return md
}

func TestPineconeRetriever(t *testing.T) {
	index := &stubIndex{res: &pinecone.QueryVectorsResponse{Matches: []*pinecone.ScoredVector{
		{Vector: &pinecone.Vector{Id: "a", Metadata: metadata(t, map[string]any{"text": "Burpees burn calories"})}, Score: 0.9},
		{Vector: &pinecone.Vector{Id: "b", Metadata: metadata(t, map[string]any{"source": "faq"})}, Score: 0.8},
		{Vector: &pinecone.Vector{Id: "c"}, Score: 0.7},
		nil,
	}}}

	passages, err := newPineconeRetriever(index, 0).Retrieve(context.Background(), []float64{1, 2.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"Burpees burn calories"}, passages)
	require.NotNil(t, index.got)
	assert.Equal(t, uint32(2), index.got.TopK)
	assert.True(t, index.got.IncludeMetadata)
	assert.Equal(t, []float32{1, 2.5}, index.got.Vector)
}

func TestPineconeRetrieverQueryError(t *testing.T) {
	index := &stubIndex{err: errors.New("rpc error: code = Unauthenticated")}

	_, err := newPineconeRetriever(index, 3).Retrieve(context.Background(), []float64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinecone query")
	assert.Contains(t, err.Error(), "Unauthenticated")
	assert.Equal(t, uint32(3), index.got.TopK)
}

func TestPineconeRetrieverWithoutConnectionClosesCleanly(t *testing.T) {
	assert.NoError(t, newPineconeRetriever(&stubIndex{}, 1).Close())
}

type stubEmbedder struct{ err error }

func (s stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	return []float64{1}, s.err
}

type stubRetriever struct {
	passages []string
	err      error
}

func (s stubRetriever) Retrieve(context.Context, []float64) ([]string, error) {
	return s.passages, s.err
}

type stubGenerator struct {
	prompt string
	rec    *models.WorkoutRecommendation
	err    error
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (*models.WorkoutRecommendation, error) {
	s.prompt = prompt
	return s.rec, s.err
}

func TestRAGEngineInjectsRetrievedContext(t *testing.T) {
	gen := &stubGenerator{rec: &models.WorkoutRecommendation{WorkoutName: "HIIT", EstimatedCaloriesBurned: 300}}
	engine := NewRAGEngine(gen, stubEmbedder{}, stubRetriever{passages: []string{"Interval training helps"}}, nil)

	rec, err := engine.Recommend(context.Background(), Request{Query: "lose weight"})
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "Interval training helps")
	assert.Contains(t, gen.prompt, "Question: lose weight")
	assert.Equal(t, float64(300), rec.TotalCaloriesBurned)
}

func TestRAGEngineDegradesWhenRetrievalFails(t *testing.T) {
	gen := &stubGenerator{rec: &models.WorkoutRecommendation{WorkoutName: "HIIT"}}
	engine := NewRAGEngine(gen, stubEmbedder{err: errors.New("down")}, stubRetriever{passages: []string{"never"}}, nil)

	_, err := engine.Recommend(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.NotContains(t, gen.prompt, "never")
	assert.NotContains(t, gen.prompt, "reference material")
}

func TestRAGEnginePropagatesGeneratorError(t *testing.T) {
	boom := errors.New("boom")
	engine := NewRAGEngine(&stubGenerator{err: boom}, nil, nil, nil)

	_, err := engine.Recommend(context.Background(), Request{Query: "q"})
	assert.ErrorIs(t, err, boom)
}

func TestBuildPromptDefaultsAndBMI(t *testing.T) {
	height, weight := 180.0, 81.0
	age := 30

	full := BuildPrompt(Request{Query: "q", Profile: Profile{Gender: "male", Age: &age, HeightCM: &height, WeightKG: &weight, Goal: "Lose weight", DaysPerWeek: 3}}, nil)
	assert.Contains(t, full, "- Sex: male")
	assert.Contains(t, full, "- Age: 30")
	assert.Contains(t, full, "- BMI: 25.00")
	assert.Contains(t, full, "- Fitness Goal: Lose weight")
	assert.Contains(t, full, "- Days per week: 3")

	empty := BuildPrompt(Request{Query: "q"}, nil)
	assert.Contains(t, empty, "- Sex: Not Specified")
	assert.Contains(t, empty, "- Age: Not Specified")
	assert.Contains(t, empty, "- BMI: Not Specified")
	assert.Contains(t, empty, "- Fitness Goal: General Fitness")
}

func TestBMI(t *testing.T) {
	h, w := 170.0, 65.0
	v, ok := BMI(&h, &w)
	assert.True(t, ok)
	assert.Equal(t, 22.49, v)

	zero := 0.0
	_, ok = BMI(&zero, &w)
	assert.False(t, ok)
	_, ok = BMI(nil, &w)
	assert.False(t, ok)
}
