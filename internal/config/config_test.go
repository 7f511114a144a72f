package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, time.Hour, cfg.PasswordResetTTL)
	assert.Equal(t, 10*time.Second, cfg.RecommendationTimeout)
	assert.Equal(t, 2, cfg.RecommendationMaxRetries)
	assert.Equal(t, 2, cfg.PineconeTopK)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.LLMModel)
	assert.False(t, cfg.RecommendationEnabled())
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("ENABLE_API_DOCS", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.True(t, cfg.EnableDocs)
	assert.False(t, cfg.DocsEnabled(), "docs stay disabled outside development")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokerList())
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidateProductionRules(t *testing.T) {
	cfg := &Config{
		Port:            "8080",
		AppEnv:          "production",
		JWTSecret:       "short",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 2 * time.Hour,
		MongoURI:        "mongodb://db:27017",
	}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.Validate())

	cfg.MongoURI = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsRefreshShorterThanAccess(t *testing.T) {
	cfg := &Config{
		Port:            "8080",
		AppEnv:          "development",
		JWTSecret:       "secret",
		AccessTokenTTL:  2 * time.Hour,
		RefreshTokenTTL: time.Hour,
	}
	require.Error(t, cfg.Validate())
}

func TestOriginsTrimsEntries(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://localhost:3000 , https://app.example.com ,"}
	assert.Equal(t, "http://localhost:3000,https://app.example.com", cfg.Origins())
}
