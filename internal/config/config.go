package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port           string `mapstructure:"PORT"`
	AppEnv         string `mapstructure:"APP_ENV"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	EnableDocs     bool   `mapstructure:"ENABLE_API_DOCS"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FrontendURL    string `mapstructure:"FRONTEND_URL"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	AccessTokenTTL   time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL  time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	PasswordResetTTL time.Duration `mapstructure:"PASSWORD_RESET_TTL"`

	RateLimitEnabled bool `mapstructure:"RATE_LIMIT_ENABLED"`
	AuthRateLimit    int  `mapstructure:"AUTH_RATE_LIMIT"`

	AWSRegion    string `mapstructure:"AWS_REGION"`
	SESFromEmail string `mapstructure:"SES_FROM_EMAIL"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	AuditTopic   string `mapstructure:"AUDIT_TOPIC"`

	LLMAPIKey      string  `mapstructure:"LLM_API_KEY"`
	LLMBaseURL     string  `mapstructure:"LLM_BASE_URL"`
	LLMModel       string  `mapstructure:"LLM_MODEL"`
	LLMTemperature float64 `mapstructure:"LLM_TEMPERATURE"`
	LLMMaxTokens   int64   `mapstructure:"LLM_MAX_TOKENS"`

	RecommendationTimeout    time.Duration `mapstructure:"RECOMMENDATION_TIMEOUT"`
	RecommendationMaxRetries int           `mapstructure:"RECOMMENDATION_MAX_RETRIES"`
	RecommendationCacheTTL   time.Duration `mapstructure:"RECOMMENDATION_CACHE_TTL"`

	EmbeddingBaseURL string `mapstructure:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey  string `mapstructure:"EMBEDDING_API_KEY"`
	EmbeddingModel   string `mapstructure:"EMBEDDING_MODEL"`

	PineconeAPIKey    string `mapstructure:"PINECONE_API_KEY"`
	PineconeIndexHost string `mapstructure:"PINECONE_INDEX_HOST"`
	PineconeNamespace string `mapstructure:"PINECONE_NAMESPACE"`
	PineconeTopK      int    `mapstructure:"PINECONE_TOP_K"`
}

var defaults = map[string]any{
	"PORT":                       "8080",
	"APP_ENV":                    "production",
	"LOG_LEVEL":                  "info",
	"ENABLE_API_DOCS":            false,
	"ALLOWED_ORIGINS":            "http://localhost:3000",
	"FRONTEND_URL":               "http://localhost:3000",
	"MONGO_URI":                  "",
	"MONGO_DB_NAME":              "fitness",
	"REDIS_URL":                  "",
	"JWT_SECRET":                 "",
	"ACCESS_TOKEN_TTL":           "24h",
	"REFRESH_TOKEN_TTL":          "168h",
	"PASSWORD_RESET_TTL":         "1h",
	"RATE_LIMIT_ENABLED":         true,
	"AUTH_RATE_LIMIT":            10,
	"AWS_REGION":                 "",
	"SES_FROM_EMAIL":             "",
	"KAFKA_BROKERS":              "",
	"AUDIT_TOPIC":                "fitness.audit",
	"LLM_API_KEY":                "",
	"LLM_BASE_URL":               "https://api.groq.com/openai/v1",
	"LLM_MODEL":                  "llama-3.1-70b-versatile",
	"LLM_TEMPERATURE":            0.7,
	"LLM_MAX_TOKENS":             1000,
	"RECOMMENDATION_TIMEOUT":     "10s",
	"RECOMMENDATION_MAX_RETRIES": 2,
	"RECOMMENDATION_CACHE_TTL":   "10m",
	"EMBEDDING_BASE_URL":         "",
	"EMBEDDING_API_KEY":          "",
	"EMBEDDING_MODEL":            "sentence-transformers/all-MiniLM-L6-v2",
	"PINECONE_API_KEY":           "",
	"PINECONE_INDEX_HOST":        "",
	"PINECONE_NAMESPACE":         "",
	"PINECONE_TOP_K":             2,
}

// LoadConfig reads .env files for the current APP_ENV, overlays the process
// environment and validates the result.
func LoadConfig() (*Config, error) {
	loadEnvFiles(normalizeEnv(os.Getenv("APP_ENV")))

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.AppEnv = normalizeEnv(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFiles loads .env.common, .env.<env> and .env in that order. godotenv
// never overrides variables that are already set, so the real environment wins.
func loadEnvFiles(env string) {
	files := []string{".env.common"}
	if env != "" {
		files = append(files, ".env."+env)
	}
	files = append(files, ".env")
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		_ = godotenv.Load(file)
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return errors.New("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}
	if c.RecommendationMaxRetries < 0 {
		return errors.New("RECOMMENDATION_MAX_RETRIES must be 0 or greater")
	}

	if c.AppEnv == "production" {
		if c.JWTSecret == defaultJWTSecret || len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required in production")
		}
	}
	return nil
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, ",")
}

func (c *Config) KafkaBrokerList() []string {
	if strings.TrimSpace(c.KafkaBrokers) == "" {
		return nil
	}
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func (c *Config) RecommendationEnabled() bool {
	return c.LLMAPIKey != ""
}

func (c *Config) RetrievalEnabled() bool {
	return c.PineconeAPIKey != "" && c.PineconeIndexHost != "" && c.EmbeddingBaseURL != ""
}
