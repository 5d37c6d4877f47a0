package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	VectorStore VectorStoreConfig
	Keys        APIKeys
	Ai          AIConfig
	Rag         RAGConfig
	RateLimit   RateLimitConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	Version            string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	AuthDisabled       bool
}

type DatabaseConfig struct {
	Connection string
}

type VectorStoreConfig struct {
	Backend      string // "qdrant", "pgvector" or "memory"
	QdrantURL    string
	QdrantAPIKey string
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
	Anthropic    string
	Jina         string
	HuggingFace  string
}

type AIConfig struct {
	LLMProvider          string // "mock", "gemini", "openai", "anthropic", "ollama", "huggingface"
	LLMModel             string
	EmbeddingProvider    string // "mock", "gemini", "openai", "ollama", "jina"
	EmbeddingDimension   int
	OllamaBaseURL        string
	OllamaModel          string
	OllamaEmbeddingModel string
	MaxTokens            int
	Temperature          float64
	MockLatencyMs        int
}

type RAGConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	CacheTTLSeconds int
	LLMCacheTTL     int
	UploadMaxSizeMB int
}

type RateLimitConfig struct {
	Requests      int
	PeriodSeconds int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			Version:            getEnv("APP_VERSION", "0.1.0"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			AuthDisabled:       getEnvAsBool("AUTH_DISABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		VectorStore: VectorStoreConfig{
			Backend:      strings.ToLower(getEnv("VECTOR_STORE", "qdrant")),
			QdrantURL:    getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			Anthropic:    getEnv("ANTHROPIC_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:          getEnv("LLM_PROVIDER", "mock"),
			LLMModel:             getEnv("LLM_MODEL", ""),
			EmbeddingProvider:    getEnv("EMBEDDING_PROVIDER", "mock"),
			EmbeddingDimension:   getEnvAsInt("EMBEDDING_DIMENSION", 768),
			OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("OLLAMA_MODEL", "llama3"),
			OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			MaxTokens:            getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Temperature:          getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MockLatencyMs:        getEnvAsInt("MOCK_LATENCY_MS", 200),
		},
		Rag: RAGConfig{
			ChunkSize:       getEnvAsInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap:    getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			CacheTTLSeconds: getEnvAsInt("RAG_CACHE_TTL", 3600),
			LLMCacheTTL:     getEnvAsInt("LLM_CACHE_TTL", 3600),
			UploadMaxSizeMB: getEnvAsInt("UPLOAD_MAX_SIZE_MB", 50),
		},
		RateLimit: RateLimitConfig{
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			PeriodSeconds: getEnvAsInt("RATE_LIMIT_PERIOD", 60),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
