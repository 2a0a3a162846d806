package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Retriever modes. Keyword scans the corpus with a parameterized substring
// match; semantic embeds the query and searches pgvector.
const (
	RetrieverKeyword  = "keyword"
	RetrieverSemantic = "semantic"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	EmbedModel   string
	EmbedDim     int
	GenModel     string
	Port         string
	JWTSecret    string
	LogLevel     string
	LogPretty    bool

	RetrieverMode string
	NumChunks     int
	SlideWindow   int

	// Typewriter pacing for the streaming response path.
	WordDelay      time.Duration
	ParagraphDelay time.Duration

	// SessionTTL bounds how long an idle session is kept in memory.
	SessionTTL time.Duration
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", "business-assistant-docs"),
		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:       getEnvInt("EMBED_DIM", 768),
		GenModel:       getEnv("GEN_MODEL", "gemini-1.5-flash"),
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvBool("LOG_PRETTY", false),
		RetrieverMode:  getEnv("RETRIEVER_MODE", RetrieverKeyword),
		NumChunks:      getEnvInt("NUM_CHUNKS", 3),
		SlideWindow:    getEnvInt("SLIDE_WINDOW", 7),
		WordDelay:      getEnvDuration("TYPEWRITER_WORD_DELAY", 30*time.Millisecond),
		ParagraphDelay: getEnvDuration("TYPEWRITER_PARAGRAPH_DELAY", 100*time.Millisecond),
		SessionTTL:     getEnvDuration("SESSION_TTL", time.Hour),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	if cfg.RetrieverMode != RetrieverKeyword && cfg.RetrieverMode != RetrieverSemantic {
		log.Fatalf("RETRIEVER_MODE must be %q or %q, got %q", RetrieverKeyword, RetrieverSemantic, cfg.RetrieverMode)
	}
	if cfg.NumChunks <= 0 {
		log.Fatal("NUM_CHUNKS must be > 0")
	}
	if cfg.SlideWindow <= 0 {
		log.Fatal("SLIDE_WINDOW must be > 0")
	}
	if cfg.SessionTTL <= 0 {
		log.Fatal("SESSION_TTL must be > 0")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
