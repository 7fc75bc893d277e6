package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Storage
	DatabaseURL string
	RedisURL    string
	MongoDBURL  string
	MongoDBName string

	// JWT
	JWTSecret string

	// Provider tokens are stored encrypted when set
	TokenEncryptionKey string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// BA 문서는 분류보다 훨씬 길어서 별도 토큰 한도
	DocumentMaxTokens int

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// OAuth - Microsoft
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftRedirectURL  string
	MicrosoftTenantID     string

	// Pipeline
	ClassifyBodyLimit        int
	StoredBodyLimit          int
	IngestPageSize           int
	DefaultSLAHours          int
	DefaultEscalationContact string
	DefaultMeetingMinutes    int
	AutoReplyEnabled         bool
	RequestTypesFile         string
	FetchDebounce            time.Duration

	// Worker
	WorkerID        string
	WorkerCount     int
	ConsumerBlockMS int

	// Scheduler
	SchedulerEnabled       bool
	EscalationScanInterval time.Duration
	AnalyticsInterval      time.Duration

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		// Storage
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "officeflow"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.3),

		DocumentMaxTokens: getEnvInt("DOCUMENT_MAX_TOKENS", 4000),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),

		// OAuth - Microsoft
		MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftRedirectURL:  getEnv("MICROSOFT_REDIRECT_URL", ""),
		MicrosoftTenantID:     getEnv("MICROSOFT_TENANT_ID", "common"),

		// Pipeline
		ClassifyBodyLimit:        getEnvInt("CLASSIFY_BODY_LIMIT", 3000),
		StoredBodyLimit:          getEnvInt("STORED_BODY_LIMIT", 10000),
		IngestPageSize:           getEnvInt("INGEST_PAGE_SIZE", 20),
		DefaultSLAHours:          getEnvInt("DEFAULT_SLA_HOURS", 24),
		DefaultEscalationContact: getEnv("DEFAULT_ESCALATION_CONTACT", "Operations Manager"),
		DefaultMeetingMinutes:    getEnvInt("DEFAULT_MEETING_MINUTES", 60),
		AutoReplyEnabled:         getEnvBool("AUTO_REPLY_ENABLED", true),
		RequestTypesFile:         getEnv("REQUEST_TYPES_FILE", ""),
		FetchDebounce:            getEnvDuration("FETCH_DEBOUNCE", 30*time.Second),

		// Worker
		WorkerID:        getEnv("WORKER_ID", generateWorkerID()),
		WorkerCount:     getEnvInt("WORKER_COUNT", 4),
		ConsumerBlockMS: getEnvInt("CONSUMER_BLOCK_MS", 2000),

		// Scheduler
		SchedulerEnabled:       getEnvBool("SCHEDULER_ENABLED", true),
		EscalationScanInterval: getEnvDuration("ESCALATION_SCAN_INTERVAL", 15*time.Minute),
		AnalyticsInterval:      getEnvDuration("ANALYTICS_INTERVAL", time.Hour),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.ClassifyBodyLimit <= 0 {
		return fmt.Errorf("CLASSIFY_BODY_LIMIT must be positive, got %d", c.ClassifyBodyLimit)
	}
	if c.IngestPageSize <= 0 {
		return fmt.Errorf("INGEST_PAGE_SIZE must be positive, got %d", c.IngestPageSize)
	}
	if c.DefaultSLAHours <= 0 {
		return fmt.Errorf("DEFAULT_SLA_HOURS must be positive, got %d", c.DefaultSLAHours)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
