package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort        string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestTimeout    time.Duration
	RateLimit         int
	RateLimitInterval time.Duration

	Env      string
	LogDir   string
	LogLevel string

	LLMProvider    string
	APIKeys        []string
	OpenAIBaseURL  string
	StandardModel  string
	DegradedModel  string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration
	RotateDelay    time.Duration
	RetryDelay     time.Duration

	YouTubeAPIKey  string
	YouTubeBaseURL string
	YouTubeTimeout time.Duration
	FetchTimeout   time.Duration
	MaxTextLength  int
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	keys := getEnvAsStringSlice("GEMINI_API_KEYS", nil)
	if len(keys) == 0 {
		keys = getEnvAsStringSlice("GEMINI_API_KEY", nil)
	}

	return &Config{
		ServerPort:        GetEnv("SERVER_PORT", "5000"),
		ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 3*time.Minute),
		IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 150*time.Second),
		RateLimit:         getEnvAsInt("RATE_LIMIT", 5),
		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", 1*time.Second),

		Env:      GetEnv("ENV", "development"),
		LogDir:   GetEnv("LOG_DIR", "./logs"),
		LogLevel: GetEnv("LOG_LEVEL", "info"),

		LLMProvider:    strings.ToLower(GetEnv("LLM_PROVIDER", "gemini")),
		APIKeys:        keys,
		OpenAIBaseURL:  GetEnv("OPENAI_BASE_URL", ""),
		StandardModel:  GetEnv("STANDARD_MODEL", "gemini-1.5-pro"),
		DegradedModel:  GetEnv("DEGRADED_MODEL", "gemini-1.0-pro"),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.4),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 2048),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		RotateDelay:    getEnvAsDuration("ROTATE_DELAY", 500*time.Millisecond),
		RetryDelay:     getEnvAsDuration("RETRY_DELAY", 1*time.Second),

		YouTubeAPIKey:  GetEnv("YOUTUBE_API_KEY", ""),
		YouTubeBaseURL: GetEnv("YOUTUBE_BASE_URL", "https://www.youtube.com"),
		YouTubeTimeout: getEnvAsDuration("YOUTUBE_TIMEOUT", 15*time.Second),
		FetchTimeout:   getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		MaxTextLength:  getEnvAsInt("MAX_TEXT_LENGTH", 15000),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid float, using default")
	}
	return defaultValue
}

// getEnvAsStringSlice splits a comma separated value, dropping blanks.
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ValidateConfig(cfg *Config) error {
	if cfg.ServerPort == "" {
		return errors.New("server port is required")
	}
	if len(cfg.APIKeys) == 0 {
		return errors.New("at least one API key is required (GEMINI_API_KEYS or GEMINI_API_KEY)")
	}
	switch cfg.LLMProvider {
	case "gemini", "openai":
	default:
		return errors.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
	if cfg.StandardModel == "" || cfg.DegradedModel == "" {
		return errors.New("standard and degraded model names are required")
	}
	if cfg.ReadTimeout <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if cfg.IdleTimeout <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("request timeout must be greater than 0")
	}
	if cfg.LLMTimeout <= 0 || cfg.YouTubeTimeout <= 0 || cfg.FetchTimeout <= 0 {
		return errors.New("upstream timeouts must be greater than 0")
	}
	if cfg.RateLimit <= 0 || cfg.RateLimitInterval <= 0 {
		return errors.New("rate limit and interval must be greater than 0")
	}
	if cfg.LLMMaxTokens <= 0 {
		return errors.New("llm max tokens must be greater than 0")
	}
	if cfg.MaxTextLength <= 0 {
		return errors.New("max text length must be greater than 0")
	}
	return nil
}
