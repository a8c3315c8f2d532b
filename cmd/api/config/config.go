package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	GenAIAPIKey      string
	ModelStandard    string
	ModelDeepThink   string
	GenerateTimeout  time.Duration
	DefaultLanguage  string
	SubmitRatePerMin int

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	LogLevel  string
	LogFormat string
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "3000"),
		AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		GenAIAPIKey:      os.Getenv("GOOGLE_AI_STUDIO_API_KEY"),
		ModelStandard:    getEnv("MODEL_STANDARD", "gemini-2.5-flash"),
		ModelDeepThink:   getEnv("MODEL_DEEP_THINK", "gemini-3-pro-preview"),
		GenerateTimeout:  parseDuration(getEnv("GENERATE_TIMEOUT", "2m"), 2*time.Minute),
		DefaultLanguage:  getEnv("DEFAULT_LANGUAGE", "en"),
		SubmitRatePerMin: parseInt(getEnv("SUBMIT_RATE_PER_MINUTE", "30"), 30),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "spotfinder.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "spotfinder"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "spotfinder"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// DSN is the connection string for DBDriver: the file path for sqlite, a
// libpq string for postgres.
func (c *Config) DSN() string {
	if c.DBDriver != "postgres" {
		return c.DBPath
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=disable TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
