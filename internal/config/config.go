package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	PublicBaseURL   string
}

// Enabled reports whether enough of the bucket config is present to presign uploads.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

type Config struct {
	DatabaseDriver         string
	DatabaseURL            string
	HTTPPort               string
	LogLevel               string
	JWTSecret              string
	JWTTTLHours            int
	RedisURL               string
	CORSAllowedOrigins     []string
	SearchFallbackAllUsers bool
	R2                     R2Config
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = fromEnv()

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if AppConfig.DatabaseDriver != "sqlite" && AppConfig.DatabaseDriver != "postgres" {
		log.Fatalf("DATABASE_DRIVER must be sqlite or postgres, got %q", AppConfig.DatabaseDriver)
	}
}

func fromEnv() Config {
	return Config{
		DatabaseDriver:         strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:            getEnv("DATABASE_URL", "influencer_connect.db"),
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		LogLevel:               strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		JWTTTLHours:            getEnvAsInt("JWT_TTL_HOURS", 24),
		RedisURL:               getEnv("REDIS_URL", ""),
		CORSAllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		SearchFallbackAllUsers: getEnvAsBool("SEARCH_FALLBACK_ALL_USERS", false),
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
			PublicBaseURL:   getEnv("R2_PUBLIC_BASE_URL", ""),
		},
	}
}

// Debugf logs only when LOG_LEVEL is DEBUG.
func Debugf(format string, args ...any) {
	if AppConfig.LogLevel == "DEBUG" {
		log.Printf("[DEBUG] "+format, args...)
	}
}

func CorsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
