package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const minJWTSecretBytes = 32

type Config struct {
	Env  string
	Port int

	DBURL string

	JWTSecret string
	TokenTTL  time.Duration

	BcryptCost int

	AllowedOrigins []string

	// signup bucket is the only tunable rate limit; the rest are fixed policy
	SignupMaxPerHour int

	// dev-mode shortcut: echo the reset token in the forgot-password response
	ExposeResetToken bool

	AdminEmail    string
	AdminPassword string
	AdminName     string

	TracingEnabled bool
	OTLPEndpoint   string
}

// Load reads configuration from the environment once at startup.
// A missing or short JWT secret is a hard failure: the process must not
// come up able to sign tokens with weak key material.
func Load() (Config, error) {
	// best effort; a missing .env file is fine
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	port := getEnvInt("PORT", 8080)

	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", port)
	}

	secret := os.Getenv("JWT_SECRET")

	if len(secret) < minJWTSecretBytes {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", minJWTSecretBytes, len(secret))
	}

	ttlHours := getEnvInt("TOKEN_TTL_HOURS", 168) // 7 days

	if ttlHours <= 0 {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL_HOURS %d", ttlHours)
	}

	cost := getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("invalid BCRYPT_COST %d", cost)
	}

	cfg := Config{
		Env:              env,
		Port:             port,
		DBURL:            buildDBURL(),
		JWTSecret:        secret,
		TokenTTL:         time.Duration(ttlHours) * time.Hour,
		BcryptCost:       cost,
		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		SignupMaxPerHour: getEnvInt("SIGNUP_MAX_PER_HOUR", 30),
		ExposeResetToken: env != "prod",
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		AdminName:        getEnv("ADMIN_NAME", "Admin"),
		TracingEnabled:   getEnv("TRACING_ENABLED", "false") == "true",
		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	return cfg, nil
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "userhub")
	pass := getEnv("DB_PASSWORD", "userhub")
	name := getEnv("DB_NAME", "userhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitCSV(s string) []string {
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

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}
