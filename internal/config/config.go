package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"clinic-gatekeeper/internal/middleware"
	"clinic-gatekeeper/internal/model"
	"clinic-gatekeeper/internal/route"
)

const EnvProduction = "production"

type Config struct {
	Environment             string
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	AccessTokenSecret  string
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration
	RefreshWindow      time.Duration

	SignInPath     string
	PublicPaths    []string
	PublicPatterns []string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	// TrustedProxies are the peers whose X-Forwarded-For is believed.
	TrustedProxies []netip.Prefix

	AdminUsername string
	AdminPassword string

	LogFormat string
	LogLevel  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:             strings.ToLower(getEnv("APP_ENV", "development")),
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		AccessTokenSecret:       strings.TrimSpace(os.Getenv("ACCESS_TOKEN_SECRET")),
		RefreshTokenSecret:      strings.TrimSpace(os.Getenv("REFRESH_TOKEN_SECRET")),
		RefreshTokenTTL:         getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RefreshWindow:           getDuration("REFRESH_WINDOW", 5*time.Minute),
		SignInPath:              getEnv("SIGN_IN_PATH", "/sign-in"),
		PublicPaths:             getCSV("PUBLIC_PATHS", route.DefaultPublicPaths),
		PublicPatterns:          getCSV("PUBLIC_PATTERNS", route.DefaultPublicPatterns),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		CORSOrigins:             getCSV("CORS_ORIGINS", nil),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		AdminUsername:           strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword:           os.Getenv("ADMIN_PASSWORD"),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	proxies, err := middleware.ParseTrustedProxies(getCSV("TRUSTED_PROXIES", nil))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = proxies

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Production reports whether cookies must be marked Secure.
func (c *Config) Production() bool {
	return c.Environment == EnvProduction
}

func (c *Config) Validate() error {
	if c.AccessTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET is required: %w", model.ErrMissingSecret)
	}

	if c.RefreshTokenSecret == "" {
		return fmt.Errorf("REFRESH_TOKEN_SECRET is required: %w", model.ErrMissingSecret)
	}

	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}

	if c.RefreshWindow <= 0 {
		return fmt.Errorf("REFRESH_WINDOW must be positive")
	}

	if !strings.HasPrefix(c.SignInPath, "/") {
		return fmt.Errorf("SIGN_IN_PATH must start with '/'")
	}

	routes, err := route.NewClassifier(c.PublicPaths, c.PublicPatterns)
	if err != nil {
		return fmt.Errorf("PUBLIC_PATTERNS: %w", err)
	}
	if !routes.IsPublic(c.SignInPath) {
		return fmt.Errorf("SIGN_IN_PATH %q must be a public path", c.SignInPath)
	}

	// Credentialed CORS cannot be combined with a wildcard origin.
	if slices.Contains(c.CORSOrigins, "*") {
		return fmt.Errorf("CORS_ORIGINS must list explicit origins, '*' is not allowed")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS out of range")
	}

	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	switch c.LogFormat {
	case "pretty", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'pretty' or 'json'")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getCSV(key string, fallback []string) []string {
	values := splitCSV(os.Getenv(key))
	if len(values) == 0 {
		return append([]string(nil), fallback...)
	}

	return values
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
