package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrSecretRequired = errors.New("JWT_SECRET must be set")

type Config struct {
	Port        string
	Env         string
	DatabaseDSN string
	JWTSecret   string

	SessionExpiry      time.Duration
	RegistrationExpiry time.Duration

	AdminUsernames []string
	EmailDomain    string
	CookieSecure   bool

	RedisAddr     string
	RedisPassword string

	TemplateDir    string
	AllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads the configuration from the environment. An empty DATABASE_DSN
// selects the in-memory store.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		DatabaseDSN:        os.Getenv("DATABASE_DSN"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		SessionExpiry:      24 * time.Hour,
		RegistrationExpiry: 5 * time.Minute,
		AdminUsernames:     getList("ADMIN_USERNAMES"),
		EmailDomain:        strings.ToLower(getEnv("EMAIL_DOMAIN", "@my.unt.edu")),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		TemplateDir:        os.Getenv("TEMPLATE_DIR"),
		AllowedOrigins:     getList("ALLOWED_ORIGINS"),
		RateLimitRPS:       5,
		RateLimitBurst:     10,
	}
	cfg.CookieSecure = getBool("COOKIE_SECURE", cfg.Env == "production")

	if cfg.JWTSecret == "" {
		return Config{}, ErrSecretRequired
	}
	if !strings.HasPrefix(cfg.EmailDomain, "@") {
		cfg.EmailDomain = "@" + cfg.EmailDomain
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
