package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		GitHub
		CORS
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		Environment              Environment
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Auth struct {
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration for password login
		MaxLoginAttempts int
		RateLimitWindow  time.Duration
		LockoutDuration  time.Duration

		CSRFEnabled bool
		CSRFSecret  string

		// LinkUnverifiedEmail allows OAuth sign-in to attach to an existing
		// account by email even when the provider has not verified it.
		LinkUnverifiedEmail bool
	}
	GitHub struct {
		ClientID     string
		ClientSecret string
		CallbackURL  string
	}
	CORS struct {
		AllowedOrigins []string
	}
)

// IsProduction reports whether error details must be hidden from clients.
func (g Global) IsProduction() bool {
	return g.Environment == EnvironmentProduction
}

// Enabled reports whether GitHub sign-in can be offered.
func (g GitHub) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

func NewConfig() *Config {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", DefaultPort)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("app_env", string(EnvironmentDevelopment))
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_bcrypt_cost", 10)
	v.SetDefault("auth_secure_cookies", false)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")
	v.SetDefault("auth_csrf_enabled", false)
	v.SetDefault("auth_csrf_secret", "")
	v.SetDefault("auth_link_unverified_email", false)

	v.SetDefault("github_callback_url", "http://localhost:3000/auth/github/callback")
	v.SetDefault("cors_allowed_origins", "*")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			Environment:              Environment(strings.ToLower(v.GetString("APP_ENV"))),
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			SessionLifetime:     v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:          v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:       v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts:    v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:     v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:     v.GetDuration("AUTH_LOCKOUT_DURATION"),
			CSRFEnabled:         v.GetBool("AUTH_CSRF_ENABLED"),
			CSRFSecret:          v.GetString("AUTH_CSRF_SECRET"),
			LinkUnverifiedEmail: v.GetBool("AUTH_LINK_UNVERIFIED_EMAIL"),
		},
		GitHub: GitHub{
			ClientID:     v.GetString("GITHUB_CLIENT_ID"),
			ClientSecret: v.GetString("GITHUB_CLIENT_SECRET"),
			CallbackURL:  v.GetString("GITHUB_CALLBACK_URL"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
