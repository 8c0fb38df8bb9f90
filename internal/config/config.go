// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Addr          string
	DatabaseURL   string
	MigrationsDir string

	JWTSecret string
	JWTIssuer string
	// DevTokenTTL is the lifetime of the token printed with the dev seed banner.
	DevTokenTTL time.Duration

	CORSAllowedOrigins []string

	BoletoBaseURL   string
	PixMerchantName string
	PixMerchantCity string

	LogLevel  string
	LogFormat string
	DevSeed   bool

	ShutdownTimeout time.Duration
}

var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Load reads the configuration from environment variables over built-in defaults.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Addr:               strings.TrimSpace(v.GetString("addr")),
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		MigrationsDir:      strings.TrimSpace(v.GetString("migrations_dir")),
		JWTSecret:          v.GetString("jwt_secret"),
		JWTIssuer:          strings.TrimSpace(v.GetString("jwt_issuer")),
		DevTokenTTL:        v.GetDuration("dev_token_ttl"),
		CORSAllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
		BoletoBaseURL:      strings.TrimSpace(v.GetString("boleto_base_url")),
		PixMerchantName:    v.GetString("pix_merchant_name"),
		PixMerchantCity:    v.GetString("pix_merchant_city"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		DevSeed:            v.GetBool("dev_seed"),
		ShutdownTimeout:    v.GetDuration("shutdown_timeout"),
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, ErrMissingSecret
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("migrations_dir", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "schoolfin")
	v.SetDefault("dev_token_ttl", 24*time.Hour)
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("boleto_base_url", "http://localhost:3333/boletos")
	v.SetDefault("pix_merchant_name", "ESCOLA")
	v.SetDefault("pix_merchant_city", "CIDADE")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("dev_seed", false)
	v.SetDefault("shutdown_timeout", 10*time.Second)
}

// Level maps LOG_LEVEL to a slog level; unknown values mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
