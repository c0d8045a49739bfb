// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

const minSecretLength = 32

var (
	_ = pflag.String("config", ".", "Directory to look for config.toml in")
	_ = pflag.String("env-file", ".env", "Dotenv file to load before reading the environment")

	validLogLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	validStoreTypes = []string{"redis", "memory"}
	validDrivers    = []string{"postgres", "sqlite"}
)

var (
	ErrMissingJWTSecret    = errors.New("no JWT secret provided")
	ErrMissingCryptoSecret = errors.New("no crypto secret provided")
)

// envs maps config keys to the environment variables that override them
var envs = map[string]string{
	"app.log_level": "APP_LOG_LEVEL",
	"app.base_url":  "APP_BASE_URL",

	"host.port":                     "HOST_PORT",
	"host.domain":                   "HOST_DOMAIN",
	"host.cors":                     "HOST_CORS",
	"host.body_limit":               "HOST_BODY_LIMIT",
	"host.ssl.enabled":              "HOST_SSL_ENABLED",
	"host.ssl.certificate_path":     "HOST_SSL_CERTIFICATE_PATH",
	"host.ssl.certificate_key_path": "HOST_SSL_CERTIFICATE_KEY_PATH",

	"security.jwt_secret":         "SECURITY_JWT_SECRET",
	"security.crypto_secret":      "SECURITY_CRYPTO_SECRET",
	"security.rate_limit":         "SECURITY_RATE_LIMIT",
	"security.session_lifetime":   "SECURITY_SESSION_LIFETIME",
	"security.resend_cooldown":    "SECURITY_RESEND_COOLDOWN",
	"security.resend_daily_limit": "SECURITY_RESEND_DAILY_LIMIT",
	"security.turnstile.enabled":  "SECURITY_TURNSTILE_ENABLED",
	"security.turnstile.secret":   "SECURITY_TURNSTILE_SECRET",

	"token.email_verification_lifetime": "EMAIL_VERIFICATION_TOKEN_EXPIRATION_TIME",
	"token.password_reset_lifetime":     "PASSWORD_RESET_TOKEN_EXPIRATION_TIME",

	"store.type":     "STORE_TYPE",
	"redis.address":  "REDIS_ADDRESS",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"mail.host":       "MAIL_HOST",
	"mail.port":       "MAIL_PORT",
	"mail.username":   "MAIL_USERNAME",
	"mail.password":   "MAIL_PASSWORD",
	"mail.sender":     "MAIL_SENDER_ADDRESS",
	"mail.workers":    "MAIL_WORKERS",
	"mail.queue_size": "MAIL_QUEUE_SIZE",

	"database.driver": "DATABASE_DRIVER",
	"database.dsn":    "DATABASE_DSN",

	"cleanup.schedule":         "CLEANUP_SCHEDULE",
	"cleanup.unverified_after": "CLEANUP_UNVERIFIED_AFTER",
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that. Flags must be parsed before calling it.
func Setup() error {
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return fmt.Errorf("failed to bind flags, %w", err)
	}

	if err := godotenv.Load(v.GetString("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file, %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(v.GetString("config"))

	v.AutomaticEnv()

	//
	// ENVS
	//
	for key, env := range envs {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s, %w", env, err)
		}
	}

	//
	// Defaults
	//
	// Token lifetimes and secrets have none on purpose.
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", "http://localhost:3000")
	v.SetDefault("host.body_limit", 1<<20)
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.session_lifetime", "720h")
	v.SetDefault("security.resend_cooldown", "1m")
	v.SetDefault("security.resend_daily_limit", 5)
	v.SetDefault("security.turnstile.enabled", false)

	v.SetDefault("store.type", "redis")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.workers", 2)
	v.SetDefault("mail.queue_size", 64)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("cleanup.schedule", "@daily")
	v.SetDefault("cleanup.unverified_after", "168h")

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return validate()
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetString("app.base_url") == "" {
		return errors.New("no app.base_url provided, links in emails can't be built without it")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt64("host.body_limit") <= 0 {
		return errors.New("host.body_limit must be bigger than 0")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("security.jwt_secret") == "" {
		return fmt.Errorf("%w. Set SECURITY_JWT_SECRET or security.jwt_secret in config.toml, for example:\n\n%s", ErrMissingJWTSecret, genSecret())
	}

	if s := v.GetString("security.crypto_secret"); len(s) < minSecretLength {
		return fmt.Errorf("%w (at least %d characters). Set SECURITY_CRYPTO_SECRET or security.crypto_secret in config.toml, for example:\n\n%s", ErrMissingCryptoSecret, minSecretLength, genSecret())
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if v.GetDuration("security.session_lifetime") <= 0 {
		return errors.New("security.session_lifetime must be bigger than 0")
	}

	if v.GetInt("security.resend_daily_limit") <= 0 {
		return errors.New("security.resend_daily_limit must be bigger than 0")
	}

	if v.GetBool("security.turnstile.enabled") && v.GetString("security.turnstile.secret") == "" {
		return errors.New("turnstile is enabled but no security.turnstile.secret provided")
	}

	if v.GetInt("token.email_verification_lifetime") <= 0 {
		return errors.New("token.email_verification_lifetime must be set to a number of seconds bigger than 0")
	}

	if v.GetInt("token.password_reset_lifetime") <= 0 {
		return errors.New("token.password_reset_lifetime must be set to a number of seconds bigger than 0")
	}

	switch v.GetString("store.type") {
	case "redis":
		if v.GetString("redis.address") == "" {
			return errors.New("no redis.address provided")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store type provided, expected one of %v", validStoreTypes)
	}

	if v.GetString("mail.host") == "" {
		return errors.New("no mail.host provided")
	}

	if v.GetInt("mail.port") <= 0 {
		return errors.New("invalid mail port provided")
	}

	if v.GetString("mail.sender") == "" {
		return errors.New("no mail.sender provided")
	}

	if v.GetInt("mail.workers") <= 0 {
		return errors.New("mail.workers must be bigger than 0")
	}

	if !slices.Contains(validDrivers, v.GetString("database.driver")) {
		return fmt.Errorf("invalid database driver provided, expected one of %v", validDrivers)
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("no database.dsn provided")
	}

	if _, err := cron.ParseStandard(v.GetString("cleanup.schedule")); err != nil {
		return fmt.Errorf("invalid cleanup.schedule, %w", err)
	}

	if v.GetDuration("cleanup.unverified_after") <= 0 {
		return errors.New("cleanup.unverified_after must be bigger than 0")
	}

	return nil
}
