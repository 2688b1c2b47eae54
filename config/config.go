package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development placeholder. Production startup refuses it.
const DefaultJWTSecret = "your-super-secret-key-change-in-production"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrInsecureJWTSecret is returned by Validate when production runs with the placeholder secret.
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be overridden in production")

type Application struct {
	Environment             string
	GracefulShutdownTimeout time.Duration
}

type HTTPServer struct {
	Port               int
	RateLimitPerSecond float64
}

type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Redis struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type Logger struct {
	Level string
	Mode  string // development or production
	File  string // optional rotated log file
}

type Swagger struct {
	Enabled bool `json:"enabled"`
}

type JWT struct {
	Secret         string
	Issuer         string
	ExpirationTime time.Duration
}

type OTP struct {
	Length         int
	ExpirationTime time.Duration
	HashSecret     string
}

type RateLimit struct {
	MaxRequests    int
	WindowDuration time.Duration
}

type Delivery struct {
	Driver      string // log or nats
	NATSURL     string
	NATSSubject string
}

type Config struct {
	Application Application
	HTTPServer  HTTPServer
	Database    Database
	Redis       Redis
	Logger      Logger
	Swagger     Swagger
	JWT         JWT
	OTP         OTP
	RateLimit   RateLimit
	Delivery    Delivery
}

var defaults = map[string]any{
	"APP_ENV":                               EnvDevelopment,
	"APPLICATION_GRACEFUL_SHUTDOWN_TIMEOUT": 30 * time.Second,
	"HTTP_SERVER_PORT":                      8080,
	"HTTP_RATE_LIMIT_PER_SECOND":            10.0,
	"DATABASE_HOST":                         "db",
	"DATABASE_PORT":                         5432,
	"DATABASE_USER":                         "customer_auth",
	"DATABASE_PASSWORD":                     "customer_auth",
	"DATABASE_NAME":                         "customer_auth",
	"DATABASE_SSL_MODE":                     "disable",
	"REDIS_HOST":                            "redis",
	"REDIS_PORT":                            6379,
	"REDIS_PASSWORD":                        "",
	"REDIS_DB":                              0,
	"LOGGER_LEVEL":                          "info",
	"LOGGER_MODE":                           "production",
	"LOGGER_FILE":                           "",
	"SWAGGER_ENABLED":                       true,
	"JWT_SECRET":                            DefaultJWTSecret,
	"JWT_ISSUER":                            "customer-auth-service",
	"JWT_EXPIRATION_TIME":                   7 * 24 * time.Hour,
	"OTP_LENGTH":                            6,
	"OTP_EXPIRATION_TIME":                   5 * time.Minute,
	"OTP_HASH_SECRET":                       "",
	"RATE_LIMIT_MAX_REQUESTS":               3,
	"RATE_LIMIT_WINDOW_DURATION":            10 * time.Minute,
	"DELIVERY_DRIVER":                       "log",
	"DELIVERY_NATS_URL":                     "nats://nats:4222",
	"DELIVERY_NATS_SUBJECT":                 "customer.otp.requested",
}

// Load builds the configuration from defaults, an optional .env file in the
// working directory and the process environment (highest precedence).
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		Application: Application{
			Environment:             strings.ToLower(v.GetString("APP_ENV")),
			GracefulShutdownTimeout: v.GetDuration("APPLICATION_GRACEFUL_SHUTDOWN_TIMEOUT"),
		},
		HTTPServer: HTTPServer{
			Port:               v.GetInt("HTTP_SERVER_PORT"),
			RateLimitPerSecond: v.GetFloat64("HTTP_RATE_LIMIT_PER_SECOND"),
		},
		Database: Database{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSL_MODE"),
		},
		Redis: Redis{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Logger: Logger{
			Level: v.GetString("LOGGER_LEVEL"),
			Mode:  v.GetString("LOGGER_MODE"),
			File:  v.GetString("LOGGER_FILE"),
		},
		Swagger: Swagger{
			Enabled: v.GetBool("SWAGGER_ENABLED"),
		},
		JWT: JWT{
			Secret:         v.GetString("JWT_SECRET"),
			Issuer:         v.GetString("JWT_ISSUER"),
			ExpirationTime: v.GetDuration("JWT_EXPIRATION_TIME"),
		},
		OTP: OTP{
			Length:         v.GetInt("OTP_LENGTH"),
			ExpirationTime: v.GetDuration("OTP_EXPIRATION_TIME"),
			HashSecret:     v.GetString("OTP_HASH_SECRET"),
		},
		RateLimit: RateLimit{
			MaxRequests:    v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
			WindowDuration: v.GetDuration("RATE_LIMIT_WINDOW_DURATION"),
		},
		Delivery: Delivery{
			Driver:      strings.ToLower(v.GetString("DELIVERY_DRIVER")),
			NATSURL:     v.GetString("DELIVERY_NATS_URL"),
			NATSSubject: v.GetString("DELIVERY_NATS_SUBJECT"),
		},
	}

	// OTP hashes fall back to the token secret so a single secret is enough in development.
	if cfg.OTP.HashSecret == "" {
		cfg.OTP.HashSecret = cfg.JWT.Secret
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Application.Environment == EnvProduction
}

// Validate rejects configurations that must never reach a running server.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret) {
		return ErrInsecureJWTSecret
	}
	if c.JWT.ExpirationTime <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_TIME must be positive, got %v", c.JWT.ExpirationTime)
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTP.Length)
	}
	if c.OTP.ExpirationTime <= 0 {
		return fmt.Errorf("OTP_EXPIRATION_TIME must be positive, got %v", c.OTP.ExpirationTime)
	}
	switch c.Delivery.Driver {
	case "log", "nats":
	default:
		return fmt.Errorf("unknown DELIVERY_DRIVER %q", c.Delivery.Driver)
	}
	return nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}
