// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultDatabaseDriver  = "sqlite"
	defaultDatabaseDSN     = "file:printa.db"
	defaultPrintifyBaseURL = "https://api.printify.com/v1"
	defaultPrintifyRPS     = 10
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModel     = "gpt-3.5-turbo"
	defaultOpenAIImage     = "dall-e-3"
	defaultStoreName       = "Amazon"
	defaultProductType     = "phone case"
	defaultTokenTTL        = 24 * time.Hour
	defaultMockupSize      = 256
	defaultMockupTTL       = 10 * time.Minute
	defaultArtworkBackend  = "fs"
	defaultArtworkDir      = "./artwork"
	defaultWorkers         = 4
	defaultLogLevel        = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Printify PrintifyConfig
	OpenAI   OpenAIConfig
	Studio   StudioConfig
	Auth     AuthConfig
	Mockup   MockupConfig
	Artwork  ArtworkConfig
	LogLevel string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// PrintifyConfig holds catalog API credentials.
type PrintifyConfig struct {
	APIKey            string
	ShopID            string
	BaseURL           string
	RequestsPerSecond int
}

// OpenAIConfig holds text and image model settings.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
}

// StudioConfig sets defaults for generated listings and bulk work.
type StudioConfig struct {
	StoreName   string
	ProductType string
	Workers     int
}

// AuthConfig configures the dashboard admin login.
type AuthConfig struct {
	JWTSecret         string
	AdminEmail        string
	AdminPasswordHash string
	TokenTTL          time.Duration
}

// MockupConfig bounds the mockup URL cache.
type MockupConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// ArtworkConfig selects where uploaded designs are archived.
type ArtworkConfig struct {
	Backend     string
	Dir         string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path. An empty path skips the file.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the system
// environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load combines defaults, the .env file, the process environment and any
// explicit map, in increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "APP_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "APP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "APP_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "APP_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, "DATABASE_DRIVER", defaultDatabaseDriver)),
			DSN:    stringWithDefault(lookup, "DATABASE_URL", defaultDatabaseDSN),
		},
		Printify: PrintifyConfig{
			APIKey:            stringWithDefault(lookup, "PRINTIFY_API_KEY", ""),
			ShopID:            stringWithDefault(lookup, "PRINTIFY_SHOP_ID", ""),
			BaseURL:           stringWithDefault(lookup, "PRINTIFY_BASE_URL", defaultPrintifyBaseURL),
			RequestsPerSecond: intWithDefault(lookup, "PRINTIFY_REQUESTS_PER_SECOND", defaultPrintifyRPS),
		},
		OpenAI: OpenAIConfig{
			APIKey:     stringWithDefault(lookup, "OPENAI_API_KEY", ""),
			BaseURL:    stringWithDefault(lookup, "OPENAI_BASE_URL", defaultOpenAIBaseURL),
			Model:      stringWithDefault(lookup, "OPENAI_MODEL", defaultOpenAIModel),
			ImageModel: stringWithDefault(lookup, "OPENAI_IMAGE_MODEL", defaultOpenAIImage),
		},
		Studio: StudioConfig{
			StoreName:   stringWithDefault(lookup, "STUDIO_STORE_NAME", defaultStoreName),
			ProductType: stringWithDefault(lookup, "STUDIO_PRODUCT_TYPE", defaultProductType),
			Workers:     intWithDefault(lookup, "STUDIO_WORKERS", defaultWorkers),
		},
		Auth: AuthConfig{
			JWTSecret:         stringWithDefault(lookup, "AUTH_JWT_SECRET", ""),
			AdminEmail:        stringWithDefault(lookup, "AUTH_ADMIN_EMAIL", ""),
			AdminPasswordHash: stringWithDefault(lookup, "AUTH_ADMIN_PASSWORD_HASH", ""),
			TokenTTL:          durationWithDefault(lookup, "AUTH_TOKEN_TTL", defaultTokenTTL),
		},
		Mockup: MockupConfig{
			CacheSize: intWithDefault(lookup, "MOCKUP_CACHE_SIZE", defaultMockupSize),
			CacheTTL:  durationWithDefault(lookup, "MOCKUP_CACHE_TTL", defaultMockupTTL),
		},
		Artwork: ArtworkConfig{
			Backend:     strings.ToLower(stringWithDefault(lookup, "ARTWORK_BACKEND", defaultArtworkBackend)),
			Dir:         stringWithDefault(lookup, "ARTWORK_DIR", defaultArtworkDir),
			S3Bucket:    stringWithDefault(lookup, "ARTWORK_S3_BUCKET", ""),
			S3Region:    stringWithDefault(lookup, "ARTWORK_S3_REGION", ""),
			S3Endpoint:  stringWithDefault(lookup, "ARTWORK_S3_ENDPOINT", ""),
			S3PathStyle: boolWithDefault(lookup, "ARTWORK_S3_PATH_STYLE", false),
		},
		LogLevel: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string
	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Database.Driver {
	case "postgres", "pgx", "sqlite", "sqlite3":
	default:
		missing = append(missing, "Database.Driver")
	}
	if cfg.Database.DSN == "" {
		missing = append(missing, "Database.DSN")
	}
	if cfg.Printify.APIKey == "" {
		missing = append(missing, "Printify.APIKey")
	}
	if cfg.Printify.ShopID == "" {
		missing = append(missing, "Printify.ShopID")
	}
	if cfg.Printify.RequestsPerSecond <= 0 {
		missing = append(missing, "Printify.RequestsPerSecond")
	}
	if cfg.Studio.Workers <= 0 {
		missing = append(missing, "Studio.Workers")
	}
	if cfg.Auth.TokenTTL <= 0 {
		missing = append(missing, "Auth.TokenTTL")
	}
	switch cfg.Artwork.Backend {
	case "fs":
	case "s3":
		if cfg.Artwork.S3Bucket == "" {
			missing = append(missing, "Artwork.S3Bucket")
		}
	default:
		missing = append(missing, "Artwork.Backend")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
