package app

import (
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/megharaj2002/canteen/internal/handler"
)

const defaultAddr = "0.0.0.0:8080"

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the application configuration, loadable from environment
// variables (CANTEEN_ prefix), a .env file, flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage      string `default:"postgres" usage:"Storage backend: postgres or memory"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (CANTEEN_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWTSecret    string `usage:"HMAC secret for bearer tokens (CANTEEN_JWT_SECRET)" flag:"jwt-secret"`
	ImageBaseURL string `default:"" usage:"Base URL for product images" flag:"image-base-url"`
	Currency     string `default:"INR" usage:"ISO 4217 currency of menu prices"`
	Language     string `default:"en-IN" usage:"BCP 47 tag used to format amounts"`
	Timezone     string `default:"Asia/Kolkata" usage:"Time zone of order dates in listings"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
	Orders       OrdersConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables limiting"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// OrdersConfig toggles optional order rules.
type OrdersConfig struct {
	EnforceTransitions  bool `default:"false" usage:"Reject status changes outside the order lifecycle" flag:"enforce-transitions"`
	RecheckAvailability bool `default:"false" usage:"Reject checkout of products that became unavailable" flag:"recheck-availability"`
}

// LoadConfig loads configuration from a .env file, environment variables and
// YAML config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CANTEEN",
		Files:     []string{"config.yaml", "/etc/canteen/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT to the
// CANTEEN_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage) {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set CANTEEN_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT secret of at least 16 bytes is required: set CANTEEN_JWT_SECRET")
	}
	if _, err := c.HandlerConfig(); err != nil {
		return err
	}
	return nil
}

// HandlerConfig resolves the presentation settings of the HTTP handler.
func (c *Config) HandlerConfig() (handler.Config, error) {
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return handler.Config{}, errors.Wrapf(err, "parse currency %q", c.Currency)
	}
	lang, err := language.Parse(c.Language)
	if err != nil {
		return handler.Config{}, errors.Wrapf(err, "parse language %q", c.Language)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return handler.Config{}, errors.Wrapf(err, "load timezone %q", c.Timezone)
	}
	return handler.Config{
		ImageBaseURL: c.ImageBaseURL,
		Currency:     unit,
		Language:     lang,
		Location:     loc,
	}, nil
}
