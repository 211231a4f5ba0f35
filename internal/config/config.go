package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store drivers.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all configuration required by the console processes.
// All values come from env (optionally seeded from a .env file).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	Backend BackendConfig
	Session SessionConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// BackendConfig points at the invoicing backend that issues tokens and owns the data.
type BackendConfig struct {
	URL string
}

type SessionConfig struct {
	// Store selects where the credential record is persisted.
	Store string
	// File is the record path for the file store.
	File string
	// Profile scopes the record in shared stores (redis, postgres).
	Profile string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// AuthConfig is only read by the reference backend.
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// Load reads the process environment. envFiles are loaded first with godotenv;
// missing files are ignored and real env vars always win.
func Load(envFiles ...string) (Config, error) {
	return LoadWith(nil, envFiles...)
}

// LoadWith is Load with a hook that adjusts the raw values before validation,
// e.g. to apply command-line flags over the environment.
func LoadWith(override func(*Config), envFiles ...string) (Config, error) {
	c, err := read(envFiles)
	if err != nil {
		return Config{}, err
	}
	if override != nil {
		override(&c)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// DefaultBackendPort is used by the reference backend when APP_PORT is unset.
const DefaultBackendPort = 3000

// LoadBackend reads the environment for the reference backend. Console-only
// settings such as BACKEND_URL and SESSION_STORE are not validated.
func LoadBackend(envFiles ...string) (Config, error) {
	c, err := read(envFiles)
	if err != nil {
		return Config{}, err
	}
	if c.App.Port == 0 {
		c.App.Port = DefaultBackendPort
	}
	errs := c.validateApp()
	if err := c.ValidateBackend(); err != nil {
		errs = append(errs, err)
	}
	if err := joinErrors(errs); err != nil {
		return Config{}, err
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 8 * time.Hour
	}
	return c, nil
}

func read(envFiles []string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = optionalInt(parseErrs, "APP_PORT")

	c.Backend.URL = strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_URL")), "/")

	c.Session.Store = strings.TrimSpace(os.Getenv("SESSION_STORE"))
	c.Session.File = strings.TrimSpace(os.Getenv("SESSION_FILE"))
	c.Session.Profile = strings.TrimSpace(os.Getenv("SESSION_PROFILE"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = optionalInt(parseErrs, "DB_PORT")
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validateApp() []error {
	var errs []error
	if c.App.Env == "" {
		c.App.Env = "local"
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.Port < 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	return errs
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	errs := c.validateApp()

	if c.Backend.URL == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	} else if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.Backend.URL))
	}

	if c.Session.Store == "" {
		c.Session.Store = StoreFile
	}
	if c.Session.Profile == "" {
		c.Session.Profile = "default"
	}

	switch c.Session.Store {
	case StoreMemory:
	case StoreFile:
		if c.Session.File == "" {
			p, err := defaultSessionFile()
			if err != nil {
				errs = append(errs, fmt.Errorf("SESSION_FILE is required: %w", err))
			}
			c.Session.File = p
		}
	case StoreRedis:
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required for the redis session store"))
		}
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	case StorePostgres:
		errs = append(errs, c.validateDB()...)
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be one of file, memory, redis, postgres, got %q", c.Session.Store))
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 8 * time.Hour
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required for the postgres session store"))
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.Port < 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

// ValidateBackend checks the extra settings the reference backend needs.
func (c Config) ValidateBackend() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		errs = append(errs, errors.New("the reference backend must not run in production"))
	}
	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func defaultSessionFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "invoice-console", "session.json"), nil
}

func optionalInt(errs []error, key string) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
