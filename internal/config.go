package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notely/internal/api"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/storage"
	"github.com/starford/notely/internal/summary"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Summary SummaryConfig     `yaml:"summary"`
	Notes   NotesConfig       `yaml:"notes"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Summary.Validate(); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(0)),
	)
}

// StorageConfig selects the note storage backend.
type StorageConfig struct {
	Driver    string      `yaml:"driver"`
	Namespace string      `yaml:"namespace"`
	Dir       string      `yaml:"dir"`
	DSN       string      `yaml:"dsn"`
	Redis     RedisConfig `yaml:"redis"`
	// Watch reloads the file backend when the collection file is changed
	// by another process.
	Watch bool `yaml:"watch"`
}

// RedisConfig holds the Redis connection for the redis driver.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(storage.Drivers...)),
		validation.Field(&c.Dir, validation.When(c.Driver == storage.DriverFile, validation.Required)),
		validation.Field(&c.DSN, validation.When(
			c.Driver == storage.DriverSQLite || c.Driver == storage.DriverPostgres,
			validation.Required,
		)),
		validation.Field(&c.Redis, validation.When(c.Driver == storage.DriverRedis, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Redis,
				validation.Field(&c.Redis.Addr, validation.Required),
				validation.Field(&c.Redis.DB, validation.Min(0)),
			)
		}))),
	)
}

// Options converts the configuration to storage.Open options.
func (c *StorageConfig) Options() storage.Options {
	return storage.Options{
		Driver:    c.Driver,
		Namespace: c.Namespace,
		Dir:       c.Dir,
		DSN:       c.DSN,
		Redis: storage.RedisOptions{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		},
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, every request acts
//     as LocalUser. Suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "jwt": Bearer HS256 JWTs signed with JWT.Secret.
type AuthConfig struct {
	Mode      string          `yaml:"mode"`
	Token     string          `yaml:"token"`
	JWT       JWTConfig       `yaml:"jwt"`
	LocalUser LocalUserConfig `yaml:"local_user"`
}

// JWTConfig holds the shared secret and expected issuer for JWT mode.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// LocalUserConfig is the identity used in disabled and token modes.
type LocalUserConfig struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// User returns the local user as a domain user.
func (c LocalUserConfig) User() models.User {
	return models.User{ID: c.ID, Email: c.Email, Name: c.Name}
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = api.AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(api.AuthModeDisabled, api.AuthModeToken, api.AuthModeJWT)),
	); err != nil {
		return err
	}
	switch c.Mode {
	case api.AuthModeToken:
		if c.Token == "" {
			return fmt.Errorf("auth: mode is %q but token is empty", api.AuthModeToken)
		}
	case api.AuthModeJWT:
		if c.JWT.Secret == "" {
			return fmt.Errorf("auth: mode is %q but jwt.secret is empty", api.AuthModeJWT)
		}
	}
	if c.Mode != api.AuthModeJWT && c.LocalUser.ID == "" {
		return fmt.Errorf("auth: mode is %q but local_user.id is empty", c.Mode)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == api.AuthModeToken || c.Mode == api.AuthModeJWT
}

// SummaryConfig configures the summary requestor. With an empty Endpoint
// every summary is produced by the extractive summarizer.
type SummaryConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Sentences   string        `yaml:"sentences"`
	Timeout     time.Duration `yaml:"timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around the chat endpoint.
// A zero Threshold disables it.
type BreakerConfig struct {
	Threshold int           `yaml:"threshold"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// Validate validates the summary configuration.
func (c *SummaryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.When(c.Endpoint != "", validation.Required)),
		validation.Field(&c.MaxTokens, validation.Min(0)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Timeout, validation.Min(0)),
		validation.Field(&c.Breaker, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Breaker,
				validation.Field(&c.Breaker.Threshold, validation.Min(0)),
				validation.Field(&c.Breaker.Cooldown, validation.When(c.Breaker.Threshold > 0, validation.Required)),
			)
		})),
	)
}

// Chat returns the chat-completion settings.
func (c *SummaryConfig) Chat() summary.ChatConfig {
	return summary.ChatConfig{
		Endpoint:    c.Endpoint,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Sentences:   c.Sentences,
	}
}

// NotesConfig holds note behaviour settings.
type NotesConfig struct {
	SeedWelcome bool `yaml:"seed_welcome"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Storage: StorageConfig{
			Driver:    storage.DriverFile,
			Namespace: storage.DefaultNamespace,
			Dir:       "./data",
		},
		Auth: AuthConfig{
			Mode: api.AuthModeDisabled,
			LocalUser: LocalUserConfig{
				ID:    "local",
				Email: "local@localhost",
				Name:  "Local User",
			},
		},
		Summary: SummaryConfig{
			Model:       summary.DefaultModel,
			MaxTokens:   summary.DefaultMaxTokens,
			Temperature: summary.DefaultTemperature,
			Sentences:   summary.DefaultSentences,
			Timeout:     summary.DefaultTimeout,
			Breaker: BreakerConfig{
				Threshold: 5,
				Cooldown:  30 * time.Second,
			},
		},
		Notes: NotesConfig{
			SeedWelcome: true,
		},
	}
}
