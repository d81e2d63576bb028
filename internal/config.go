package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/pkg/org"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Org    OrgConfig         `yaml:"org"`
	SSE    SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Org.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Org vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// OrgConfig controls how notes are recognised and parsed.
type OrgConfig struct {
	TodoKeywords   TodoKeywordsConfig `yaml:"todo_keywords"`
	FileExtensions []string           `yaml:"file_extensions"`
}

// TodoKeywordsConfig lists the default todo keywords. Notes can override them
// with their own #+TODO lines.
type TodoKeywordsConfig struct {
	Open   []string `yaml:"open"`
	Closed []string `yaml:"closed"`
}

var (
	keywordRe   = regexp.MustCompile(`^\S+$`)
	extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9_]+$`)
)

// Validate validates the org configuration.
func (c *OrgConfig) Validate() error {
	kw := &c.TodoKeywords
	if err := validation.ValidateStruct(kw,
		validation.Field(&kw.Open, validation.Required, validation.Each(validation.Required, validation.Match(keywordRe))),
		validation.Field(&kw.Closed, validation.Each(validation.Required, validation.Match(keywordRe))),
	); err != nil {
		return fmt.Errorf("org.todo_keywords: %w", err)
	}
	for _, k := range kw.Closed {
		for _, o := range kw.Open {
			if k == o {
				return fmt.Errorf("org.todo_keywords: %q is both open and closed", k)
			}
		}
	}
	if err := validation.Validate(c.FileExtensions,
		validation.Required, validation.Each(validation.Match(extensionRe)),
	); err != nil {
		return fmt.Errorf("org.file_extensions: %w", err)
	}
	return nil
}

// ParseConfig returns the keyword configuration used for notes without
// #+TODO lines.
func (c *OrgConfig) ParseConfig() *org.ParseConfig {
	return &org.ParseConfig{
		TodoKeywords: append([]string(nil), c.TodoKeywords.Open...),
		DoneKeywords: append([]string(nil), c.TodoKeywords.Closed...),
	}
}

// Extensions returns the note file extensions, lower-cased.
func (c *OrgConfig) Extensions() []string {
	out := make([]string, len(c.FileExtensions))
	for i, e := range c.FileExtensions {
		out[i] = strings.ToLower(e)
	}
	return out
}

// SSEConfig holds Server-Sent Events tuning.
type SSEConfig struct {
	GraphThrottle time.Duration `yaml:"graph_throttle"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

var errNoConfig = errors.New("config is required")

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./ansuz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Org: OrgConfig{
			TodoKeywords: TodoKeywordsConfig{
				Open:   []string{"TODO"},
				Closed: []string{"DONE"},
			},
			FileExtensions: []string{".org"},
		},
		SSE: SSEConfig{
			GraphThrottle: 2 * time.Second,
			Heartbeat:     30 * time.Second,
		},
	}
}
