// Package core provides the central engine and configuration management for slashkit.
//
// The core package wires the command extension, the interactivity router and
// the Discord transport together. It handles:
//
//   - Configuration loading and validation (from YAML files)
//   - Module registration and command synchronization on Ready
//   - Routing of gateway interactions to the dispatcher and the session router
//   - Admin HTTP server for health, metrics and the compiled command trees
//   - Graceful shutdown and cleanup
//
// # Main Components
//
//   - Engine: Central orchestration engine
//   - Config: Configuration structure and loading
//
// # Configuration
//
// Configuration is loaded from a YAML file with the following main sections:
//
//   - discord: bot token, application id and the guilds to register into
//   - commands: registration concurrency and rate limiting
//   - interactivity: component acknowledgement, actor checks, pagination
//   - admin: admin HTTP server settings
//   - logging: Log configuration
//
// ${VAR} references are expanded from the environment, a .env file next to
// the config is loaded first when present, and SLASHKIT_* variables override
// the matching fields.
//
// # Example Configuration
//
//	discord:
//	  token: "${DISCORD_TOKEN}"
//	  guild_ids: ["123456789012345678"]
//	commands:
//	  concurrency: 4
//	  registration_rate: 2
//	interactivity:
//	  response_behavior: respond
//	  timeout: 5m
//	  pagination_deletion: delete_buttons
//	admin:
//	  listen: ":9090"
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/keepmind9/slashkit/internal/interactivity"
	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/keepmind9/slashkit/pkg/constants"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAdminListen     = ":9090"
	DefaultLogLevel        = "info"
	DefaultLogMaxSize      = 100 // MB
	DefaultLogMaxBackups   = 5
	DefaultLogMaxAge       = 30 // days
	DefaultLogCompress     = true
	DefaultLogEnableStdout = true
)

// Config represents the complete slashkit configuration
type Config struct {
	Discord       DiscordConfig       `yaml:"discord" json:"discord"`
	Commands      CommandsConfig      `yaml:"commands" json:"commands"`
	Interactivity InteractivityConfig `yaml:"interactivity" json:"interactivity"`
	Admin         AdminConfig         `yaml:"admin" json:"admin"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
}

// DiscordConfig represents the bot credentials and target guilds
type DiscordConfig struct {
	Token string `yaml:"token" json:"-"`
	AppID string `yaml:"app_id" json:"app_id"` // Learned from the Ready event when empty
	// GuildIDs receive the command modules as guild commands; empty means global
	GuildIDs []string `yaml:"guild_ids" json:"guild_ids"`
}

// CommandsConfig represents registration tuning
type CommandsConfig struct {
	Concurrency       int     `yaml:"concurrency" json:"concurrency"`             // Scopes registered in parallel (default: 4)
	RegistrationRate  float64 `yaml:"registration_rate" json:"registration_rate"` // Bulk overwrites per second (default: 2)
	RegistrationBurst int     `yaml:"registration_burst" json:"registration_burst"`
}

// ButtonConfig overrides one pagination control
type ButtonConfig struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// ButtonsConfig represents the pagination control set
type ButtonsConfig struct {
	SkipLeft  ButtonConfig `yaml:"skip_left" json:"skip_left"`
	Left      ButtonConfig `yaml:"left" json:"left"`
	Stop      ButtonConfig `yaml:"stop" json:"stop"`
	Right     ButtonConfig `yaml:"right" json:"right"`
	SkipRight ButtonConfig `yaml:"skip_right" json:"skip_right"`
}

// InteractivityConfig represents the session router settings
type InteractivityConfig struct {
	AckPaginationButtons *bool         `yaml:"ack_pagination_buttons" json:"ack_pagination_buttons"` // default: true
	ResponseBehavior     string        `yaml:"response_behavior" json:"response_behavior"`           // ignore or respond
	ResponseMessage      string        `yaml:"response_message" json:"response_message"`
	Timeout              string        `yaml:"timeout" json:"timeout"`                         // e.g. "5m"; "0" disables the bound
	PaginationDeletion   string        `yaml:"pagination_deletion" json:"pagination_deletion"` // delete_buttons, delete_message or keep_message
	Buttons              ButtonsConfig `yaml:"buttons" json:"buttons"`
}

// AdminConfig represents the admin HTTP server settings
type AdminConfig struct {
	Enabled *bool  `yaml:"enabled" json:"enabled"` // default: true
	Listen  string `yaml:"listen" json:"listen"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format       string `yaml:"format" json:"format"` // json or text
	File         string `yaml:"file" json:"file"`     // Log file path
	MaxSize      int    `yaml:"max_size" json:"max_size"`
	MaxBackups   int    `yaml:"max_backups" json:"max_backups"`
	MaxAge       int    `yaml:"max_age" json:"max_age"`
	Compress     *bool  `yaml:"compress" json:"compress"`
	EnableStdout *bool  `yaml:"enable_stdout" json:"enable_stdout"`
}

// envOverrides are applied on top of the YAML values when set
type envOverrides struct {
	DiscordToken string `env:"SLASHKIT_DISCORD_TOKEN"`
	AppID        string `env:"SLASHKIT_APP_ID"`
	LogLevel     string `env:"SLASHKIT_LOG_LEVEL"`
	AdminListen  string `env:"SLASHKIT_ADMIN_LISTEN"`
}

// LoadConfig loads configuration from file and expands environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}

	// Expand environment variables
	expandedData, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	// Parse YAML
	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadDotEnv loads path into the environment without overriding set variables
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

func applyEnvOverrides(config *Config) error {
	o, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	if o.DiscordToken != "" {
		config.Discord.Token = o.DiscordToken
	}
	if o.AppID != "" {
		config.Discord.AppID = o.AppID
	}
	if o.LogLevel != "" {
		config.Logging.Level = o.LogLevel
	}
	if o.AdminListen != "" {
		config.Admin.Listen = o.AdminListen
	}
	return nil
}

// validateConfig applies defaults and rejects invalid values
func validateConfig(config *Config) error {
	if config.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}
	seen := make(map[string]bool, len(config.Discord.GuildIDs))
	for _, id := range config.Discord.GuildIDs {
		if id == "" {
			return fmt.Errorf("discord.guild_ids contains an empty id")
		}
		if seen[id] {
			return fmt.Errorf("discord.guild_ids lists %s twice", id)
		}
		seen[id] = true
	}

	// Set default registration configuration
	if config.Commands.Concurrency == 0 {
		config.Commands.Concurrency = constants.DefaultRegistrationConcurrency
	}
	if config.Commands.RegistrationRate == 0 {
		config.Commands.RegistrationRate = constants.DefaultRegistrationRate
	}
	if config.Commands.RegistrationBurst == 0 {
		config.Commands.RegistrationBurst = constants.DefaultRegistrationBurst
	}
	if config.Commands.Concurrency < 0 || config.Commands.RegistrationRate < 0 || config.Commands.RegistrationBurst < 0 {
		return fmt.Errorf("commands settings must not be negative")
	}

	// Set default interactivity configuration
	if config.Interactivity.Timeout == "" {
		config.Interactivity.Timeout = constants.DefaultInteractivityTimeout.String()
	}
	if _, err := config.Interactivity.RouterConfig(); err != nil {
		return err
	}

	// Set default admin configuration
	if config.Admin.Listen == "" {
		config.Admin.Listen = DefaultAdminListen
	}

	// Set default logging configuration
	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	switch strings.ToLower(config.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid logging.level %q", config.Logging.Level)
	}
	if config.Logging.Format != "" && config.Logging.Format != "json" && config.Logging.Format != "text" {
		return fmt.Errorf("invalid logging.format %q (want json or text)", config.Logging.Format)
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = DefaultLogMaxAge
	}
	if config.Logging.Compress == nil {
		compress := DefaultLogCompress
		config.Logging.Compress = &compress
	}
	if config.Logging.EnableStdout == nil {
		stdout := DefaultLogEnableStdout
		config.Logging.EnableStdout = &stdout
	}

	return nil
}

// RouterConfig converts the YAML section into the router configuration
func (c InteractivityConfig) RouterConfig() (interactivity.Config, error) {
	cfg := interactivity.DefaultConfig()

	if c.AckPaginationButtons != nil {
		cfg.AckComponents = *c.AckPaginationButtons
	}

	behavior, err := interactivity.ParseResponseBehavior(c.ResponseBehavior)
	if err != nil {
		return cfg, fmt.Errorf("interactivity.response_behavior: %w", err)
	}
	cfg.ResponseBehavior = behavior

	if c.ResponseMessage != "" {
		cfg.ResponseMessage = c.ResponseMessage
	}

	if c.Timeout != "" {
		timeout, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid interactivity.timeout: %w", err)
		}
		if timeout < 0 {
			return cfg, fmt.Errorf("interactivity.timeout must not be negative (got %v)", timeout)
		}
		cfg.Timeout = timeout
	}

	deletion, err := interactivity.ParseDeletionBehavior(c.PaginationDeletion)
	if err != nil {
		return cfg, fmt.Errorf("interactivity.pagination_deletion: %w", err)
	}
	cfg.Deletion = deletion

	override := func(b *interactivity.Button, o ButtonConfig) {
		if o.ID != "" {
			b.ID = o.ID
		}
		if o.Label != "" {
			b.Label = o.Label
		}
	}
	override(&cfg.Buttons.SkipLeft, c.Buttons.SkipLeft)
	override(&cfg.Buttons.Left, c.Buttons.Left)
	override(&cfg.Buttons.Stop, c.Buttons.Stop)
	override(&cfg.Buttons.Right, c.Buttons.Right)
	override(&cfg.Buttons.SkipRight, c.Buttons.SkipRight)

	if err := cfg.Buttons.Validate(); err != nil {
		return cfg, fmt.Errorf("interactivity.buttons: %w", err)
	}
	return cfg, nil
}

// AdminEnabled reports whether the admin server should run
func (c *Config) AdminEnabled() bool {
	return c.Admin.Enabled == nil || *c.Admin.Enabled
}

// LoggerConfig converts the logging section for logger.InitLogger
func (c *Config) LoggerConfig() logger.Config {
	l := c.Logging
	return logger.Config{
		Level:        l.Level,
		Format:       l.Format,
		File:         l.File,
		MaxSize:      l.MaxSize,
		MaxBackups:   l.MaxBackups,
		MaxAge:       l.MaxAge,
		Compress:     boolOr(l.Compress, DefaultLogCompress),
		EnableStdout: boolOr(l.EnableStdout, DefaultLogEnableStdout),
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
