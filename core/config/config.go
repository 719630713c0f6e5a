package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultChannelLink is used for the member welcome button when CHANNEL_LINK is unset.
	DefaultChannelLink = "https://t.me/your_channel"
	// DefaultAdminContact is shown to channel members as the consultation contact.
	DefaultAdminContact = "@VladimirMpeoRU"
	// DefaultPort is the liveness endpoint port when PORT is unset.
	DefaultPort = 10000
	// DefaultListen is the liveness endpoint bind address.
	DefaultListen = "0.0.0.0"
	// DefaultLongPollTimeoutSeconds bounds a single getUpdates call.
	DefaultLongPollTimeoutSeconds = 10
)

var (
	// ErrMissingToken is returned when no bot credential was configured.
	ErrMissingToken = errors.New("telegram token is required")
	// ErrMissingChannel is returned when the gated channel identifier is absent.
	ErrMissingChannel = errors.New("channel id is required")
)

// TelegramConfig holds bot API settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// ChannelConfig describes the gated channel and who to contact about it.
type ChannelConfig struct {
	// ID is either a numeric chat id ("-100...") or a public username ("@name").
	ID           string `yaml:"id" envconfig:"CHANNEL_ID"`
	Link         string `yaml:"link" envconfig:"CHANNEL_LINK"`
	AdminContact string `yaml:"admin_contact" envconfig:"ADMIN_CONTACT"`
}

// HTTPConfig configures the liveness listener.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	Dir    string `yaml:"dir" envconfig:"LOG_DIR"`
	File   string `yaml:"file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// Config aggregates process configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Channel  ChannelConfig  `yaml:"channel"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from an optional YAML file and environment variables.
// Environment values override the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		return ErrMissingToken
	}
	cfg.Channel.ID = strings.TrimSpace(cfg.Channel.ID)
	if cfg.Channel.ID == "" {
		return ErrMissingChannel
	}

	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
	}
	if cfg.Telegram.LongPollTimeoutSeconds == 0 {
		cfg.Telegram.LongPollTimeoutSeconds = DefaultLongPollTimeoutSeconds
	}

	if strings.TrimSpace(cfg.Channel.Link) == "" {
		cfg.Channel.Link = DefaultChannelLink
	}
	if strings.TrimSpace(cfg.Channel.AdminContact) == "" {
		cfg.Channel.AdminContact = DefaultAdminContact
	}

	if strings.TrimSpace(cfg.HTTP.Listen) == "" {
		cfg.HTTP.Listen = DefaultListen
	}
	switch {
	case cfg.HTTP.Port == 0:
		cfg.HTTP.Port = DefaultPort
	case cfg.HTTP.Port < 0 || cfg.HTTP.Port > 65535:
		return fmt.Errorf("invalid http.port %d; allowed: 1..65535", cfg.HTTP.Port)
	}
	return nil
}

// Addr returns the liveness listener address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Listen, c.Port)
}
