package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bounty_hunter/internal/repository"
	"bounty_hunter/pkg/oauth"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database  repository.Config `yaml:"database"`
	Server    ServerConfig      `yaml:"server"`
	Session   SessionConfig     `yaml:"session"`
	XOAuth    oauth.Config      `yaml:"xOAuth"`
	Telegram  TelegramConfig    `yaml:"telegram"`
	Referral  ReferralConfig    `yaml:"referral"`
	RateLimit RateLimitConfig   `yaml:"rateLimit"`

	// EncryptionKey seals OAuth tokens at rest. Empty stores them in clear.
	EncryptionKey string `yaml:"encryptionKey"`
	LogLevel      string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	SecureCookies  bool     `yaml:"secureCookies"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

type TelegramConfig struct {
	BotToken    string        `yaml:"botToken"`
	Debug       bool          `yaml:"debug"`
	LinkTimeout time.Duration `yaml:"linkTimeout"`
}

type ReferralConfig struct {
	PublicURL   string `yaml:"publicUrl"`
	FrontendURL string `yaml:"frontendUrl"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslMode", "disable")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8888")
	v.SetDefault("server.allowedOrigins", []string{})
	v.SetDefault("server.secureCookies", false)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.issuer", "bounty-hunter")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("xOAuth.clientId", "")
	v.SetDefault("xOAuth.clientSecret", "")
	v.SetDefault("xOAuth.redirectUrl", "")

	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.linkTimeout", 30*time.Second)

	v.SetDefault("referral.publicUrl", "http://localhost:5173")
	v.SetDefault("referral.frontendUrl", "http://localhost:5173")

	v.SetDefault("rateLimit.rps", 10.0)
	v.SetDefault("rateLimit.burst", 20)

	v.SetDefault("encryptionKey", "")
	v.SetDefault("logLevel", "info")
}

// LoadConfig reads config.yaml from the working directory, or path when
// set, with APP_ environment overrides. A missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(configPath)
		v.SetConfigType(configFormat)
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Session.Secret == "":
		return errors.New("session.secret is required")
	case c.Referral.PublicURL == "":
		return errors.New("referral.publicUrl is required")
	}
	return nil
}
