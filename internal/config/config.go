package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "COMMONS"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "commons.db"
	defaultLogLevel     = "info"
	defaultTokenTTL     = 7 * 24 * time.Hour
	defaultTokenIssuer  = "commons-api"
	defaultTelegramAge  = 24 * time.Hour
	defaultMapCacheTTL  = time.Minute
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress      string
	DatabasePath     string
	LogLevel         string
	SigningSecret    string
	TokenIssuer      string
	TokenTTL         time.Duration
	TelegramBotToken string
	TelegramAuthAge  time.Duration
	RedisURL         string
	MapCacheTTL      time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("token.issuer", defaultTokenIssuer)
	configViper.SetDefault("token.ttl", defaultTokenTTL)
	configViper.SetDefault("telegram.auth_age", defaultTelegramAge)
	configViper.SetDefault("map.cache_ttl", defaultMapCacheTTL)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:      configViper.GetString("http.address"),
		DatabasePath:     configViper.GetString("database.path"),
		LogLevel:         configViper.GetString("log.level"),
		SigningSecret:    configViper.GetString("auth.signing_secret"),
		TokenIssuer:      configViper.GetString("token.issuer"),
		TokenTTL:         configViper.GetDuration("token.ttl"),
		TelegramBotToken: configViper.GetString("telegram.bot_token"),
		TelegramAuthAge:  configViper.GetDuration("telegram.auth_age"),
		RedisURL:         configViper.GetString("redis.url"),
		MapCacheTTL:      configViper.GetDuration("map.cache_ttl"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl must be positive")
	}
	return nil
}
