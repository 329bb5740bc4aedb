// Package config loads worker configuration from the environment and
// optional config files.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings shared by the worker binary.
type Config struct {
	BaseURL       string
	ChannelSecret string
	ChannelToken  string
	DatabaseURL   string
	RedisAddr     string
	CodeLength    int
	LogFormat     string
}

// Load reads configuration from an optional .env file, an optional
// config.yaml, and S8L_-prefixed environment variables, in increasing
// precedence.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("S8L")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("baseurl", "http://localhost:8888")
	v.SetDefault("channelsecret", "")
	v.SetDefault("channeltoken", "")
	v.SetDefault("databaseurl", "postgres://localhost:5432/s8l")
	v.SetDefault("redisaddr", "localhost:6379")
	v.SetDefault("codelength", 6)
	v.SetDefault("logformat", "console")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		BaseURL:       v.GetString("baseurl"),
		ChannelSecret: v.GetString("channelsecret"),
		ChannelToken:  v.GetString("channeltoken"),
		DatabaseURL:   v.GetString("databaseurl"),
		RedisAddr:     v.GetString("redisaddr"),
		CodeLength:    v.GetInt("codelength"),
		LogFormat:     v.GetString("logformat"),
	}

	// Upper bound matches the code column width in schema.sql.
	if cfg.CodeLength < 2 || cfg.CodeLength > 21 {
		return nil, fmt.Errorf("code length %d out of range", cfg.CodeLength)
	}

	return cfg, nil
}
