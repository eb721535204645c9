package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Port        string `mapstructure:"port"`
	Env         string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log_level"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	JWTSecret   string `mapstructure:"jwt_secret"`

	// Automation sweep
	AutomationInterval int `mapstructure:"automation_interval"` // seconds between sweeps
	RetentionDays      int `mapstructure:"retention_days"`      // automation log retention window

	// Mail function gateway (serverless email sender)
	MailFunctionURL   string `mapstructure:"mail_function_url"`
	MailFunctionToken string `mapstructure:"mail_function_token"`

	// Anomaly narration
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	OpenAIModel  string `mapstructure:"openai_model"`

	// API rate limiting
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// App holds the global config instance
var App Config

// Load reads configuration from an optional config file and environment
// variables. Env vars win over file values; a missing .env file is fine.
func Load(path string) error {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("port", "3000")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("automation_interval", 300)
	v.SetDefault("retention_days", 90)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window_seconds", 60)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper has seen, so bind the ones
	// without defaults explicitly.
	for _, key := range []string{
		"database_url", "redis_url", "jwt_secret",
		"mail_function_url", "mail_function_token", "openai_api_key",
	} {
		_ = v.BindEnv(key)
	}

	return v.Unmarshal(&App)
}
