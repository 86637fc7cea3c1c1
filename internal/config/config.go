package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds process configuration read from the environment, an optional
// .env file and an optional config file in the working directory.
type Config struct {
	Listen string `mapstructure:"listen"`
	Debug  bool   `mapstructure:"debug"`

	MongoURI          string        `mapstructure:"mongo_uri"`
	MainDB            string        `mapstructure:"main_db"`
	MongoTimeout      time.Duration `mapstructure:"mongo_timeout"`
	MongoTransactions bool          `mapstructure:"mongo_transactions"`

	Key        string        `mapstructure:"key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogDir    string `mapstructure:"log_dir"`

	RateLimitAuthRequests int           `mapstructure:"ratelimit_auth_requests"`
	RateLimitAuthWindow   time.Duration `mapstructure:"ratelimit_auth_window"`
	RateLimitAuthBurst    int           `mapstructure:"ratelimit_auth_burst"`
}

var defaults = map[string]any{
	"listen":                  ":8080",
	"debug":                   false,
	"mongo_uri":               "",
	"main_db":                 "social",
	"mongo_timeout":           "10s",
	"mongo_transactions":      true,
	"key":                     "",
	"token_ttl":               "24h",
	"bcrypt_cost":             10,
	"log_level":               "info",
	"log_format":              "text",
	"log_dir":                 "",
	"ratelimit_auth_requests": 5,
	"ratelimit_auth_window":   "1m",
	"ratelimit_auth_burst":    5,
}

// Load reads .env (if present) into the environment and then resolves every
// key. Environment variables take precedence over the config file.
func Load() (Config, error) {
	// .env is optional, existing variables are not overridden
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return errors.New("KEY is required to sign tokens")
	}
	if c.TokenTTL < 0 {
		return errors.New("TOKEN_TTL must not be negative")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST %d out of range 4-31", c.BcryptCost)
	}
	if c.MongoTimeout <= 0 {
		return errors.New("MONGO_TIMEOUT must be positive")
	}
	return nil
}
