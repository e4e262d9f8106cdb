package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"snooze/internal/api"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the resolved configuration for one invocation
type Config struct {
	API struct {
		BaseURL   string
		Timeout   time.Duration
		UserAgent string
		RateLimit float64
		RateBurst int
	}
	CredentialsPath string
	LogLevel        string
	MetricsTextfile string
	Preview         struct {
		Timeout  time.Duration
		MaxBytes int64
	}
	TTS struct {
		Type      string
		Voice     string
		Speed     float64
		Volume    float64
		CachePath string
	}
}

func SetDefaults() {
	viper.SetDefault("api.base_url", api.DefaultBaseURL)
	viper.SetDefault("api.timeout", 30*time.Second)
	viper.SetDefault("api.user_agent", api.DefaultUserAgent)
	viper.SetDefault("api.rate_limit", 5.0) // requests per second, 0 disables pacing
	viper.SetDefault("api.rate_burst", 1)

	viper.SetDefault("session.credentials_path", "")
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("preview.timeout", 10*time.Second)
	viper.SetDefault("preview.max_bytes", 1<<20)

	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "default")
	viper.SetDefault("tts.speed", 1.0)
	viper.SetDefault("tts.volume", 0.8)
	viper.SetDefault("tts.cache_path", filepath.Join(".snooze", "tts-cache"))
}

// Init wires the config file and environment. cfgFile overrides the search path.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("snooze")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.snooze")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("snooze")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	logrus.WithField("file", viper.ConfigFileUsed()).Debug("loaded config file")
	return nil
}

func Load() (Config, error) {
	var cfg Config

	cfg.API.BaseURL = viper.GetString("api.base_url")
	cfg.API.Timeout = viper.GetDuration("api.timeout")
	cfg.API.UserAgent = viper.GetString("api.user_agent")
	cfg.API.RateLimit = viper.GetFloat64("api.rate_limit")
	cfg.API.RateBurst = viper.GetInt("api.rate_burst")

	cfg.CredentialsPath = viper.GetString("session.credentials_path")
	cfg.LogLevel = viper.GetString("log.level")
	cfg.MetricsTextfile = viper.GetString("metrics.textfile")

	cfg.Preview.Timeout = viper.GetDuration("preview.timeout")
	cfg.Preview.MaxBytes = viper.GetInt64("preview.max_bytes")

	cfg.TTS.Type = viper.GetString("tts.type")
	cfg.TTS.Voice = viper.GetString("tts.voice")
	cfg.TTS.Speed = viper.GetFloat64("tts.speed")
	cfg.TTS.Volume = viper.GetFloat64("tts.volume")
	cfg.TTS.CachePath = viper.GetString("tts.cache_path")

	if cfg.API.Timeout <= 0 {
		return Config{}, fmt.Errorf("api.timeout must be positive, got %s", cfg.API.Timeout)
	}
	if cfg.API.RateLimit < 0 {
		return Config{}, fmt.Errorf("api.rate_limit must not be negative, got %v", cfg.API.RateLimit)
	}
	if cfg.API.RateBurst < 1 {
		cfg.API.RateBurst = 1
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid log.level: %w", err)
	}

	return cfg, nil
}
