package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Profile  ProfileConfig  `yaml:"profile" mapstructure:"profile"`
	Briefing BriefingConfig `yaml:"briefing" mapstructure:"briefing"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ProfileConfig holds settings for the profile-context API.
type ProfileConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	ContextPath   string `yaml:"context_path" mapstructure:"context_path"`
	RetryPath     string `yaml:"retry_path" mapstructure:"retry_path"`
	SessionCookie string `yaml:"session_cookie" mapstructure:"session_cookie"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec    int    `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// BriefingConfig configures the poll loop.
type BriefingConfig struct {
	InitialDelayMs   int  `yaml:"initial_delay_ms" mapstructure:"initial_delay_ms"`
	PollIntervalMs   int  `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	MaxAttempts      int  `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimelineTickMs   int  `yaml:"timeline_tick_ms" mapstructure:"timeline_tick_ms"`
	TimelineMaxStep  int  `yaml:"timeline_max_step" mapstructure:"timeline_max_step"`
	BackoffEnabled   bool `yaml:"backoff_enabled" mapstructure:"backoff_enabled"`
	BackoffMaxDelayS int  `yaml:"backoff_max_delay_secs" mapstructure:"backoff_max_delay_secs"`
}

// InitialDelay returns the delay before the first poll.
func (c BriefingConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMs) * time.Millisecond
}

// PollInterval returns the delay between polls.
func (c BriefingConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// TimelineTick returns the cosmetic timeline cadence.
func (c BriefingConfig) TimelineTick() time.Duration {
	return time.Duration(c.TimelineTickMs) * time.Millisecond
}

// StoreConfig configures the optional session journal backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BRIEFING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("profile.base_url", "http://localhost:4000")
	v.SetDefault("profile.context_path", "/api/user/profile-context")
	v.SetDefault("profile.retry_path", "/api/user/enrich/retry")
	v.SetDefault("profile.session_cookie", "session")
	v.SetDefault("profile.timeout_secs", 15)
	v.SetDefault("profile.rate_per_sec", 5)
	v.SetDefault("briefing.initial_delay_ms", 2000)
	v.SetDefault("briefing.poll_interval_ms", 3000)
	v.SetDefault("briefing.max_attempts", 90)
	v.SetDefault("briefing.timeline_tick_ms", 3000)
	v.SetDefault("briefing.timeline_max_step", 4)
	v.SetDefault("briefing.backoff_enabled", false)
	v.SetDefault("briefing.backoff_max_delay_secs", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "briefing.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
