package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`
	LogLevel   string `mapstructure:"log_level"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	RateBurst  int           `mapstructure:"rate_burst"`

	// BackpressurePolicy is "kick" or "detach".
	BackpressurePolicy string `mapstructure:"backpressure_policy"`

	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`

	// JournalPath is the sqlite activity journal. Empty disables it.
	JournalPath string `mapstructure:"journal_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 100<<20)
	v.SetDefault("ping_period", "10s")
	v.SetDefault("send_buffer", 256)
	v.SetDefault("rate_limit", 50.0)
	v.SetDefault("rate_burst", 100)
	v.SetDefault("backpressure_policy", "kick")
	v.SetDefault("sweep_interval", "5m")
	v.SetDefault("idle_timeout", "5m")
	v.SetDefault("journal_path", "")
}

// Load reads config/config.<env>.yaml, then RELAY_* environment variables,
// then command line flags. A missing file falls back to defaults.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	envFlag := flags.String("env", "", "config environment (config/config.<env>.yaml); overrides CONFIG_ENV")
	flags.Int("port", 8080, "listen port")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	env := *envFlag
	if env == "" {
		env = os.Getenv("CONFIG_ENV")
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("RELAY")
	v.AutomaticEnv()

	if err := v.BindPFlag("port", flags.Lookup("port")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PingPeriod <= 0 {
		return fmt.Errorf("ping_period must be positive, got %s", c.PingPeriod)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %s", c.SweepInterval)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %s", c.IdleTimeout)
	}
	if c.ReadLimit < 0 {
		return fmt.Errorf("read_limit must not be negative, got %d", c.ReadLimit)
	}
	if c.SendBuffer < 1 {
		return fmt.Errorf("send_buffer must be at least 1, got %d", c.SendBuffer)
	}
	return nil
}
