package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	APIKey          string   `mapstructure:"api_key"`
	CountCameras    int      `mapstructure:"count_cameras"`
	MaxCountCameras int      `mapstructure:"max_count_cameras"`
	SlotsPerDevice  int      `mapstructure:"slots_per_device"`
	PublisherName   string   `mapstructure:"publisher_name"`
	SignalURL       string   `mapstructure:"signal_url"`
	ICEServers      []string `mapstructure:"ice_servers"`

	Credentials []domain.Credential `mapstructure:"credentials"`

	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

// Load reads config/config.<CONFIG_ENV>.yaml on top of defaults. A .env file
// in the working directory is applied to the environment first, and
// VIDEOCHAT_* variables override file values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg("failed to read .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("videochat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
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
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Int("count_cameras", cfg.CountCameras).
		Int("credentials", len(cfg.Credentials)).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")

	v.SetDefault("count_cameras", 1)
	v.SetDefault("max_count_cameras", 4)
	v.SetDefault("slots_per_device", 2)
	v.SetDefault("publisher_name", "videochat")
	v.SetDefault("signal_url", "ws://localhost:8090/signal")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})

	v.SetDefault("rate_limit", 5)
	v.SetDefault("rate_interval", "10s")
}

// Validate checks the camera layout. Credential coverage is checked when a
// call is planned, since each user needs a different block.
func (c *Config) Validate() error {
	if c.MaxCountCameras <= 0 {
		return fmt.Errorf("%w: max_count_cameras must be positive", domain.ErrConfiguration)
	}
	if c.CountCameras < 0 || c.CountCameras > c.MaxCountCameras {
		return fmt.Errorf("%w: count_cameras %d outside [0, %d]", domain.ErrConfiguration, c.CountCameras, c.MaxCountCameras)
	}
	if c.SlotsPerDevice <= 0 {
		return fmt.Errorf("%w: slots_per_device must be positive", domain.ErrConfiguration)
	}
	if c.RateLimit <= 0 || c.RateInterval <= 0 {
		return fmt.Errorf("%w: rate_limit and rate_interval must be positive", domain.ErrConfiguration)
	}
	return nil
}
