package config

import (
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DataDir   string `envconfig:"DATA_DIR" default:"./data"`
	MoonFile  string `envconfig:"MOON_FILE" default:"moon_bitcoin_merged.csv"`
	PriceFile string `envconfig:"PRICE_FILE" default:"bitcoin_daily_range.csv"`

	DefaultCycles int `envconfig:"DEFAULT_CYCLES" default:"12"`

	BatchSize int `envconfig:"BATCH_SIZE" default:"1000"`
	Workers   int `envconfig:"WORKERS" default:"4"`

	APIHost         string        `envconfig:"API_HOST" default:"0.0.0.0"`
	APIPort         string        `envconfig:"API_PORT" default:"8000"`
	APIReadTimeout  time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	APIWriteTimeout time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`

	RateLimit int `envconfig:"RATE_LIMIT" default:"120"`

	AdminUser string `envconfig:"ADMIN_USER" default:"admin"`
	AdminPass string `envconfig:"ADMIN_PASS" default:"secret"`

	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() *Config {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return &cfg
}

func (c *Config) MoonPath() string {
	return filepath.Join(c.DataDir, c.MoonFile)
}

func (c *Config) PricePath() string {
	return filepath.Join(c.DataDir, c.PriceFile)
}
