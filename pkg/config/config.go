package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "ASYNCQ"

// Config is the complete asyncq configuration.
type Config struct {
	Database  *Database
	Sweep     *Sweep
	Retention *Retention
	Logger    *Logger
	Metrics   *Metrics
	Viper     *viper.Viper
}

// New returns a Viper instance reading ASYNCQ_* environment variables.
// Flags can be bound to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path into v. An empty path searches for
// asyncq.{yaml,json,toml} in the working directory, $HOME/.asyncq and
// /etc/asyncq; a missing file is not an error in that case.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("asyncq")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.asyncq")
		v.AddConfigPath("/etc/asyncq")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database:  getDatabaseConfig(v),
		Sweep:     getSweepConfig(v),
		Retention: getRetentionConfig(v),
		Logger:    getLoggerConfig(v),
		Metrics:   getMetricsConfig(v),
		Viper:     v,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}
	if _, err := c.Sweep.TriggerSchedule(); err != nil {
		return fmt.Errorf("config: sweep.interval: %w", err)
	}
	if _, err := c.Retention.RescheduleSchedule(); err != nil {
		return fmt.Errorf("config: retention.interval: %w", err)
	}
	if _, err := c.Logger.SlogLevel(); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}
