package config

import (
	"fmt"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type WatcherConfig struct {
	Schedule string `mapstructure:"schedule"`
}

func (config WatcherConfig) validate() error {
	if config.Schedule == "" {
		return fmt.Errorf("missing variable: schedule")
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", config.Schedule, err)
	}
	return nil
}

func (config WatcherConfig) bindEnvironmentVariables() error {
	return viper.BindEnv("watcher.schedule", "WATCHER_SCHEDULE")
}
