package config

import (
	"fmt"
	"github.com/spf13/viper"
	"slices"
)

type LogLevel string

const (
	LevelDebug   LogLevel = "DEBUG"
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelFatal   LogLevel = "FATAL"
)

var knownLevels = []LogLevel{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelFatal}

type LoggerConfig struct {
	LogLevel   LogLevel `mapstructure:"log_level"`
	AppName    string   `mapstructure:"app_name"`
	OutputFile string   `mapstructure:"output_file"`

	// Loki is enabled when LokiURL is set.
	LokiURL      string `mapstructure:"loki_url"`
	LokiUser     string `mapstructure:"loki_user"`
	LokiPassword string `mapstructure:"loki_password"`
}

func (config LoggerConfig) validate() error {
	var errs []error

	if config.LogLevel == "" {
		errs = append(errs, fmt.Errorf("missing variable: log_level"))
	} else if !slices.Contains(knownLevels, config.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log_level %q, expected one of %v", config.LogLevel, knownLevels))
	}

	if config.OutputFile == "" {
		errs = append(errs, fmt.Errorf("missing variable: output_file"))
	}

	if config.LokiURL != "" && config.AppName == "" {
		errs = append(errs, fmt.Errorf("app_name is required when loki_url is set"))
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}

func (config LoggerConfig) bindEnvironmentVariables() error {
	bindings := map[string]string{
		"logger.log_level":     "LOG_LEVEL",
		"logger.app_name":      "APP_NAME",
		"logger.output_file":   "LOG_OUTPUT_FILE",
		"logger.loki_url":      "LOKI_URL",
		"logger.loki_user":     "LOKI_USER",
		"logger.loki_password": "LOKI_PASSWORD",
	}

	var errs []error
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
