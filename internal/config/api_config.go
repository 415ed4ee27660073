package config

import (
	"fmt"
	"github.com/spf13/viper"
	"net/url"
	"time"
)

type APIConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	Token                string        `mapstructure:"token"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRequestsPerSecond float32       `mapstructure:"max_requests_per_second"`
}

func (config APIConfig) validate() error {
	var errs []error

	if config.BaseURL == "" {
		errs = append(errs, fmt.Errorf("missing variable: base_url"))
	} else if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid base_url: %w", err))
	}

	if config.Token == "" {
		errs = append(errs, fmt.Errorf("missing variable: token"))
	}

	if config.MaxRequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("max_requests_per_second must be greater than zero"))
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}

func (config APIConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("api.base_url", "API_BASE_URL"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("api.token", "API_TOKEN"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("api.timeout", "API_TIMEOUT"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("api.max_requests_per_second", "API_MAX_REQUESTS_PER_SECOND"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
